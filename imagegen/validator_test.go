package imagegen

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imageservice/logging"
)

func newTestValidator(t *testing.T, cfg ValidatorConfig) *Validator {
	t.Helper()
	v, err := NewValidatorWithConfig(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewValidatorWithConfig failed: %v", err)
	}
	return v
}

// tinyPNG returns an encoded 1x1 PNG for deep-check tests.
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestValidator_AcceptsImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Content-Type", "image/jpeg")
	}))
	defer server.Close()

	v := newTestValidator(t, DefaultValidatorConfig())
	if !v.IsReachable(context.Background(), server.URL) {
		t.Error("2xx image response should validate")
	}
}

func TestValidator_ContentTypeWithParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png; charset=binary")
	}))
	defer server.Close()

	v := newTestValidator(t, DefaultValidatorConfig())
	if !v.IsReachable(context.Background(), server.URL) {
		t.Error("content type parameters should be ignored")
	}
}

func TestValidator_RejectsNonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer server.Close()

	v := newTestValidator(t, DefaultValidatorConfig())
	if v.IsReachable(context.Background(), server.URL) {
		t.Error("non-image content type should fail validation")
	}
}

func TestValidator_RejectsErrorStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(status)
		}))

		v := newTestValidator(t, DefaultValidatorConfig())
		if v.IsReachable(context.Background(), server.URL) {
			t.Errorf("status %d should fail validation", status)
		}
		server.Close()
	}
}

func TestValidator_FailsClosedOnNetworkError(t *testing.T) {
	v := newTestValidator(t, DefaultValidatorConfig())
	if v.IsReachable(context.Background(), "http://127.0.0.1:0/image.png") {
		t.Error("unreachable host should fail validation")
	}
}

func TestValidator_FailsClosedOnTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "image/png")
	}))
	defer server.Close()

	v := newTestValidator(t, ValidatorConfig{Timeout: 50 * time.Millisecond})
	if v.IsReachable(context.Background(), server.URL) {
		t.Error("slow server should fail validation")
	}
}

func TestValidator_DataURLBypassesNetwork(t *testing.T) {
	v := newTestValidator(t, DefaultValidatorConfig())
	if !v.IsReachable(context.Background(), "data:image/png;base64,iVBORw0KGgo=") {
		t.Error("data URLs should bypass the reachability check")
	}
}

func TestValidator_EmptyURL(t *testing.T) {
	v := newTestValidator(t, DefaultValidatorConfig())
	if v.IsReachable(context.Background(), "") {
		t.Error("empty URL should fail validation")
	}
}

func TestValidator_DeepCheckAcceptsRealImage(t *testing.T) {
	img := tinyPNG(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if r.Method == http.MethodGet {
			w.Write(img)
		}
	}))
	defer server.Close()

	v := newTestValidator(t, ValidatorConfig{DeepCheck: true})
	if !v.IsReachable(context.Background(), server.URL) {
		t.Error("decodable image should pass the deep check")
	}
}

func TestValidator_DeepCheckRejectsLyingContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if r.Method == http.MethodGet {
			w.Write([]byte("<html>not an image</html>"))
		}
	}))
	defer server.Close()

	v := newTestValidator(t, ValidatorConfig{DeepCheck: true})
	if v.IsReachable(context.Background(), server.URL) {
		t.Error("non-image body should fail the deep check")
	}
}

func TestIsImageContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"IMAGE/PNG", true},
		{"image/webp; q=0.9", true},
		{" image/gif ", true},
		{"text/html", false},
		{"application/json", false},
		{"", false},
		{"imagery/fake", false},
	}

	for _, tt := range tests {
		if got := isImageContentType(tt.contentType); got != tt.want {
			t.Errorf("isImageContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
