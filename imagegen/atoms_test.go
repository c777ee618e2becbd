package imagegen

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestIsDataURL(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"data:image/png;base64,iVBORw0KGgo=", true},
		{"data:image/jpeg;base64,/9j/4AAQ", true},
		{"https://example.com/image.png", false},
		{"http://localhost:5000/img", false},
		{"", false},
		{"database://something", false},
	}

	for _, tt := range tests {
		if got := IsDataURL(tt.ref); got != tt.want {
			t.Errorf("IsDataURL(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		text   string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a longer string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncateText(tt.text, tt.maxLen); got != tt.want {
			t.Errorf("truncateText(%q, %d) = %q, want %q", tt.text, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateBytes(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"abcdef", 4, "abcd"},
		// 3-byte euro sign straddling the limit is dropped whole
		{"aa€", 3, "aa"},
		{"aa€", 5, "aa€"},
		{"€€", 4, "€"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		got := truncateBytes(tt.s, tt.maxLen)
		if got != tt.want {
			t.Errorf("truncateBytes(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateBytes(%q, %d) produced invalid UTF-8", tt.s, tt.maxLen)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a  b", "a b"},
		{"  leading and trailing  ", "leading and trailing"},
		{"tabs\tand\nnewlines", "tabs and newlines"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := collapseWhitespace(tt.input); got != tt.want {
			t.Errorf("collapseWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStripForURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"photosynthesis in plants", "photosynthesis in plants"},
		{"Mathematics: f(x) = x2 + 2x - 1, graph & equation", "Mathematics fx x2 2x - 1, graph equation"},
		{"quotes \"inside\" here", "quotes inside here"},
		{"it's fine", "it's fine"},
	}

	for _, tt := range tests {
		if got := stripForURL(tt.input); got != tt.want {
			t.Errorf("stripForURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestShortenAtWord(t *testing.T) {
	s := "one two three four five"
	got := shortenAtWord(s, 12)
	if len(got) > 12 {
		t.Errorf("shortenAtWord result too long: %q (%d chars)", got, len(got))
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("shortenAtWord left trailing space: %q", got)
	}
	if got != "one two" {
		t.Errorf("shortenAtWord = %q, want %q", got, "one two")
	}

	if got := shortenAtWord("short", 100); got != "short" {
		t.Errorf("shortenAtWord should not touch strings within limit, got %q", got)
	}

	// No word boundary inside the limit: hard cut
	if got := shortenAtWord("abcdefghij", 5); got != "abcde" {
		t.Errorf("shortenAtWord hard cut = %q, want %q", got, "abcde")
	}
}

func TestContainsFold(t *testing.T) {
	if !containsFold("Jeffrey EPSTEIN case", "jeffrey epstein") {
		t.Error("containsFold should match case-insensitively")
	}
	if containsFold("harmless prompt", "epstein") {
		t.Error("containsFold matched absent substring")
	}
}
