package imagegen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"imageservice/logging"
)

// mockProvider is a scriptable adapter for orchestrator tests.
type mockProvider struct {
	name      string
	attemptFn func(ctx context.Context, prompt string, req GenerationRequest) ProviderResult

	mu    sync.Mutex
	calls int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Attempt(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.attemptFn(ctx, prompt, req)
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func succeedingMock(name, url string) *mockProvider {
	return &mockProvider{
		name: name,
		attemptFn: func(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
			return succeeded(name, url, time.Now())
		},
	}
}

func failingMock(name string) *mockProvider {
	return &mockProvider{
		name: name,
		attemptFn: func(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
			return failed(name, time.Now())
		},
	}
}

// recordingRecorder captures history records for assertions.
type recordingRecorder struct {
	mu      sync.Mutex
	records []GenerationRecord
}

func (r *recordingRecorder) Record(rec GenerationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *recordingRecorder) all() []GenerationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GenerationRecord(nil), r.records...)
}

// newImageServer serves image/png headers for any path, so candidate URLs
// pointing at it pass the validation gate.
func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestOrchestrator(t *testing.T, recorder Recorder, providers ...Provider) *Orchestrator {
	t.Helper()
	sanitizer, err := NewSanitizer(DefaultPromptPolicy(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewSanitizer failed: %v", err)
	}
	validator := newTestValidator(t, DefaultValidatorConfig())
	o, err := NewOrchestrator(sanitizer, NewResultCache(), validator, providers, recorder, logging.NewNop())
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return o
}

func TestOrchestrator_FirstSuccessWins(t *testing.T) {
	server := newImageServer(t)
	first := succeedingMock("first", server.URL+"/a.png")
	second := succeedingMock("second", server.URL+"/b.png")

	o := newTestOrchestrator(t, nil, first, second)
	result := o.Generate(context.Background(), GenerationRequest{RawPrompt: "a red apple"})

	if !result.Success {
		t.Fatal("Generate should succeed")
	}
	if result.Source != "first" {
		t.Errorf("Source = %q, want first", result.Source)
	}
	if second.callCount() != 0 {
		t.Error("later adapters should not be attempted after a success")
	}
}

func TestOrchestrator_FallsThroughFailures(t *testing.T) {
	server := newImageServer(t)
	a := failingMock("a")
	b := failingMock("b")
	c := succeedingMock("c", server.URL+"/c.png")

	o := newTestOrchestrator(t, nil, a, b, c)
	result := o.Generate(context.Background(), GenerationRequest{RawPrompt: "test"})

	if result.Source != "c" {
		t.Errorf("Source = %q, want c", result.Source)
	}
	if a.callCount() != 1 || b.callCount() != 1 || c.callCount() != 1 {
		t.Errorf("attempt counts = %d/%d/%d, want 1/1/1",
			a.callCount(), b.callCount(), c.callCount())
	}
}

func TestOrchestrator_ValidationFailureMovesOn(t *testing.T) {
	server := newImageServer(t)
	// First adapter returns a URL nothing serves; validation fails closed.
	bad := succeedingMock("bad", "http://127.0.0.1:0/missing.png")
	good := succeedingMock("good", server.URL+"/ok.png")

	o := newTestOrchestrator(t, nil, bad, good)
	result := o.Generate(context.Background(), GenerationRequest{RawPrompt: "test"})

	if result.Source != "good" {
		t.Errorf("Source = %q, want good", result.Source)
	}
}

func TestOrchestrator_DataURLSkipsValidation(t *testing.T) {
	const dataURL = "data:image/png;base64,iVBORw0KGgo="
	local := succeedingMock("local", dataURL)

	o := newTestOrchestrator(t, nil, local)
	result := o.Generate(context.Background(), GenerationRequest{RawPrompt: "test"})

	if result.URL != dataURL {
		t.Errorf("URL = %q, want the inline data URL", result.URL)
	}
	if result.Source != "local" {
		t.Errorf("Source = %q, want local", result.Source)
	}
}

func TestOrchestrator_FallbackWhenAllFail(t *testing.T) {
	o := newTestOrchestrator(t, nil, failingMock("a"), failingMock("b"))
	result := o.Generate(context.Background(), GenerationRequest{RawPrompt: "test"})

	if result.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", result.Source, SourceFallback)
	}
	if !result.Success {
		t.Error("fallback results still report success; the source tag signals degradation")
	}
	if !strings.HasPrefix(result.URL, "https://images.unsplash.com/photo-") {
		t.Errorf("fallback URL = %q", result.URL)
	}
}

func TestOrchestrator_FallbackNotCached(t *testing.T) {
	o := newTestOrchestrator(t, nil, failingMock("a"))
	o.Generate(context.Background(), GenerationRequest{RawPrompt: "test"})

	if stats := o.CacheStats(); stats.Size != 0 {
		t.Errorf("cache size = %d after fallback, want 0", stats.Size)
	}
}

func TestOrchestrator_SecondCallHitsCache(t *testing.T) {
	server := newImageServer(t)
	p := succeedingMock("p", server.URL+"/a.png")

	o := newTestOrchestrator(t, nil, p)
	req := GenerationRequest{RawPrompt: "a red apple"}

	first := o.Generate(context.Background(), req)
	second := o.Generate(context.Background(), req)

	if second.Source != SourceCache {
		t.Errorf("second Source = %q, want %q", second.Source, SourceCache)
	}
	if second.URL != first.URL {
		t.Errorf("cache returned %q, want %q", second.URL, first.URL)
	}
	if p.callCount() != 1 {
		t.Errorf("adapter attempted %d times, want 1", p.callCount())
	}
}

func TestOrchestrator_DistinctPromptsDoNotShareCacheEntries(t *testing.T) {
	server := newImageServer(t)
	p := succeedingMock("p", server.URL+"/a.png")

	o := newTestOrchestrator(t, nil, p)
	o.Generate(context.Background(), GenerationRequest{RawPrompt: "apples"})
	o.Generate(context.Background(), GenerationRequest{RawPrompt: "oranges"})

	if p.callCount() != 2 {
		t.Errorf("distinct prompts should bypass each other's cache entries, got %d attempts", p.callCount())
	}
}

func TestOrchestrator_ClearCache(t *testing.T) {
	server := newImageServer(t)
	p := succeedingMock("p", server.URL+"/a.png")

	o := newTestOrchestrator(t, nil, p)
	req := GenerationRequest{RawPrompt: "test"}
	o.Generate(context.Background(), req)
	o.ClearCache()
	o.Generate(context.Background(), req)

	if p.callCount() != 2 {
		t.Errorf("adapter attempted %d times after clear, want 2", p.callCount())
	}
}

func TestOrchestrator_CancelledContextFallsBack(t *testing.T) {
	server := newImageServer(t)
	p := succeedingMock("p", server.URL+"/a.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(t, nil, p)
	result := o.Generate(ctx, GenerationRequest{RawPrompt: "test"})

	if result.Source != SourceFallback {
		t.Errorf("Source = %q, want %q", result.Source, SourceFallback)
	}
	if p.callCount() != 0 {
		t.Error("adapters should not be attempted once the context is cancelled")
	}
	if result.URL == "" {
		t.Error("even a cancelled generation must yield a URL")
	}
}

func TestOrchestrator_EnhancedPromptReachesAdapters(t *testing.T) {
	var gotPrompt string
	p := &mockProvider{
		name: "capture",
		attemptFn: func(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
			gotPrompt = prompt
			return succeeded("capture", "data:image/png;base64,x", time.Now())
		},
	}

	o := newTestOrchestrator(t, nil, p)
	result := o.Generate(context.Background(), GenerationRequest{
		RawPrompt: "photosynthesis in plants",
		Style:     StyleScientific,
	})

	want := "photosynthesis in plants, scientific illustration, precise, technical, professional quality"
	if gotPrompt != want {
		t.Errorf("adapter received %q, want %q", gotPrompt, want)
	}
	if result.EnhancedPrompt != want {
		t.Errorf("EnhancedPrompt = %q, want %q", result.EnhancedPrompt, want)
	}
}

func TestOrchestrator_RecordsHistory(t *testing.T) {
	recorder := &recordingRecorder{}
	p := succeedingMock("p", "data:image/png;base64,x")

	o := newTestOrchestrator(t, recorder, p)
	o.Generate(context.Background(), GenerationRequest{RawPrompt: "a red apple"})

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(records))
	}
	rec := records[0]
	if rec.Prompt != "a red apple" {
		t.Errorf("recorded Prompt = %q", rec.Prompt)
	}
	if rec.Source != "p" || !rec.Success {
		t.Errorf("recorded Source=%q Success=%v, want p/true", rec.Source, rec.Success)
	}
	if rec.CorrelationID == "" {
		t.Error("records should carry a correlation ID")
	}
}

func TestOrchestrator_RecordsFallback(t *testing.T) {
	recorder := &recordingRecorder{}
	o := newTestOrchestrator(t, recorder, failingMock("a"))
	o.Generate(context.Background(), GenerationRequest{RawPrompt: "test"})

	records := recorder.all()
	if len(records) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(records))
	}
	if records[0].Source != SourceFallback {
		t.Errorf("recorded Source = %q, want %q", records[0].Source, SourceFallback)
	}
}

func TestOrchestrator_ConcurrentGenerations(t *testing.T) {
	p := succeedingMock("p", "data:image/png;base64,x")
	o := newTestOrchestrator(t, nil, p)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			result := o.Generate(context.Background(), GenerationRequest{RawPrompt: "concurrent"})
			if result.URL == "" {
				t.Error("concurrent generation returned empty URL")
			}
		}(i)
	}
	wg.Wait()
}

func TestNewOrchestrator_Validation(t *testing.T) {
	sanitizer, _ := NewSanitizer(DefaultPromptPolicy(), logging.NewNop())
	validator := newTestValidator(t, DefaultValidatorConfig())
	providers := []Provider{failingMock("a")}
	log := logging.NewNop()

	if _, err := NewOrchestrator(nil, NewResultCache(), validator, providers, nil, log); err == nil {
		t.Error("nil sanitizer should be rejected")
	}
	if _, err := NewOrchestrator(sanitizer, nil, validator, providers, nil, log); err == nil {
		t.Error("nil cache should be rejected")
	}
	if _, err := NewOrchestrator(sanitizer, NewResultCache(), nil, providers, nil, log); err == nil {
		t.Error("nil validator should be rejected")
	}
	if _, err := NewOrchestrator(sanitizer, NewResultCache(), validator, nil, nil, log); err == nil {
		t.Error("empty provider chain should be rejected")
	}
	if _, err := NewOrchestrator(sanitizer, NewResultCache(), validator, providers, nil, nil); err == nil {
		t.Error("nil logger should be rejected")
	}
}

func TestNewOrchestratorFromConfig_CloudAdapterOptional(t *testing.T) {
	cfg := newTestConfig()

	o, err := NewOrchestratorFromConfig(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewOrchestratorFromConfig failed: %v", err)
	}
	if len(o.providers) != 4 {
		t.Fatalf("chain has %d adapters without an API key, want 4", len(o.providers))
	}
	if o.providers[0].Name() != SourceFlux {
		t.Errorf("first adapter = %q, want %q", o.providers[0].Name(), SourceFlux)
	}

	cfg.OpenAIAPIKey = "test-key"
	o, err = NewOrchestratorFromConfig(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewOrchestratorFromConfig with key failed: %v", err)
	}
	if len(o.providers) != 5 {
		t.Fatalf("chain has %d adapters with an API key, want 5", len(o.providers))
	}
	if o.providers[0].Name() != SourceOpenAI {
		t.Errorf("first adapter = %q, want %q", o.providers[0].Name(), SourceOpenAI)
	}
}

func TestFallbackImageURL_KnownSet(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		url := FallbackImageURL()
		found := false
		for _, known := range fallbackImages {
			if url == known {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("FallbackImageURL returned unknown URL %q", url)
		}
		seen[url] = true
	}
	if len(seen) < 2 {
		t.Error("fallback selection should vary across calls")
	}
}
