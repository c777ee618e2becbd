// Package imagegen implements the multi-provider image generation engine.
//
// unsplash_provider.go implements the keyword-matched stock photo adapter.
// It cannot generate anything; it maps topics to a curated photo set and
// declines whenever nothing matches.
package imagegen

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"imageservice/core"
	"imageservice/logging"
)

// SourceUnsplash is the source tag for the stock photo adapter.
const SourceUnsplash = "unsplash"

// topicPhotos maps subject keywords to curated Unsplash photo identifiers.
// Matched first against the request's explicit topic, then as substrings of
// the prompt.
var topicPhotos = map[string][]string{
	// Science & Technology
	"science":    {"1532187863486-abf9dbad1b69", "1507003211169-0a1dd7884af1", "1628948174-e7f8e2c8e5ba"},
	"space":      {"1446776653964-20c1d3a81b06", "1502051615341-e67ad37bb0bb", "1419242902214-a76231d76ff1"},
	"technology": {"1555949963-aa79dcee981c", "1507003211169-0a1dd7884af1", "1518709268905-4e92cd382aaa"},
	"ai":         {"1555949963-aa79dcee981c", "1507003211169-0a1dd7884af1", "1518709268905-4e92cd382aaa"},

	// Nature & Biology
	"nature":  {"1441974231531-c6227db76b6e", "1426604966848-d7adac402bcc", "1416879595882-3373a0480b5b"},
	"biology": {"1532187863486-abf9dbad1b69", "1628948174-e7f8e2c8e5ba", "1507003211169-0a1dd7884af1"},
	"ocean":   {"1439066615861-d1af74d74000", "1506905925346-21bda4d32df4", "1419242902214-a76231d76ff1"},

	// History & Literature
	"history":    {"1481627834876-b7833e8f5570", "1507003211169-0a1dd7884af1", "1426604966848-d7adac402bcc"},
	"literature": {"1481627834876-b7833e8f5570", "1509228627373-8e45f8e18f06", "1472214103451-9374bd1c798e"},

	// Mathematics & Physics
	"mathematics": {"1635070041078-e363dbe005cb", "1509228627373-8e45f8e18f06", "1518709268905-4e92cd382aaa"},
	"physics":     {"1635070041078-e363dbe005cb", "1507003211169-0a1dd7884af1", "1518709268905-4e92cd382aaa"},
}

// UnsplashProvider serves curated stock photos for recognized topics.
// Inherently best-effort: it declines (soft failure) for any prompt whose
// topic is not in the curated map.
//
// Thread Safety: safe for concurrent use.
type UnsplashProvider struct {
	baseURL string
	logger  *logging.Logger

	// pickFn selects a photo index from a matched set; swappable for tests
	pickFn func(n int) int
}

// NewUnsplashProvider creates the stock photo adapter from engine config.
func NewUnsplashProvider(cfg *core.Config, logger *logging.Logger) (*UnsplashProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	if cfg.UnsplashBaseURL == "" {
		return nil, fmt.Errorf("imagegen: unsplash base URL cannot be empty")
	}

	return &UnsplashProvider{
		baseURL: cfg.UnsplashBaseURL,
		logger:  logger.Named(SourceUnsplash),
		pickFn:  rand.Intn,
	}, nil
}

// Name returns the adapter's source identifier.
func (p *UnsplashProvider) Name() string { return SourceUnsplash }

// Attempt matches the request topic (exact) or the prompt (keyword substring
// scan) against the curated photo map and builds a cropped/fit URL on match.
// No match is a soft failure.
func (p *UnsplashProvider) Attempt(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return failed(SourceUnsplash, start)
	}

	photos := p.matchPhotos(prompt, req.Topic)
	if len(photos) == 0 {
		p.logger.Debug("no curated photo set for prompt")
		return failed(SourceUnsplash, start)
	}

	photo := photos[p.pickFn(len(photos))]
	url := fmt.Sprintf("%s/photo-%s?w=800&h=450&fit=crop&crop=center&q=80", p.baseURL, photo)
	return succeeded(SourceUnsplash, url, start)
}

// matchPhotos resolves the curated photo set: explicit topic first, then a
// keyword scan over the prompt.
func (p *UnsplashProvider) matchPhotos(prompt, topic string) []string {
	if topic != "" {
		if photos, ok := topicPhotos[strings.ToLower(topic)]; ok {
			return photos
		}
	}

	// Sorted scan keeps keyword matching deterministic across runs.
	promptLower := strings.ToLower(prompt)
	keywords := make([]string, 0, len(topicPhotos))
	for keyword := range topicPhotos {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	for _, keyword := range keywords {
		if strings.Contains(promptLower, keyword) {
			return topicPhotos[keyword]
		}
	}
	return nil
}

// Ensure UnsplashProvider implements Provider at compile time.
var _ Provider = (*UnsplashProvider)(nil)
