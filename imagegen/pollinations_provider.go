// Package imagegen implements the multi-provider image generation engine.
//
// pollinations_provider.go implements the templated text-to-image URL
// adapter. No request body is sent; the adapter only constructs a GET URL
// that an image consumer resolves directly.
package imagegen

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"go.uber.org/zap"

	"imageservice/core"
	"imageservice/logging"
)

// SourcePollinations is the source tag for the templated URL adapter.
const SourcePollinations = "pollinations"

// maxImageURLLen is the safe URL length bound. Longer URLs are rejected by
// intermediate proxies and some browsers.
const maxImageURLLen = 2000

// reshortenPromptLen is the prompt length used for the single rebuild when
// the first constructed URL exceeds maxImageURLLen.
const reshortenPromptLen = 100

// PollinationsProvider builds seeded generation URLs for a public
// text-to-image endpoint. The prompt is stripped of exotic characters,
// percent-encoded into the URL path, and a random seed is drawn per attempt
// so upstream caches do not collapse distinct requests.
//
// Thread Safety: safe for concurrent use.
type PollinationsProvider struct {
	baseURL       string
	defaultWidth  int
	defaultHeight int
	logger        *logging.Logger

	// seedFn is swappable for deterministic tests
	seedFn func() int
}

// NewPollinationsProvider creates the templated URL adapter from engine config.
func NewPollinationsProvider(cfg *core.Config, logger *logging.Logger) (*PollinationsProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	if cfg.PollinationsBaseURL == "" {
		return nil, fmt.Errorf("imagegen: pollinations base URL cannot be empty")
	}

	return &PollinationsProvider{
		baseURL:       cfg.PollinationsBaseURL,
		defaultWidth:  cfg.DefaultWidth,
		defaultHeight: cfg.DefaultHeight,
		logger:        logger.Named(SourcePollinations),
		seedFn:        func() int { return rand.Intn(10000) },
	}, nil
}

// Name returns the adapter's source identifier.
func (p *PollinationsProvider) Name() string { return SourcePollinations }

// Attempt constructs the generation URL for the prompt.
//
// If the first constructed URL exceeds maxImageURLLen the prompt is
// shortened once to reshortenPromptLen characters and the URL rebuilt; if
// it still exceeds the bound the attempt is a soft failure. The adapter
// never downloads image bytes itself.
func (p *PollinationsProvider) Attempt(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return failed(SourcePollinations, start)
	}

	stripped := stripForURL(prompt)
	if stripped == "" {
		p.logger.Warn("prompt empty after stripping")
		return failed(SourcePollinations, start)
	}

	width, height := requestDimensions(req, p.defaultWidth, p.defaultHeight)
	seed := p.seedFn()

	candidate := p.buildURL(stripped, width, height, seed)
	if len(candidate) > maxImageURLLen {
		shortened := shortenAtWord(stripped, reshortenPromptLen)
		candidate = p.buildURL(shortened, width, height, seed)
		if len(candidate) > maxImageURLLen {
			p.logger.Warn("URL still too long after re-shortening",
				zap.Int("url_len", len(candidate)))
			return failed(SourcePollinations, start)
		}
	}

	return succeeded(SourcePollinations, candidate, start)
}

// buildURL assembles the templated generation URL.
func (p *PollinationsProvider) buildURL(prompt string, width, height, seed int) string {
	return fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&seed=%d&enhance=true&nologo=true",
		p.baseURL, url.PathEscape(prompt), width, height, seed)
}

// Ensure PollinationsProvider implements Provider at compile time.
var _ Provider = (*PollinationsProvider)(nil)
