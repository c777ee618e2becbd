// Package imagegen implements the multi-provider image generation engine.
//
// picsum_provider.go implements the deterministic placeholder adapter, the
// last "real" attempt before the static fallback. It always succeeds.
package imagegen

import (
	"context"
	"fmt"
	"time"

	"imageservice/core"
	"imageservice/logging"
)

// SourcePicsum is the source tag for the placeholder adapter.
const SourcePicsum = "picsum"

// PicsumProvider builds seeded placeholder image URLs. The seed mixes the
// prompt length with the current time so repeated requests for the same
// prompt still vary, while the URL itself is always resolvable.
//
// Thread Safety: safe for concurrent use.
type PicsumProvider struct {
	baseURL string
	logger  *logging.Logger

	// nowFn is swappable for deterministic tests
	nowFn func() time.Time
}

// NewPicsumProvider creates the placeholder adapter from engine config.
func NewPicsumProvider(cfg *core.Config, logger *logging.Logger) (*PicsumProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	if cfg.PicsumBaseURL == "" {
		return nil, fmt.Errorf("imagegen: picsum base URL cannot be empty")
	}

	return &PicsumProvider{
		baseURL: cfg.PicsumBaseURL,
		logger:  logger.Named(SourcePicsum),
		nowFn:   time.Now,
	}, nil
}

// Name returns the adapter's source identifier.
func (p *PicsumProvider) Name() string { return SourcePicsum }

// Attempt builds the seeded placeholder URL. Always succeeds unless the
// context is already cancelled.
func (p *PicsumProvider) Attempt(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return failed(SourcePicsum, start)
	}

	seed := int64(len(prompt)) + p.nowFn().UnixMilli()
	url := fmt.Sprintf("%s/seed/%d/800/450", p.baseURL, seed)
	return succeeded(SourcePicsum, url, start)
}

// Ensure PicsumProvider implements Provider at compile time.
var _ Provider = (*PicsumProvider)(nil)
