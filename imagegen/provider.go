// Package imagegen implements the multi-provider image generation engine.
//
// provider.go defines the common adapter contract. Each provider wraps one
// external image-producing backend behind a uniform attempt interface so the
// orchestrator can iterate them as a data-driven list.
package imagegen

import (
	"context"
	"time"
)

// Provider is the interface implemented by every image generation adapter.
//
// Attempt takes the enhanced prompt plus the original request (for topic,
// quality and dimensions) and returns a tagged result. Implementations MUST
// NOT return errors or panic across this boundary: any internal failure,
// network error, or business-rule decline becomes a result with
// Succeeded=false, and the orchestrator moves on to the next adapter.
type Provider interface {
	// Name returns the adapter's source identifier, used for the Source
	// tag on results and for log attribution.
	Name() string

	// Attempt tries to produce an image candidate for the prompt.
	// The context bounds and cancels any network work.
	Attempt(ctx context.Context, prompt string, req GenerationRequest) ProviderResult
}

// failed builds a soft-failure result for the named adapter.
func failed(source string, start time.Time) ProviderResult {
	return ProviderResult{
		Source:  source,
		Elapsed: time.Since(start),
	}
}

// succeeded builds a success result for the named adapter.
func succeeded(source, url string, start time.Time) ProviderResult {
	return ProviderResult{
		URL:       url,
		Source:    source,
		Succeeded: true,
		Elapsed:   time.Since(start),
	}
}

// requestDimensions resolves the request's base dimensions, applying engine
// defaults for zero values.
func requestDimensions(req GenerationRequest, defaultWidth, defaultHeight int) (int, int) {
	width, height := req.Width, req.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return width, height
}
