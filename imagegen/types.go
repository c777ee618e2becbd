// Package imagegen implements the multi-provider image generation engine.
//
// Given a free-text prompt it sanitizes and moderates the prompt, tries an
// ordered sequence of generation backends, validates candidate URLs, caches
// validated results, and always returns a usable image reference even when
// every backend fails.
package imagegen

import "time"

// Style selects the descriptor clause appended to the enhanced prompt.
type Style string

// Supported prompt styles.
const (
	StyleEducational Style = "educational"
	StyleRealistic   Style = "realistic"
	StyleArtistic    Style = "artistic"
	StyleScientific  Style = "scientific"
)

// Quality selects the resolution scaling applied by generation backends.
type Quality string

// Supported quality modes.
const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
	QualityUltra    Quality = "ultra"
)

// GenerationRequest describes one image generation request.
// Immutable once constructed; a zero Topic, Style, Quality or dimension
// falls back to defaults during generation.
type GenerationRequest struct {
	// RawPrompt is the user's free-text prompt
	RawPrompt string

	// Topic optionally names the subject domain, used for stock photo matching
	Topic string

	// Style selects the descriptor suffix (default: educational)
	Style Style

	// Quality selects resolution scaling (default: standard)
	Quality Quality

	// Width and Height are the requested base dimensions in pixels.
	// Zero values use the engine defaults.
	Width  int
	Height int
}

// ProviderResult is the tagged outcome of a single adapter attempt.
// Adapters never return errors across this boundary; internal failures are
// converted into Succeeded=false results.
type ProviderResult struct {
	// URL is the candidate image reference: an externally resolvable URL
	// or an inline data URL. Empty when Succeeded is false.
	URL string

	// Source identifies the adapter that produced this result
	Source string

	// Succeeded reports whether the adapter produced a candidate
	Succeeded bool

	// Elapsed is how long the attempt took
	Elapsed time.Duration
}

// GenerateResult is the outcome of a full orchestrated generation.
// Generate never fails: even on total exhaustion Success is true and
// Source is SourceFallback, because the static fallback guarantees a
// usable URL. The Source tag is the only degradation signal.
type GenerateResult struct {
	// URL is the accepted image reference
	URL string

	// Source identifies where the image came from: an adapter name,
	// SourceCache, or SourceFallback
	Source string

	// Success is always true under normal operation; the fallback
	// guarantees a result
	Success bool

	// EnhancedPrompt is the sanitized prompt actually sent to backends
	EnhancedPrompt string

	// Elapsed is the total orchestration time
	Elapsed time.Duration
}

// Reserved source tags used by the orchestrator.
const (
	SourceCache    = "cache"
	SourceFallback = "fallback"
)
