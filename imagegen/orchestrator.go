package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageservice/core"
	"imageservice/logging"
)

// Recorder receives a record of every completed generation. Implementations
// must not block; the orchestrator calls Record on its own goroutine.
type Recorder interface {
	Record(rec GenerationRecord)
}

// GenerationRecord describes one completed generation for history sinks.
type GenerationRecord struct {
	CorrelationID  string
	Prompt         string
	EnhancedPrompt string
	URL            string
	Source         string
	Success        bool
	Duration       time.Duration
	CreatedAt      time.Time
}

// Orchestrator runs the full generation pipeline: sanitize, check the cache,
// walk the adapter chain in order, validate candidates, cache the first
// validated success, and fall back to a static stock image when everything
// fails.
//
// Generate never returns an error; a caller always gets a usable URL.
//
// Thread Safety: safe for concurrent use. The cache serializes its own
// access; adapters and the validator are stateless.
type Orchestrator struct {
	sanitizer *Sanitizer
	cache     *ResultCache
	validator *Validator
	providers []Provider
	recorder  Recorder
	logger    *logging.Logger
}

// NewOrchestrator assembles an orchestrator from explicit components.
// The provider slice defines the attempt order. recorder may be nil.
func NewOrchestrator(sanitizer *Sanitizer, cache *ResultCache, validator *Validator, providers []Provider, recorder Recorder, logger *logging.Logger) (*Orchestrator, error) {
	if sanitizer == nil {
		return nil, fmt.Errorf("imagegen: sanitizer cannot be nil")
	}
	if cache == nil {
		return nil, fmt.Errorf("imagegen: cache cannot be nil")
	}
	if validator == nil {
		return nil, fmt.Errorf("imagegen: validator cannot be nil")
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("imagegen: at least one provider is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	return &Orchestrator{
		sanitizer: sanitizer,
		cache:     cache,
		validator: validator,
		providers: providers,
		recorder:  recorder,
		logger:    logger.Named("orchestrator"),
	}, nil
}

// NewOrchestratorFromConfig wires the standard adapter chain from engine
// config: local Flux first, then Pollinations, Unsplash, and Picsum. When an
// OpenAI API key is configured the cloud adapter is inserted at the head of
// the chain. recorder may be nil.
func NewOrchestratorFromConfig(cfg *core.Config, recorder Recorder, logger *logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}

	policy := DefaultPromptPolicy()
	if cfg.PromptPolicyFile != "" {
		loaded, err := LoadPromptPolicy(cfg.PromptPolicyFile)
		if err != nil {
			return nil, err
		}
		policy = loaded
	}
	sanitizer, err := NewSanitizer(policy, logger)
	if err != nil {
		return nil, err
	}

	validator, err := NewValidator(cfg, logger)
	if err != nil {
		return nil, err
	}

	var providers []Provider
	if cfg.OpenAIAPIKey != "" {
		cloud, err := NewOpenAIProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, cloud)
	}

	flux, err := NewFluxProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	pollinations, err := NewPollinationsProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	unsplash, err := NewUnsplashProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	picsum, err := NewPicsumProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	providers = append(providers, flux, pollinations, unsplash, picsum)

	return NewOrchestrator(sanitizer, NewResultCache(), validator, providers, recorder, logger)
}

// Generate produces an image URL for the request.
//
// The pipeline:
//  1. Sanitize and enhance the raw prompt.
//  2. Return a cached URL for the same raw prompt if one exists.
//  3. Try each adapter in order. A candidate URL must pass the validation
//     gate before it is accepted; inline data URLs skip the gate. The first
//     validated success is cached and returned.
//  4. If every adapter fails (or the context is cancelled), return a static
//     fallback image. Fallbacks are never cached.
//
// Generate never returns an error and never panics on provider misbehavior.
func (o *Orchestrator) Generate(ctx context.Context, req GenerationRequest) GenerateResult {
	start := time.Now()
	correlationID := uuid.New().String()
	log := o.logger.With(zap.String("correlation_id", correlationID))

	enhanced := o.sanitizer.Enhance(req)
	log.Info("generation started",
		zap.String("prompt_preview", truncateText(req.RawPrompt, 50)),
		zap.String("style", string(req.Style)))

	key := CacheKey(enhanced)
	if url, ok := o.cache.Get(key); ok {
		log.Info("cache hit", zap.String("url", truncateText(url, 100)))
		return GenerateResult{
			URL:            url,
			Source:         SourceCache,
			Success:        true,
			EnhancedPrompt: enhanced,
			Elapsed:        time.Since(start),
		}
	}

	for _, provider := range o.providers {
		if ctx.Err() != nil {
			log.Warn("generation cancelled", zap.Error(ctx.Err()))
			break
		}

		attempt := provider.Attempt(ctx, enhanced, req)
		if !attempt.Succeeded {
			log.Info("adapter declined",
				zap.String("adapter", provider.Name()),
				zap.Duration("elapsed", attempt.Elapsed))
			continue
		}

		if !IsDataURL(attempt.URL) && !o.validator.IsReachable(ctx, attempt.URL) {
			log.Warn("adapter result failed validation",
				zap.String("adapter", provider.Name()),
				zap.String("url", truncateText(attempt.URL, 100)))
			continue
		}

		o.cache.Put(key, attempt.URL)
		result := GenerateResult{
			URL:            attempt.URL,
			Source:         attempt.Source,
			Success:        true,
			EnhancedPrompt: enhanced,
			Elapsed:        time.Since(start),
		}
		log.Info("generation succeeded",
			zap.String("source", result.Source),
			zap.Duration("elapsed", result.Elapsed))
		o.record(correlationID, req, result)
		return result
	}

	// The static fallback still counts as a successful generation from the
	// caller's perspective; the Source tag carries the degradation signal.
	result := GenerateResult{
		URL:            FallbackImageURL(),
		Source:         SourceFallback,
		Success:        true,
		EnhancedPrompt: enhanced,
		Elapsed:        time.Since(start),
	}
	log.Warn("all adapters failed, serving fallback image",
		zap.Duration("elapsed", result.Elapsed))
	o.record(correlationID, req, result)
	return result
}

// ClearCache drops all cached results.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}

// CacheStats reports the current cache contents.
func (o *Orchestrator) CacheStats() CacheStats {
	return o.cache.Stats()
}

func (o *Orchestrator) record(correlationID string, req GenerationRequest, res GenerateResult) {
	if o.recorder == nil {
		return
	}
	o.recorder.Record(GenerationRecord{
		CorrelationID:  correlationID,
		Prompt:         req.RawPrompt,
		EnhancedPrompt: res.EnhancedPrompt,
		URL:            res.URL,
		Source:         res.Source,
		Success:        res.Success,
		Duration:       res.Elapsed,
		CreatedAt:      time.Now(),
	})
}
