// Package imagegen implements the multi-provider image generation engine.
//
// validator.go implements the validation gate: a lightweight reachability
// and content-type check applied to externally hosted candidate URLs before
// the orchestrator accepts them. It fails closed on any doubt.
package imagegen

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	// Register decoders for the deep check. The gate never renders images;
	// it only parses headers to confirm the bytes really are an image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"go.uber.org/zap"

	"imageservice/core"
	"imageservice/logging"
)

// deepCheckReadLimit bounds how much of the body the deep check downloads.
// Image headers sit in the first few KB; 64KB covers exotic encoders.
const deepCheckReadLimit = 64 << 10

// Validator performs the reachability check on candidate image URLs.
//
// The standard check is a HEAD request: the URL is accepted only when the
// response is 2xx and declares an image content type. The optional deep
// check follows up with a bounded GET and decodes the image header, catching
// servers that lie in Content-Type.
//
// Inline data URLs never reach the Validator; the orchestrator bypasses the
// gate for them.
//
// Thread Safety: safe for concurrent use.
type Validator struct {
	client    *http.Client
	timeout   time.Duration
	deepCheck bool
	logger    *logging.Logger
}

// ValidatorConfig holds configuration for the validation gate.
type ValidatorConfig struct {
	// HTTPClient is the client for validation requests (optional).
	HTTPClient *http.Client

	// Timeout bounds each validation request. Default: 5 seconds.
	// A hang here must never stall the whole generation.
	Timeout time.Duration

	// DeepCheck enables image header decoding on top of the HEAD check.
	DeepCheck bool
}

// DefaultValidatorConfig returns sensible defaults for URL validation.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		Timeout: core.DefaultValidationTimeout,
	}
}

// NewValidator creates the validation gate from engine config.
func NewValidator(cfg *core.Config, logger *logging.Logger) (*Validator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	return NewValidatorWithConfig(ValidatorConfig{
		HTTPClient: core.GetHTTPClient(cfg, cfg.ValidationTimeout),
		Timeout:    cfg.ValidationTimeout,
		DeepCheck:  cfg.DeepValidation,
	}, logger)
}

// NewValidatorWithConfig creates a validator with explicit configuration.
// Useful in tests for injecting an httptest client.
func NewValidatorWithConfig(cfg ValidatorConfig, logger *logging.Logger) (*Validator, error) {
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = core.DefaultValidationTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Validator{
		client:    client,
		timeout:   timeout,
		deepCheck: cfg.DeepCheck,
		logger:    logger.Named("validator"),
	}, nil
}

// IsReachable reports whether url resolves to an image within the timeout.
// Any network error, non-2xx status, non-image content type, or decode
// failure (deep check) returns false.
func (v *Validator) IsReachable(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}
	// Inline data needs no network check
	if IsDataURL(url) {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		v.logger.Warn("failed to build validation request", zap.Error(err))
		return false
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warn("validation request failed",
			zap.String("url", truncateText(url, 100)), zap.Error(err))
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Warn("candidate URL not reachable",
			zap.String("url", truncateText(url, 100)),
			zap.Int("status", resp.StatusCode))
		return false
	}
	if !isImageContentType(resp.Header.Get("Content-Type")) {
		v.logger.Warn("candidate URL is not an image",
			zap.String("url", truncateText(url, 100)),
			zap.String("content_type", resp.Header.Get("Content-Type")))
		return false
	}

	if v.deepCheck {
		return v.decodeCheck(ctx, url)
	}
	return true
}

// decodeCheck downloads a bounded prefix of the body and verifies it parses
// as an image header.
func (v *Validator) decodeCheck(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warn("deep check request failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	_, format, err := image.DecodeConfig(io.LimitReader(resp.Body, deepCheckReadLimit))
	if err != nil {
		v.logger.Warn("candidate body does not decode as an image",
			zap.String("url", truncateText(url, 100)), zap.Error(err))
		return false
	}

	v.logger.Debug("deep check passed", zap.String("format", format))
	return true
}

// isImageContentType reports whether a Content-Type header declares an image.
// Parameters after ";" are ignored.
func isImageContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	lower := strings.ToLower(contentType)
	if idx := strings.Index(lower, ";"); idx != -1 {
		lower = lower[:idx]
	}
	return strings.HasPrefix(strings.TrimSpace(lower), "image/")
}
