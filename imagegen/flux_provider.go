// Package imagegen implements the multi-provider image generation engine.
//
// flux_provider.go implements the adapter for the local Flux companion
// service: a synchronous HTTP POST carrying the prompt and quality-scaled
// resolution, answered with an inline data URL.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"imageservice/core"
	"imageservice/logging"
)

// SourceFlux is the source tag for the local generation backend.
const SourceFlux = "flux"

// maxBackendDimension caps the scaled resolution sent to the backend.
const maxBackendDimension = 1024

// fluxRequest is the wire format of the local generation service.
type fluxRequest struct {
	Prompt      string `json:"prompt"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	QualityMode string `json:"quality_mode"`
}

// fluxResponse is the success/error response of the local generation service.
type fluxResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Error   string `json:"error"`
}

// FluxProvider generates images through a local/companion Flux backend.
//
// The backend answers with an inline data URL on success. An HTTP 503 with
// an "model_loading" error body means the model is still warming up; that is
// a soft failure with no retry here - the orchestrator simply moves on.
//
// Thread Safety: safe for concurrent use.
type FluxProvider struct {
	client        *http.Client
	endpoint      string
	defaultWidth  int
	defaultHeight int
	logger        *logging.Logger
}

// NewFluxProvider creates the local backend adapter from engine config.
func NewFluxProvider(cfg *core.Config, logger *logging.Logger) (*FluxProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	if cfg.FluxBackendURL == "" {
		return nil, fmt.Errorf("imagegen: flux backend URL cannot be empty")
	}

	return &FluxProvider{
		client:        core.GetHTTPClient(cfg, cfg.AITimeout),
		endpoint:      cfg.FluxBackendURL,
		defaultWidth:  cfg.DefaultWidth,
		defaultHeight: cfg.DefaultHeight,
		logger:        logger.Named(SourceFlux),
	}, nil
}

// Name returns the adapter's source identifier.
func (p *FluxProvider) Name() string { return SourceFlux }

// Attempt posts the prompt to the local backend and returns the inline image.
//
// The requested resolution is scaled by quality (ultra x1.5, high x1.25,
// standard x1.0), each dimension capped at maxBackendDimension. Any network
// failure, non-2xx status, or malformed body is a soft failure.
func (p *FluxProvider) Attempt(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
	start := time.Now()

	width, height := requestDimensions(req, p.defaultWidth, p.defaultHeight)
	width, height = scaleForQuality(width, height, req.Quality)

	quality := req.Quality
	if quality == "" {
		quality = QualityStandard
	}

	body, err := json.Marshal(fluxRequest{
		Prompt:      prompt,
		Width:       width,
		Height:      height,
		QualityMode: string(quality),
	})
	if err != nil {
		p.logger.Warn("failed to encode request", zap.Error(err))
		return failed(SourceFlux, start)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		p.logger.Warn("failed to build request", zap.Error(err))
		return failed(SourceFlux, start)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Warn("backend unreachable", zap.Error(err))
		return failed(SourceFlux, start)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		p.logger.Warn("failed to read response", zap.Error(err))
		return failed(SourceFlux, start)
	}

	var decoded fluxResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		p.logger.Warn("malformed backend response",
			zap.Int("status", resp.StatusCode), zap.Error(err))
		return failed(SourceFlux, start)
	}

	if resp.StatusCode == http.StatusServiceUnavailable && decoded.Error == "model_loading" {
		p.logger.Warn("model still loading, skipping backend")
		return failed(SourceFlux, start)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("backend returned error status",
			zap.Int("status", resp.StatusCode), zap.String("error", decoded.Error))
		return failed(SourceFlux, start)
	}
	if !decoded.Success || decoded.Image == "" {
		p.logger.Warn("backend reported failure", zap.String("error", decoded.Error))
		return failed(SourceFlux, start)
	}

	return succeeded(SourceFlux, decoded.Image, start)
}

// scaleForQuality applies the quality-dependent resolution multiplier,
// capping each dimension at maxBackendDimension.
func scaleForQuality(width, height int, quality Quality) (int, int) {
	var factor float64
	switch quality {
	case QualityUltra:
		factor = 1.5
	case QualityHigh:
		factor = 1.25
	default:
		factor = 1.0
	}

	scaled := func(dim int) int {
		v := int(float64(dim) * factor)
		if v > maxBackendDimension {
			return maxBackendDimension
		}
		return v
	}
	return scaled(width), scaled(height)
}

// Endpoint returns the configured backend endpoint.
func (p *FluxProvider) Endpoint() string { return p.endpoint }

// Ensure FluxProvider implements Provider at compile time.
var _ Provider = (*FluxProvider)(nil)
