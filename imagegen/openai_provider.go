// Package imagegen implements the multi-provider image generation engine.
//
// openai_provider.go implements the optional cloud generation adapter using
// the OpenAI DALL-E API. It is only placed in the adapter chain when an API
// key is configured; the engine is fully functional without it.
package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"imageservice/core"
	"imageservice/logging"
)

// SourceOpenAI is the source tag for the cloud generation adapter.
const SourceOpenAI = "openai"

// defaultOpenAIImageModel is used when no model is configured.
const defaultOpenAIImageModel = "dall-e-3"

// OpenAIProvider generates images through the OpenAI image API. Like every
// adapter, API errors never escape: they are logged and converted into soft
// failures so the orchestrator can fall through to the local backends.
//
// Thread Safety: safe for concurrent use; the underlying client pools
// connections.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *logging.Logger
}

// NewOpenAIProvider creates the cloud adapter from engine config.
//
// Returns an error if no API key is configured; callers should simply omit
// the adapter in that case rather than treating it as fatal.
func NewOpenAIProvider(cfg *core.Config, logger *logging.Logger) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("imagegen: OpenAI API key is required for cloud image generation")
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.ImageLLMURL != "" {
		clientConfig.BaseURL = cfg.ImageLLMURL
	}
	clientConfig.HTTPClient = core.GetHTTPClient(cfg, cfg.AITimeout)

	model := cfg.OpenAIImageModel
	if model == "" {
		model = defaultOpenAIImageModel
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.Named(SourceOpenAI),
	}, nil
}

// Name returns the adapter's source identifier.
func (p *OpenAIProvider) Name() string { return SourceOpenAI }

// Attempt requests one image from the OpenAI API and returns its hosted URL.
// The URL is temporary (it expires after about an hour), which is fine here:
// the validation gate confirms it immediately and the caller consumes it
// promptly.
func (p *OpenAIProvider) Attempt(ctx context.Context, prompt string, req GenerationRequest) ProviderResult {
	start := time.Now()

	imageReq := openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	}
	if p.model == defaultOpenAIImageModel {
		imageReq.Style = openai.CreateImageStyleVivid
	}

	response, err := p.client.CreateImage(ctx, imageReq)
	if err != nil {
		p.logger.Warn("cloud generation failed", zap.Error(err))
		return failed(SourceOpenAI, start)
	}

	if len(response.Data) == 0 || response.Data[0].URL == "" {
		p.logger.Warn("cloud API returned no image URL")
		return failed(SourceOpenAI, start)
	}

	return succeeded(SourceOpenAI, response.Data[0].URL, start)
}

// Model returns the configured image model name.
func (p *OpenAIProvider) Model() string { return p.model }

// Ensure OpenAIProvider implements Provider at compile time.
var _ Provider = (*OpenAIProvider)(nil)
