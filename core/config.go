package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the image generation engine.
type Config struct {
	// Local generation backend (Flux companion service)
	FluxBackendURL string // POST endpoint of the local generation service

	// Cloud generation (optional - only used when an API key is present)
	OpenAIAPIKey     string
	OpenAIImageModel string
	ImageLLMURL      string // Optional override for the cloud image endpoint

	// Public image endpoints
	PollinationsBaseURL string
	UnsplashBaseURL     string
	PicsumBaseURL       string

	// Prompt policy (moderation + boilerplate lists)
	PromptPolicyFile string // Optional YAML override; empty uses built-in defaults

	// Validation
	ValidationTimeout    time.Duration
	DeepValidation       bool // Decode image headers instead of trusting Content-Type
	AllowSelfSignedCerts bool

	// Generation
	DefaultWidth  int
	DefaultHeight int
	AITimeout     time.Duration

	// History persistence (optional)
	HistoryEnabled bool
	HistoryDBPath  string

	// Logging
	LogFilePath string
}

// Default endpoint and timing values. The public endpoints mirror the
// services the engine was built against; all are overridable via env.
const (
	DefaultFluxBackendURL      = "http://127.0.0.1:5000/generate-image"
	DefaultPollinationsBaseURL = "https://image.pollinations.ai"
	DefaultUnsplashBaseURL     = "https://images.unsplash.com"
	DefaultPicsumBaseURL       = "https://picsum.photos"
	DefaultValidationTimeout   = 5 * time.Second
	DefaultAITimeout           = 60 * time.Second
	DefaultImageWidth          = 800
	DefaultImageHeight         = 450
)

// Helper function to get environment variable with default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to parse integer environment variable with default value
func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Helper function to parse boolean environment variable with default value
func parseBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// parseDurationEnv parses an environment variable holding a number of seconds.
func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// LoadConfig loads configuration from environment variables with sensible
// defaults for zero-config local generation. No variable is required: with an
// empty environment the engine talks to a local Flux backend and the public
// image endpoints.
func LoadConfig() (*Config, error) {
	// Cloud API key is optional - only enables the cloud adapter
	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		openAIKey = os.Getenv("OPENAI_KEY") // Legacy support
	}

	defaultWidth := parseIntEnv("IMAGE_WIDTH", DefaultImageWidth)
	defaultHeight := parseIntEnv("IMAGE_HEIGHT", DefaultImageHeight)
	if defaultWidth < 256 || defaultWidth > 1024 {
		return nil, fmt.Errorf("core: IMAGE_WIDTH must be between 256 and 1024, got %d", defaultWidth)
	}
	if defaultHeight < 256 || defaultHeight > 1024 {
		return nil, fmt.Errorf("core: IMAGE_HEIGHT must be between 256 and 1024, got %d", defaultHeight)
	}

	validationTimeout := parseDurationEnv("VALIDATION_TIMEOUT", DefaultValidationTimeout)
	if validationTimeout > 30*time.Second {
		return nil, fmt.Errorf("core: VALIDATION_TIMEOUT must be at most 30 seconds, got %s", validationTimeout)
	}

	return &Config{
		FluxBackendURL:       getEnvOrDefault("FLUX_BACKEND_URL", DefaultFluxBackendURL),
		OpenAIAPIKey:         openAIKey,
		OpenAIImageModel:     getEnvOrDefault("IMAGE_GEN_MODEL", ""),
		ImageLLMURL:          os.Getenv("IMAGE_LLM_URL"),
		PollinationsBaseURL:  getEnvOrDefault("POLLINATIONS_BASE_URL", DefaultPollinationsBaseURL),
		UnsplashBaseURL:      getEnvOrDefault("UNSPLASH_BASE_URL", DefaultUnsplashBaseURL),
		PicsumBaseURL:        getEnvOrDefault("PICSUM_BASE_URL", DefaultPicsumBaseURL),
		PromptPolicyFile:     os.Getenv("PROMPT_POLICY_FILE"),
		ValidationTimeout:    validationTimeout,
		DeepValidation:       parseBoolEnv("DEEP_VALIDATION", false),
		AllowSelfSignedCerts: parseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),
		DefaultWidth:         defaultWidth,
		DefaultHeight:        defaultHeight,
		AITimeout:            parseDurationEnv("AI_TIMEOUT", DefaultAITimeout),
		HistoryEnabled:       parseBoolEnv("HISTORY_ENABLED", false),
		HistoryDBPath:        getEnvOrDefault("HISTORY_DB_PATH", "./data/history.db"),
		LogFilePath:          getEnvOrDefault("LOG_FILE", "app.log"),
	}, nil
}

// GetHTTPClient returns an HTTP client configured with the given timeout and TLS settings
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}
