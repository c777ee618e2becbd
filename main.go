// Command imageservice generates an image for a free-text prompt by trying
// an ordered chain of backends (local Flux, cloud, public endpoints) and
// prints the resulting URL. It always produces a usable image reference,
// falling back to stock photography when every backend fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"imageservice/core"
	"imageservice/history"
	"imageservice/imagegen"
	"imageservice/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	var (
		style       = flag.String("style", "educational", "prompt style: educational, realistic, artistic, scientific")
		quality     = flag.String("quality", "standard", "generation quality: standard, high, ultra")
		topic       = flag.String("topic", "", "optional subject domain for stock photo matching")
		width       = flag.Int("width", 0, "image width in pixels (0 = engine default)")
		height      = flag.Int("height", 0, "image height in pixels (0 = engine default)")
		showHistory = flag.Int("history", 0, "print the N most recent generations and exit")
	)
	flag.Parse()

	isDevelopment := os.Getenv("DEV_MODE") == "true"

	config, err := core.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return core.ExitCodeError
	}

	logger, err := logging.NewLogger(isDevelopment, config.LogFilePath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("flux_backend", config.FluxBackendURL),
		zap.Bool("cloud_enabled", config.OpenAIAPIKey != ""),
		zap.Duration("validation_timeout", config.ValidationTimeout),
		zap.Bool("deep_validation", config.DeepValidation),
		zap.Int("default_width", config.DefaultWidth),
		zap.Int("default_height", config.DefaultHeight),
		zap.Bool("history_enabled", config.HistoryEnabled),
		zap.Bool("dev_mode", isDevelopment),
	)

	// History persistence is optional
	var recorder *history.Recorder
	if config.HistoryEnabled {
		recorder, err = history.NewRecorder(config.HistoryDBPath, history.DefaultMigrationsPath, logger)
		if err != nil {
			logger.Errorw("Failed to open history database", "error", err)
			return core.ExitCodeError
		}
		defer recorder.Close()
	}

	if *showHistory > 0 {
		return printHistory(recorder, *showHistory)
	}

	prompt := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if prompt == "" {
		fmt.Println("Usage: imageservice [flags] <prompt>")
		flag.PrintDefaults()
		return core.ExitCodeError
	}

	var engineRecorder imagegen.Recorder
	if recorder != nil {
		engineRecorder = recorder
	}
	orchestrator, err := imagegen.NewOrchestratorFromConfig(config, engineRecorder, logger)
	if err != nil {
		logger.Errorw("Failed to build generation engine", "error", err)
		return core.ExitCodeError
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.AITimeout)
	defer cancel()

	// Handle interrupt signal
	var interrupted atomic.Bool
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received interrupt signal, cancelling generation")
		interrupted.Store(true)
		cancel()
	}()

	result := orchestrator.Generate(ctx, imagegen.GenerationRequest{
		RawPrompt: prompt,
		Topic:     *topic,
		Style:     imagegen.Style(*style),
		Quality:   imagegen.Quality(*quality),
		Width:     *width,
		Height:    *height,
	})

	if interrupted.Load() {
		logger.Warn("Generation cancelled",
			zap.String("exit", core.ExitCodeName(core.ExitCodeSIGINT)))
		return core.ExitCodeSIGINT
	}

	printResult(result)
	logger.Infow("Generation complete",
		"source", result.Source,
		"elapsed", result.Elapsed,
	)
	return core.ExitCodeSuccess
}

// printResult renders the generation outcome for the terminal.
func printResult(result imagegen.GenerateResult) {
	sourceColor := color.New(color.FgGreen)
	if result.Source == imagegen.SourceFallback {
		sourceColor = color.New(color.FgYellow)
	}

	color.New(color.FgCyan, color.Bold).Println("Image generated")
	fmt.Printf("  %-10s ", "source:")
	sourceColor.Println(result.Source)
	fmt.Printf("  %-10s %s\n", "elapsed:", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("  %-10s %s\n", "prompt:", result.EnhancedPrompt)

	url := result.URL
	if imagegen.IsDataURL(url) && len(url) > 80 {
		url = url[:80] + "... (inline data)"
	}
	fmt.Printf("  %-10s %s\n", "url:", url)
}

// printHistory lists recent generations from the history database.
func printHistory(recorder *history.Recorder, limit int) int {
	if recorder == nil {
		fmt.Println("History is disabled; set HISTORY_ENABLED=true")
		return core.ExitCodeError
	}

	rows, err := recorder.Repository().QueryRecent(context.Background(), limit)
	if err != nil {
		fmt.Printf("Failed to query history: %v\n", err)
		return core.ExitCodeError
	}
	if len(rows) == 0 {
		fmt.Println("No generations recorded yet")
		return core.ExitCodeSuccess
	}

	color.New(color.FgCyan, color.Bold).Printf("Last %d generations\n", len(rows))
	dim := color.New(color.FgHiBlack)
	for _, row := range rows {
		statusColor := color.New(color.FgGreen)
		if row.Source == imagegen.SourceFallback {
			statusColor = color.New(color.FgYellow)
		}
		statusColor.Printf("  [%s]", row.Source)
		fmt.Printf(" %s ", row.Prompt)
		dim.Printf("(%dms, %s)\n", row.DurationMS, row.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return core.ExitCodeSuccess
}
