package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/chriscorrea/spamsift/internal/app"
	"github.com/chriscorrea/spamsift/internal/config"
	"github.com/chriscorrea/spamsift/internal/extract"
	"github.com/chriscorrea/spamsift/internal/inference"
	"github.com/chriscorrea/spamsift/internal/logging"
	"github.com/chriscorrea/spamsift/internal/model"
	"github.com/chriscorrea/spamsift/internal/progress"

	"github.com/spf13/cobra"
)

// exitSpam is the exit status for --fail-on-spam when spam was found.
const exitSpam = 2

// loadSettings reads the config file and environment, then applies the model flags.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("vocabulary") {
		cfg.Model.Vocabulary, _ = flags.GetString("vocabulary")
	}
	if flags.Changed("classifier") {
		cfg.Model.Classifier, _ = flags.GetString("classifier")
	}
	if flags.Changed("fallback-confidence") {
		cfg.Model.FallbackConfidence, _ = flags.GetFloat64("fallback-confidence")
	}
	if flags.Changed("concurrency") {
		cfg.Classify.Concurrency, _ = flags.GetInt("concurrency")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger configures the default slog logger. The CLI stays quiet below error
// level unless debugging; the server uses the configured level.
func setupLogger(cmd *cobra.Command, cfg *config.Config, level string) {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	logging.Setup(level, cfg.Logging.Format, os.Stderr)
}

// newRegistry returns a lazily loading registry for the configured bundle.
func newRegistry(cfg *config.Config) *model.Registry {
	return model.NewRegistry(model.SourceLoader(bundleSource(cfg), bundleOptions(cfg)))
}

func bundleSource(cfg *config.Config) model.Source {
	return model.Source{Vocabulary: cfg.Model.Vocabulary, Classifier: cfg.Model.Classifier}
}

func bundleOptions(cfg *config.Config) model.Options {
	return model.Options{FallbackConfidence: cfg.Model.FallbackConfidence}
}

// buildConfig constructs an app.Config from command flags and arguments
func buildConfig(cmd *cobra.Command, args []string) (app.Config, error) {
	text, _ := cmd.Flags().GetString("text")
	selector, _ := cmd.Flags().GetString("selector")
	mainContent, _ := cmd.Flags().GetBool("main-content")
	inputFormat, _ := cmd.Flags().GetString("input-format")
	mdFlag, _ := cmd.Flags().GetBool("md")
	jsonFlag, _ := cmd.Flags().GetBool("json")
	explain, _ := cmd.Flags().GetInt("explain")
	preview, _ := cmd.Flags().GetInt("preview")
	tokens, _ := cmd.Flags().GetBool("tokens")
	failOnSpam, _ := cmd.Flags().GetBool("fail-on-spam")
	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")

	if explain < 0 {
		return app.Config{}, fmt.Errorf("--explain must not be negative, got %d", explain)
	}
	if preview < 0 {
		return app.Config{}, fmt.Errorf("--preview must not be negative, got %d", preview)
	}
	if text != "" && len(args) > 0 {
		return app.Config{}, fmt.Errorf("--text cannot be combined with source arguments")
	}

	format, err := extract.ParseFormat(inputFormat)
	if err != nil {
		return app.Config{}, err
	}

	// determine output format
	outputFormat := app.Text
	switch {
	case jsonFlag:
		outputFormat = app.JSON
	case mdFlag:
		outputFormat = app.Markdown
	}

	return app.Config{
		Sources: args,
		Text:    text,
		Extract: extract.Options{
			Format:      format,
			Selector:    selector,
			MainContent: mainContent,
		},
		OutputFormat: outputFormat,
		Explain:      explain,
		Preview:      preview,
		CountTokens:  tokens,
		BarWidth:     progress.BarWidth(os.Stdout),
		FailOnSpam:   failOnSpam,
		Quiet:        quiet,
		Debug:        debug,
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "spamsift [sources...]",
	Short: "A CLI tool for spam email classification",
	Long: `Spamsift classifies email bodies as spam or legitimate (ham) with a pre-trained
TF-IDF model. Sources may include URLs, local files, or standard input.

Examples:
  spamsift --text "Congratulations, you won a free prize"
  spamsift message.txt newsletter.html
  cat message.eml | spamsift --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		setupLogger(cmd, settings, "error")

		runConfig, err := buildConfig(cmd, args)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// create context with signal handling for graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		service := inference.NewService(newRegistry(settings), inference.Options{
			Concurrency: settings.Classify.Concurrency,
		})

		result, err := app.Run(ctx, runConfig, service)
		fmt.Print(result)
		if err != nil && !errors.Is(err, app.ErrSpamDetected) {
			return fmt.Errorf("spamsift failed: %w", err)
		}
		return err
	},
}

func init() {
	// model and config flags are shared with the subcommands
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("vocabulary", "", "Vocabulary artifact (path or URL)")
	rootCmd.PersistentFlags().String("classifier", "", "Classifier artifact (path or URL)")
	rootCmd.PersistentFlags().Float64("fallback-confidence", 0, "Confidence reported by linear models")
	rootCmd.PersistentFlags().Int("concurrency", 0, "Parallel classifications for batches")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")

	// input flags
	rootCmd.Flags().String("text", "", "Classify this text instead of reading sources")
	rootCmd.Flags().StringP("selector", "s", "", "CSS selector narrowing HTML bodies")
	rootCmd.Flags().Bool("main-content", false, "Keep only the readable main content of HTML bodies")
	rootCmd.Flags().String("input-format", "auto", "Body format: auto, plain or html")

	// output format flags
	rootCmd.Flags().Bool("md", false, "Output in Markdown format")
	rootCmd.Flags().Bool("json", false, "Output in JSON format")
	rootCmd.MarkFlagsMutuallyExclusive("md", "json")

	// other flags
	rootCmd.Flags().IntP("explain", "e", 0, "Show the N terms that moved the decision most")
	rootCmd.Flags().Int("preview", 0, "Echo the first N characters of each input in the report")
	rootCmd.Flags().Bool("tokens", false, "Include token counts in the report")
	rootCmd.Flags().Bool("fail-on-spam", false, "Exit with status 2 when any input is spam")
	rootCmd.Flags().BoolP("quiet", "q", false, "Suppress output messages")

	rootCmd.AddCommand(serveCmd, inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, app.ErrSpamDetected) {
			os.Exit(exitSpam)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
