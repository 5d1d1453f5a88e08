// Package app contains the core application logic for the spamsift CLI tool.
// It collects message bodies, classifies them and renders the report, separated from
// CLI concerns.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/chriscorrea/spamsift/internal/classify"
	"github.com/chriscorrea/spamsift/internal/counter"
	"github.com/chriscorrea/spamsift/internal/extract"
	"github.com/chriscorrea/spamsift/internal/fetch"
	"github.com/chriscorrea/spamsift/internal/inference"
	"github.com/chriscorrea/spamsift/internal/progress"
)

// ErrSpamDetected is returned together with the report when Config.FailOnSpam is set
// and at least one input was classified as spam.
var ErrSpamDetected = errors.New("spam detected")

// InlineSource names inputs given with --text.
const InlineSource = "text"

// OutputFormat defines the output format for results
type OutputFormat int

const (
	// Text is the plain terminal report (default)
	Text OutputFormat = iota
	// Markdown report
	Markdown
	// JSON output format
	JSON
)

// String returns the string representation of the output
func (f OutputFormat) String() string {
	switch f {
	case Text:
		return "Text"
	case Markdown:
		return "Markdown"
	case JSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

// Classifier is the part of the inference service the CLI uses.
type Classifier interface {
	ClassifyAll(ctx context.Context, texts []string) ([]*inference.Result, error)
	Explain(ctx context.Context, text string, n int) ([]inference.Term, error)
}

// Config holds all configuration options for one spamsift run.
type Config struct {
	Sources      []string        // URLs, file paths, or "-" for stdin
	Text         string          // inline message; overrides Sources when set
	Extract      extract.Options // how message bodies are turned into text
	OutputFormat OutputFormat
	Explain      int  // number of top contributing terms to report (0 = none)
	Preview      int  // runes of the input to echo in the report (0 = none)
	CountTokens  bool // include token statistics when the encoding is available
	BarWidth     int  // confidence bar cells; 0 picks the default
	FailOnSpam   bool // return ErrSpamDetected when any input is spam
	Quiet        bool // suppress info messages
	Debug        bool
	Stderr       io.Writer // warnings and the spinner; nil means os.Stderr
}

// Input is one message to classify.
type Input struct {
	Source string
	Text   string
}

// Entry is the report line for one input. Exactly one of Result and Message is set.
type Entry struct {
	Source  string            `json:"source"`
	Stats   counter.Stats     `json:"stats"`
	Result  *inference.Result `json:"result,omitempty"`
	Terms   []inference.Term  `json:"top_terms,omitempty"`
	Preview string            `json:"preview,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Run executes the spamsift pipeline with the given configuration.
//
// Processing Pipeline:
// 1. Collect message bodies from the inline text or the sources (collectInputs)
// 2. Classify every non-empty body in one batch
// 3. Render one report entry per input
//
// ctx allows for cancellation of downloads and classification.
func Run(ctx context.Context, cfg Config, classifier Classifier) (string, error) {
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	inputs, err := collectInputs(ctx, cfg)
	if err != nil {
		return "", err
	}

	entries, err := classifyInputs(ctx, cfg, classifier, inputs)
	if err != nil {
		return "", err
	}

	output, err := render(entries, cfg)
	if err != nil {
		return "", err
	}

	if cfg.FailOnSpam && anySpam(entries) {
		return output, ErrSpamDetected
	}
	return output, nil
}

// collectInputs reads every source. A source that cannot be read is reported and
// skipped; an empty body is kept so it can be reported as such.
func collectInputs(ctx context.Context, cfg Config) ([]Input, error) {
	if cfg.Text != "" {
		return []Input{{Source: InlineSource, Text: cfg.Text}}, nil
	}

	sources := cfg.Sources
	if len(sources) == 0 {
		sources = []string{"-"}
	}

	inputs := make([]Input, 0, len(sources))
	for _, source := range sources {
		text, err := processSource(ctx, source, cfg.Extract)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			if !cfg.Quiet {
				fmt.Fprintf(cfg.Stderr, "Warning: failed to process source %q: %v\n", source, err)
			}
			continue
		}
		inputs = append(inputs, Input{Source: source, Text: text})
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no content read from any source")
	}
	return inputs, nil
}

// processSource fetches one source and extracts its text.
func processSource(ctx context.Context, source string, opts extract.Options) (string, error) {
	reader, err := fetch.GetContent(ctx, source, fetch.MaxInputSizeBytes)
	if err != nil {
		return "", fmt.Errorf("failed to fetch content: %w", err)
	}
	defer reader.Close()

	if fetch.IsURL(source) && opts.BaseURL == nil {
		opts.BaseURL, _ = url.Parse(source) // nil on error is fine
	}

	text, err := extract.ToText(reader, opts)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}
	return text, nil
}

// classifyInputs classifies the non-empty inputs in one batch and builds the entries.
func classifyInputs(ctx context.Context, cfg Config, classifier Classifier, inputs []Input) ([]Entry, error) {
	measurer := counter.NewMeasurer(cfg.CountTokens)

	entries := make([]Entry, len(inputs))
	var texts []string
	var positions []int
	for i, in := range inputs {
		entries[i] = Entry{
			Source:  in.Source,
			Stats:   measurer.Measure(in.Text),
			Preview: excerpt(in.Text, cfg.Preview),
		}
		if err := inference.Validate(in.Text); err != nil {
			entries[i].Message = emptyInputMessage
			continue
		}
		texts = append(texts, in.Text)
		positions = append(positions, i)
	}

	if len(texts) == 0 {
		return entries, nil
	}

	var sp *progress.Spinner
	if !cfg.Quiet && progress.IsTerminal(cfg.Stderr) {
		sp = progress.NewSpinner(cfg.Stderr, "Analyzing email...")
		sp.Start(ctx)
	}
	results, err := classifier.ClassifyAll(ctx, texts)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	for n, i := range positions {
		entries[i].Result = results[n]
		if cfg.Explain > 0 {
			terms, err := classifier.Explain(ctx, texts[n], cfg.Explain)
			if err != nil {
				return nil, fmt.Errorf("explanation failed: %w", err)
			}
			entries[i].Terms = terms
		}
	}
	return entries, nil
}

// excerpt collapses whitespace and cuts text to at most n runes, marking a cut with "...".
func excerpt(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= n {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}

func anySpam(entries []Entry) bool {
	for _, e := range entries {
		if e.Result != nil && e.Result.Label == classify.Spam {
			return true
		}
	}
	return false
}
