// Package inference is the entry point for classifying raw text.
//
// A Service validates the input, obtains the shared model bundle, vectorizes the text
// and returns the classifier's prediction unchanged. It is safe for concurrent use.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chriscorrea/spamsift/internal/classify"
	"github.com/chriscorrea/spamsift/internal/model"
)

// ErrEmptyInput is wrapped by the ValidationError returned for empty or whitespace-only text.
var ErrEmptyInput = errors.New("empty input")

// DefaultConcurrency bounds ClassifyAll when Options.Concurrency is not set.
const DefaultConcurrency = 4

// ValidationError reports input that cannot be classified. It is the caller's fault
// and maps to a 400-class response.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BundleProvider supplies the loaded model bundle; *model.Registry implements it.
type BundleProvider interface {
	Bundle(ctx context.Context) (*model.Bundle, error)
}

// Result is the outcome of classifying one text.
type Result struct {
	classify.Prediction
	BundleID  string        `json:"bundle_id"`
	Features  int           `json:"features"` // non-zero entries of the feature vector
	Elapsed   time.Duration `json:"-"`
	ElapsedMS float64       `json:"elapsed_ms"`
}

// Term is one vocabulary term and its share in a decision.
type Term struct {
	Term  string  `json:"term"`
	Delta float64 `json:"delta"` // positive pushes toward spam
}

// Options configure a Service.
type Options struct {
	Concurrency int // parallel classifications in ClassifyAll
}

// Service classifies text with the bundle from its provider.
type Service struct {
	bundles     BundleProvider
	concurrency int
	logger      *slog.Logger
}

// NewService returns a Service backed by bundles.
func NewService(bundles BundleProvider, opts Options) *Service {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		bundles:     bundles,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "inference"),
	}
}

// Validate rejects text that contains nothing but whitespace.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Reason: ErrEmptyInput.Error(), Err: ErrEmptyInput}
	}
	return nil
}

// Classify predicts whether text is spam.
//
// Empty input fails with a *ValidationError before the model is touched. A model that
// cannot be loaded, or that produces non-finite scores, fails with a *model.LoadError.
func (s *Service) Classify(ctx context.Context, text string) (*Result, error) {
	if err := Validate(text); err != nil {
		return nil, err
	}

	bundle, err := s.bundles.Bundle(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	vector := bundle.Vectorizer.Transform(text)
	prediction, err := bundle.Model.Predict(vector)
	if err != nil {
		return nil, s.predictionError(bundle, err)
	}
	elapsed := time.Since(start)

	s.logger.Debug("Text classified",
		"label", prediction.Label,
		"confidence", prediction.Confidence,
		"features", vector.Len(),
		"elapsed", elapsed)

	return &Result{
		Prediction: prediction,
		BundleID:   bundle.ID,
		Features:   vector.Len(),
		Elapsed:    elapsed,
		ElapsedMS:  float64(elapsed.Microseconds()) / 1000,
	}, nil
}

// predictionError maps a model failure. Non-finite scores mean the bundle is corrupt.
func (s *Service) predictionError(bundle *model.Bundle, err error) error {
	if errors.Is(err, classify.ErrNumericAnomaly) {
		s.logger.Error("Model produced non-finite scores", "bundleID", bundle.ID, "error", err)
		return &model.LoadError{Artifact: bundle.ID, Err: err}
	}
	return fmt.Errorf("classification failed: %w", err)
}

// ClassifyAll classifies texts concurrently and returns results in input order.
// The first failure cancels the remaining work and is returned with its input position.
func (s *Service) ClassifyAll(ctx context.Context, texts []string) ([]*Result, error) {
	results := make([]*Result, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := s.Classify(gctx, text)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Explain returns up to n vocabulary terms that contributed most to the decision on
// text. Models that cannot attribute their decision return no terms.
func (s *Service) Explain(ctx context.Context, text string, n int) ([]Term, error) {
	if err := Validate(text); err != nil {
		return nil, err
	}

	bundle, err := s.bundles.Bundle(ctx)
	if err != nil {
		return nil, err
	}

	explainer, ok := bundle.Model.(classify.Explainer)
	if !ok {
		return []Term{}, nil
	}

	contributions := explainer.Explain(bundle.Vectorizer.Transform(text), n)
	terms := make([]Term, len(contributions))
	for i, c := range contributions {
		terms[i] = Term{Term: bundle.Vocabulary().Term(c.Index), Delta: c.Delta}
	}
	return terms, nil
}
