// Package model loads, validates and shares the trained ModelBundle: the vocabulary with
// its IDF weights and analyzer settings, paired with the classifier from the same
// training run.
package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chriscorrea/spamsift/internal/classify"
	"github.com/chriscorrea/spamsift/internal/fetch"
	"github.com/chriscorrea/spamsift/internal/tfidf"
)

// ErrModelLoad marks every failure to obtain a usable bundle. Such failures are fatal:
// there is no degraded mode without a model.
var ErrModelLoad = errors.New("model load failed")

// LoadError describes which artifact could not be loaded and why.
type LoadError struct {
	Artifact string // artifact source, or the bundle id for lazily detected corruption
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("model load failed (%s): %v", e.Artifact, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrModelLoad) hold for every LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrModelLoad }

// Source locates the two artifacts of a bundle. Each may be a local path or an
// http(s) URL.
type Source struct {
	Vocabulary string
	Classifier string
}

// Options tune how a bundle is built.
type Options struct {
	// FallbackConfidence is the synthesized posterior for models without calibrated
	// probabilities; zero selects classify.DefaultFallbackConfidence.
	FallbackConfidence float64
}

// Bundle is an immutable, validated vectorizer + classifier pair from one training run.
// It is safe for concurrent use.
type Bundle struct {
	ID         string
	Vectorizer *tfidf.Vectorizer
	Model      classify.Model
}

// Vocabulary returns the bundle vocabulary.
func (b *Bundle) Vocabulary() *tfidf.Vocabulary { return b.Vectorizer.Vocabulary() }

// Load reads both artifacts concurrently and builds a bundle from them.
// Any failure is returned as a *LoadError.
func Load(ctx context.Context, src Source, opts Options) (*Bundle, error) {
	start := time.Now()

	var (
		vocab *VocabularyArtifact
		clf   *ClassifierArtifact
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := fetch.ReadAll(gctx, src.Vocabulary, fetch.MaxArtifactSizeBytes)
		if err != nil {
			return &LoadError{Artifact: src.Vocabulary, Err: err}
		}
		vocab, err = DecodeVocabulary(bytes.NewReader(data))
		if err != nil {
			return &LoadError{Artifact: src.Vocabulary, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		data, err := fetch.ReadAll(gctx, src.Classifier, fetch.MaxArtifactSizeBytes)
		if err != nil {
			return &LoadError{Artifact: src.Classifier, Err: err}
		}
		clf, err = DecodeClassifier(bytes.NewReader(data))
		if err != nil {
			return &LoadError{Artifact: src.Classifier, Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundle, err := NewBundle(vocab, clf, opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("Model bundle loaded",
		"bundleID", bundle.ID,
		"vocabularySize", bundle.Vocabulary().Size(),
		"algorithm", bundle.Model.Name(),
		"duration", time.Since(start))
	return bundle, nil
}

// NewBundle validates a decoded artifact pair and builds the bundle. Artifacts from
// different training runs, unknown format versions and width mismatches are rejected.
func NewBundle(vocab *VocabularyArtifact, clf *ClassifierArtifact, opts Options) (*Bundle, error) {
	if vocab == nil || clf == nil {
		return nil, &LoadError{Artifact: "bundle", Err: errors.New("both artifacts are required")}
	}
	fail := func(format string, args ...any) error {
		return &LoadError{Artifact: vocab.BundleID, Err: fmt.Errorf(format, args...)}
	}

	if vocab.FormatVersion != FormatVersion || clf.FormatVersion != FormatVersion {
		return nil, fail("unsupported format versions vocabulary=%d classifier=%d, want %d",
			vocab.FormatVersion, clf.FormatVersion, FormatVersion)
	}
	if vocab.BundleID == "" {
		return nil, fail("vocabulary artifact has no bundle_id")
	}
	if vocab.BundleID != clf.BundleID {
		return nil, fail("artifacts come from different bundles: vocabulary=%q classifier=%q",
			vocab.BundleID, clf.BundleID)
	}
	if err := vocab.Analyzer.Validate(); err != nil {
		return nil, fail("invalid analyzer: %w", err)
	}

	vocabulary, err := tfidf.NewVocabulary(vocab.Terms, vocab.IDF)
	if err != nil {
		return nil, fail("invalid vocabulary: %w", err)
	}

	fallback := opts.FallbackConfidence
	if fallback == 0 {
		fallback = classify.DefaultFallbackConfidence
	}
	m, err := buildModel(clf, fallback)
	if err != nil {
		return nil, fail("invalid classifier: %w", err)
	}
	if m.Width() != vocabulary.Size() {
		return nil, fail("classifier width %d does not match vocabulary size %d", m.Width(), vocabulary.Size())
	}

	return &Bundle{
		ID:         vocab.BundleID,
		Vectorizer: tfidf.NewVectorizer(vocabulary, vocab.Analyzer),
		Model:      m,
	}, nil
}

// ExportVocabulary rebuilds the vocabulary artifact of a bundle.
func (b *Bundle) ExportVocabulary() *VocabularyArtifact {
	return &VocabularyArtifact{
		FormatVersion: FormatVersion,
		BundleID:      b.ID,
		Analyzer:      b.Vectorizer.Analyzer(),
		Terms:         b.Vocabulary().Terms(),
		IDF:           b.Vocabulary().IDFWeights(),
	}
}

// ExportClassifier rebuilds the classifier artifact of a bundle.
func (b *Bundle) ExportClassifier() (*ClassifierArtifact, error) {
	a := &ClassifierArtifact{
		FormatVersion: FormatVersion,
		BundleID:      b.ID,
		Classes:       []string{classify.Ham.String(), classify.Spam.String()},
	}

	switch m := b.Model.(type) {
	case *classify.NaiveBayes:
		priors := m.ClassLogPrior()
		a.Algorithm = AlgorithmNaiveBayes
		a.ClassLogPrior = priors[:]
		a.FeatureLogProb = [][]float64{m.FeatureLogProb(classify.Ham), m.FeatureLogProb(classify.Spam)}
	case *classify.Linear:
		a.Algorithm = AlgorithmLinear
		a.Coef = m.Coefficients()
		a.Intercept = m.Intercept()
	default:
		return nil, fmt.Errorf("cannot export model %q", b.Model.Name())
	}
	return a, nil
}
