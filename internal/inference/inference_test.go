package inference_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriscorrea/spamsift/internal/classify"
	"github.com/chriscorrea/spamsift/internal/inference"
	"github.com/chriscorrea/spamsift/internal/model"
	"github.com/chriscorrea/spamsift/internal/tfidf"
)

var toySource = model.Source{
	Vocabulary: filepath.Join("..", "model", "testdata", "toy", "vocabulary.json"),
	Classifier: filepath.Join("..", "model", "testdata", "toy", "classifier.json"),
}

// countingProvider records how often the bundle is requested.
type countingProvider struct {
	bundle *model.Bundle
	err    error
	calls  atomic.Int64
}

func (p *countingProvider) Bundle(ctx context.Context) (*model.Bundle, error) {
	p.calls.Add(1)
	return p.bundle, p.err
}

func toyService(t *testing.T) *inference.Service {
	t.Helper()
	registry := model.NewRegistry(model.SourceLoader(toySource, model.Options{}))
	return inference.NewService(registry, inference.Options{})
}

// uniformBundle has equal priors and identical class rows, so every text is a tie.
func uniformBundle(t *testing.T, idf float64) *model.Bundle {
	t.Helper()
	half := math.Log(0.5)
	bundle, err := model.NewBundle(
		&model.VocabularyArtifact{
			FormatVersion: model.FormatVersion,
			BundleID:      "uniform",
			Analyzer:      tfidf.DefaultAnalyzer(),
			Terms:         []string{"aa", "bb"},
			IDF:           []float64{idf, idf},
		},
		&model.ClassifierArtifact{
			FormatVersion:  model.FormatVersion,
			BundleID:       "uniform",
			Algorithm:      model.AlgorithmNaiveBayes,
			Classes:        []string{"ham", "spam"},
			ClassLogPrior:  []float64{half, half},
			FeatureLogProb: [][]float64{{half, half}, {half, half}},
		},
		model.Options{},
	)
	require.NoError(t, err)
	return bundle
}

func TestClassifyEmptyInput(t *testing.T) {
	provider := &countingProvider{err: errors.New("must not be called")}
	service := inference.NewService(provider, inference.Options{})

	for _, text := range []string{"", " ", "\n\t  \r\n"} {
		result, err := service.Classify(context.Background(), text)
		assert.Nil(t, result)
		require.Error(t, err)
		assert.ErrorIs(t, err, inference.ErrEmptyInput)

		var validationErr *inference.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.NotErrorIs(t, err, model.ErrModelLoad)
	}
	assert.Equal(t, int64(0), provider.calls.Load())
}

func TestClassifyToyBundle(t *testing.T) {
	service := toyService(t)

	tests := []struct {
		name           string
		text           string
		wantLabel      classify.Label
		wantConfidence float64
		delta          float64
	}{
		{
			name:           "obvious spam",
			text:           "free free free money now",
			wantLabel:      classify.Spam,
			wantConfidence: 0.999998,
			delta:          1e-6,
		},
		{
			name:           "obvious ham",
			text:           "See you at the meeting tomorrow to review the project report",
			wantLabel:      classify.Ham,
			wantConfidence: 0.99998,
			delta:          1e-5,
		},
		{
			name:           "no known terms falls back to the prior",
			text:           "zzz qqq",
			wantLabel:      classify.Ham,
			wantConfidence: 0.6,
			delta:          1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.Classify(context.Background(), tt.text)
			require.NoError(t, err)

			assert.Equal(t, tt.wantLabel, result.Label)
			assert.InDelta(t, tt.wantConfidence, result.Confidence, tt.delta)
			assert.Equal(t, "toy-2024-01", result.BundleID)
			assert.InDelta(t, 1.0, result.Posterior.Ham+result.Posterior.Spam, 1e-9)
		})
	}
}

func TestClassifyProbabilityInvariants(t *testing.T) {
	service := toyService(t)

	texts := []string{
		"free money",
		"win a prize, claim your free offer today",
		"hello, the project meeting moved to tomorrow",
		"report",
		"free free free free free free free free free free free free free free free free",
		"!!!",
	}

	for _, text := range texts {
		result, err := service.Classify(context.Background(), text)
		require.NoError(t, err, text)

		p := result.Posterior
		assert.GreaterOrEqual(t, p.Ham, 0.0, text)
		assert.GreaterOrEqual(t, p.Spam, 0.0, text)
		assert.InDelta(t, 1.0, p.Ham+p.Spam, 1e-9, text)
		assert.GreaterOrEqual(t, result.Confidence, 0.5, text)
		assert.LessOrEqual(t, result.Confidence, 1.0, text)
		assert.Equal(t, p.Of(result.Label), result.Confidence, text)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	service := toyService(t)
	text := "Hello! Win a FREE prize: money, money, money. Meeting tomorrow?"

	first, err := service.Classify(context.Background(), text)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := service.Classify(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, first.Prediction, again.Prediction)
		assert.Equal(t, first.Features, again.Features)
	}
}

func TestClassifyTieGoesToHam(t *testing.T) {
	service := inference.NewService(model.Static(uniformBundle(t, 1)), inference.Options{})

	result, err := service.Classify(context.Background(), "aa bb aa")
	require.NoError(t, err)
	assert.Equal(t, classify.Ham, result.Label)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Equal(t, classify.Posterior{Ham: 0.5, Spam: 0.5}, result.Posterior)
}

func TestClassifyNumericAnomaly(t *testing.T) {
	// an IDF near the float64 limit overflows once a term repeats
	service := inference.NewService(model.Static(uniformBundle(t, math.MaxFloat64/2)), inference.Options{})

	_, err := service.Classify(context.Background(), "aa aa aa bb")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrModelLoad)
	assert.ErrorIs(t, err, classify.ErrNumericAnomaly)
	assert.NotErrorIs(t, err, inference.ErrEmptyInput)
}

func TestClassifyLoadFailure(t *testing.T) {
	registry := model.NewRegistry(model.SourceLoader(model.Source{
		Vocabulary: filepath.Join(t.TempDir(), "missing.json"),
		Classifier: toySource.Classifier,
	}, model.Options{}))
	service := inference.NewService(registry, inference.Options{})

	for i := 0; i < 2; i++ {
		_, err := service.Classify(context.Background(), "free money")
		assert.ErrorIs(t, err, model.ErrModelLoad)
	}
	assert.Equal(t, int64(1), registry.Loads())
}

func TestClassifyConcurrentFirstUse(t *testing.T) {
	registry := model.NewRegistry(model.SourceLoader(toySource, model.Options{}))
	service := inference.NewService(registry, inference.Options{})

	var wg sync.WaitGroup
	results := make([]*inference.Result, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := service.Classify(context.Background(), "free money offer")
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), registry.Loads())
	for _, r := range results[1:] {
		assert.Equal(t, results[0].Prediction, r.Prediction)
	}
}

func TestClassifyAll(t *testing.T) {
	service := inference.NewService(
		model.NewRegistry(model.SourceLoader(toySource, model.Options{})),
		inference.Options{Concurrency: 2},
	)

	texts := []string{
		"free money now",
		"project meeting tomorrow",
		"win a prize",
		"hello, see the report",
	}
	results, err := service.ClassifyAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, results, len(texts))

	for i, text := range texts {
		single, err := service.Classify(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single.Prediction, results[i].Prediction, text)
	}
	assert.Equal(t, classify.Spam, results[0].Label)
	assert.Equal(t, classify.Ham, results[1].Label)
}

func TestClassifyAllStopsOnInvalidInput(t *testing.T) {
	service := toyService(t)

	_, err := service.ClassifyAll(context.Background(), []string{"free money", "   ", "meeting"})
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrEmptyInput)
	assert.Contains(t, err.Error(), "input 1")
}

func TestExplain(t *testing.T) {
	service := toyService(t)

	terms, err := service.Explain(context.Background(), "free free free money meeting", 2)
	require.NoError(t, err)
	require.Len(t, terms, 2)

	// free: 3 × 1.5 × ln(0.30/0.02) dominates the decision toward spam
	assert.Equal(t, "free", terms[0].Term)
	assert.Greater(t, terms[0].Delta, 0.0)

	_, err = service.Explain(context.Background(), "", 3)
	assert.ErrorIs(t, err, inference.ErrEmptyInput)
}
