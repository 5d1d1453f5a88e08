package classify

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/chriscorrea/spamsift/internal/tfidf"
)

// distributionTolerance bounds how far exp-summed log-probabilities may drift from 1.
const distributionTolerance = 1e-6

// NaiveBayes is a trained multinomial Naive Bayes model over {ham, spam}.
type NaiveBayes struct {
	classLogPrior  [NumClasses]float64
	featureLogProb [NumClasses][]float64
}

// NewNaiveBayes validates trained parameters and returns an immutable model.
//
// Parameters:
//   - classLogPrior: log P(class), indexed by Label
//   - featureLogProb: log P(feature | class), one row of width V per Label
//
// Returns an error when a row width differs, a value is not finite, or the exponentiated
// priors or any row do not sum to 1 within tolerance.
func NewNaiveBayes(classLogPrior [NumClasses]float64, featureLogProb [NumClasses][]float64) (*NaiveBayes, error) {
	width := len(featureLogProb[Ham])
	if width == 0 {
		return nil, fmt.Errorf("feature log-probability table is empty")
	}

	if err := checkDistribution("class priors", classLogPrior[:]); err != nil {
		return nil, err
	}

	nb := &NaiveBayes{classLogPrior: classLogPrior}
	for c := 0; c < NumClasses; c++ {
		row := featureLogProb[c]
		if len(row) != width {
			return nil, fmt.Errorf("feature log-probability row %s has width %d, want %d", Label(c), len(row), width)
		}
		if err := checkDistribution(fmt.Sprintf("feature log-probabilities of %s", Label(c)), row); err != nil {
			return nil, err
		}
		nb.featureLogProb[c] = make([]float64, width)
		copy(nb.featureLogProb[c], row)
	}

	slog.Debug("Naive Bayes model created", "width", width)
	return nb, nil
}

// checkDistribution verifies that log-probabilities are finite and non-positive and that
// they exponentiate to a distribution.
func checkDistribution(what string, logProbs []float64) error {
	var sum float64
	for i, lp := range logProbs {
		if !isFinite(lp) || lp > 0 {
			return fmt.Errorf("%s: invalid log-probability %v at %d", what, lp, i)
		}
		sum += math.Exp(lp)
	}
	if math.Abs(sum-1) > distributionTolerance {
		return fmt.Errorf("%s: probabilities sum to %v, want 1", what, sum)
	}
	return nil
}

// Width returns the feature width V.
func (nb *NaiveBayes) Width() int { return len(nb.featureLogProb[Ham]) }

// Name returns the algorithm identifier.
func (nb *NaiveBayes) Name() string { return "multinomial_nb" }

// ClassLogPrior returns a copy of the class priors.
func (nb *NaiveBayes) ClassLogPrior() [NumClasses]float64 { return nb.classLogPrior }

// FeatureLogProb returns a copy of one class row.
func (nb *NaiveBayes) FeatureLogProb(l Label) []float64 {
	row := make([]float64, len(nb.featureLogProb[l]))
	copy(row, nb.featureLogProb[l])
	return row
}

// Scores returns the joint log-likelihood of each class:
// log P(c) + Σ weight_i × log P(feature_i | c), summed in ascending feature order.
func (nb *NaiveBayes) Scores(vector tfidf.FeatureVector) ([NumClasses]float64, error) {
	if vector.Dim() != nb.Width() {
		return [NumClasses]float64{}, fmt.Errorf("feature vector has dimension %d, model expects %d", vector.Dim(), nb.Width())
	}

	scores := nb.classLogPrior
	vector.Each(func(index int, weight float64) {
		for c := 0; c < NumClasses; c++ {
			scores[c] += weight * nb.featureLogProb[c][index]
		}
	})
	return scores, nil
}

// Predict scores a vector and normalizes the class scores with log-sum-exp.
func (nb *NaiveBayes) Predict(vector tfidf.FeatureVector) (Prediction, error) {
	scores, err := nb.Scores(vector)
	if err != nil {
		return Prediction{}, err
	}

	for c, s := range scores {
		if !isFinite(s) {
			slog.Debug("Non-finite class score", "class", Label(c), "score", s)
			return Prediction{}, fmt.Errorf("%w: %s score is %v", ErrNumericAnomaly, Label(c), s)
		}
	}

	winner, loser := Ham, Spam
	if scores[Spam] > scores[Ham] {
		winner, loser = Spam, Ham
	}

	// the losing class can never exceed one half; rounding in exp must not flip that
	pLoser := 0.5
	if scores[Ham] != scores[Spam] {
		norm := logSumExp(scores[:])
		pLoser = math.Min(math.Exp(scores[loser]-norm), 0.5)
	}

	var posterior Posterior
	if winner == Spam {
		posterior = Posterior{Ham: pLoser, Spam: 1 - pLoser}
	} else {
		posterior = Posterior{Ham: 1 - pLoser, Spam: pLoser}
	}

	prediction := decide(posterior)
	slog.Debug("Naive Bayes prediction",
		"hamScore", scores[Ham], "spamScore", scores[Spam],
		"label", prediction.Label, "confidence", prediction.Confidence)
	return prediction, nil
}

// Explain returns up to n features with the largest absolute contribution
// weight × (log P(feature|spam) − log P(feature|ham)).
func (nb *NaiveBayes) Explain(vector tfidf.FeatureVector, n int) []Contribution {
	if vector.Dim() != nb.Width() {
		return []Contribution{}
	}
	return topContributions(vector, n, func(index int) float64 {
		return nb.featureLogProb[Spam][index] - nb.featureLogProb[Ham][index]
	})
}
