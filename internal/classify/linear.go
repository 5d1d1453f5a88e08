package classify

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/chriscorrea/spamsift/internal/tfidf"
)

// DefaultFallbackConfidence is the posterior assigned to the predicted class when a model
// cannot produce calibrated probabilities.
const DefaultFallbackConfidence = 0.99

// Linear is a decision-function model (for example a linear SVM) without calibrated
// probabilities: spam when intercept + Σ weight_i × coef_i > 0. Its posterior is
// synthesized from a fixed fallback confidence.
type Linear struct {
	coef       []float64
	intercept  float64
	confidence float64
}

// NewLinear validates the coefficients and the fallback confidence, which must be in
// [0.5, 1] so the predicted class stays the more probable one.
func NewLinear(coef []float64, intercept, fallbackConfidence float64) (*Linear, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("linear model has no coefficients")
	}
	for i, c := range coef {
		if !isFinite(c) {
			return nil, fmt.Errorf("coefficient %d is invalid: %v", i, c)
		}
	}
	if !isFinite(intercept) {
		return nil, fmt.Errorf("intercept is invalid: %v", intercept)
	}
	if math.IsNaN(fallbackConfidence) || fallbackConfidence < 0.5 || fallbackConfidence > 1 {
		return nil, fmt.Errorf("fallback confidence must be in [0.5, 1], got %v", fallbackConfidence)
	}

	l := &Linear{
		coef:       make([]float64, len(coef)),
		intercept:  intercept,
		confidence: fallbackConfidence,
	}
	copy(l.coef, coef)
	return l, nil
}

// Width returns the feature width V.
func (l *Linear) Width() int { return len(l.coef) }

// Name returns the algorithm identifier.
func (l *Linear) Name() string { return "linear" }

// Coefficients returns a copy of the per-feature weights.
func (l *Linear) Coefficients() []float64 {
	coef := make([]float64, len(l.coef))
	copy(coef, l.coef)
	return coef
}

// Intercept returns the bias term.
func (l *Linear) Intercept() float64 { return l.intercept }

// FallbackConfidence returns the synthesized posterior of the predicted class.
func (l *Linear) FallbackConfidence() float64 { return l.confidence }

// Decision returns the signed distance from the separating hyperplane.
func (l *Linear) Decision(vector tfidf.FeatureVector) (float64, error) {
	if vector.Dim() != l.Width() {
		return 0, fmt.Errorf("feature vector has dimension %d, model expects %d", vector.Dim(), l.Width())
	}
	decision := l.intercept
	vector.Each(func(index int, weight float64) {
		decision += weight * l.coef[index]
	})
	return decision, nil
}

// Predict labels the vector by the sign of the decision function and reports the
// degenerate posterior {predicted: fallback, other: 1 - fallback}.
func (l *Linear) Predict(vector tfidf.FeatureVector) (Prediction, error) {
	decision, err := l.Decision(vector)
	if err != nil {
		return Prediction{}, err
	}
	if !isFinite(decision) {
		return Prediction{}, fmt.Errorf("%w: decision is %v", ErrNumericAnomaly, decision)
	}

	// the label follows the decision sign; the posterior only reports the fallback,
	// which at 0.5 is a tie that must not flip spam to ham
	label := Ham
	posterior := Posterior{Ham: l.confidence, Spam: 1 - l.confidence}
	if decision > 0 {
		label = Spam
		posterior = Posterior{Ham: 1 - l.confidence, Spam: l.confidence}
	}

	prediction := Prediction{Label: label, Posterior: posterior, Confidence: l.confidence}
	slog.Debug("Linear prediction", "decision", decision, "label", prediction.Label)
	return prediction, nil
}

// Explain returns up to n features with the largest absolute contribution weight × coef.
func (l *Linear) Explain(vector tfidf.FeatureVector, n int) []Contribution {
	if vector.Dim() != l.Width() {
		return []Contribution{}
	}
	return topContributions(vector, n, func(index int) float64 { return l.coef[index] })
}
