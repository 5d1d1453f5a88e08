// Package classify provides spam/ham scoring of TF-IDF feature vectors.
//
// The classify package implements the probabilistic half of the inference pipeline. A
// Model turns a tfidf.FeatureVector into a Prediction: a label, a posterior distribution
// over the two classes and a confidence score. Every Model reports a posterior, whether
// or not the underlying algorithm is calibrated; see Linear for the uncalibrated case.
package classify

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chriscorrea/spamsift/internal/tfidf"
)

// ErrNumericAnomaly is returned when a model produces a non-finite score. It means the
// model parameters are corrupt; callers treat it as a model load failure.
var ErrNumericAnomaly = errors.New("model produced a non-finite score")

// Label identifies a class.
type Label int

const (
	// Ham is legitimate content (class 0)
	Ham Label = iota
	// Spam is unsolicited content (class 1)
	Spam
)

// NumClasses is the size of the class set.
const NumClasses = 2

// String returns the string representation of the label
func (l Label) String() string {
	switch l {
	case Ham:
		return "ham"
	case Spam:
		return "spam"
	default:
		return "unknown"
	}
}

// MarshalText encodes the label as "ham" or "spam".
func (l Label) MarshalText() ([]byte, error) {
	switch l {
	case Ham, Spam:
		return []byte(l.String()), nil
	default:
		return nil, fmt.Errorf("unknown label %d", int(l))
	}
}

// UnmarshalText decodes "ham" or "spam".
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLabel parses a class name.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "ham":
		return Ham, nil
	case "spam":
		return Spam, nil
	default:
		return 0, fmt.Errorf("unknown label %q", s)
	}
}

// Posterior is a probability distribution over {ham, spam}.
type Posterior struct {
	Ham  float64 `json:"ham"`
	Spam float64 `json:"spam"`
}

// Of returns the probability of a class.
func (p Posterior) Of(l Label) float64 {
	if l == Spam {
		return p.Spam
	}
	return p.Ham
}

// Prediction is the outcome of scoring one feature vector.
type Prediction struct {
	Label      Label     `json:"label"`
	Posterior  Posterior `json:"posterior"`
	Confidence float64   `json:"confidence"` // posterior of the predicted class, in [0.5, 1]
}

// Model scores feature vectors. Implementations are immutable and safe for concurrent use.
type Model interface {
	// Predict returns the label, posterior and confidence for a vector. An error is only
	// returned when the model parameters produce a non-finite score.
	Predict(vector tfidf.FeatureVector) (Prediction, error)

	// Width returns the number of features the model was trained on.
	Width() int

	// Name returns a short algorithm identifier (for logging)
	Name() string
}

// Explainer is implemented by models that can attribute a decision to features.
type Explainer interface {
	Explain(vector tfidf.FeatureVector, n int) []Contribution
}

// Contribution is the share of one feature in the spam-vs-ham decision.
// Positive values push toward spam, negative values toward ham.
type Contribution struct {
	Index int     `json:"index"`
	Delta float64 `json:"delta"`
}

// topContributions scores every non-zero feature as weight × factor(index) and keeps
// the n largest by magnitude. Ties keep ascending index order.
func topContributions(vector tfidf.FeatureVector, n int, factor func(index int) float64) []Contribution {
	if n <= 0 {
		return []Contribution{}
	}

	contributions := make([]Contribution, 0, vector.Len())
	vector.Each(func(index int, weight float64) {
		contributions = append(contributions, Contribution{Index: index, Delta: weight * factor(index)})
	})

	sort.SliceStable(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].Delta) > math.Abs(contributions[j].Delta)
	})

	if len(contributions) > n {
		contributions = contributions[:n]
	}
	return contributions
}

// decide builds a Prediction from a posterior. Spam wins only when it is strictly more
// probable; ties go to ham to avoid false positives.
func decide(posterior Posterior) Prediction {
	label := Ham
	if posterior.Spam > posterior.Ham {
		label = Spam
	}
	return Prediction{
		Label:      label,
		Posterior:  posterior,
		Confidence: posterior.Of(label),
	}
}

// logSumExp computes log(Σ exp(x_i)) without overflow by shifting by the maximum.
func logSumExp(xs []float64) float64 {
	maxVal := math.Inf(-1)
	for _, x := range xs {
		if x > maxVal {
			maxVal = x
		}
	}
	if math.IsInf(maxVal, -1) {
		return maxVal
	}

	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - maxVal)
	}
	return maxVal + math.Log(sum)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
