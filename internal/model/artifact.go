package model

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chriscorrea/spamsift/internal/classify"
	"github.com/chriscorrea/spamsift/internal/tfidf"
)

// FormatVersion is the artifact layout understood by this package.
const FormatVersion = 1

// Algorithms a classifier artifact may declare.
const (
	AlgorithmNaiveBayes = "multinomial_nb"
	AlgorithmLinear     = "linear"
)

// VocabularyArtifact is the serialized Vocabulary + IDF table. The position of a term in
// Terms is its feature index.
type VocabularyArtifact struct {
	FormatVersion int            `json:"format_version"`
	BundleID      string         `json:"bundle_id"`
	Analyzer      tfidf.Analyzer `json:"analyzer"`
	Terms         []string       `json:"terms"`
	IDF           []float64      `json:"idf"`
}

// ClassifierArtifact is the serialized classifier. Naive Bayes artifacts fill the prior
// and log-probability tables; linear artifacts fill Coef and Intercept. Rows and priors
// are ordered like Classes, which must be ["ham", "spam"].
type ClassifierArtifact struct {
	FormatVersion  int         `json:"format_version"`
	BundleID       string      `json:"bundle_id"`
	Algorithm      string      `json:"algorithm"`
	Classes        []string    `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior,omitempty"`
	FeatureLogProb [][]float64 `json:"feature_log_prob,omitempty"`
	Coef           []float64   `json:"coef,omitempty"`
	Intercept      float64     `json:"intercept,omitempty"`
}

// DecodeVocabulary reads a vocabulary artifact. Analyzer settings missing from the
// document keep their defaults; unknown fields are rejected.
func DecodeVocabulary(r io.Reader) (*VocabularyArtifact, error) {
	a := &VocabularyArtifact{Analyzer: tfidf.DefaultAnalyzer()}
	if err := decodeStrict(r, a); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary artifact: %w", err)
	}
	return a, nil
}

// DecodeClassifier reads a classifier artifact; unknown fields are rejected.
func DecodeClassifier(r io.Reader) (*ClassifierArtifact, error) {
	a := &ClassifierArtifact{}
	if err := decodeStrict(r, a); err != nil {
		return nil, fmt.Errorf("failed to decode classifier artifact: %w", err)
	}
	return a, nil
}

// WriteVocabulary serializes a vocabulary artifact. Floats are written in their
// shortest exact form, so decoding yields identical values.
func WriteVocabulary(w io.Writer, a *VocabularyArtifact) error {
	return encode(w, a)
}

// WriteClassifier serializes a classifier artifact.
func WriteClassifier(w io.Writer, a *ClassifierArtifact) error {
	return encode(w, a)
}

func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after artifact")
	}
	return nil
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	return nil
}

// buildModel turns a classifier artifact into a classify.Model.
func buildModel(a *ClassifierArtifact, fallbackConfidence float64) (classify.Model, error) {
	if len(a.Classes) != classify.NumClasses ||
		a.Classes[classify.Ham] != classify.Ham.String() ||
		a.Classes[classify.Spam] != classify.Spam.String() {
		return nil, fmt.Errorf("classes must be [ham spam], got %v", a.Classes)
	}

	switch a.Algorithm {
	case AlgorithmNaiveBayes:
		if len(a.ClassLogPrior) != classify.NumClasses {
			return nil, fmt.Errorf("class_log_prior has %d entries, want %d", len(a.ClassLogPrior), classify.NumClasses)
		}
		if len(a.FeatureLogProb) != classify.NumClasses {
			return nil, fmt.Errorf("feature_log_prob has %d rows, want %d", len(a.FeatureLogProb), classify.NumClasses)
		}
		var priors [classify.NumClasses]float64
		var rows [classify.NumClasses][]float64
		copy(priors[:], a.ClassLogPrior)
		copy(rows[:], a.FeatureLogProb)
		return classify.NewNaiveBayes(priors, rows)
	case AlgorithmLinear:
		return classify.NewLinear(a.Coef, a.Intercept, fallbackConfidence)
	default:
		return nil, fmt.Errorf("unsupported algorithm %q", a.Algorithm)
	}
}
