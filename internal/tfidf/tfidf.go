// Package tfidf provides TF-IDF (Term Frequency-Inverse Document Frequency) vectorization
// against a fixed, pre-trained vocabulary.
//
// This package projects free-form text into a sparse feature vector whose dimension is
// fixed at training time. It never learns: the vocabulary, the IDF weights and the analyzer
// settings all come from a trained model artifact and are immutable once loaded.
//
// The TF-IDF weight of a feature combines:
//   - Term Frequency (TF): how often the term appears in the input text
//   - Inverse Document Frequency (IDF): how rare the term was across the training corpus
//
// Usage Example:
//
//	vocab, err := tfidf.NewVocabulary(terms, idf)
//	vectorizer := tfidf.NewVectorizer(vocab, tfidf.DefaultAnalyzer())
//	vector := vectorizer.Transform("free money, claim now!")
//
// Terms that are not part of the vocabulary are silently dropped, which is how the
// trained vocabulary bounds the feature space.
package tfidf

import (
	"fmt"
	"log/slog"
	"math"
)

// Vocabulary maps normalized terms to dense feature indices in [0, Size()) and holds
// one IDF weight per index.
type Vocabulary struct {
	index map[string]int // term -> feature index
	terms []string       // feature index -> term
	idf   []float64      // feature index -> IDF weight
}

// NewVocabulary builds an immutable vocabulary from an ordered term list and the
// matching IDF weights. The position of a term in terms is its feature index.
//
// Parameters:
//   - terms: normalized terms, one per feature index
//   - idf: IDF weights, one per feature index
//
// Returns:
//   - *Vocabulary: ready for lookups
//   - error: when lengths differ, a term is empty or duplicated, or a weight is
//     negative or not finite
//
// Inputs are copied so later changes by the caller cannot reach the vocabulary.
func NewVocabulary(terms []string, idf []float64) (*Vocabulary, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("vocabulary has %d terms but %d idf weights", len(terms), len(idf))
	}

	v := &Vocabulary{
		index: make(map[string]int, len(terms)),
		terms: make([]string, len(terms)),
		idf:   make([]float64, len(idf)),
	}
	copy(v.terms, terms)
	copy(v.idf, idf)

	for i, term := range v.terms {
		if term == "" {
			return nil, fmt.Errorf("vocabulary term %d is empty", i)
		}
		if prev, dup := v.index[term]; dup {
			return nil, fmt.Errorf("vocabulary term %q appears at indices %d and %d", term, prev, i)
		}
		v.index[term] = i

		w := v.idf[i]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("idf weight for term %q is invalid: %v", term, w)
		}
	}

	slog.Debug("Vocabulary created", "size", len(v.terms))
	return v, nil
}

// Size returns the number of features V.
func (v *Vocabulary) Size() int {
	return len(v.terms)
}

// Lookup returns the feature index of a normalized term.
func (v *Vocabulary) Lookup(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Term returns the term stored at a feature index, or "" when out of range.
func (v *Vocabulary) Term(index int) string {
	if index < 0 || index >= len(v.terms) {
		return ""
	}
	return v.terms[index]
}

// IDF returns the IDF weight of a feature index, or 0 when out of range.
func (v *Vocabulary) IDF(index int) float64 {
	if index < 0 || index >= len(v.idf) {
		return 0
	}
	return v.idf[index]
}

// Terms returns a copy of the ordered term list.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// IDFWeights returns a copy of the ordered IDF weights.
func (v *Vocabulary) IDFWeights() []float64 {
	out := make([]float64, len(v.idf))
	copy(out, v.idf)
	return out
}
