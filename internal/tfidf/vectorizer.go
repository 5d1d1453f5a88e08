package tfidf

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// FeatureVector is a sparse TF-IDF vector of fixed dimension. Indices are kept in
// ascending order so every consumer walks the entries in the same sequence and
// floating point sums come out bit-for-bit identical between runs.
type FeatureVector struct {
	dim     int
	indices []int
	weights []float64
}

// NewFeatureVector builds a vector from index/weight pairs. Entries with zero weight
// are dropped; an out-of-range index, a duplicated index or a negative or non-finite
// weight is an error.
func NewFeatureVector(dim int, entries map[int]float64) (FeatureVector, error) {
	if dim <= 0 {
		return FeatureVector{}, fmt.Errorf("feature vector dimension must be positive, got %d", dim)
	}

	indices := make([]int, 0, len(entries))
	for i, w := range entries {
		if i < 0 || i >= dim {
			return FeatureVector{}, fmt.Errorf("feature index %d outside [0, %d)", i, dim)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return FeatureVector{}, fmt.Errorf("feature %d has invalid weight %v", i, w)
		}
		if w == 0 {
			continue
		}
		indices = append(indices, i)
	}
	sort.Ints(indices)

	weights := make([]float64, len(indices))
	for n, i := range indices {
		weights[n] = entries[i]
	}

	return FeatureVector{dim: dim, indices: indices, weights: weights}, nil
}

// Dim returns the vector dimension V.
func (fv FeatureVector) Dim() int { return fv.dim }

// Len returns the number of non-zero entries.
func (fv FeatureVector) Len() int { return len(fv.indices) }

// IsZero reports whether every entry is zero.
func (fv FeatureVector) IsZero() bool { return len(fv.indices) == 0 }

// At returns the weight stored at index, zero when absent.
func (fv FeatureVector) At(index int) float64 {
	n := sort.SearchInts(fv.indices, index)
	if n < len(fv.indices) && fv.indices[n] == index {
		return fv.weights[n]
	}
	return 0
}

// Each calls fn for every non-zero entry in ascending index order.
func (fv FeatureVector) Each(fn func(index int, weight float64)) {
	for n, i := range fv.indices {
		fn(i, fv.weights[n])
	}
}

// Vectorizer turns raw text into FeatureVectors using a trained vocabulary.
// It holds no mutable state and is safe for concurrent use.
type Vectorizer struct {
	vocab     *Vocabulary
	analyzer  Analyzer
	tokenizer *tokenizer
}

// NewVectorizer pairs a vocabulary with the analyzer settings it was trained with.
// The analyzer is expected to be valid; see Analyzer.Validate.
func NewVectorizer(vocab *Vocabulary, analyzer Analyzer) *Vectorizer {
	return &Vectorizer{
		vocab:     vocab,
		analyzer:  analyzer,
		tokenizer: newTokenizer(analyzer),
	}
}

// Vocabulary returns the vocabulary backing the vectorizer.
func (v *Vectorizer) Vocabulary() *Vocabulary { return v.vocab }

// Analyzer returns the analyzer settings.
func (v *Vectorizer) Analyzer() Analyzer { return v.analyzer }

// Tokens returns the normalized terms extracted from text before the vocabulary filter.
func (v *Vectorizer) Tokens(text string) []string {
	return v.tokenizer.tokenize(text)
}

// Transform projects text into a FeatureVector of dimension Vocabulary().Size().
//
// Parameters:
//   - text: raw input text; empty text yields an all-zero vector
//
// Returns:
//   - FeatureVector: TF-IDF weights for in-vocabulary terms only
//
// The weight of a feature is tf × idf, where tf is the raw count of the term in the
// text (or 1 + ln(count) with sublinear TF). With L2 normalization the weights are then
// scaled to unit Euclidean length.
func (v *Vectorizer) Transform(text string) FeatureVector {
	tokens := v.tokenizer.tokenize(text)
	counts := calculateTermCounts(tokens, v.vocab)

	indices := make([]int, 0, len(counts))
	for i := range counts {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	weights := make([]float64, len(indices))
	for n, i := range indices {
		tf := float64(counts[i])
		if v.analyzer.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		weights[n] = tf * v.vocab.idf[i]
	}

	if v.analyzer.Norm == NormL2 {
		normalizeL2(weights)
	}

	// a zero IDF yields a zero weight; keep the vector strictly sparse
	fv := FeatureVector{dim: v.vocab.Size(), indices: indices[:0], weights: weights[:0]}
	for n, i := range indices {
		if weights[n] == 0 {
			continue
		}
		fv.indices = append(fv.indices, i)
		fv.weights = append(fv.weights, weights[n])
	}

	slog.Debug("Text vectorized", "tokens", len(tokens), "features", fv.Len(), "dim", fv.dim)
	return fv
}

// calculateTermCounts counts in-vocabulary tokens by feature index.
// Out-of-vocabulary tokens are ignored.
func calculateTermCounts(tokens []string, vocab *Vocabulary) map[int]int {
	counts := make(map[int]int)
	for _, token := range tokens {
		if i, ok := vocab.Lookup(token); ok {
			counts[i]++
		}
	}
	return counts
}

// normalizeL2 scales weights in place to unit Euclidean length.
func normalizeL2(weights []float64) {
	var sumSquares float64
	for _, w := range weights {
		sumSquares += w * w
	}
	if sumSquares == 0 {
		return
	}
	norm := math.Sqrt(sumSquares)
	for n := range weights {
		weights[n] /= norm
	}
}
