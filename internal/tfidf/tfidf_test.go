package tfidf

import (
	"math"
	"testing"
)

func newTestVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	vocab, err := NewVocabulary(
		[]string{"free", "money", "offer", "meeting", "project", "run"},
		[]float64{1.5, 1.2, 1.0, 1.4, 1.3, 2.0},
	)
	if err != nil {
		t.Fatalf("NewVocabulary() error = %v", err)
	}
	return vocab
}

func TestNewVocabulary(t *testing.T) {
	tests := []struct {
		name    string
		terms   []string
		idf     []float64
		wantErr bool
	}{
		{
			name:  "valid vocabulary",
			terms: []string{"hello", "world"},
			idf:   []float64{1.0, 2.0},
		},
		{
			name:    "empty vocabulary",
			terms:   []string{},
			idf:     []float64{},
			wantErr: true,
		},
		{
			name:    "length mismatch",
			terms:   []string{"hello", "world"},
			idf:     []float64{1.0},
			wantErr: true,
		},
		{
			name:    "duplicate term",
			terms:   []string{"hello", "hello"},
			idf:     []float64{1.0, 1.0},
			wantErr: true,
		},
		{
			name:    "empty term",
			terms:   []string{"hello", ""},
			idf:     []float64{1.0, 1.0},
			wantErr: true,
		},
		{
			name:    "negative idf",
			terms:   []string{"hello"},
			idf:     []float64{-1.0},
			wantErr: true,
		},
		{
			name:    "nan idf",
			terms:   []string{"hello"},
			idf:     []float64{math.NaN()},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vocab, err := NewVocabulary(tt.terms, tt.idf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVocabulary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && vocab.Size() != len(tt.terms) {
				t.Errorf("Size() = %d, want %d", vocab.Size(), len(tt.terms))
			}
		})
	}
}

func TestVocabularyLookup(t *testing.T) {
	vocab := newTestVocabulary(t)

	if i, ok := vocab.Lookup("offer"); !ok || i != 2 {
		t.Errorf("Lookup(offer) = %d, %v, want 2, true", i, ok)
	}
	if _, ok := vocab.Lookup("unknown"); ok {
		t.Errorf("Lookup(unknown) found a term that is not in the vocabulary")
	}
	if got := vocab.Term(3); got != "meeting" {
		t.Errorf("Term(3) = %q, want %q", got, "meeting")
	}
	if got := vocab.Term(99); got != "" {
		t.Errorf("Term(99) = %q, want empty", got)
	}
	if got := vocab.IDF(0); got != 1.5 {
		t.Errorf("IDF(0) = %v, want 1.5", got)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		analyzer Analyzer
		text     string
		want     []string
	}{
		{
			name:     "empty string",
			analyzer: DefaultAnalyzer(),
			text:     "",
			want:     []string{},
		},
		{
			name:     "words with punctuation",
			analyzer: DefaultAnalyzer(),
			text:     "hello, world!",
			want:     []string{"hello", "world"},
		},
		{
			name:     "mixed case",
			analyzer: DefaultAnalyzer(),
			text:     "FREE Money",
			want:     []string{"free", "money"},
		},
		{
			name:     "digits kept, underscores and dashes split",
			analyzer: DefaultAnalyzer(),
			text:     "win_100 cash-prize",
			want:     []string{"win", "100", "cash", "prize"},
		},
		{
			name:     "single characters dropped",
			analyzer: DefaultAnalyzer(),
			text:     "a b cd",
			want:     []string{"cd"},
		},
		{
			name:     "unicode letters",
			analyzer: DefaultAnalyzer(),
			text:     "Café gratuit",
			want:     []string{"café", "gratuit"},
		},
		{
			name:     "english stop words removed",
			analyzer: Analyzer{MinTokenLength: 2, StopWords: StopWordsEnglish, Norm: NormNone},
			text:     "claim the free money now",
			want:     []string{"claim", "free", "money"},
		},
		{
			name:     "extra stop words removed",
			analyzer: Analyzer{MinTokenLength: 2, StopWords: StopWordsNone, ExtraStopWords: []string{"Dear"}, Norm: NormNone},
			text:     "dear customer",
			want:     []string{"customer"},
		},
		{
			name:     "stemming",
			analyzer: Analyzer{MinTokenLength: 2, StopWords: StopWordsNone, Stemmer: StemmerEnglish, Norm: NormNone},
			text:     "running runs",
			want:     []string{"run", "run"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTokenizer(tt.analyzer).tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize() = %v, want %v", got, tt.want)
			}
			for i, token := range got {
				if token != tt.want[i] {
					t.Errorf("tokenize() token[%d] = %s, want %s", i, token, tt.want[i])
				}
			}
		})
	}
}

func TestAnalyzerValidate(t *testing.T) {
	tests := []struct {
		name     string
		analyzer Analyzer
		wantErr  bool
	}{
		{"default", DefaultAnalyzer(), false},
		{"zero min length", Analyzer{MinTokenLength: 0, StopWords: StopWordsNone, Norm: NormNone}, true},
		{"unknown stop words", Analyzer{MinTokenLength: 2, StopWords: "french", Norm: NormNone}, true},
		{"unknown stemmer", Analyzer{MinTokenLength: 2, StopWords: StopWordsNone, Stemmer: "porter", Norm: NormNone}, true},
		{"unknown norm", Analyzer{MinTokenLength: 2, StopWords: StopWordsNone, Norm: "l1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.analyzer.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransform(t *testing.T) {
	vocab := newTestVocabulary(t)
	vectorizer := NewVectorizer(vocab, DefaultAnalyzer())

	fv := vectorizer.Transform("Free free FREE money, unknown words everywhere")

	if fv.Dim() != vocab.Size() {
		t.Errorf("Dim() = %d, want %d", fv.Dim(), vocab.Size())
	}
	if fv.Len() != 2 {
		t.Errorf("Len() = %d, want 2", fv.Len())
	}
	if got := fv.At(0); math.Abs(got-4.5) > 1e-12 {
		t.Errorf("weight(free) = %v, want 4.5", got)
	}
	if got := fv.At(1); math.Abs(got-1.2) > 1e-12 {
		t.Errorf("weight(money) = %v, want 1.2", got)
	}
	if got := fv.At(3); got != 0 {
		t.Errorf("weight(meeting) = %v, want 0", got)
	}
}

func TestTransformOutOfVocabulary(t *testing.T) {
	vectorizer := NewVectorizer(newTestVocabulary(t), DefaultAnalyzer())

	for _, text := range []string{"", "   ", "zebra quokka", "!!! ???"} {
		fv := vectorizer.Transform(text)
		if !fv.IsZero() {
			t.Errorf("Transform(%q) has %d non-zero entries, want 0", text, fv.Len())
		}
		if fv.Dim() != 6 {
			t.Errorf("Transform(%q).Dim() = %d, want 6", text, fv.Dim())
		}
	}
}

func TestTransformBounded(t *testing.T) {
	vocab := newTestVocabulary(t)
	vectorizer := NewVectorizer(vocab, DefaultAnalyzer())

	fv := vectorizer.Transform("project meeting offer money free run ran running zebra 42")
	fv.Each(func(index int, weight float64) {
		if index < 0 || index >= vocab.Size() {
			t.Errorf("index %d outside [0, %d)", index, vocab.Size())
		}
		if weight <= 0 {
			t.Errorf("index %d has non-positive weight %v", index, weight)
		}
	})
}

func TestTransformDeterministic(t *testing.T) {
	vectorizer := NewVectorizer(newTestVocabulary(t), Analyzer{
		MinTokenLength: 2,
		StopWords:      StopWordsEnglish,
		Stemmer:        StemmerEnglish,
		SublinearTF:    true,
		Norm:           NormL2,
	})
	text := "Running projects, free offers and a meeting about money: run, run, run!"

	first := vectorizer.Transform(text)
	for i := 0; i < 20; i++ {
		again := vectorizer.Transform(text)
		if again.Len() != first.Len() {
			t.Fatalf("run %d: Len() = %d, want %d", i, again.Len(), first.Len())
		}
		first.Each(func(index int, weight float64) {
			if got := again.At(index); math.Float64bits(got) != math.Float64bits(weight) {
				t.Errorf("run %d: weight[%d] = %v, want %v", i, index, got, weight)
			}
		})
	}
}

func TestTransformL2Norm(t *testing.T) {
	vectorizer := NewVectorizer(newTestVocabulary(t), Analyzer{MinTokenLength: 2, StopWords: StopWordsNone, Norm: NormL2})

	fv := vectorizer.Transform("free money offer offer")
	var sumSquares float64
	fv.Each(func(_ int, weight float64) {
		sumSquares += weight * weight
	})
	if math.Abs(sumSquares-1) > 1e-9 {
		t.Errorf("squared norm = %v, want 1", sumSquares)
	}
}

func TestTransformSublinearTF(t *testing.T) {
	vectorizer := NewVectorizer(newTestVocabulary(t), Analyzer{MinTokenLength: 2, StopWords: StopWordsNone, SublinearTF: true, Norm: NormNone})

	fv := vectorizer.Transform("free free free")
	want := (1 + math.Log(3)) * 1.5
	if got := fv.At(0); math.Abs(got-want) > 1e-12 {
		t.Errorf("weight(free) = %v, want %v", got, want)
	}
}

func TestNewFeatureVector(t *testing.T) {
	tests := []struct {
		name    string
		dim     int
		entries map[int]float64
		wantLen int
		wantErr bool
	}{
		{"empty", 3, map[int]float64{}, 0, false},
		{"zero weights dropped", 3, map[int]float64{0: 0, 2: 1.5}, 1, false},
		{"index out of range", 3, map[int]float64{3: 1}, 0, true},
		{"negative index", 3, map[int]float64{-1: 1}, 0, true},
		{"negative weight", 3, map[int]float64{1: -0.5}, 0, true},
		{"zero dimension", 0, map[int]float64{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv, err := NewFeatureVector(tt.dim, tt.entries)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFeatureVector() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && fv.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", fv.Len(), tt.wantLen)
			}
		})
	}
}

func TestCalculateTermCounts(t *testing.T) {
	vocab := newTestVocabulary(t)

	got := calculateTermCounts([]string{"free", "zebra", "free", "offer"}, vocab)
	want := map[int]int{0: 2, 2: 1}
	if len(got) != len(want) {
		t.Fatalf("calculateTermCounts() = %v, want %v", got, want)
	}
	for i, c := range want {
		if got[i] != c {
			t.Errorf("count[%d] = %d, want %d", i, got[i], c)
		}
	}
}
