package tfidf

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

// tokenRegex is compiled once at package initialization; anything that is not a
// Unicode letter or digit separates tokens.
var tokenRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Stop word and stemmer settings understood by the analyzer.
const (
	StopWordsNone    = "none"
	StopWordsEnglish = "english"

	StemmerNone    = ""
	StemmerEnglish = "english"

	NormNone = "none"
	NormL2   = "l2"
)

// Analyzer holds the tokenization settings that were used when the vocabulary was
// trained. They travel with the vocabulary; changing them at inference time would
// produce terms the model has never seen.
type Analyzer struct {
	MinTokenLength int      `json:"min_token_length"`
	StopWords      string   `json:"stop_words"`
	ExtraStopWords []string `json:"extra_stop_words,omitempty"`
	Stemmer        string   `json:"stemmer,omitempty"`
	SublinearTF    bool     `json:"sublinear_tf,omitempty"`
	Norm           string   `json:"norm"`
}

// DefaultAnalyzer mirrors a plain TF-IDF setup: tokens of two or more characters,
// no stop words, no stemming, raw term frequency and no normalization.
func DefaultAnalyzer() Analyzer {
	return Analyzer{
		MinTokenLength: 2,
		StopWords:      StopWordsNone,
		Stemmer:        StemmerNone,
		Norm:           NormNone,
	}
}

// Validate reports settings the analyzer does not understand.
func (a Analyzer) Validate() error {
	if a.MinTokenLength < 1 {
		return fmt.Errorf("min_token_length must be at least 1, got %d", a.MinTokenLength)
	}
	switch a.StopWords {
	case StopWordsNone, StopWordsEnglish:
	default:
		return fmt.Errorf("unsupported stop_words %q", a.StopWords)
	}
	switch a.Stemmer {
	case StemmerNone, StemmerEnglish:
	default:
		return fmt.Errorf("unsupported stemmer %q", a.Stemmer)
	}
	switch a.Norm {
	case NormNone, NormL2:
	default:
		return fmt.Errorf("unsupported norm %q", a.Norm)
	}
	return nil
}

// stopWordSet builds the lookup set for the configured stop words.
func (a Analyzer) stopWordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(englishStopWords)+len(a.ExtraStopWords))
	if a.StopWords == StopWordsEnglish {
		for w := range englishStopWords {
			set[w] = struct{}{}
		}
	}
	for _, w := range a.ExtraStopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// tokenizer applies an Analyzer to raw text.
type tokenizer struct {
	minLen    int
	stopWords map[string]struct{}
	stem      bool
}

func newTokenizer(a Analyzer) *tokenizer {
	return &tokenizer{
		minLen:    a.MinTokenLength,
		stopWords: a.stopWordSet(),
		stem:      a.Stemmer == StemmerEnglish,
	}
}

// tokenize breaks text into normalized terms.
// It converts to lowercase, splits on anything that is not a letter or digit, drops
// short tokens and stop words, and stems what remains when stemming is enabled.
//
// Parameters:
//   - text: input text to tokenize
//
// Returns:
//   - []string: normalized terms in input order (duplicates preserved)
func (t *tokenizer) tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	// convert to lowercase for case-insensitive matching
	text = strings.ToLower(text)

	tokens := tokenRegex.Split(text, -1)

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" || utf8.RuneCountInString(token) < t.minLen {
			continue
		}
		if _, stop := t.stopWords[token]; stop {
			continue
		}
		if t.stem {
			stemmed, err := snowball.Stem(token, "english", true)
			if err == nil && stemmed != "" {
				token = stemmed
			}
		}
		filtered = append(filtered, token)
	}

	return filtered
}

// englishStopWords is a fixed list of common English function words.
var englishStopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "almost": {}, "also": {}, "am": {}, "among": {}, "an": {},
	"and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"because": {}, "been": {}, "before": {}, "being": {}, "below": {}, "between": {},
	"both": {}, "but": {}, "by": {}, "can": {}, "cannot": {}, "could": {},
	"did": {}, "do": {}, "does": {}, "doing": {}, "down": {}, "during": {},
	"each": {}, "either": {}, "else": {}, "etc": {}, "even": {}, "ever": {},
	"every": {}, "few": {}, "for": {}, "from": {}, "further": {}, "had": {},
	"has": {}, "have": {}, "having": {}, "he": {}, "her": {}, "here": {},
	"hers": {}, "herself": {}, "him": {}, "himself": {}, "his": {}, "how": {},
	"however": {}, "i": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "itself": {}, "just": {}, "last": {}, "least": {},
	"less": {}, "many": {}, "may": {}, "me": {}, "might": {}, "more": {},
	"most": {}, "much": {}, "must": {}, "my": {}, "myself": {}, "neither": {},
	"never": {}, "no": {}, "nor": {}, "not": {}, "now": {}, "of": {},
	"off": {}, "often": {}, "on": {}, "once": {}, "only": {}, "or": {},
	"other": {}, "others": {}, "otherwise": {}, "our": {}, "ours": {}, "ourselves": {},
	"out": {}, "over": {}, "own": {}, "per": {}, "perhaps": {}, "rather": {},
	"same": {}, "several": {}, "she": {}, "should": {}, "since": {}, "so": {},
	"some": {}, "still": {}, "such": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "theirs": {}, "them": {}, "themselves": {}, "then": {}, "there": {},
	"therefore": {}, "these": {}, "they": {}, "this": {}, "those": {}, "though": {},
	"through": {}, "thus": {}, "to": {}, "together": {}, "too": {}, "under": {},
	"until": {}, "up": {}, "upon": {}, "us": {}, "very": {}, "via": {},
	"was": {}, "we": {}, "well": {}, "were": {}, "what": {}, "whatever": {},
	"when": {}, "whence": {}, "whenever": {}, "where": {}, "whereas": {}, "whether": {},
	"which": {}, "while": {}, "who": {}, "whoever": {}, "whole": {}, "whom": {},
	"whose": {}, "why": {}, "will": {}, "with": {}, "within": {}, "without": {},
	"would": {}, "yet": {}, "you": {}, "your": {}, "yours": {}, "yourself": {},
	"yourselves": {},
}
