// Package counter measures message size for the classification report.
//
// Word and character counts are always available. Token counts use tiktoken's
// cl100k_base encoding, which is fetched on first use and may be unavailable offline;
// a Measurer then reports words and characters only.
package counter

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Counter defines the interface for different text counting strategies.
type Counter interface {
	// Count returns the number of units (tokens, words, or characters) in given text.
	Count(text string) int

	// Name returns a human-readable name for this counting method (for logging)
	Name() string
}

// CountingMethod represents the different available counting strategies.
type CountingMethod int

const (
	// Tokens uses tiktoken with cl100k_base encoding
	Tokens CountingMethod = iota
	// Words counts words using whitespace splitting
	Words
	// Characters counts Unicode characters including whitespace
	Characters
)

// String returns the string representation of the counting method.
func (cm CountingMethod) String() string {
	switch cm {
	case Tokens:
		return "tokens"
	case Words:
		return "words"
	case Characters:
		return "characters"
	default:
		return "unknown"
	}
}

// NewCounter creates a Counter for the specified method. Only token counting can fail.
func NewCounter(method CountingMethod) (Counter, error) {
	switch method {
	case Words:
		return NewWordCounter(), nil
	case Characters:
		return NewCharCounter(), nil
	default:
		return NewTokenCounter()
	}
}

// textCounter counts with a plain string function; used for words and characters.
type textCounter struct {
	name  string
	count func(string) int
}

func (c textCounter) Count(text string) int { return c.count(text) }

func (c textCounter) Name() string { return c.name }

// NewWordCounter counts whitespace-separated words.
func NewWordCounter() Counter {
	return textCounter{name: "words", count: func(s string) int { return len(strings.Fields(s)) }}
}

// NewCharCounter counts runes, not bytes, whitespace included.
func NewCharCounter() Counter {
	return textCounter{name: "characters", count: utf8.RuneCountInString}
}

// Stats summarizes the size of one input.
type Stats struct {
	Words      int `json:"words"`
	Characters int `json:"characters"`
	Tokens     int `json:"tokens,omitempty"` // zero when token counting is unavailable
}

// Measurer computes Stats. It is safe for concurrent use.
type Measurer struct {
	words  Counter
	chars  Counter
	tokens Counter // nil when the encoding could not be loaded
}

// NewMeasurer returns a Measurer. When withTokens is set and the token encoding fails
// to load, the failure is logged and token counts are left out.
func NewMeasurer(withTokens bool) *Measurer {
	// only token counting can fail
	words, _ := NewCounter(Words)
	chars, _ := NewCounter(Characters)
	m := &Measurer{words: words, chars: chars}
	if withTokens {
		tokens, err := NewCounter(Tokens)
		if err != nil {
			slog.Debug("Token counting unavailable", "error", err)
		} else {
			m.tokens = tokens
		}
	}
	return m
}

// HasTokens reports whether token counts are included.
func (m *Measurer) HasTokens() bool { return m.tokens != nil }

// Measure counts the words, characters and, when available, tokens of text.
func (m *Measurer) Measure(text string) Stats {
	stats := Stats{
		Words:      m.words.Count(text),
		Characters: m.chars.Count(text),
	}
	if m.tokens != nil {
		stats.Tokens = m.tokens.Count(text)
	}
	slog.Debug("Input measured", "words", stats.Words, "characters", stats.Characters, "tokens", stats.Tokens)
	return stats
}
