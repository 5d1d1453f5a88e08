package counter

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// encodingName is the tiktoken encoding used for token statistics.
const encodingName = "cl100k_base"

// the encoding is loaded once per process and shared by every TokenCounter
var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

// TokenCounter counts cl100k_base tokens.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter returns a TokenCounter, loading the encoding on first call.
func NewTokenCounter() (Counter, error) {
	encodingOnce.Do(func() {
		slog.Debug("Loading token encoding", "encoding", encodingName)
		encoding, encodingErr = tiktoken.GetEncoding(encodingName)
	})
	if encodingErr != nil {
		return nil, fmt.Errorf("failed to initialize %s encoding: %w", encodingName, encodingErr)
	}

	return &TokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text. Special tokens are encoded as text.
func (tc *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

func (tc *TokenCounter) Name() string {
	return "tokens (" + encodingName + ")"
}
