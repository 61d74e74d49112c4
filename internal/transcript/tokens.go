package transcript

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// EstimateTokens approximates the token count of text for turns whose
// transcript carries no usage data. Falls back to a chars/4 heuristic when
// the tokenizer is unavailable.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			encoder = enc
		}
	})
	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}
	return approxTokens(text)
}

// approxTokens is the tokenizer-free estimate: roughly four characters per
// token, never less than one for non-empty text.
func approxTokens(text string) int {
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
