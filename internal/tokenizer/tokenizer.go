package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// Approximate switches token accounting to a character-based estimate.
// Useful when the BPE files cannot be fetched (offline environments).
var Approximate bool

const approxTokensPerChar = 0.38

var (
	encoderMu sync.Mutex
	// encoderMap won't grow beyond the set of models seen in one process.
	// A nil entry means the encoder could not be loaded for that model.
	encoderMap = map[string]*tiktoken.Tiktoken{}
)

func getEncoder(model string) *tiktoken.Tiktoken {
	encoderMu.Lock()
	defer encoderMu.Unlock()

	if enc, ok := encoderMap[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// OpenRouter model names (provider/model) are unknown to tiktoken,
		// so the shared cl100k_base encoding is the common path.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn().Str("model", model).Err(err).
				Msg("token encoder unavailable, falling back to approximate counting")
			enc = nil
		}
	}
	encoderMap[model] = enc
	return enc
}

// CountTokens returns the number of tokens in text for the given model.
func CountTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if Approximate {
		return approxCount(text)
	}
	enc := getEncoder(model)
	if enc == nil {
		return approxCount(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// Truncate returns a prefix of text that fits within maxTokens tokens.
func Truncate(model, text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if Approximate {
		return truncateWords(text, maxTokens)
	}
	enc := getEncoder(model)
	if enc == nil {
		return truncateWords(text, maxTokens)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

func approxCount(text string) int {
	return int(float64(len(text)) * approxTokensPerChar)
}

// truncateWords keeps at most maxTokens whitespace-delimited words, a rough
// stand-in for token-level truncation when no encoder is available.
func truncateWords(text string, maxTokens int) string {
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxTokens], " ")
}
