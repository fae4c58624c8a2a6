package ragcontext

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/smarthealth/platform/pkg/common/logger"
)

// DefaultMaxTokens bounds the composed context.
const DefaultMaxTokens = 4000

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func loadEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			if logger.Log != nil {
				logger.Log.WithError(err).Warn("cl100k_base encoding unavailable, falling back to word counting")
			}
			return
		}
		encoding = enc
	})
	return encoding
}

// limitTokens tokenizes text and, when it exceeds max, truncates to exactly
// max tokens and decodes back. The cut may land mid-sentence; that is
// accepted. Without the BPE encoding it degrades to whitespace words, which
// keeps the budget invariant and determinism intact.
func limitTokens(text string, max int) (string, int) {
	if max <= 0 {
		max = DefaultMaxTokens
	}

	if enc := loadEncoding(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= max {
			return text, len(tokens)
		}
		return enc.Decode(tokens[:max]), max
	}

	words := strings.Fields(text)
	if len(words) <= max {
		return text, len(words)
	}
	return strings.Join(words[:max], " "), max
}
