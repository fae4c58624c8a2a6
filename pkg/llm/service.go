package llm

import (
	"context"
	"strings"
	"time"

	"github.com/smarthealth/platform/pkg/clinical"
	"github.com/smarthealth/platform/pkg/common/logger"
)

// Answer is the final generated (or extracted) answer for one query.
type Answer struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	ModelUsed  string  `json:"model_used"`
	TokensUsed int     `json:"tokens_used"`
	Fallback   bool    `json:"-"`
}

// Options tunes the facade. Zero values take the defaults below.
type Options struct {
	Attempts           int
	Backoff            time.Duration
	AttemptTimeout     time.Duration
	FallbackConfidence float64
}

const (
	defaultAttempts           = 2
	defaultBackoff            = 500 * time.Millisecond
	defaultAttemptTimeout     = 30 * time.Second
	defaultFallbackConfidence = 0.65
)

// Service wraps the generation capability with the grounding prompt,
// output validation, bounded retries and the extractive fallback.
type Service struct {
	client     Client
	classifier *Classifier
	opts       Options
}

func NewService(client Client, classifier *Classifier, opts Options) *Service {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.FallbackConfidence <= 0 {
		opts.FallbackConfidence = defaultFallbackConfidence
	}
	return &Service{client: client, classifier: classifier, opts: opts}
}

// Generate produces a grounded answer for the question over the composed
// context. Invalid or failing generations are retried up to the configured
// bound; after that the extractive fallback digest of the bundle is
// returned as a degraded but successful answer.
func (s *Service) Generate(ctx context.Context, question, contextText string, bundle *clinical.RecordBundle) (Answer, error) {
	userPrompt := BuildUserPrompt(question, contextText)

	op := func(ctx context.Context) (Completion, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
		defer cancel()
		return s.client.Generate(attemptCtx, SystemPrompt, userPrompt)
	}

	completion, err := retry(ctx, s.opts.Attempts, s.opts.Backoff, op, func(c Completion) bool {
		return ValidAnswer(c.Text)
	})
	if err != nil {
		if ctx.Err() != nil {
			return Answer{}, ctx.Err()
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"attempts": s.opts.Attempts,
		}).Warn("Generation exhausted retries, using extractive fallback")

		return Answer{
			Text:       buildFallbackText(bundle),
			Confidence: s.opts.FallbackConfidence,
			ModelUsed:  FallbackModel,
			Fallback:   true,
		}, nil
	}

	return Answer{
		Text:       completion.Text,
		Confidence: s.classifier.Confidence(completion.Text, contextText),
		ModelUsed:  completion.Model,
		TokensUsed: completion.TokensUsed,
	}, nil
}

// ValidAnswer rejects degenerate generation output: empty text, fewer than
// two whitespace-separated tokens, or fewer than three distinct non-space
// characters. It is deliberately permissive beyond that; clinically
// repetitive vocabulary is not a defect.
func ValidAnswer(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if len(strings.Fields(text)) < 2 {
		return false
	}

	distinct := make(map[rune]struct{})
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		distinct[r] = struct{}{}
		if len(distinct) >= 3 {
			return true
		}
	}
	return false
}
