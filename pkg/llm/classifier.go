package llm

import (
	"strings"
	"unicode/utf8"
)

// Classification outcomes.
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
)

// Classifier decides between success and no_data and scores a coarse,
// explainable confidence. It is monotonic in text length and
// absence-phrase presence, deliberately not a calibrated probability.
type Classifier struct {
	rules Rules
}

func NewClassifier(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// DetermineStatus classifies the answer against the context it was
// grounded in. A context too short to ground anything is no_data
// unconditionally. Absence phrases only count inside the leading window of
// the answer, so a caveat buried at the end does not flip the status.
func (c *Classifier) DetermineStatus(answer, context string) string {
	if utf8.RuneCountInString(strings.TrimSpace(context)) < c.rules.MinContextChars {
		return StatusNoData
	}
	if c.hasLeadingAbsencePhrase(answer) {
		return StatusNoData
	}
	return StatusSuccess
}

// Confidence walks a fixed ladder: short context, absence phrase, short
// answer, substantial answer with substantial context, then the graded
// middle.
func (c *Classifier) Confidence(answer, context string) float64 {
	contextLen := utf8.RuneCountInString(strings.TrimSpace(context))
	answerLen := utf8.RuneCountInString(answer)

	if contextLen < c.rules.ShortContextChars {
		return 0.2
	}
	if c.hasLeadingAbsencePhrase(answer) {
		return 0.3
	}
	if answerLen < c.rules.ShortAnswerChars {
		return 0.5
	}
	if answerLen > c.rules.LongAnswerChars && contextLen > c.rules.LongContextChars {
		return 0.9
	}
	return 0.7
}

func (c *Classifier) hasLeadingAbsencePhrase(answer string) bool {
	window := strings.ToLower(answer)
	runes := []rune(window)
	if len(runes) > c.rules.LeadingWindowRunes {
		window = string(runes[:c.rules.LeadingWindowRunes])
	}
	for _, phrase := range c.rules.AbsencePhrases {
		if strings.Contains(window, phrase) {
			return true
		}
	}
	return false
}
