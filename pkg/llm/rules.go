package llm

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rules drives response classification and the confidence heuristic. The
// defaults are compiled in; a YAML file can override them per deployment.
type Rules struct {
	AbsencePhrases     []string `yaml:"absence_phrases" json:"absence_phrases"`
	MinContextChars    int      `yaml:"min_context_chars" json:"min_context_chars"`
	LeadingWindowRunes int      `yaml:"leading_window_runes" json:"leading_window_runes"`
	ShortContextChars  int      `yaml:"short_context_chars" json:"short_context_chars"`
	ShortAnswerChars   int      `yaml:"short_answer_chars" json:"short_answer_chars"`
	LongAnswerChars    int      `yaml:"long_answer_chars" json:"long_answer_chars"`
	LongContextChars   int      `yaml:"long_context_chars" json:"long_context_chars"`
}

func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var rules Rules
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return Rules{}, err
	}

	if len(rules.AbsencePhrases) == 0 {
		return Rules{}, errors.New("no absence phrases configured")
	}

	defaults := DefaultRules()
	if rules.MinContextChars <= 0 {
		rules.MinContextChars = defaults.MinContextChars
	}
	if rules.LeadingWindowRunes <= 0 {
		rules.LeadingWindowRunes = defaults.LeadingWindowRunes
	}
	if rules.ShortContextChars <= 0 {
		rules.ShortContextChars = defaults.ShortContextChars
	}
	if rules.ShortAnswerChars <= 0 {
		rules.ShortAnswerChars = defaults.ShortAnswerChars
	}
	if rules.LongAnswerChars <= 0 {
		rules.LongAnswerChars = defaults.LongAnswerChars
	}
	if rules.LongContextChars <= 0 {
		rules.LongContextChars = defaults.LongContextChars
	}

	return rules, nil
}

func DefaultRules() Rules {
	return Rules{
		AbsencePhrases: []string{
			"no hay información",
			"no hay informacion",
			"no se encuentra",
			"no se encontró",
			"no se encontro",
			"no hay datos",
			"no disponible",
			"sin información",
			"sin informacion",
			"sin datos",
		},
		MinContextChars:    20,
		LeadingWindowRunes: 160,
		ShortContextChars:  50,
		ShortAnswerChars:   50,
		LongAnswerChars:    100,
		LongContextChars:   200,
	}
}
