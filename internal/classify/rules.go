package classify

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/spec-kit/incident-service/internal/domain"
)

//go:embed patterns.json
var defaultPatterns []byte

// Pattern maps a phrase to an entity kind such as ORG or LOC.
type Pattern struct {
	Label   string `json:"label"`
	Pattern string `json:"pattern"`
}

// categoryByKind is the kind to category table. Kinds missing here are
// reported as entities but leave the category untouched.
var categoryByKind = map[string]string{
	"ORG":         "System Issue",
	"LOC":         "Network Issue",
	"PERSON":      "User Issue",
	"GPE":         "Location-Specific Issue",
	"DATE":        "Time-Sensitive Issue",
	"PRODUCT":     "Product Issue",
	"EVENT":       "Event-Related Issue",
	"WORK_OF_ART": "Creative Work Issue",
	"LANGUAGE":    "Language Issue",
	"FAC":         "Facility Issue",
	"NORP":        "Group-Related Issue",
}

// CategoryFor returns the category for an entity kind.
func CategoryFor(kind string) (string, bool) {
	c, ok := categoryByKind[kind]
	return c, ok
}

// RuleClassifier recognises phrase patterns in a description.
type RuleClassifier struct {
	phrases   map[string]string
	maxTokens int
}

// LoadPatterns reads a JSON pattern table from path.
func LoadPatterns(path string) ([]Pattern, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	return decodePatterns(raw)
}

// DefaultPatterns returns the built-in pattern table.
func DefaultPatterns() []Pattern {
	patterns, err := decodePatterns(defaultPatterns)
	if err != nil {
		panic(fmt.Sprintf("embedded patterns are invalid: %v", err))
	}
	return patterns
}

func decodePatterns(raw []byte) ([]Pattern, error) {
	var patterns []Pattern
	if err := json.Unmarshal(raw, &patterns); err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}
	return patterns, nil
}

// NewRuleClassifier builds a classifier from patterns. Later duplicates overwrite earlier ones.
func NewRuleClassifier(patterns []Pattern) *RuleClassifier {
	rc := &RuleClassifier{phrases: make(map[string]string, len(patterns))}
	for _, p := range patterns {
		toks := tokenize(p.Pattern)
		if len(toks) == 0 || p.Label == "" {
			continue
		}
		rc.phrases[phraseKey(p.Pattern, toks)] = p.Label
		if len(toks) > rc.maxTokens {
			rc.maxTokens = len(toks)
		}
	}
	return rc
}

// Classify scans tokens left to right, preferring the longest phrase at each
// position. The category follows the last mapped entity found.
func (rc *RuleClassifier) Classify(ctx context.Context, text string) (Result, error) {
	res := Result{Category: domain.UnknownCategory, Entities: []domain.Entity{}}
	if strings.TrimSpace(text) == "" {
		return res, nil
	}

	toks := tokenize(text)
	for i := 0; i < len(toks); {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		n, label := rc.longestMatch(text, toks[i:])
		if n == 0 {
			i++
			continue
		}
		res.Entities = append(res.Entities, domain.Entity{
			Text:  text[toks[i].start:toks[i+n-1].end],
			Label: label,
		})
		if category, ok := categoryByKind[label]; ok {
			res.Category = category
		}
		i += n
	}
	return res, nil
}

func (rc *RuleClassifier) longestMatch(text string, toks []token) (int, string) {
	limit := rc.maxTokens
	if limit > len(toks) {
		limit = len(toks)
	}
	for n := limit; n > 0; n-- {
		if label, ok := rc.phrases[phraseKey(text, toks[:n])]; ok {
			return n, label
		}
	}
	return 0, ""
}

type token struct {
	start, end int
}

// tokenize splits on anything that is not a letter or digit.
func tokenize(s string) []token {
	var toks []token
	start := -1
	for i, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			toks = append(toks, token{start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		toks = append(toks, token{start: start, end: len(s)})
	}
	return toks
}

func phraseKey(s string, toks []token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = strings.ToLower(s[t.start:t.end])
	}
	return strings.Join(parts, " ")
}
