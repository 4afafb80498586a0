// Package quality decides whether a locale file's values are genuinely in
// the source language before they are sent for translation.
//
// Mods sometimes ship already-translated text under an en/ directory. The
// classifiers here are heuristics; they favor skipping a file over
// translating text that is not English.
package quality

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Verdict is the outcome of classifying a set of values.
type Verdict struct {
	// Source is true when the values look like source-language text.
	Source         bool
	IndicatorRatio float64
	PenaltyRatio   float64
	// Reason is a short human-readable explanation.
	Reason string
}

// Classifier decides whether values are source-language text.
type Classifier interface {
	Classify(values []string) Verdict
}

// ---------------------------------------------------------------------------
// Lexical classifier
// ---------------------------------------------------------------------------

// Default thresholds.
const (
	DefaultMinIndicatorRatio = 0.30
	DefaultMaxPenaltyRatio   = 0.20
)

// EnglishIndicators is frequent English vocabulary of Factorio mods.
var EnglishIndicators = []string{
	"the", "and", "for", "with", "from", "this", "that", "can", "will",
	"are", "is", "iron", "copper", "steel", "plate", "gear", "wire",
	"engine", "motor", "belt", "inserter", "assembling", "machine",
	"furnace", "drill", "mining", "electric", "steam", "boiler",
	"generator", "solar", "panel", "accumulator", "lab", "science", "pack",
	"research", "technology", "recipe", "item", "entity",
}

// EuropeanDiacritics are letters common in Czech, German, French, Spanish
// and neighbouring languages but absent from English.
var EuropeanDiacritics = []rune("čřěšžýáíéúůäöüßàâçèêëîïôùûñó")

// Lexical scores values against indicator words and foreign letters.
// Each value of at least two characters adds 1 to the indicator score when
// it contains any indicator as a substring and 2 to the penalty score when
// it contains any foreign letter. Both scores are divided by the number of
// values.
type Lexical struct {
	Indicators []string
	Foreign    []rune
	// MinIndicatorRatio is the lowest indicator ratio accepted.
	MinIndicatorRatio float64
	// MaxPenaltyRatio is the highest penalty ratio accepted.
	MaxPenaltyRatio float64
}

// Default returns the English classifier with default thresholds.
func Default() *Lexical {
	return &Lexical{
		Indicators:        EnglishIndicators,
		Foreign:           EuropeanDiacritics,
		MinIndicatorRatio: DefaultMinIndicatorRatio,
		MaxPenaltyRatio:   DefaultMaxPenaltyRatio,
	}
}

// Scores returns the indicator and penalty ratios of values.
func (l *Lexical) Scores(values []string) (indicator, penalty float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var ind, pen int
	for _, v := range values {
		v = strings.ToLower(v)
		if utf8.RuneCountInString(v) < 2 {
			continue
		}
		for _, w := range l.Indicators {
			if strings.Contains(v, w) {
				ind++
				break
			}
		}
		if strings.ContainsAny(v, string(l.Foreign)) {
			pen += 2
		}
	}
	n := float64(len(values))
	return float64(ind) / n, float64(pen) / n
}

// Classify implements Classifier.
func (l *Lexical) Classify(values []string) Verdict {
	if len(values) == 0 {
		return Verdict{Reason: "no entries"}
	}
	ind, pen := l.Scores(values)
	v := Verdict{IndicatorRatio: ind, PenaltyRatio: pen}
	switch {
	case ind < l.MinIndicatorRatio:
		v.Reason = fmt.Sprintf("indicator ratio %.2f below %.2f", ind, l.MinIndicatorRatio)
	case pen > l.MaxPenaltyRatio:
		v.Reason = fmt.Sprintf("foreign letter ratio %.2f above %.2f", pen, l.MaxPenaltyRatio)
	default:
		v.Source = true
		v.Reason = fmt.Sprintf("indicator ratio %.2f, foreign letter ratio %.2f", ind, pen)
	}
	return v
}

// ---------------------------------------------------------------------------
// Always
// ---------------------------------------------------------------------------

// Always accepts every non-empty value set.
type Always struct{}

// Classify implements Classifier.
func (Always) Classify(values []string) Verdict {
	if len(values) == 0 {
		return Verdict{Reason: "no entries"}
	}
	return Verdict{Source: true, Reason: "quality check disabled"}
}
