package rules

import (
	"log"
	"math/rand/v2"
	"strings"
	"unicode"

	"go-mask-pipeline/internal/model"
)

// UnsupportedSentinel is returned for rule kinds outside the closed enum.
// It is clearly marked so the validator and operators can spot it.
const UnsupportedSentinel = "***UNSUPPORTED***"

const defaultDigitLength = 10

// SiblingLookup resolves a sibling field's current (already masked) value
// for derivedLower rules. May be nil when no siblings are reachable.
type SiblingLookup func(field string) (interface{}, bool)

// Warnings tallies per-value degradations. The engine is used from a
// single pipeline goroutine, so plain counters suffice; rule evaluation
// never blocks or performs I/O.
type Warnings struct {
	UnknownKind       int64
	DateParseFailures int64
}

// Engine applies a single rule to a single value. Apply is a pure function
// of (value, rule.Kind, rule.Params) plus the sibling lookup; a per-value
// failure degrades to returning the original value.
type Engine struct {
	warnings Warnings
}

// NewEngine returns a rule engine with zeroed warning tallies.
func NewEngine() *Engine {
	return &Engine{}
}

// Warnings returns the tallies accumulated so far.
func (e *Engine) Warnings() Warnings {
	return e.warnings
}

// Apply masks one value according to the rule. A nil or empty-string input
// always passes through unchanged: an absent field is never masked.
func (e *Engine) Apply(value interface{}, rule *model.MaskingRule, sibling SiblingLookup) interface{} {
	if value == nil {
		return nil
	}
	if s, ok := value.(string); ok && s == "" {
		return value
	}

	switch rule.Kind {
	case model.KindConstant, model.KindCategory:
		return rule.Params.Value
	case model.KindScramble:
		return scrambleChanged(value, upperLetters)
	case model.KindDerivedLower:
		return e.derivedLower(value, rule, sibling)
	case model.KindDigits:
		s, _ := value.(string)
		return digitsChanged(s, rule.Params.Length)
	case model.KindDateShift:
		return e.shiftValue(value, rule)
	default:
		e.warnings.UnknownKind++
		log.Printf("⚠️ unknown rule kind %q for field %s, value left as sentinel", rule.Kind, rule.Field)
		return UnsupportedSentinel
	}
}

// derivedLower copies the masked sibling named by params.source, lowercased.
// When the sibling is absent or empty it falls back to lowercase-scrambling
// the field's own value so the twin never stays consistent with the source
// data while its uppercase counterpart changed.
func (e *Engine) derivedLower(value interface{}, rule *model.MaskingRule, sibling SiblingLookup) interface{} {
	if sibling != nil {
		if src, ok := sibling(rule.Params.Source); ok {
			if s, isStr := src.(string); isStr && s != "" {
				return strings.ToLower(s)
			}
		}
	}
	return scrambleChanged(value, lowerLetters)
}

func (e *Engine) shiftValue(value interface{}, rule *model.MaskingRule) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	shifted, parsed := shiftDate(s, rule.Params.OffsetMs)
	if !parsed {
		e.warnings.DateParseFailures++
		log.Printf("⚠️ unparseable date %q for field %s, value left unchanged", s, rule.Field)
	}
	return shifted
}

const (
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
)

// scramble replaces every non-whitespace rune of a string value with a
// random letter from the alphabet, preserving length and the position of
// whitespace. Non-string values pass through unchanged.
func scramble(value interface{}, alphabet string) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	out := []rune(s)
	for i, r := range out {
		if unicode.IsSpace(r) {
			continue
		}
		out[i] = rune(alphabet[rand.IntN(len(alphabet))])
	}
	return string(out)
}

// scrambleChanged scrambles and guarantees the result differs from the
// input. Random output must never equal the original PHI value, so after
// a few unlucky draws the first maskable rune is rotated deterministically.
func scrambleChanged(value interface{}, alphabet string) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	for i := 0; i < 5; i++ {
		if out := scramble(s, alphabet).(string); out != s {
			return out
		}
	}
	return rotateFirstLetter(s, alphabet)
}

func rotateFirstLetter(s, alphabet string) string {
	out := []rune(s)
	for i, r := range out {
		if unicode.IsSpace(r) {
			continue
		}
		idx := strings.IndexRune(alphabet, r)
		out[i] = rune(alphabet[(idx+1+len(alphabet))%len(alphabet)])
		return string(out)
	}
	return s
}

// digitsChanged returns a fixed-length random decimal string differing
// from the original. The input length is ignored: digit fields like SSN
// or MRN must not leak length or prefix information.
func digitsChanged(original string, length int) string {
	for i := 0; i < 5; i++ {
		if out := randomDigits(length); out != original {
			return out
		}
	}
	// length collision with identical digits five times in a row means
	// the original was itself random noise; flip the last digit.
	out := []byte(randomDigits(length))
	out[len(out)-1] = '0' + (out[len(out)-1]-'0'+1)%10
	return string(out)
}

func randomDigits(length int) string {
	if length <= 0 {
		length = defaultDigitLength
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}
