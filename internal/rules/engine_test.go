package rules

import (
	"regexp"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mask-pipeline/internal/model"
)

func TestApply_Constant(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "Email", Kind: model.KindConstant, Params: model.RuleParams{Value: "xxxxxx@xxxx.com"}}

	got := e.Apply("jane.doe@example.com", rule, nil)
	assert.Equal(t, "xxxxxx@xxxx.com", got)
}

func TestApply_Category(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "Gender", Kind: model.KindCategory, Params: model.RuleParams{Value: "U"}}

	assert.Equal(t, "U", e.Apply("F", rule, nil))
}

func TestApply_Scramble(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "FirstName", Kind: model.KindScramble}

	got, ok := e.Apply("Mary Jane", rule, nil).(string)
	require.True(t, ok)

	assert.NotEqual(t, "Mary Jane", got, "scrambled value must differ from the input")
	assert.Len(t, got, len("Mary Jane"))
	assert.Equal(t, " ", string(got[4]), "whitespace positions are preserved")
	for _, r := range got {
		if unicode.IsSpace(r) {
			continue
		}
		assert.True(t, r >= 'A' && r <= 'Z', "scramble emits uppercase letters, got %q", r)
	}
}

func TestApply_Scramble_NeverReturnsOriginal(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "LastName", Kind: model.KindScramble}

	// Single-letter inputs collide with a random draw 1/26 of the time,
	// so hammer it.
	for i := 0; i < 500; i++ {
		got := e.Apply("A", rule, nil)
		assert.NotEqual(t, "A", got)
	}
}

func TestApply_DerivedLower_UsesMaskedSibling(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{
		Field:  "FirstNameLower",
		Kind:   model.KindDerivedLower,
		Params: model.RuleParams{Source: "FirstName"},
	}
	sibling := func(field string) (interface{}, bool) {
		if field == "FirstName" {
			return "XQZKP", true
		}
		return nil, false
	}

	assert.Equal(t, "xqzkp", e.Apply("mary", rule, sibling))
}

func TestApply_DerivedLower_FallsBackToLowercaseScramble(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{
		Field:  "FirstNameLower",
		Kind:   model.KindDerivedLower,
		Params: model.RuleParams{Source: "FirstName"},
	}

	got, ok := e.Apply("mary", rule, nil).(string)
	require.True(t, ok)
	assert.NotEqual(t, "mary", got)
	assert.Len(t, got, 4)
	assert.Equal(t, strings.ToLower(got), got, "fallback scramble stays lowercase")
}

func TestApply_Digits(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "Ssn", Kind: model.KindDigits, Params: model.RuleParams{Length: 9}}

	got, ok := e.Apply("123-45-6789", rule, nil).(string)
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^\d{9}$`), got)
	assert.NotEqual(t, "123-45-6789", got)
}

func TestApply_Digits_DefaultLength(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "Mrn", Kind: model.KindDigits}

	got, ok := e.Apply("42", rule, nil).(string)
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^\d{10}$`), got)
}

func TestApply_NilAndEmptyPassThrough(t *testing.T) {
	e := NewEngine()
	for _, kind := range []model.RuleKind{
		model.KindConstant, model.KindScramble, model.KindDerivedLower,
		model.KindDigits, model.KindDateShift, model.KindCategory,
	} {
		rule := &model.MaskingRule{Field: "F", Kind: kind, Params: model.RuleParams{Value: "X", Source: "S"}}
		assert.Nil(t, e.Apply(nil, rule, nil), "kind %s must pass nil through", kind)
		assert.Equal(t, "", e.Apply("", rule, nil), "kind %s must pass empty string through", kind)
	}
	assert.Zero(t, e.Warnings().UnknownKind)
}

func TestApply_UnknownKind_SentinelAndTally(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "Weird", Kind: "rot13"}

	assert.Equal(t, UnsupportedSentinel, e.Apply("secret", rule, nil))
	assert.Equal(t, UnsupportedSentinel, e.Apply("secret", rule, nil))
	assert.Equal(t, int64(2), e.Warnings().UnknownKind)
}

func TestApply_DateShift_NonStringPassThrough(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "Dob", Kind: model.KindDateShift, Params: model.RuleParams{OffsetMs: 86400000}}

	assert.Equal(t, 12345, e.Apply(12345, rule, nil))
	assert.Zero(t, e.Warnings().DateParseFailures)
}

func TestApply_DateShift_UnparseableTallied(t *testing.T) {
	e := NewEngine()
	rule := &model.MaskingRule{Field: "Dob", Kind: model.KindDateShift, Params: model.RuleParams{OffsetMs: 86400000}}

	assert.Equal(t, "not-a-date", e.Apply("not-a-date", rule, nil))
	assert.Equal(t, int64(1), e.Warnings().DateParseFailures)
}
