package model

// RuleKind identifies one of the supported masking transformations.
// The set is closed: anything else survives rule loading but produces
// the unsupported-rule sentinel when applied.
type RuleKind string

const (
	// KindConstant replaces the value with a configured literal.
	KindConstant RuleKind = "constant"
	// KindScramble replaces a string with same-length random uppercase
	// letters, preserving whitespace positions.
	KindScramble RuleKind = "scramble"
	// KindDerivedLower copies the already-masked value of a sibling
	// field, lowercased.
	KindDerivedLower RuleKind = "derivedLower"
	// KindDigits replaces the value with a fixed-length random digit string.
	KindDigits RuleKind = "digits"
	// KindDateShift shifts a date value by a configured millisecond offset,
	// keeping the input format family.
	KindDateShift RuleKind = "dateShift"
	// KindCategory replaces a categorical value (e.g. gender) with a
	// configured constant.
	KindCategory RuleKind = "category"
)

// RuleParams is the kind-specific payload of a masking rule.
type RuleParams struct {
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`       // constant / category replacement
	Length   int    `json:"length,omitempty" yaml:"length,omitempty"`     // digit-string length
	OffsetMs int64  `json:"offsetMs,omitempty" yaml:"offsetMs,omitempty"` // date-shift offset in milliseconds
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`     // sibling field for derivedLower
}

// MaskingRule maps a field path to a transformation. Field may be an exact
// name, a dotted path, or a dotted path with "*" wildcard segments.
// Rules are loaded once per run and never mutated.
type MaskingRule struct {
	Field       string     `json:"field" yaml:"field"`
	Kind        RuleKind   `json:"rule" yaml:"rule"`
	Params      RuleParams `json:"params,omitempty" yaml:"params,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// IsWildcard reports whether the rule field contains a wildcard segment.
func (r *MaskingRule) IsWildcard() bool {
	for _, seg := range splitPath(r.Field) {
		if seg == "*" {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '.' {
			segs = append(segs, p[start:i])
			start = i + 1
		}
	}
	return append(segs, p[start:])
}
