package rules

import (
	"strings"

	"go-mask-pipeline/internal/model"
)

// RuleSet holds the masking rules for one run, indexed for lookup.
// Lookup order: exact field name first, then the first matching wildcard
// pattern in declaration order.
type RuleSet struct {
	exact     map[string]*model.MaskingRule
	wildcards []*model.MaskingRule
	ordered   []*model.MaskingRule
}

// NewRuleSet builds the lookup indices. Declaration order is preserved
// for wildcard patterns; on duplicate exact fields the first rule wins.
func NewRuleSet(defs []model.MaskingRule) *RuleSet {
	rs := &RuleSet{exact: make(map[string]*model.MaskingRule, len(defs))}
	for i := range defs {
		rule := &defs[i]
		rs.ordered = append(rs.ordered, rule)
		if rule.IsWildcard() {
			rs.wildcards = append(rs.wildcards, rule)
			continue
		}
		if _, dup := rs.exact[rule.Field]; !dup {
			rs.exact[rule.Field] = rule
		}
	}
	return rs
}

// Resolve returns the rule for a field path, or nil when none matches.
func (rs *RuleSet) Resolve(fieldPath string) *model.MaskingRule {
	if rule, ok := rs.exact[fieldPath]; ok {
		return rule
	}
	for _, rule := range rs.wildcards {
		if matchWildcardPath(fieldPath, rule.Field) {
			return rule
		}
	}
	return nil
}

// Derived returns the derivedLower rules in declaration order. The masker
// uses these to fill lowercase twins after the primary fields are masked.
func (rs *RuleSet) Derived() []*model.MaskingRule {
	var out []*model.MaskingRule
	for _, rule := range rs.ordered {
		if rule.Kind == model.KindDerivedLower {
			out = append(out, rule)
		}
	}
	return out
}

// Len returns the number of loaded rules.
func (rs *RuleSet) Len() int { return len(rs.ordered) }

// matchWildcardPath checks a dotted field path against a dotted pattern
// where "*" matches exactly one path segment.
func matchWildcardPath(fieldPath, pattern string) bool {
	pathSegments := strings.Split(fieldPath, ".")
	patternSegments := strings.Split(pattern, ".")

	if len(pathSegments) != len(patternSegments) {
		return false
	}

	for i, seg := range patternSegments {
		if seg == "*" {
			// Wildcard matches any single segment
			continue
		}
		if pathSegments[i] != seg {
			return false
		}
	}

	return true
}
