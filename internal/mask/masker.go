package mask

import (
	"strconv"

	"go-mask-pipeline/internal/model"
	"go-mask-pipeline/internal/rules"
)

// DefaultPrimaryFields are the name fields masked first so that derived
// lowercase twins can copy their post-mask values.
var DefaultPrimaryFields = []string{"FirstName", "MiddleName", "LastName"}

// StatsSink receives the path of every masked field. Optional, for
// observability only.
type StatsSink func(fieldPath string)

// DocumentMasker walks one document and applies matching rules, producing
// a masked copy. The caller's document is never mutated so it stays usable
// for post-hoc validation or a retry.
type DocumentMasker struct {
	rules   *rules.RuleSet
	engine  *rules.Engine
	primary []string
	stats   StatsSink
}

// Option configures a DocumentMasker.
type Option func(*DocumentMasker)

// WithPrimaryFields overrides the primary name fields masked in the first
// traversal phase.
func WithPrimaryFields(fields []string) Option {
	return func(m *DocumentMasker) {
		if len(fields) > 0 {
			m.primary = fields
		}
	}
}

// WithStatsSink attaches an observer for masked field paths.
func WithStatsSink(sink StatsSink) Option {
	return func(m *DocumentMasker) { m.stats = sink }
}

// New creates a DocumentMasker over a rule set and engine.
func New(rs *rules.RuleSet, engine *rules.Engine, opts ...Option) *DocumentMasker {
	m := &DocumentMasker{rules: rs, engine: engine, primary: DefaultPrimaryFields}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Warnings exposes the engine's per-value degradation tallies.
func (m *DocumentMasker) Warnings() rules.Warnings {
	return m.engine.Warnings()
}

// Mask returns a masked deep copy of doc. Traversal happens in three
// phases: primary name fields, derived lowercase twins (which read the
// post-mask primary values), then a depth-first walk of everything else.
// A field is masked at most once per document.
func (m *DocumentMasker) Mask(doc model.Document) model.Document {
	out := copyMap(doc)
	handled := make(map[string]bool)

	// Phase 1: primary name fields
	for _, field := range m.primary {
		value, ok := out[field]
		if !ok {
			continue
		}
		rule := m.rules.Resolve(field)
		if rule == nil {
			continue
		}
		out[field] = m.applyValue(value, rule, siblingLookup(out))
		handled[field] = true
		m.record(field)
	}

	// Phase 2: derived lowercase twins, reading the captured phase-1 values.
	// Twins whose source was not masked in phase 1 wait for the traversal,
	// where the second pass sees the source's post-mask value.
	for _, rule := range m.rules.Derived() {
		if handled[rule.Field] || !handled[rule.Params.Source] {
			continue
		}
		value, ok := out[rule.Field]
		if !ok {
			continue
		}
		out[rule.Field] = m.applyValue(value, rule, siblingLookup(out))
		handled[rule.Field] = true
		m.record(rule.Field)
	}

	// Phase 3: depth-first traversal of the rest of the document
	m.walkMap(out, "", handled)

	return out
}

// walkMap masks the entries of one (possibly nested) map in two passes:
// direct rules first, derivedLower rules second, so a lowercase twin
// always reads its sibling's post-mask value no matter which key map
// iteration yields first. Each key is tested for an exact-field rule,
// then for a full dotted-path rule; only unmatched containers are
// recursed into, so a masked field is never touched twice.
func (m *DocumentMasker) walkMap(mp map[string]interface{}, prefix string, handled map[string]bool) {
	for key, value := range mp {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if prefix == "" && handled[key] {
			continue
		}

		rule := m.rules.Resolve(key)
		if rule == nil {
			rule = m.rules.Resolve(path)
		}
		if rule != nil {
			if rule.Kind == model.KindDerivedLower {
				continue
			}
			mp[key] = m.applyValue(value, rule, siblingLookup(mp))
			m.record(path)
			continue
		}

		switch child := value.(type) {
		case map[string]interface{}:
			m.walkMap(child, path, handled)
		case []interface{}:
			m.walkSlice(child, path, handled)
		}
	}

	for key, value := range mp {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if prefix == "" && handled[key] {
			continue
		}

		rule := m.rules.Resolve(key)
		if rule == nil {
			rule = m.rules.Resolve(path)
		}
		if rule == nil || rule.Kind != model.KindDerivedLower {
			continue
		}
		mp[key] = m.applyValue(value, rule, siblingLookup(mp))
		m.record(path)
	}
}

// walkSlice recurses into array elements with index-qualified paths, so a
// rule like "addresses.*.city" reaches every element.
func (m *DocumentMasker) walkSlice(arr []interface{}, prefix string, handled map[string]bool) {
	for i, value := range arr {
		path := prefix + "." + strconv.Itoa(i)
		switch child := value.(type) {
		case map[string]interface{}:
			m.walkMap(child, path, handled)
		case []interface{}:
			m.walkSlice(child, path, handled)
		default:
			if rule := m.rules.Resolve(path); rule != nil {
				arr[i] = m.applyValue(value, rule, nil)
				m.record(path)
			}
		}
	}
}

// applyValue applies a rule, distributing over arrays element-wise so the
// array keeps its length when a rule matches a whole array field.
func (m *DocumentMasker) applyValue(value interface{}, rule *model.MaskingRule, sibling rules.SiblingLookup) interface{} {
	if arr, ok := value.([]interface{}); ok {
		for i, elem := range arr {
			if _, isMap := elem.(map[string]interface{}); isMap {
				continue
			}
			arr[i] = m.applyValue(elem, rule, sibling)
		}
		return arr
	}
	return m.engine.Apply(value, rule, sibling)
}

func (m *DocumentMasker) record(path string) {
	if m.stats != nil {
		m.stats(path)
	}
}

// siblingLookup resolves derivedLower source fields against the current
// (partially masked) map.
func siblingLookup(mp map[string]interface{}) rules.SiblingLookup {
	return func(field string) (interface{}, bool) {
		v, ok := mp[field]
		return v, ok
	}
}
