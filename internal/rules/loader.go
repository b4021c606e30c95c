package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"go-mask-pipeline/internal/model"
)

// LoadRules reads an ordered rule-definition file (YAML, or JSON which
// the YAML parser accepts) and returns the declared rules. Unknown rule
// kinds are accepted here and rejected per-value at apply time; a missing
// or malformed file is a configuration error and aborts the run before
// any document is touched.
func LoadRules(path string) ([]model.MaskingRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var defs []model.MaskingRule
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("rules file %s declares no rules", path)
	}

	for i, def := range defs {
		if def.Field == "" {
			return nil, fmt.Errorf("rule %d in %s has no field", i, path)
		}
		if def.Kind == "" {
			return nil, fmt.Errorf("rule %d (%s) in %s has no rule kind", i, def.Field, path)
		}
		if def.Kind == model.KindDerivedLower && def.Params.Source == "" {
			return nil, fmt.Errorf("rule %d (%s) in %s is derivedLower without params.source", i, def.Field, path)
		}
	}

	return defs, nil
}
