package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"go-mask-pipeline/internal/db"
	"go-mask-pipeline/internal/model"
)

// Issue is one validation finding for a source/masked document pair.
type Issue struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"` // "structure", "unchanged_phi", "suspicious_pattern"
	Detail string `json:"detail"`
}

// Suspicious patterns hunted anywhere in the masked output. Matches are
// advisory: a shifted date still looks date-like and gets flagged for a
// human to clear.
var suspiciousPatterns = map[string]*regexp.Regexp{
	"email": regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
	"ssn":   regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	"phone": regexp.MustCompile(`\b\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`),
	"date":  regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

// CompareDocuments re-checks one masked document against its source: the
// key sets and array lengths must match, every present non-empty PHI field
// must have changed, and no obviously sensitive-looking string may remain.
// Pure and read-only; used for acceptance sampling, never in the write path.
func CompareDocuments(masked, original model.Document, phiFields []string) []Issue {
	var issues []Issue

	issues = append(issues, structureIssues(map[string]interface{}(masked), map[string]interface{}(original), "")...)

	for _, field := range phiFields {
		origVal, origOK := lookupPath(original, field)
		maskVal, maskOK := lookupPath(masked, field)
		if !origOK || !maskOK {
			continue
		}
		if origVal == nil || origVal == "" {
			continue
		}
		if reflect.DeepEqual(origVal, maskVal) {
			issues = append(issues, Issue{
				Path:   field,
				Kind:   "unchanged_phi",
				Detail: "PHI field value identical to source",
			})
		}
	}

	issues = append(issues, patternIssues(map[string]interface{}(masked), "")...)
	return issues
}

// structureIssues walks both trees and reports key-set or array-length
// divergence. Masking never adds or removes fields.
func structureIssues(masked, original map[string]interface{}, prefix string) []Issue {
	var issues []Issue
	for key := range original {
		path := joinPath(prefix, key)
		maskVal, ok := masked[key]
		if !ok {
			issues = append(issues, Issue{Path: path, Kind: "structure", Detail: "field missing from masked document"})
			continue
		}
		issues = append(issues, valueStructureIssues(maskVal, original[key], path)...)
	}
	for key := range masked {
		if _, ok := original[key]; !ok {
			issues = append(issues, Issue{Path: joinPath(prefix, key), Kind: "structure", Detail: "field added by masking"})
		}
	}
	return issues
}

func valueStructureIssues(masked, original interface{}, path string) []Issue {
	switch orig := original.(type) {
	case map[string]interface{}:
		m, ok := masked.(map[string]interface{})
		if !ok {
			return []Issue{{Path: path, Kind: "structure", Detail: "object replaced by non-object"}}
		}
		return structureIssues(m, orig, path)
	case []interface{}:
		arr, ok := masked.([]interface{})
		if !ok {
			return []Issue{{Path: path, Kind: "structure", Detail: "array replaced by non-array"}}
		}
		if len(arr) != len(orig) {
			return []Issue{{Path: path, Kind: "structure",
				Detail: fmt.Sprintf("array length changed: %d -> %d", len(orig), len(arr))}}
		}
		var issues []Issue
		for i := range orig {
			issues = append(issues, valueStructureIssues(arr[i], orig[i], path+"."+strconv.Itoa(i))...)
		}
		return issues
	default:
		return nil
	}
}

func patternIssues(node interface{}, prefix string) []Issue {
	var issues []Issue
	switch val := node.(type) {
	case map[string]interface{}:
		for key, nested := range val {
			issues = append(issues, patternIssues(nested, joinPath(prefix, key))...)
		}
	case []interface{}:
		for i, nested := range val {
			issues = append(issues, patternIssues(nested, prefix+"."+strconv.Itoa(i))...)
		}
	case string:
		for name, re := range suspiciousPatterns {
			if re.MatchString(val) {
				issues = append(issues, Issue{
					Path:   prefix,
					Kind:   "suspicious_pattern",
					Detail: name + "-like value in masked output",
				})
			}
		}
	}
	return issues
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// lookupPath resolves a dotted path through nested maps and numeric array
// indices.
func lookupPath(doc model.Document, path string) (interface{}, bool) {
	var current interface{} = map[string]interface{}(doc)
	for _, seg := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// ValidationReport summarizes an acceptance sample.
type ValidationReport struct {
	SampleSize          int                `json:"sample_size"`
	DocumentsWithIssues int                `json:"documents_with_issues"`
	Issues              map[string][]Issue `json:"issues,omitempty"` // keyed by document primary key
}

// ValidateSample independently re-reads up to sampleSize source/masked
// pairs and compares them. maskedColl is the destination collection in
// copy mode, or the (rewritten) source collection for in-place runs read
// against a pre-run snapshot.
func ValidateSample(ctx context.Context, sourceColl, maskedColl db.Collection, phiFields []string, sampleSize int) (ValidationReport, error) {
	report := ValidationReport{Issues: make(map[string][]Issue)}

	cursor, err := sourceColl.Find(ctx, nil, int32(sampleSize))
	if err != nil {
		return report, fmt.Errorf("failed to open sample cursor: %w", err)
	}
	defer cursor.Close(context.Background())

	for cursor.Next(ctx) && report.SampleSize < sampleSize {
		original := cursor.Document()
		report.SampleSize++

		masked, err := maskedColl.FindByKey(ctx, original.Key())
		if err != nil {
			return report, fmt.Errorf("failed to fetch masked pair %v: %w", original.Key(), err)
		}
		if masked == nil {
			report.DocumentsWithIssues++
			report.Issues[fmt.Sprintf("%v", original.Key())] = []Issue{{
				Path: model.KeyField, Kind: "structure", Detail: "masked counterpart missing",
			}}
			continue
		}

		if issues := CompareDocuments(masked, original, phiFields); len(issues) > 0 {
			report.DocumentsWithIssues++
			report.Issues[fmt.Sprintf("%v", original.Key())] = issues
		}
	}
	return report, cursor.Err()
}
