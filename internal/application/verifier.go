package application

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ericfisherdev/gatekeeper/internal/domain/model"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// VerifyEvidence checks that every citation resolves to a value inside view and
// that the value matches what was claimed. It returns true only when no
// violation was found; an empty evidence list is accepted.
func VerifyEvidence(evidence []model.EvidenceItem, view model.SignalsView) (bool, []string) {
	violations := []string{}

	for i, item := range evidence {
		path, ok := NormalizeEvidencePath(item.Path, item.Source)
		if !ok {
			violations = append(violations, fmt.Sprintf("evidence[%d]: missing/invalid path", i))
			continue
		}

		actual, found := ResolvePath(view, path)
		if !found {
			violations = append(violations, fmt.Sprintf("evidence[%d]: path '%s' -> '%s' not found", i, item.Path, path))
			continue
		}

		if !looseEqual(actual, item.Value) {
			violations = append(violations, fmt.Sprintf(
				"evidence[%d]: value mismatch at '%s': actual=%s claimed=%s",
				i, path, describeValue(actual), describeValue(item.Value),
			))
		}
	}

	return len(violations) == 0, violations
}

// NormalizeEvidencePath rewrites a citation path into the dot form used by
// ResolvePath. Bracket indexes become dot indexes and a missing section prefix
// is filled in from source. A blockers citation with an empty or list-literal
// path means the whole blocker list. The second result is false when the path
// cannot be normalized.
func NormalizeEvidencePath(rawPath, source string) (string, bool) {
	path := strings.TrimSpace(rawPath)

	if source == model.SectionBlockers && (path == "" || path == "[]" || path == "blockers[]") {
		return model.SectionBlockers, true
	}
	if path == "" {
		return "", false
	}

	path = bracketIndex.ReplaceAllString(path, ".${1}")

	switch source {
	case model.SectionActions, model.SectionChecks, model.SectionBlockers, model.SectionTarget:
		if path == source || strings.HasPrefix(path, source+".") {
			break
		}
		if source == model.SectionBlockers && !strings.HasPrefix(path, model.SectionBlockers) {
			path = model.SectionBlockers
		} else {
			path = source + "." + path
		}
	}

	return path, true
}

// ResolvePath walks view along a dot-separated path. Each segment indexes a
// sequence (non-negative integer within bounds) or looks up a mapping key.
// It reports false for any segment that does not resolve.
func ResolvePath(view model.SignalsView, path string) (any, bool) {
	var cur any = map[string]any(view)

	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case []any:
			idx, err := strconv.ParseUint(part, 10, 0)
			if err != nil || idx >= uint64(len(node)) {
				return nil, false
			}
			cur = node[idx]
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		default:
			return nil, false
		}
	}

	return cur, true
}

// looseEqual compares two values by their canonical string forms, so 42 and
// "42" are equal. Booleans and null also match case-insensitively ("True",
// "None"). An empty string never stands for null.
func looseEqual(actual, claimed any) bool {
	a, c := canonicalString(actual), canonicalString(claimed)
	if a == c {
		return true
	}
	if actual == nil || claimed == nil {
		return isNullSpelling(a) && isNullSpelling(c)
	}
	_, actualBool := actual.(bool)
	_, claimedBool := claimed.(bool)
	if actualBool || claimedBool {
		return strings.EqualFold(a, c)
	}
	return false
}

func isNullSpelling(s string) bool {
	switch strings.ToLower(s) {
	case "null", "none", "nil":
		return true
	}
	return false
}

// canonicalString renders a JSON-shaped value to the string used for loose
// comparison. Strings are NFC-normalized, integral floats drop their fraction,
// composite values are rendered as compact JSON with sorted keys.
func canonicalString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return norm.NFC.String(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return x.String()
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return norm.NFC.String(string(raw))
}

func describeValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return canonicalString(v)
}
