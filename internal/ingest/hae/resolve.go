package hae

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Strategy names reported in results and diagnostics.
const (
	StrategyNestedContainer = "nested-container"
	StrategyTopLevelMetrics = "top-level-metrics"
	StrategyRootArray       = "root-array"
	StrategyAlternateArray  = "alternate-array"
	StrategySingleEntry     = "single-entry"
	StrategyScan            = "scan"
)

// ShapeError reports a payload in which no array of entries could be found.
type ShapeError struct {
	Keys      []string `json:"keys"`
	Structure string   `json:"structure"`
}

func (e *ShapeError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("unrecognized payload shape: %s", e.Structure)
	}
	return fmt.Sprintf("unrecognized payload shape: %s with keys [%s]", e.Structure, strings.Join(e.Keys, ", "))
}

// Resolution is the flat list of entries located in a payload.
type Resolution struct {
	Strategy string
	Entries  []map[string]any
	// Malformed counts array elements that were not objects.
	Malformed int
}

// extractor returns the raw entries of a payload, or false if its shape
// does not apply.
type extractor struct {
	name    string
	extract func(root any) ([]any, bool)
}

// extractors are tried in priority order; the first match wins.
var extractors = []extractor{
	{StrategyNestedContainer, extractNestedContainer},
	{StrategyTopLevelMetrics, extractTopLevelMetrics},
	{StrategyRootArray, extractRootArray},
	{StrategyAlternateArray, extractAlternateArray},
	{StrategySingleEntry, extractSingleEntry},
	{StrategyScan, extractScan},
}

// Resolve decodes body and locates its metric entries.
func Resolve(body []byte) (*Resolution, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, &ShapeError{Structure: "invalid JSON"}
	}
	return ResolveValue(root)
}

// ResolveValue locates the metric entries of an already-decoded payload.
func ResolveValue(root any) (*Resolution, error) {
	for _, ex := range extractors {
		raw, ok := ex.extract(root)
		if !ok {
			continue
		}
		res := &Resolution{Strategy: ex.name, Entries: make([]map[string]any, 0, len(raw))}
		for _, item := range raw {
			if entry, isObj := item.(map[string]any); isObj {
				res.Entries = append(res.Entries, entry)
			} else {
				res.Malformed++
			}
		}
		return res, nil
	}
	return nil, &ShapeError{Keys: sortedKeys(root), Structure: structureOf(root)}
}

// containerEntries reads a metrics array and a sibling workouts array from
// one object. Workouts are appended as a single pseudo-entry.
func containerEntries(obj map[string]any) ([]any, bool) {
	metrics, hasMetrics := obj["metrics"].([]any)
	workouts, hasWorkouts := obj["workouts"].([]any)
	if !hasMetrics && !hasWorkouts {
		return nil, false
	}
	entries := append([]any(nil), metrics...)
	if len(workouts) > 0 {
		entries = append(entries, map[string]any{"name": "workouts", "data": workouts})
	}
	return entries, true
}

func extractNestedContainer(root any) ([]any, bool) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, false
	}
	data, ok := obj["data"].(map[string]any)
	if !ok {
		return nil, false
	}
	return containerEntries(data)
}

func extractTopLevelMetrics(root any) ([]any, bool) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, false
	}
	return containerEntries(obj)
}

func extractRootArray(root any) ([]any, bool) {
	arr, ok := root.([]any)
	return arr, ok
}

// extractAlternateArray reads entries from data, entries or samples. On a
// named object the array usually holds that entry's points, so it only
// applies when the elements themselves are named entries.
func extractAlternateArray(root any) ([]any, bool) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, false
	}
	named := firstString(obj, "name", "type") != ""
	for _, k := range []string{"data", "entries", "samples"} {
		arr, ok := obj[k].([]any)
		if !ok {
			continue
		}
		if named && !holdsEntries(arr) {
			return nil, false
		}
		return arr, true
	}
	return nil, false
}

// holdsEntries reports whether every object in arr is a named entry carrying
// its own data array.
func holdsEntries(arr []any) bool {
	found := false
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if _, hasData := m["data"].([]any); !hasData || firstString(m, "name", "type") == "" {
			return false
		}
		found = true
	}
	return found
}

func extractSingleEntry(root any) ([]any, bool) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, false
	}
	if firstString(obj, "name", "type") == "" {
		return nil, false
	}
	return []any{obj}, true
}

// extractScan returns the first non-empty array among the first-level
// properties, then the second-level ones. Keys are visited in sorted order.
func extractScan(root any) ([]any, bool) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, false
	}
	keys := sortedKeys(obj)
	for _, k := range keys {
		if arr, ok := obj[k].([]any); ok && len(arr) > 0 {
			return arr, true
		}
	}
	for _, k := range keys {
		child, ok := obj[k].(map[string]any)
		if !ok {
			continue
		}
		for _, ck := range sortedKeys(child) {
			if arr, ok := child[ck].([]any); ok && len(arr) > 0 {
				return arr, true
			}
		}
	}
	return nil, false
}

func sortedKeys(v any) []string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func structureOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
