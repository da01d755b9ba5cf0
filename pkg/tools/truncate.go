// Package tools dispatches model-issued commands against the vault: a
// closed registry of handlers with uniform logging, timing and result-size
// governance.
package tools

import (
	"fmt"
	"reflect"
	"unicode/utf8"
)

const (
	// MaxListItems caps array-shaped tool results.
	MaxListItems = 100
	// MaxStringChars caps string-shaped tool results.
	MaxStringChars = 50000
)

// truncatableKeys lists the array fields eligible for truncation, in match
// priority order. At most one rule applies per result.
var truncatableKeys = []string{"files", "folders", "entries", "results"}

// Truncation is the pagination metadata attached to a capped array result.
// CurrentPage is always 1; there is no way to request later pages through
// this layer yet.
type Truncation struct {
	TotalItems  int    `json:"totalItems"`
	ShownItems  int    `json:"shownItems"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
	Notice      string `json:"notice"`
}

// ApplyLimits enforces the result-size policy on a handler's return value.
// Map results with an oversized array under one of the known keys are capped
// at MaxListItems with pagination metadata attached; bare strings beyond
// MaxStringChars are cut to the prefix with a notice appended. The first
// matching rule wins; everything else passes through unchanged. The second
// return reports whether truncation happened.
func ApplyLimits(result any) (any, bool) {
	switch v := result.(type) {
	case map[string]any:
		for _, key := range truncatableKeys {
			raw, present := v[key]
			if !present {
				continue
			}
			items, length, ok := toSlice(raw)
			if !ok {
				continue
			}
			if length <= MaxListItems {
				return result, false
			}
			out := make(map[string]any, len(v)+2)
			for k, val := range v {
				out[k] = val
			}
			out[key] = items[:MaxListItems]
			totalPages := (length + MaxListItems - 1) / MaxListItems
			out["truncation"] = Truncation{
				TotalItems:  length,
				ShownItems:  MaxListItems,
				TotalPages:  totalPages,
				CurrentPage: 1,
				Notice: fmt.Sprintf(
					"Showing the first %d of %d %s. Narrow the request (a more specific folder or query) to see the rest.",
					MaxListItems, length, key),
			}
			return out, true
		}
		return result, false
	case string:
		if len(v) <= MaxStringChars {
			return result, false
		}
		// Back the cut off to a rune boundary so the prefix stays valid
		// UTF-8 when the limit lands mid-rune.
		cut := MaxStringChars
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		notice := fmt.Sprintf(
			"\n\n[Truncated: showing the first %d of %d characters. Read a narrower section to see the rest.]",
			cut, len(v))
		return v[:cut] + notice, true
	default:
		return result, false
	}
}

// toSlice normalizes any slice-typed value into []any so the cap applies
// regardless of the handler's concrete element type.
func toSlice(raw any) ([]any, int, bool) {
	if items, ok := raw.([]any); ok {
		return items, len(items), true
	}
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, 0, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, len(items), true
}
