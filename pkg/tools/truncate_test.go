package tools

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func manyItems(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}
	return items
}

func TestApplyLimitsCapsOversizedArray(t *testing.T) {
	result, truncated := ApplyLimits(map[string]any{
		"path":  "notes",
		"files": manyItems(250),
	})
	require.True(t, truncated)

	out := result.(map[string]any)
	require.Len(t, out["files"], 100)
	require.Equal(t, "item-0", out["files"].([]any)[0])
	require.Equal(t, "item-99", out["files"].([]any)[99])
	require.Equal(t, "notes", out["path"])

	meta := out["truncation"].(Truncation)
	require.Equal(t, 250, meta.TotalItems)
	require.Equal(t, 100, meta.ShownItems)
	require.Equal(t, 3, meta.TotalPages)
	require.Equal(t, 1, meta.CurrentPage)
	require.NotEmpty(t, meta.Notice)
}

func TestApplyLimitsLeavesSmallArraysAlone(t *testing.T) {
	in := map[string]any{"files": manyItems(100)}
	result, truncated := ApplyLimits(in)
	require.False(t, truncated)
	out := result.(map[string]any)
	require.Len(t, out["files"], 100)
	require.NotContains(t, out, "truncation")
}

func TestApplyLimitsFirstMatchingKeyWins(t *testing.T) {
	result, truncated := ApplyLimits(map[string]any{
		"files":   manyItems(150),
		"results": manyItems(200),
	})
	require.True(t, truncated)
	out := result.(map[string]any)
	require.Len(t, out["files"], 100)
	// The second eligible array is untouched: at most one rule per result.
	require.Len(t, out["results"], 200)
}

func TestApplyLimitsTypedSlices(t *testing.T) {
	entries := make([]string, 120)
	for i := range entries {
		entries[i] = fmt.Sprintf("e%d", i)
	}
	result, truncated := ApplyLimits(map[string]any{"entries": entries})
	require.True(t, truncated)
	out := result.(map[string]any)
	require.Len(t, out["entries"], 100)
	require.Equal(t, "e0", out["entries"].([]any)[0])
}

func TestApplyLimitsLongString(t *testing.T) {
	long := strings.Repeat("x", MaxStringChars+1)
	result, truncated := ApplyLimits(long)
	require.True(t, truncated)
	s := result.(string)
	require.Equal(t, long[:MaxStringChars], s[:MaxStringChars])
	require.Greater(t, len(s), MaxStringChars)
	require.Contains(t, s[MaxStringChars:], "Truncated")
}

func TestApplyLimitsStringCutKeepsValidUTF8(t *testing.T) {
	// The multi-byte rune straddles the byte limit; the cut must back off
	// to the previous boundary instead of splitting it.
	long := strings.Repeat("a", MaxStringChars-1) + "世界"
	result, truncated := ApplyLimits(long)
	require.True(t, truncated)
	s := result.(string)
	require.True(t, utf8.ValidString(s))
	require.Contains(t, s, fmt.Sprintf("showing the first %d of %d characters", MaxStringChars-1, len(long)))
	require.NotContains(t, s, "世")
}

func TestApplyLimitsStringAtCapUnchanged(t *testing.T) {
	exact := strings.Repeat("y", MaxStringChars)
	result, truncated := ApplyLimits(exact)
	require.False(t, truncated)
	require.Equal(t, exact, result)
}

func TestApplyLimitsOtherShapesPassThrough(t *testing.T) {
	for _, in := range []any{nil, 42, map[string]any{"count": 7}, []any{"a"}} {
		result, truncated := ApplyLimits(in)
		require.False(t, truncated)
		require.Equal(t, in, result)
	}
}
