package wx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUnwrapsArrays(t *testing.T) {
	doc := NewDocument(map[string]any{
		"a": []any{
			map[string]any{"b": 1},
			map[string]any{"c": 2},
		},
	})

	assert.Equal(t, 1, doc.Resolve("default", "a", "b"))
	assert.Equal(t, 2, doc.Resolve("default", "a", "c"))
}

func TestResolveBareObject(t *testing.T) {
	doc := NewDocument(map[string]any{
		"a": map[string]any{"b": "value"},
	})

	// Bare objects and singleton arrays resolve identically.
	assert.Equal(t, "value", doc.Resolve(nil, "a", "b"))
}

func TestResolveMissingKeyReturnsDefault(t *testing.T) {
	doc := NewDocument(map[string]any{})
	assert.Equal(t, "D", doc.Resolve("D", "x"))

	nested := NewDocument(map[string]any{"a": map[string]any{"b": 1}})
	assert.Equal(t, "D", nested.Resolve("D", "a", "missing"))
	assert.Equal(t, "D", nested.Resolve("D", "a", "b", "deeper"))
}

func TestResolveScansCandidatesInOrder(t *testing.T) {
	doc := NewDocument(map[string]any{
		"obs": []any{
			"scalar noise",
			map[string]any{"other": true},
			map[string]any{"temp": 20.5},
			map[string]any{"temp": 99.0},
		},
	})

	// First candidate carrying the key wins; non-objects are skipped.
	assert.Equal(t, 20.5, doc.Resolve(nil, "obs", "temp"))
}

func TestParseDocumentMalformedBody(t *testing.T) {
	for _, body := range []string{"", "   ", "{not json", "null"} {
		doc := ParseDocument([]byte(body))
		require.True(t, doc.IsEmpty(), "body %q should parse to an empty document", body)
		assert.Equal(t, "D", doc.Resolve("D", "observations"))
	}
}

func TestParseDocumentPreservesNumberFormatting(t *testing.T) {
	doc := ParseDocument([]byte(`{"observations":[{"imperial":{"precipTotal":0.25}}]}`))
	raw := doc.Resolve(nil, "observations", "imperial", "precipTotal")
	require.NotNil(t, raw)
	assert.Equal(t, "0.25", Amount(raw, ""))
}
