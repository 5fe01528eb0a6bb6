package wx

import (
	"bytes"
	"encoding/json"
)

// Document wraps one decoded provider response. The provider is known to be
// inconsistent about shapes: the same logical field is sometimes wrapped in
// an array and sometimes a bare object, and whole sections go missing.
// Document keeps the payload untyped and pushes all shape tolerance into
// Resolve, so callers never type-inspect the tree themselves.
type Document struct {
	root any
}

// ParseDocument decodes a raw provider body. Malformed or empty bodies
// decode to an empty document; lookups on it fall through to their
// defaults instead of failing the cycle. Numbers are kept as json.Number so
// the provider's own decimal formatting survives into display strings.
func ParseDocument(body []byte) Document {
	if len(bytes.TrimSpace(body)) == 0 {
		return Document{root: map[string]any{}}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return Document{root: map[string]any{}}
	}
	if root == nil {
		root = map[string]any{}
	}
	return Document{root: root}
}

// NewDocument wraps an already-decoded value, mainly for tests.
func NewDocument(root any) Document {
	if root == nil {
		root = map[string]any{}
	}
	return Document{root: root}
}

// IsEmpty reports whether the document carries no fields at all. An empty
// document for a configured location means the provider did not recognize
// the query ("Bad Loc" in device terms).
func (d Document) IsEmpty() bool {
	obj, ok := d.root.(map[string]any)
	return ok && len(obj) == 0
}

// Resolve walks the document along keys and returns the first match, or def
// when any step has no candidate carrying the key. At each step the current
// focus is treated as a list of candidate nodes; a candidate that is itself
// an array is expanded into its elements, so array-wrapped and bare objects
// resolve the same way.
func (d Document) Resolve(def any, keys ...string) any {
	current := d.root

	for _, key := range keys {
		candidates, ok := current.([]any)
		if !ok {
			candidates = []any{current}
		}

		found := false
		for _, candidate := range candidates {
			obj, ok := candidate.(map[string]any)
			if !ok {
				continue
			}
			if value, exists := obj[key]; exists {
				current = value
				found = true
				break
			}
		}
		if !found {
			return def
		}
	}

	return current
}
