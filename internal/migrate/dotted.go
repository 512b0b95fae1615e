package migrate

import "strings"

// lookupDotted navigates a decoded JSON document (nested
// map[string]any/[]any) by a dot-notation path, mirroring the document
// store's own flattening convention. Returns the leaf value and whether
// the path was present.
func lookupDotted(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = doc
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
