package service

import (
	"strconv"
	"strings"

	documentDomain "github.com/allisson/phiguard/internal/document/domain"
)

// Documents are trees decoded from JSON: map[string]any, []any and scalars.

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}

func isEncrypted(node map[string]any) bool {
	flag, ok := node[documentDomain.EncryptedFlag].(bool)
	return ok && flag
}

func markEncrypted(node map[string]any, keyID string) {
	node[documentDomain.EncryptedFlag] = true
	node[documentDomain.EncryptionKeyIDFlag] = keyID
}

func clearEncrypted(node map[string]any) {
	delete(node, documentDomain.EncryptedFlag)
	delete(node, documentDomain.EncryptionKeyIDFlag)
}

func keyIDHint(node map[string]any) string {
	hint, _ := node[documentDomain.EncryptionKeyIDFlag].(string)
	return hint
}

// documentID returns the node's own identifier for log correlation.
func documentID(node map[string]any) (string, bool) {
	for _, field := range []string{"id", "_id"} {
		switch v := node[field].(type) {
		case string:
			if v != "" {
				return v, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		}
	}
	return "", false
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

func indexPath(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

// located is an object found at a descriptor's parent path.
type located struct {
	node map[string]any
	path string
}

// resolveParents walks segments from root, fanning out over arrays.
func resolveParents(root map[string]any, basePath string, segments []string) []located {
	current := []located{{node: root, path: basePath}}
	for _, segment := range segments {
		var next []located
		for _, loc := range current {
			next = appendChild(next, loc.node[segment], joinPath(loc.path, segment))
		}
		current = next
	}
	return current
}

func appendChild(out []located, child any, path string) []located {
	switch t := child.(type) {
	case map[string]any:
		return append(out, located{node: t, path: path})
	case []any:
		for i, elem := range t {
			out = appendChild(out, elem, indexPath(path, i))
		}
	}
	return out
}

// descriptorPath strips array indices from a concrete path, so that
// "[0].content.items[2]" becomes "content.items".
func descriptorPath(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		if path[i] == '[' {
			if end := strings.IndexByte(path[i:], ']'); end >= 0 {
				i += end
				continue
			}
		}
		b.WriteByte(path[i])
	}
	return strings.TrimPrefix(b.String(), ".")
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
