package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ApplyRFC6902 writes ops into a JSON copy of current and decodes the result
// back into T; current is never modified. Members dropped by omitempty do
// not exist in the copy, so a replace of one is applied as an add, and
// removing a missing member is a no-op.
func ApplyRFC6902[T any](current T, ops []Operation) (T, error) {
	var result T
	if len(ops) == 0 {
		return current, nil
	}

	doc, err := sonic.Marshal(current)
	if err != nil {
		return result, fmt.Errorf("failed to marshal document: %w", err)
	}
	raw, err := sonic.Marshal(promoteReplaces(doc, ops))
	if err != nil {
		return result, fmt.Errorf("failed to marshal patch operations: %w", err)
	}
	decoded, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return result, fmt.Errorf("failed to decode patch: %w", err)
	}

	options := jsonpatch.NewApplyOptions()
	options.AllowMissingPathOnRemove = true
	patched, err := decoded.ApplyWithOptions(doc, options)
	if err != nil {
		return result, fmt.Errorf("failed to apply patch: %w", err)
	}
	if err := sonic.Unmarshal(patched, &result); err != nil {
		var zero T
		return zero, fmt.Errorf("type mismatch: patched document does not decode: %w", err)
	}
	return result, nil
}

// promoteReplaces rewrites a replace whose target is absent from doc into
// an add. Other operations pass through.
func promoteReplaces(doc []byte, ops []Operation) []Operation {
	var tree any
	if err := sonic.Unmarshal(doc, &tree); err != nil {
		return ops
	}
	out := make([]Operation, len(ops))
	for i, op := range ops {
		if op.Op == OperationReplace && !resolves(tree, op.Path) {
			op.Op = OperationAdd
		}
		out[i] = op
	}
	return out
}

var unescapeToken = strings.NewReplacer("~1", "/", "~0", "~")

// resolves reports whether pointer names an existing node of tree.
func resolves(tree any, pointer string) bool {
	if pointer == "" {
		return true
	}
	rest, ok := strings.CutPrefix(pointer, "/")
	if !ok {
		return false
	}
	node := tree
	for _, token := range strings.Split(rest, "/") {
		token = unescapeToken.Replace(token)
		switch n := node.(type) {
		case map[string]any:
			child, found := n[token]
			if !found {
				return false
			}
			node = child
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(n) {
				return false
			}
			node = n[i]
		default:
			return false
		}
	}
	return true
}
