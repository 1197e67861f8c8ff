package patch

import (
	"fmt"
	"strings"
)

// AllowedSet builds the lookup used by ValidatePatchOperations.
func AllowedSet(paths ...string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// ValidatePatchOperations rejects any operation whose path is not allowed.
// Allowed paths may use "-" or "*" in place of an array index or map key.
func ValidatePatchOperations(ops []Operation, allowedPaths map[string]bool) error {
	for i, op := range ops {
		switch op.Op {
		case OperationAdd, OperationRemove, OperationReplace:
		default:
			return fmt.Errorf("operation %d: unsupported op %q", i, op.Op)
		}
		if !strings.HasPrefix(op.Path, "/") {
			return fmt.Errorf("operation %d: path %q is not a JSON pointer", i, op.Path)
		}
		if !pathAllowed(op.Path, allowedPaths) {
			return fmt.Errorf("operation %d: path %q is not in the allowed paths set", i, op.Path)
		}
	}
	return nil
}

func pathAllowed(path string, allowedPaths map[string]bool) bool {
	if allowedPaths[path] {
		return true
	}
	segments := strings.Split(path, "/")
	return matchWildcard(segments, 1, allowedPaths, false)
}

func matchWildcard(segments []string, index int, allowedPaths map[string]bool, substituted bool) bool {
	if index >= len(segments) {
		return substituted && allowedPaths[strings.Join(segments, "/")]
	}
	original := segments[index]
	defer func() { segments[index] = original }()
	for _, wildcard := range []string{"-", "*"} {
		segments[index] = wildcard
		if matchWildcard(segments, index+1, allowedPaths, true) {
			return true
		}
	}
	segments[index] = original
	return matchWildcard(segments, index+1, allowedPaths, substituted)
}
