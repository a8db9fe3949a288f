// Package naming maps repository paths to remote template names.
package naming

import (
	"fmt"
	"strings"
)

const extension = ".md"

// RemoteID flattens a repository path into a remote template name: the first
// path separator becomes a hyphen and the markdown extension, in any case, is
// dropped.
//
//	RemoteID("welcome/user.md") == "welcome-user"
//	RemoteID("welcome/User.MD") == "welcome-User"
func RemoteID(path string) string {
	id := strings.Replace(path, "/", "-", 1)
	if n := len(id) - len(extension); n >= 0 && strings.EqualFold(id[n:], extension) {
		return id[:n]
	}
	return id
}

// CollisionError reports a path whose remote name is already claimed
type CollisionError struct {
	Path     string
	RemoteID string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s causes duplication once converted to %s", e.Path, e.RemoteID)
}

// Deduplicate drops exact duplicate paths, then drops every path whose remote
// name is already taken, either by an earlier path of the batch or by a file
// of the repository tree that is not part of the batch. Input order is kept
// for both return values.
func Deduplicate(paths, tree []string) ([]string, []*CollisionError) {
	unique := Unique(paths)

	inBatch := make(map[string]struct{}, len(unique))
	for _, p := range unique {
		inBatch[p] = struct{}{}
	}

	seen := make(map[string]int, len(tree)+len(unique))
	for _, p := range tree {
		if _, ok := inBatch[p]; ok {
			continue
		}
		seen[RemoteID(p)]++
	}

	kept := make([]string, 0, len(unique))
	var collisions []*CollisionError
	for _, p := range unique {
		id := RemoteID(p)
		if seen[id] > 0 {
			collisions = append(collisions, &CollisionError{Path: p, RemoteID: id})
		} else {
			kept = append(kept, p)
		}
		seen[id]++
	}

	return kept, collisions
}

// Unique removes repeated strings, keeping the first occurrence of each
func Unique(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
