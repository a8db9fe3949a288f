package models

import "slices"

// ChangeSet holds the files touched by a push, grouped by kind of change.
// Each list keeps first-seen order and holds no duplicates.
type ChangeSet struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

// Merge folds the file lists of one commit into the change set
func (cs *ChangeSet) Merge(c Commit) {
	cs.Added = appendUnique(cs.Added, c.Added)
	cs.Modified = appendUnique(cs.Modified, c.Modified)
	cs.Removed = appendUnique(cs.Removed, c.Removed)
}

// Len returns the number of entries across all three lists
func (cs ChangeSet) Len() int {
	return len(cs.Added) + len(cs.Modified) + len(cs.Removed)
}

func appendUnique(dst, src []string) []string {
	if dst == nil {
		dst = make([]string, 0, len(src))
	}
	for _, f := range src {
		if !slices.Contains(dst, f) {
			dst = append(dst, f)
		}
	}
	return dst
}
