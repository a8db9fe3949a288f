package reconcile

import "sync"

// Actions lists the paths synced in one run by kind of change
type Actions struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

// Summary is an immutable copy of an Outcome
type Summary struct {
	Actions Actions  `json:"actions"`
	Errors  []string `json:"errors"`
}

// Processed returns how many paths reached the remote store
func (s Summary) Processed() int {
	return len(s.Actions.Added) + len(s.Actions.Modified) + len(s.Actions.Removed)
}

// Outcome accumulates the result of one sync run. It is safe for concurrent
// use; entries are only ever appended. Create one per webhook invocation.
type Outcome struct {
	mu      sync.Mutex
	actions Actions
	errors  []string
}

// NewOutcome returns an empty outcome
func NewOutcome() *Outcome {
	return &Outcome{
		actions: Actions{
			Added:    []string{},
			Modified: []string{},
			Removed:  []string{},
		},
		errors: []string{},
	}
}

// Added records a path whose template was created
func (o *Outcome) Added(path string) {
	o.mu.Lock()
	o.actions.Added = append(o.actions.Added, path)
	o.mu.Unlock()
}

// Modified records a path whose template was replaced
func (o *Outcome) Modified(path string) {
	o.mu.Lock()
	o.actions.Modified = append(o.actions.Modified, path)
	o.mu.Unlock()
}

// Removed records a path whose template was deleted
func (o *Outcome) Removed(path string) {
	o.mu.Lock()
	o.actions.Removed = append(o.actions.Removed, path)
	o.mu.Unlock()
}

// Fail records a human readable error
func (o *Outcome) Fail(msg string) {
	o.mu.Lock()
	o.errors = append(o.errors, msg)
	o.mu.Unlock()
}

// Summary returns a copy of everything recorded so far
func (o *Outcome) Summary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Summary{
		Actions: Actions{
			Added:    append([]string{}, o.actions.Added...),
			Modified: append([]string{}, o.actions.Modified...),
			Removed:  append([]string{}, o.actions.Removed...),
		},
		Errors: append([]string{}, o.errors...),
	}
}
