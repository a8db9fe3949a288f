package reconcile

import (
	"fmt"
	"strings"
)

// UpsertError reports a template that could neither be updated nor created
type UpsertError struct {
	RemoteID string
	Err      error
}

func (e *UpsertError) Error() string {
	return "Unable to sync file: " + e.RemoteID
}

func (e *UpsertError) Unwrap() error { return e.Err }

// RemoveError reports a template the remote store refused to delete
type RemoveError struct {
	RemoteID string
	Err      error
}

func (e *RemoveError) Error() string {
	return "Unable to remove file: " + e.RemoteID
}

func (e *RemoveError) Unwrap() error { return e.Err }

// AggregateError is returned by Sync when per-file tasks faulted outside of
// the normal error recording, e.g. a panic in a collaborator.
type AggregateError struct {
	Errs []error
}

func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("sync failed for %d file(s): %s", len(e.Errs), strings.Join(msgs, "; "))
}

func (e *AggregateError) Unwrap() []error { return e.Errs }
