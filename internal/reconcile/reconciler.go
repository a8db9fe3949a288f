// Package reconcile pushes changed template files into the remote template
// store and records what happened to each path.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/coalharbourgroup/PM-email-vcs/internal/errors"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
	"github.com/coalharbourgroup/PM-email-vcs/internal/naming"
	"github.com/coalharbourgroup/PM-email-vcs/internal/template"
)

// Source reads raw file content from the template repository. It returns an
// error wrapping apperrors.ErrNotFound when the path no longer exists.
type Source interface {
	RawContent(ctx context.Context, path string) (string, error)
}

// Store is the remote template store. UpdateTemplate returns an error
// wrapping apperrors.ErrNotFound when no template has that name.
type Store interface {
	UpdateTemplate(ctx context.Context, tmpl models.Template) error
	AddTemplate(ctx context.Context, tmpl models.Template) error
	DeleteTemplate(ctx context.Context, name string) error
}

// Defaults fill sender fields missing from a template document
type Defaults struct {
	FromEmail string
	FromName  string
}

// Reconciler syncs repository files into the remote store
type Reconciler struct {
	source      Source
	store       Store
	defaults    Defaults
	concurrency int
	log         *logger.Logger
}

// New creates a reconciler running at most concurrency files at once
func New(source Source, store Store, defaults Defaults, concurrency int, log *logger.Logger) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reconciler{
		source:      source,
		store:       store,
		defaults:    defaults,
		concurrency: concurrency,
		log:         log.Component("reconcile"),
	}
}

// Sync reconciles every path and returns once all of them are done. A file
// that fails is recorded in out and never stops the others.
func (r *Reconciler) Sync(ctx context.Context, paths []string, out *Outcome) error {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		faults []error
	)
	g.SetLimit(r.concurrency)

	for _, path := range paths {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					mu.Lock()
					faults = append(faults, fmt.Errorf("%s: %v", path, p))
					mu.Unlock()
				}
			}()
			r.syncFile(ctx, path, out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if len(faults) > 0 {
		return &AggregateError{Errs: faults}
	}
	return nil
}

func (r *Reconciler) syncFile(ctx context.Context, path string, out *Outcome) {
	id := naming.RemoteID(path)
	log := r.log.WithStr("path", path).WithStr("remote_id", id)

	content, err := r.source.RawContent(ctx, path)
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := r.Remove(ctx, id); err != nil {
			log.Warnf("remove failed: %v", err)
			out.Fail(err.Error())
			return
		}
		log.Info("template removed")
		out.Removed(path)
		return
	}
	if err != nil {
		log.Warnf("fetch failed: %v", err)
		out.Fail(fmt.Sprintf("Unable to fetch file: %s (%v)", path, err))
		return
	}

	rec, err := template.Parse(content)
	if err != nil {
		log.Warnf("parse failed: %v", err)
		out.Fail(fmt.Sprintf("Unable to parse file: %s (%v)", path, err))
		return
	}

	created, err := r.Upsert(ctx, id, rec)
	if err != nil {
		log.Warnf("upsert failed: %v", errors.Unwrap(err))
		out.Fail(err.Error())
		return
	}

	if created {
		log.Info("template added")
		out.Added(path)
	} else {
		log.Info("template modified")
		out.Modified(path)
	}
}

// Upsert replaces the remote template named remoteID, creating it when the
// store has no such template. created reports which of the two happened.
func (r *Reconciler) Upsert(ctx context.Context, remoteID string, rec template.Record) (created bool, err error) {
	tmpl := r.remoteTemplate(remoteID, rec)

	err = r.store.UpdateTemplate(ctx, tmpl)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return false, &UpsertError{RemoteID: remoteID, Err: err}
	}

	if err := r.store.AddTemplate(ctx, tmpl); err != nil {
		return false, &UpsertError{RemoteID: remoteID, Err: err}
	}
	return true, nil
}

// Remove deletes the remote template named remoteID
func (r *Reconciler) Remove(ctx context.Context, remoteID string) error {
	if err := r.store.DeleteTemplate(ctx, remoteID); err != nil {
		return &RemoveError{RemoteID: remoteID, Err: err}
	}
	return nil
}

func (r *Reconciler) remoteTemplate(remoteID string, rec template.Record) models.Template {
	fromEmail := r.defaults.FromEmail
	if rec.FromEmail != nil {
		fromEmail = *rec.FromEmail
	}
	fromName := r.defaults.FromName
	if rec.FromName != nil {
		fromName = *rec.FromName
	}

	return models.Template{
		Name:      remoteID,
		Labels:    append([]string{}, rec.Labels...),
		FromEmail: fromEmail,
		FromName:  fromName,
		Subject:   rec.Subject,
		HTML:      rec.HTML,
		Text:      rec.Text,
	}
}
