package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
	"github.com/coalharbourgroup/PM-email-vcs/internal/template"
)

var errNoTemplates = errors.New("no Mandrill templates found")

type templateLister interface {
	ListTemplates(ctx context.Context) ([]models.TemplateSummary, error)
}

type exporter struct {
	lister templateLister
	dir    string
	dryRun bool
	log    *logger.Logger
}

// Run writes every published template and returns the written file paths
func (e *exporter) Run(ctx context.Context) ([]string, error) {
	list, err := e.lister.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if len(list) == 0 {
		return nil, errNoTemplates
	}

	if !e.dryRun {
		if err := os.MkdirAll(e.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	written := make([]string, 0, len(list))
	for _, t := range list {
		if t.PublishSubject == nil || *t.PublishSubject == "" {
			e.log.Debugf("Skipping unpublished template %s", t.Slug)
			continue
		}

		path := filepath.Join(e.dir, t.Slug+".md")
		e.log.Infof("Writing markdown to %s", path)
		if !e.dryRun {
			if err := os.WriteFile(path, []byte(template.Serialize(record(t))), 0o644); err != nil {
				return written, fmt.Errorf("write %s: %w", path, err)
			}
		}
		written = append(written, path)
	}

	return written, nil
}

// record converts the published revision of a template. Templates without
// labels get one label per slug word.
func record(t models.TemplateSummary) template.Record {
	labels := t.Labels
	if len(labels) == 0 {
		labels = strings.Split(t.Slug, "-")
	}

	return template.Record{
		Subject:   deref(t.PublishSubject),
		HTML:      strings.TrimSpace(deref(t.PublishCode)),
		Text:      strings.TrimSpace(deref(t.PublishText)),
		Labels:    labels,
		FromEmail: t.PublishFromEmail,
		FromName:  t.PublishFromName,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
