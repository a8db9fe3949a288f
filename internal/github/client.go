// Package github reads template files from a GitHub repository through the
// contents REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/coalharbourgroup/PM-email-vcs/internal/errors"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
)

const (
	acceptRaw    = "application/vnd.github.v3.raw"
	acceptObject = "application/vnd.github.v3+json"
)

// Config holds the repository coordinates and credentials
type Config struct {
	BaseURL string
	Token   string
	Owner   string
	Repo    string
	Branch  string
	Timeout time.Duration
}

// Client talks to the GitHub contents API for a single repository and branch
type Client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

// Entry is one item of a directory listing
type Entry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Type    string `json:"type"`
	HTMLURL string `json:"html_url"`
}

// New creates a client. A zero timeout defaults to 15 seconds.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.Component("github"),
	}
}

// Repository returns the repository name the client reads from
func (c *Client) Repository() string {
	return c.cfg.Repo
}

// RawContent returns the raw content of a file on the sync branch. Missing
// files yield an error wrapping apperrors.ErrNotFound.
func (c *Client) RawContent(ctx context.Context, path string) (string, error) {
	body, err := c.get(ctx, path, acceptRaw)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// BrowseURL returns the html_url of a file on the sync branch
func (c *Client) BrowseURL(ctx context.Context, path string) (string, error) {
	body, err := c.get(ctx, path, acceptObject)
	if err != nil {
		return "", err
	}

	var entry Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return "", fmt.Errorf("github: decode %s: %w", path, err)
	}
	if entry.HTMLURL == "" {
		return "", fmt.Errorf("github: %s has no html_url", path)
	}
	return entry.HTMLURL, nil
}

// ListFiles walks the repository tree below dir and returns the path of every
// file, relative to the repository root. An empty dir means the root.
func (c *Client) ListFiles(ctx context.Context, dir string) ([]string, error) {
	body, err := c.get(ctx, dir, acceptObject)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("github: list %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		path := e.Path
		if path == "" {
			path = joinPath(dir, e.Name)
		}

		switch e.Type {
		case "dir":
			sub, err := c.ListFiles(ctx, path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		case "file":
			files = append(files, path)
		default:
			c.log.Debugf("skipping %s entry %s", e.Type, path)
		}
	}

	return files, nil
}

func (c *Client) get(ctx context.Context, path, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "token "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("github: read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("github: %s: %w", path, apperrors.ErrNotFound)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("github: get %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func (c *Client) contentsURL(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo), strings.Join(segments, "/"))
	if c.cfg.Branch != "" {
		u += "?ref=" + url.QueryEscape(c.cfg.Branch)
	}
	return u
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
