package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/coalharbourgroup/PM-email-vcs/internal/errors"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/templates/contents/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "master", r.URL.Query().Get("ref"))
		assert.Equal(t, "token secret-token", r.Header.Get("Authorization"))
		raw := r.Header.Get("Accept") == acceptRaw

		switch r.URL.Path {
		case "/repos/acme/templates/contents/":
			writeEntries(w, []Entry{
				{Name: "README.md", Path: "README.md", Type: "file"},
				{Name: "users", Path: "users", Type: "dir"},
				{Name: "vendor", Path: "vendor", Type: "submodule"},
			})
		case "/repos/acme/templates/contents/users":
			writeEntries(w, []Entry{
				{Name: "welcome.md", Path: "users/welcome.md", Type: "file"},
				{Name: "deep", Path: "users/deep", Type: "dir"},
			})
		case "/repos/acme/templates/contents/users/deep":
			writeEntries(w, []Entry{{Name: "x.md", Path: "users/deep/x.md", Type: "file"}})
		case "/repos/acme/templates/contents/users/welcome.md":
			if raw {
				_, _ = w.Write([]byte("# Subject\nWelcome\n"))
				return
			}
			_ = json.NewEncoder(w).Encode(Entry{
				Name:    "welcome.md",
				Path:    "users/welcome.md",
				Type:    "file",
				HTMLURL: "https://github.com/acme/templates/blob/master/users/welcome.md",
			})
		case "/repos/acme/templates/contents/limited.md":
			http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeEntries(w http.ResponseWriter, entries []Entry) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Config{
		BaseURL: srv.URL,
		Token:   "secret-token",
		Owner:   "acme",
		Repo:    "templates",
		Branch:  "master",
	}, logger.Nop())
}

func TestRawContent(t *testing.T) {
	c := newTestClient(newTestServer(t))

	content, err := c.RawContent(context.Background(), "users/welcome.md")
	require.NoError(t, err)
	assert.Equal(t, "# Subject\nWelcome\n", content)
}

func TestRawContentNotFound(t *testing.T) {
	c := newTestClient(newTestServer(t))

	_, err := c.RawContent(context.Background(), "users/gone.md")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRawContentOtherFailuresAreNotNotFound(t *testing.T) {
	c := newTestClient(newTestServer(t))

	_, err := c.RawContent(context.Background(), "limited.md")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "403")
}

func TestBrowseURL(t *testing.T) {
	c := newTestClient(newTestServer(t))

	u, err := c.BrowseURL(context.Background(), "users/welcome.md")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/templates/blob/master/users/welcome.md", u)
}

func TestListFilesRecurses(t *testing.T) {
	c := newTestClient(newTestServer(t))

	files, err := c.ListFiles(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "users/welcome.md", "users/deep/x.md"}, files)
}
