package models

import "strings"

// PushEvent represents the subset of a GitHub push webhook payload used for syncing
type PushEvent struct {
	Ref        string           `json:"ref" validate:"required"`
	Before     string           `json:"before"`
	After      string           `json:"after"`
	Compare    string           `json:"compare"`
	Commits    []Commit         `json:"commits" validate:"dive"`
	Repository GitHubRepository `json:"repository"`
	Pusher     GitHubPusher     `json:"pusher"`
}

// Commit represents a commit in the push event
type Commit struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	URL      string   `json:"url"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// GitHubRepository represents a repository in the GitHub webhook
type GitHubRepository struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

// GitHubPusher represents the pusher in the GitHub webhook
type GitHubPusher struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BranchRef returns the fully qualified ref for a branch name
func BranchRef(branch string) string {
	return "refs/heads/" + branch
}

// GetBranch returns the branch name without refs/heads/ prefix
func (p PushEvent) GetBranch() string {
	return strings.TrimPrefix(p.Ref, "refs/heads/")
}

// ChangeSet merges the per-commit file lists of the event
func (p PushEvent) ChangeSet() ChangeSet {
	var cs ChangeSet
	for _, c := range p.Commits {
		cs.Merge(c)
	}
	return cs
}

// TouchedFiles returns every path touched by the push, in first-seen order,
// with no distinction between added, modified and removed.
func (p PushEvent) TouchedFiles() []string {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	for _, c := range p.Commits {
		for _, group := range [][]string{c.Added, c.Modified, c.Removed} {
			for _, f := range group {
				if _, ok := seen[f]; ok {
					continue
				}
				seen[f] = struct{}{}
				files = append(files, f)
			}
		}
	}
	return files
}
