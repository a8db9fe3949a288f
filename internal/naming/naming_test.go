package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteID(t *testing.T) {
	cases := map[string]string{
		"a/b.md":             "a-b",
		"test/template.md":   "test-template",
		"top.md":             "top",
		"a/b/c.md":           "a-b/c",
		"notes/readme.txt":   "notes-readme.txt",
		"already-flat.md":    "already-flat",
		"dir/name.md.backup": "dir-name.md.backup",
		"a/B.MD":             "a-B",
		"welcome/User.Md":    "welcome-User",
		".md":                "",
		"md":                 "md",
	}
	for in, want := range cases {
		assert.Equal(t, want, RemoteID(in), in)
	}
}

func TestDeduplicateExtensionCaseAliases(t *testing.T) {
	kept, collisions := Deduplicate([]string{"a/b.md", "a/b.MD"}, nil)

	assert.Equal(t, []string{"a/b.md"}, kept)
	if assert.Len(t, collisions, 1) {
		assert.Equal(t, "a/b.MD causes duplication once converted to a-b", collisions[0].Error())
	}
}

func TestDeduplicateFlagsAliasInBatch(t *testing.T) {
	kept, collisions := Deduplicate([]string{"x/y.md", "x-y.md"}, nil)

	assert.Equal(t, []string{"x/y.md"}, kept)
	if assert.Len(t, collisions, 1) {
		assert.Equal(t, "x-y.md causes duplication once converted to x-y", collisions[0].Error())
	}
}

func TestDeduplicateExactDuplicatesAreSilent(t *testing.T) {
	kept, collisions := Deduplicate([]string{"a.md", "a.md"}, []string{"a.md"})

	assert.Equal(t, []string{"a.md"}, kept)
	assert.Empty(t, collisions)
}

func TestDeduplicateKeepsOrderAndReportsEachCollision(t *testing.T) {
	paths := []string{"test/template.md", "test-template.md", "test/template2.md", "test-template.md"}
	tree := []string{"test/template.md", "test-template.md", "test/template2.md"}

	kept, collisions := Deduplicate(paths, tree)

	assert.Equal(t, []string{"test/template.md", "test/template2.md"}, kept)
	msgs := make([]string, 0, len(collisions))
	for _, c := range collisions {
		msgs = append(msgs, c.Error())
	}
	assert.Equal(t, []string{"test-template.md causes duplication once converted to test-template"}, msgs)
}

func TestDeduplicateAgainstUntouchedTreeFile(t *testing.T) {
	kept, collisions := Deduplicate([]string{"promo/spring.md"}, []string{"promo-spring.md", "other.md"})

	assert.Empty(t, kept)
	if assert.Len(t, collisions, 1) {
		assert.Equal(t, "promo/spring.md", collisions[0].Path)
		assert.Equal(t, "promo-spring", collisions[0].RemoteID)
	}
}

func TestDeduplicateLaterDuplicateAlsoFlagged(t *testing.T) {
	_, collisions := Deduplicate([]string{"a/b.md", "a-b.md", "a-b"}, nil)

	if assert.Len(t, collisions, 2) {
		assert.Equal(t, "a-b.md", collisions[0].Path)
		assert.Equal(t, "a-b", collisions[1].Path)
	}
}
