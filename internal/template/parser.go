// Package template converts markdown template documents into structured records.
//
// A document is a sequence of sections, each introduced by a header line such
// as "# Subject". Sections may appear in any order; each one is located on its
// own rather than by walking the document from the top.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Section names recognised in a template document
const (
	SectionSubject   = "Subject"
	SectionHTML      = "Html"
	SectionText      = "Text"
	SectionLabels    = "Labels"
	SectionFromEmail = "From Email"
	SectionFromName  = "From Name"
)

// Sections lists the recognised section names in canonical order
var Sections = []string{
	SectionSubject,
	SectionHTML,
	SectionText,
	SectionLabels,
	SectionFromEmail,
	SectionFromName,
}

var (
	headerPatterns = buildHeaderPatterns()
	anyHeader      = regexp.MustCompile(`(?im)^#[ \t]+(?:` + alternation() + `)[ \t]*\r?$`)
)

// Record is the structured result of parsing one template document.
// FromEmail and FromName are nil when their section is missing so callers can
// apply defaults; an empty section yields a pointer to "".
type Record struct {
	Subject   string
	HTML      string
	Text      string
	Labels    []string
	FromEmail *string
	FromName  *string
}

// ParseError reports a document that cannot be turned into a Record
type ParseError struct {
	Section string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("template: section %q %s", e.Section, e.Reason)
}

// Parse converts markdown content into a Record. The Labels section is
// mandatory; every other section is optional.
func Parse(content string) (Record, error) {
	sections := extract(content)

	labels, ok := sections[SectionLabels]
	if !ok {
		return Record{}, &ParseError{Section: SectionLabels, Reason: "is missing"}
	}

	rec := Record{
		Subject: sections[SectionSubject],
		HTML:    sections[SectionHTML],
		Text:    sections[SectionText],
		Labels:  splitLabels(labels),
	}
	if v, ok := sections[SectionFromEmail]; ok {
		rec.FromEmail = &v
	}
	if v, ok := sections[SectionFromName]; ok {
		rec.FromName = &v
	}

	return rec, nil
}

// extract returns the trimmed content of every section present in content
func extract(content string) map[string]string {
	found := make(map[string]string, len(Sections))

	for _, name := range Sections {
		loc := headerPatterns[name].FindStringIndex(content)
		if loc == nil {
			continue
		}

		rest := content[loc[1]:]
		if next := anyHeader.FindStringIndex(rest); next != nil {
			rest = rest[:next[0]]
		}
		found[name] = strings.TrimSpace(rest)
	}

	return found
}

// splitLabels returns one label per line with the "* " bullet and surrounding
// whitespace removed. Blank lines and bare bullets yield no label.
func splitLabels(block string) []string {
	labels := make([]string, 0)
	if block == "" {
		return labels
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "* "))
		if line == "" || line == "*" {
			continue
		}
		labels = append(labels, line)
	}

	return labels
}

func buildHeaderPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(Sections))
	for _, name := range Sections {
		patterns[name] = regexp.MustCompile(`(?im)^#[ \t]+` + headerName(name) + `[ \t]*\r?$`)
	}
	return patterns
}

func alternation() string {
	names := make([]string, len(Sections))
	for i, name := range Sections {
		names[i] = headerName(name)
	}
	return strings.Join(names, "|")
}

// headerName allows any run of blanks between the words of a section name
func headerName(name string) string {
	parts := strings.Fields(name)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, `[ \t]+`)
}
