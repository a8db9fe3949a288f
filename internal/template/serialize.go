package template

import "strings"

// Serialize renders a Record as a template document. Sections are written in
// canonical order and the optional sender sections are left out when absent,
// so Parse(Serialize(r)) yields r for records with trimmed fields.
func Serialize(rec Record) string {
	var sb strings.Builder

	writeSection(&sb, SectionSubject, rec.Subject)
	writeSection(&sb, SectionHTML, rec.HTML)
	writeSection(&sb, SectionText, rec.Text)

	sb.WriteString("# " + SectionLabels + "\n")
	for _, label := range rec.Labels {
		sb.WriteString("* " + label + "\n")
	}
	sb.WriteString("\n")

	if rec.FromEmail != nil {
		writeSection(&sb, SectionFromEmail, *rec.FromEmail)
	}
	if rec.FromName != nil {
		writeSection(&sb, SectionFromName, *rec.FromName)
	}

	return sb.String()
}

func writeSection(sb *strings.Builder, name, body string) {
	sb.WriteString("# " + name + "\n")
	if body != "" {
		sb.WriteString(body + "\n")
	}
	sb.WriteString("\n")
}
