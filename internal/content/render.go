package content

import (
	"fmt"
	"strings"
)

// Text renders the project as a plain-text page with LF line endings.
// Protocol layers re-terminate lines as their wire format requires.
func (p Project) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Name)
	if p.Description != "" {
		b.WriteString(strings.TrimRight(p.Description, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimRight(p.Content, "\n"))
	b.WriteString("\n")
	return b.String()
}

// Text renders the post as a plain-text page with LF line endings.
func (p Post) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n%s\n\n", p.Title, p.Date)
	b.WriteString(strings.TrimRight(p.Markdown, "\n"))
	b.WriteString("\n")
	return b.String()
}

// CRLF converts LF line endings to the CRLF most wire protocols require.
func CRLF(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}
