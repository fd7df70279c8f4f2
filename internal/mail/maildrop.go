// Package mail renders a content snapshot as a read-only maildrop: one
// message per site page, shared by the POP3 and IMAP servers.
package mail

import (
	"fmt"
	"strings"

	"github.com/dshills/retroweb/internal/content"
)

const welcomeBody = "Hello! Welcome to this website, exposed as a mail server. " +
	"All the pages should be listed here as emails, so feel free to browse around!"

// Message is one page of the site as a mail message.
type Message struct {
	// Lines holds the POP3 wire form: CRLF-terminated, with lines
	// starting with "." byte-stuffed.
	Lines []string

	// Raw is the unstuffed message text with CRLF line endings, as sent
	// in IMAP literals.
	Raw string

	// Size is the byte count of the stuffed wire form.
	Size int
}

// Maildrop is the full mailbox. Message n (1-indexed) is Messages[n-1].
type Maildrop struct {
	Messages  []Message
	TotalSize int
}

// Build renders a snapshot into a maildrop: a welcome message followed
// by one message per project and per post.
func Build(snap *content.Snapshot) *Maildrop {
	pages := []string{
		"From: The Webmaster\nTo: You!\nSubject: Welcome!\n\n" + welcomeBody,
	}
	for _, p := range snap.Projects {
		pages = append(pages,
			fmt.Sprintf("From: The Webmaster\nTo: You!\nSubject: %s\n\n%s", p.Name, p.Text()))
	}
	for _, p := range snap.Posts {
		pages = append(pages,
			fmt.Sprintf("From: The Webmaster\nTo: You!\nSubject: %s\n\n%s", p.Title, p.Text()))
	}

	drop := &Maildrop{}
	for _, page := range pages {
		m := newMessage(page)
		drop.TotalSize += m.Size
		drop.Messages = append(drop.Messages, m)
	}
	return drop
}

// Message returns message n (1-indexed), or false when out of range.
func (d *Maildrop) Message(n int) (Message, bool) {
	if n < 1 || n > len(d.Messages) {
		return Message{}, false
	}
	return d.Messages[n-1], true
}

func newMessage(page string) Message {
	var m Message
	for _, line := range strings.Split(page, "\n") {
		m.Raw += line + "\r\n"
		if strings.HasPrefix(line, ".") {
			line = "." + line
		}
		line += "\r\n"
		m.Size += len(line)
		m.Lines = append(m.Lines, line)
	}
	return m
}
