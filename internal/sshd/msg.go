package sshd

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/retroweb/internal/contact"
)

// Minimum body lengths, chosen so a stray Enter never opens a thread.
const (
	minSendLength  = 25
	minReplyLength = 10
)

const threadIDError = "Error: ill-formed thread ID (should be a 64-bit hexadecimal integer)"

const msgUsage = "Usage: `msg send <BODY...>` or `msg view <THREAD>` or `msg reply <THREAD> <BODY...>`\n" +
	"\n" +
	"Have feedback on the site? A comment about a page? Just want to get in touch?\n" +
	"This command sends a message straight from your terminal to mine.\n" +
	"\n" +
	"To send your first message, use `msg send` followed by your message, which starts a new thread and prints the corresponding thread ID.\n" +
	"Then, use `msg view` along with the thread ID to see your message and, eventually (hopefully), my reply.\n" +
	"If you want to follow up on your initial message or respond to mine, use `msg reply` with the thread ID and your response.\n" +
	"\n" +
	"The thread IDs here are the same as those in the website's contact form, so you can also view and send messages there."

// msg handles the msg command, returning terminal-ready output with
// CRLF line endings and a trailing blank line.
func (s *Session) msg(ctx context.Context, command string) []byte {
	if s.threads == nil {
		return []byte("Messaging is currently unavailable.\r\n\r\n")
	}

	a1, a2 := argN(command, 1), argN(command, 2)
	var response string
	switch {
	case a1 == "send":
		response = s.msgSend(ctx, command)
	case a1 == "reply" && a2 != "":
		response = s.msgReply(ctx, a2, command)
	case a1 == "view" && a2 != "":
		response = s.msgView(ctx, a2)
	default:
		response = msgUsage
	}
	return []byte(strings.ReplaceAll(response+"\n\n", "\n", "\r\n"))
}

func (s *Session) msgSend(ctx context.Context, command string) string {
	body := restAfter(command, 2)
	if len(body) < minSendLength {
		return "Usage: `msg send <BODY...>`\n" +
			"Initial message body must be at least 25 characters (mostly to avoid accidentally sending something). Use `msg help` (or just `msg`) to see some usage info."
	}

	id, err := s.threads.CreateThread(ctx, s.remote, body)
	if err != nil {
		return fmt.Sprintf("Error sending message: %v", err)
	}
	return fmt.Sprintf("Message sent! Thread ID: %s (don't lose that if you want a reply!)", id)
}

func (s *Session) msgReply(ctx context.Context, rawID, command string) string {
	id, err := contact.ParseThreadID(rawID)
	if err != nil {
		return threadIDError
	}

	body := restAfter(command, 3)
	if len(body) < minReplyLength {
		return "Usage: `msg reply <THREAD> <BODY...>`\n" +
			"Message body must be at least 10 characters (mostly to avoid accidentally sending something). Use `msg help` (or just `msg`) to see some usage info."
	}

	if err := s.threads.Send(ctx, id, body); err != nil {
		return fmt.Sprintf("Error sending message: %v", err)
	}
	return fmt.Sprintf("Message sent on thread ID: %s (don't lose that if you want a reply!)", id)
}

func (s *Session) msgView(ctx context.Context, rawID string) string {
	id, err := contact.ParseThreadID(rawID)
	if err != nil {
		return threadIDError
	}

	messages, err := s.threads.Messages(ctx, id)
	if err != nil {
		return fmt.Sprintf("Error loading thread: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Thread %s:\n", id)
	for _, m := range messages {
		who := "You:"
		if m.Response {
			who = "Me: "
		}
		fmt.Fprintf(&b, "(%d) %s %s\n", m.Timestamp, who, m.Contents)
	}
	return b.String()
}

// restAfter returns everything after the first n space-separated tokens.
func restAfter(command string, n int) string {
	parts := strings.SplitN(command, " ", n+1)
	if len(parts) <= n {
		return ""
	}
	return parts[n]
}
