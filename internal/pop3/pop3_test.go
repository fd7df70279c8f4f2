package pop3

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/dshills/retroweb/internal/content"
	"github.com/dshills/retroweb/internal/mail"
)

type rwPair struct {
	io.Reader
	io.Writer
}

func testDrop() *mail.Maildrop {
	return mail.Build(&content.Snapshot{
		Projects: []content.Project{
			{Name: "Alpha", URL: "alpha", Description: "First.", Content: "Body text."},
		},
		Posts: []content.Post{
			{Title: "Hello", URL: "hello", Markdown: "A post."},
		},
	})
}

// dialog runs the protocol loop over a scripted client.
func dialog(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := serve(rwPair{strings.NewReader(input), &out}, testDrop()); err != nil {
		t.Fatalf("serve: %v", err)
	}
	return out.String()
}

func TestGreetingAndAuth(t *testing.T) {
	out := dialog(t, "USER someone\r\nPASS anything\r\nQUIT\r\n")
	want := "+OK POP3 server ready\r\n+OK\r\n+OK\r\n+OK\r\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestTransactionCommandsRejectedBeforeAuth(t *testing.T) {
	out := dialog(t, "STAT\r\nQUIT\r\n")
	if !strings.Contains(out, "-ERR\r\n") {
		t.Errorf("expected STAT rejected before auth, got %q", out)
	}
}

func TestStat(t *testing.T) {
	drop := testDrop()
	out := dialog(t, "USER a\r\nPASS b\r\nSTAT\r\nQUIT\r\n")
	if !strings.Contains(out, "+OK 3 ") {
		t.Errorf("expected 3 messages and total size %d, got %q", drop.TotalSize, out)
	}
}

func TestListAll(t *testing.T) {
	out := dialog(t, "USER a\r\nPASS b\r\nLIST\r\nQUIT\r\n")
	for _, want := range []string{"1 ", "2 ", "3 ", ".\r\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in listing, got %q", want, out)
		}
	}
}

func TestListSingle(t *testing.T) {
	drop := testDrop()
	out := dialog(t, "USER a\r\nPASS b\r\nLIST 1\r\nQUIT\r\n")
	if !strings.Contains(out, "+OK 1 ") {
		t.Errorf("expected size of message 1 (%d), got %q", drop.Messages[0].Size, out)
	}
}

func TestListOutOfRange(t *testing.T) {
	for _, arg := range []string{"0", "99", "junk"} {
		out := dialog(t, "USER a\r\nPASS b\r\nLIST "+arg+"\r\nQUIT\r\n")
		if !strings.Contains(out, "-ERR\r\n") {
			t.Errorf("LIST %s: expected -ERR, got %q", arg, out)
		}
	}
}

func TestRetrDeliversMessage(t *testing.T) {
	out := dialog(t, "USER a\r\nPASS b\r\nRETR 1\r\nQUIT\r\n")
	if !strings.Contains(out, "Subject: Welcome!\r\n") {
		t.Errorf("expected welcome message body, got %q", out)
	}
	if !strings.Contains(out, "\r\n.\r\n") {
		t.Errorf("expected multiline terminator, got %q", out)
	}
}

func TestRetrOutOfRange(t *testing.T) {
	for _, cmd := range []string{"RETR 0", "RETR 99", "RETR"} {
		out := dialog(t, "USER a\r\nPASS b\r\n"+cmd+"\r\nQUIT\r\n")
		if !strings.Contains(out, "-ERR\r\n") {
			t.Errorf("%s: expected -ERR, got %q", cmd, out)
		}
	}
}

func TestNoopAndRset(t *testing.T) {
	out := dialog(t, "USER a\r\nPASS b\r\nNOOP\r\nRSET\r\nQUIT\r\n")
	if strings.Count(out, "+OK\r\n") != 5 {
		t.Errorf("expected all commands accepted, got %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	out := dialog(t, "USER a\r\nPASS b\r\nDELE 1\r\nQUIT\r\n")
	if !strings.Contains(out, "-ERR\r\n") {
		t.Errorf("expected -ERR for DELE, got %q", out)
	}
}

func TestQuitDuringAuth(t *testing.T) {
	out := dialog(t, "QUIT\r\n")
	want := "+OK POP3 server ready\r\n+OK\r\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}
