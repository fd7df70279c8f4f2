package sshd

import (
	"context"
	"strings"
	"testing"

	"github.com/dshills/retroweb/internal/contact"
	"github.com/dshills/retroweb/internal/vfs"
)

func testSnapshot() *vfs.Snapshot {
	s := vfs.New()
	projects := s.AddDir(vfs.RootIndex, "projects")
	s.AddDir(vfs.RootIndex, "blog")
	s.AddFile(projects, "alpha.txt", vfs.NewFile("# Alpha\r\n\r\nFirst project.\r\n"))
	return s
}

func testSession(t *testing.T) *Session {
	t.Helper()
	store, err := contact.Open(":memory:", contact.Limits{MaxSize: 2000})
	if err != nil {
		t.Fatalf("open contact store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewSession(1, "guest", "example.com", "192.0.2.1", testSnapshot(), store)
}

// run types one command line followed by Enter.
func run(t *testing.T, s *Session, line string) string {
	t.Helper()
	out, disconnect := s.Data(context.Background(), []byte(line+"\r"))
	if disconnect {
		t.Fatalf("unexpected disconnect running %q", line)
	}
	return string(out)
}

func TestPromptFormat(t *testing.T) {
	s := testSession(t)
	if got := string(s.Prompt()); got != "guest@example.com:/> " {
		t.Errorf("unexpected prompt %q", got)
	}
}

func TestWelcomeEndsWithPrompt(t *testing.T) {
	s := testSession(t)
	if got := string(s.Welcome()); !strings.HasSuffix(got, "guest@example.com:/> ") {
		t.Errorf("expected welcome to end with prompt, got %q", got)
	}
}

func TestListsDirectoriesThenFiles(t *testing.T) {
	s := testSession(t)
	out := run(t, s, "ls")
	if !strings.Contains(out, "blog\r\nprojects\r\n") {
		t.Errorf("expected sorted directory listing, got %q", out)
	}

	run(t, s, "cd projects")
	out = run(t, s, "ls")
	if !strings.Contains(out, "alpha.txt\r\n") {
		t.Errorf("expected file listing, got %q", out)
	}
}

func TestChangeDirectory(t *testing.T) {
	s := testSession(t)

	out := run(t, s, "cd projects")
	if !strings.HasSuffix(out, "guest@example.com:/projects> ") {
		t.Errorf("expected prompt to follow directory, got %q", out)
	}

	out = run(t, s, "cd ..")
	if !strings.HasSuffix(out, "guest@example.com:/> ") {
		t.Errorf("expected return to root, got %q", out)
	}

	out = run(t, s, "cd nowhere")
	if !strings.Contains(out, `"nowhere": no such directory`) {
		t.Errorf("expected error for missing directory, got %q", out)
	}
}

func TestCatFile(t *testing.T) {
	s := testSession(t)

	out := run(t, s, "cat /projects/alpha.txt")
	if !strings.Contains(out, "First project.") {
		t.Errorf("expected file contents, got %q", out)
	}

	out = run(t, s, "cat")
	if !strings.Contains(out, "cat: usage: cat <filename>") {
		t.Errorf("expected usage, got %q", out)
	}

	out = run(t, s, "cat missing.txt")
	if !strings.Contains(out, `cat: cannot open "missing.txt": No such file`) {
		t.Errorf("expected error for missing file, got %q", out)
	}
}

func TestUnknownCommandEchoesFullLine(t *testing.T) {
	s := testSession(t)
	out := run(t, s, "frobnicate now")
	if !strings.Contains(out, "frobnicate now: command not found\r\n") {
		t.Errorf("expected command-not-found, got %q", out)
	}
}

func TestEmptyLineReprompts(t *testing.T) {
	s := testSession(t)
	out := run(t, s, "")
	if out != "\r\nguest@example.com:/> " {
		t.Errorf("expected bare reprompt, got %q", out)
	}
}

func TestExitDisconnects(t *testing.T) {
	for _, line := range []string{"exit", "logout"} {
		s := testSession(t)
		if _, disconnect := s.Data(context.Background(), []byte(line+"\r")); !disconnect {
			t.Errorf("expected %q to disconnect", line)
		}
	}
}

func TestEndOfTransmissionDisconnects(t *testing.T) {
	s := testSession(t)
	if _, disconnect := s.Data(context.Background(), []byte{4}); !disconnect {
		t.Error("expected Ctrl-D to disconnect")
	}
}

func TestPagerStartsAndInterruptRestoresShell(t *testing.T) {
	s := testSession(t)

	out := run(t, s, "vi /projects/alpha.txt")
	if s.app == nil {
		t.Fatal("expected a running app")
	}
	if !strings.Contains(out, "\x1b[2J") {
		t.Errorf("expected full-screen draw, got %q", out)
	}
	if strings.HasSuffix(out, "> ") {
		t.Errorf("expected no prompt while app runs, got %q", out)
	}

	out2, disconnect := s.Data(context.Background(), []byte{3})
	if disconnect {
		t.Fatal("interrupt must not disconnect")
	}
	if s.app != nil {
		t.Error("expected app torn down")
	}
	if !strings.Contains(string(out2), "\x1b[2J") || !strings.HasSuffix(string(out2), "guest@example.com:/> ") {
		t.Errorf("expected clear and reprompt, got %q", out2)
	}
}

func TestPagerMissingFileKeepsShell(t *testing.T) {
	s := testSession(t)
	out := run(t, s, "vi nope.txt")
	if s.app != nil {
		t.Error("expected no running app")
	}
	if !strings.Contains(out, `vi: cannot open "nope.txt": No such file`) {
		t.Errorf("expected error message, got %q", out)
	}
	if !strings.HasSuffix(out, "guest@example.com:/> ") {
		t.Errorf("expected reprompt after error, got %q", out)
	}
}

func TestResizeWithoutAppIsSilent(t *testing.T) {
	s := testSession(t)
	if out := s.Resize(120, 40); out != nil {
		t.Errorf("expected no output, got %q", out)
	}
}

func TestMsgUsage(t *testing.T) {
	s := testSession(t)
	out := run(t, s, "msg")
	if !strings.Contains(out, "Usage: `msg send <BODY...>`") {
		t.Errorf("expected usage text, got %q", out)
	}
}

func TestMsgSendTooShort(t *testing.T) {
	s := testSession(t)
	out := run(t, s, "msg send hi")
	if !strings.Contains(out, "at least 25 characters") {
		t.Errorf("expected length complaint, got %q", out)
	}
}

func TestMsgSendViewReply(t *testing.T) {
	s := testSession(t)
	body := "this is a real message with enough length"

	out := run(t, s, "msg send "+body)
	const marker = "Message sent! Thread ID: "
	i := strings.Index(out, marker)
	if i < 0 {
		t.Fatalf("expected send confirmation, got %q", out)
	}
	rest := out[i+len(marker):]
	id := rest[:strings.IndexByte(rest, ' ')]

	out = run(t, s, "msg view "+id)
	if !strings.Contains(out, "Thread "+id+":") || !strings.Contains(out, "You: "+body) {
		t.Errorf("expected thread view with message, got %q", out)
	}

	out = run(t, s, "msg reply "+id+" a follow-up message")
	if !strings.Contains(out, "Message sent on thread ID: "+id) {
		t.Errorf("expected reply confirmation, got %q", out)
	}
}

func TestMsgReplyTooShort(t *testing.T) {
	s := testSession(t)
	out := run(t, s, "msg send this initial message is long enough")
	const marker = "Thread ID: "
	i := strings.Index(out, marker)
	if i < 0 {
		t.Fatalf("expected send confirmation, got %q", out)
	}
	rest := out[i+len(marker):]
	id := rest[:strings.IndexByte(rest, ' ')]

	out = run(t, s, "msg reply "+id+" short")
	if !strings.Contains(out, "at least 10 characters") {
		t.Errorf("expected length complaint, got %q", out)
	}
}

func TestMsgBadThreadID(t *testing.T) {
	s := testSession(t)
	for _, line := range []string{"msg view zzzz", "msg reply zzzz this is long enough"} {
		out := run(t, s, line)
		if !strings.Contains(out, "ill-formed thread ID") {
			t.Errorf("%q: expected parse error, got %q", line, out)
		}
	}
}

func TestMsgOutputUsesCRLF(t *testing.T) {
	s := testSession(t)
	out := run(t, s, "msg")
	if strings.Contains(strings.ReplaceAll(out, "\r\n", ""), "\n") {
		t.Errorf("expected CRLF-only line endings, got %q", out)
	}
}
