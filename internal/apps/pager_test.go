package apps

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/dshills/retroweb/internal/term"
	"github.com/dshills/retroweb/internal/vfs"
)

// pagerSnapshot builds a snapshot with one file at /docs/<name>.
func pagerSnapshot(name, contents string) *vfs.Snapshot {
	s := vfs.New()
	docs := s.AddDir(vfs.RootIndex, "docs")
	s.AddFile(docs, name, vfs.NewFile(contents))
	return s
}

func startPager(t *testing.T, contents string, width, height int) *Pager {
	t.Helper()
	snap := pagerSnapshot("f.txt", contents)
	p, _, err := NewPager(snap, vfs.RootIndex, "vi /docs/f.txt", width, height)
	if err != nil {
		t.Fatalf("unexpected startup error: %v", err)
	}
	return p
}

func TestNewPagerMissingArgument(t *testing.T) {
	snap := pagerSnapshot("f.txt", "x")
	if _, _, err := NewPager(snap, vfs.RootIndex, "vi", 80, 24); !errors.Is(err, ErrPagerUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestNewPagerMissingFile(t *testing.T) {
	snap := pagerSnapshot("f.txt", "x")
	_, _, err := NewPager(snap, vfs.RootIndex, "vi nosuchfile.txt", 80, 24)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "nosuchfile.txt") {
		t.Errorf("expected file name in error, got %q", err)
	}
}

func TestRenderWrapsLines(t *testing.T) {
	// Two usable rows at width 3: the exact-width first line fills row
	// 0, row 1 holds the first wrap segment of the second line.
	p := startPager(t, "abc\r\ndefgh", 3, 3)

	want := term.NewScreen().HideCursor().Clear().MoveTo(0, 0).
		MoveTo(0, 0).WriteString("abc").
		MoveTo(0, 1).WriteString("def").
		WriteString("\r\n: Ctrl-C to quit").
		MoveTo(0, 0).ShowCursor().Bytes()
	if got := p.render(); !bytes.Equal(got, want) {
		t.Errorf("render mismatch:\nexpected %q\ngot      %q", want, got)
	}
}

func TestRenderHidesCursorUntilPlaced(t *testing.T) {
	p := startPager(t, "abc", 80, 24)
	out := p.render()
	if !bytes.HasPrefix(out, []byte("\x1b[?25l")) {
		t.Errorf("expected render to open by hiding the cursor, got %q", out)
	}
	if !bytes.HasSuffix(out, []byte("\x1b[?25h")) {
		t.Errorf("expected render to close by showing the cursor, got %q", out)
	}
}

func TestRenderPlaceholderPastEOF(t *testing.T) {
	p := startPager(t, "only", 10, 4) // 3 usable rows, 1 file line
	out := string(p.render())
	if got := strings.Count(out, "~"); got != 2 {
		t.Errorf("expected 2 placeholder rows, got %d in %q", got, out)
	}
}

func TestRenderIsPure(t *testing.T) {
	p := startPager(t, "abc\r\ndefgh\r\nlast", 3, 4)
	first := p.render()
	second := p.render()
	if !bytes.Equal(first, second) {
		t.Errorf("expected identical renders, got %q then %q", first, second)
	}
}

func TestRightClampsToLastColumn(t *testing.T) {
	p := startPager(t, "abc", 80, 24)
	for i := 0; i < 5; i++ {
		p.Data('l')
	}
	if p.cursorX != 2 {
		t.Errorf("expected column clamped to 2, got %d", p.cursorX)
	}
}

func TestLeftFromStickyColumnSnapsToLineEnd(t *testing.T) {
	p := startPager(t, "abcdef\r\nxy", 80, 24)
	p.Data('$') // sticky far right
	p.Data('j') // short line, effective column clamps
	p.Data('h')
	if p.cursorX != 0 {
		t.Errorf("expected snap to last char then move left, got %d", p.cursorX)
	}
}

func TestVerticalMovementClampsToFile(t *testing.T) {
	p := startPager(t, "a\r\nb\r\nc", 80, 24)
	p.Data('k')
	if p.cursorY != 0 {
		t.Errorf("expected top clamp, got %d", p.cursorY)
	}
	for i := 0; i < 10; i++ {
		p.Data('j')
	}
	if p.cursorY != 2 {
		t.Errorf("expected bottom clamp at 2, got %d", p.cursorY)
	}
}

func TestEndOfLine(t *testing.T) {
	p := startPager(t, "abcde", 80, 24)
	p.Data('$')
	x, y := p.cursorScreen()
	if x != 4 || y != 0 {
		t.Errorf("expected screen (4,0), got (%d,%d)", x, y)
	}
}

func TestCursorMoveWithoutScrollIsCheap(t *testing.T) {
	p := startPager(t, "abc\r\ndef\r\nghi", 80, 24)
	out := p.Data('j')
	want := term.NewScreen().MoveTo(0, 1).Bytes()
	if !bytes.Equal(out, want) {
		t.Errorf("expected bare cursor move %q, got %q", want, out)
	}
}

func TestUpdateCursorIdempotent(t *testing.T) {
	p := startPager(t, "abc\r\ndef\r\nghi", 80, 24)
	p.Data('j')
	if out := p.updateCursor(); out != nil {
		t.Errorf("expected empty output on repeat update, got %q", out)
	}
}

func TestScrollDownRerenders(t *testing.T) {
	// 2 usable rows over 4 lines: moving below the window scrolls and
	// forces a full redraw.
	p := startPager(t, "l0\r\nl1\r\nl2\r\nl3", 10, 3)
	p.Data('j') // row 1, still visible
	out := p.Data('j')
	if !bytes.Contains(out, []byte("\x1b[2J")) {
		t.Errorf("expected full redraw after scroll, got %q", out)
	}
	if p.scrollLine != 1 {
		t.Errorf("expected scroll line 1, got %d", p.scrollLine)
	}
	// Scrolling back up prefers the sub-line offset path only when one
	// exists; here it decrements the line.
	p.Data('k')
	p.Data('k')
	if p.scrollLine != 0 || p.scrollSub != 0 {
		t.Errorf("expected scroll back to top, got (%d,%d)", p.scrollLine, p.scrollSub)
	}
}

func TestScrollThroughWrapSegments(t *testing.T) {
	// One 12-char line at width 3 is four wrap segments; with 2 usable
	// rows, pressing $ must scroll by sub-line offsets.
	p := startPager(t, "abcdefghijkl", 3, 3)
	p.Data('$')
	if p.cursorX != endOfLine {
		t.Errorf("expected sticky end-of-line column, got %d", p.cursorX)
	}
	x, y := p.cursorScreen()
	if y < 0 || y >= p.usable {
		t.Errorf("expected cursor on screen, got y=%d", y)
	}
	if p.scrollSub == 0 {
		t.Error("expected sub-line scroll to reach the last segment")
	}
	if x != 2 {
		t.Errorf("expected last column of segment, got %d", x)
	}
}

func TestResizeRealignsSubOffset(t *testing.T) {
	// 200-char line at width 80, scrolled one width (80 chars) in.
	p := startPager(t, strings.Repeat("x", 200), 80, 3)
	p.Data('$') // scrolls sub offset forward
	if p.scrollSub == 0 {
		t.Fatal("expected non-zero sub offset before resize")
	}

	out := p.Resize(40, 3)
	if !bytes.Contains(out, []byte("\x1b[2J")) {
		t.Errorf("expected full re-render on resize, got %q", out)
	}
	_, y := p.cursorScreen()
	if y < 0 || y >= p.usable {
		t.Errorf("expected cursor on screen after resize, got y=%d", y)
	}
}

func TestResizeSnapScenario(t *testing.T) {
	p := startPager(t, strings.Repeat("x", 200), 80, 3)
	p.scrollSub = 1 // 80 chars scrolled past
	p.cursorX = 100
	p.Resize(40, 3)
	if p.scrollSub != 2 {
		t.Errorf("expected 80 chars to become sub offset 2 at width 40, got %d", p.scrollSub)
	}
}

// Screen position stays within [0, usable) for arbitrary reachable states.
func TestCursorStaysOnScreenFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	contents := "short\r\n" + strings.Repeat("y", 137) + "\r\n\r\n" + strings.Repeat("z", 41)
	p := startPager(t, contents, 13, 5)

	keys := []byte{'h', 'j', 'k', 'l', '$'}
	for i := 0; i < 5000; i++ {
		if rng.Intn(20) == 0 {
			p.Resize(3+rng.Intn(30), 2+rng.Intn(10))
		} else {
			p.Data(keys[rng.Intn(len(keys))])
		}
		x, y := p.cursorScreen()
		if y < 0 || y >= p.usable {
			t.Fatalf("step %d: cursor off screen: y=%d usable=%d", i, y, p.usable)
		}
		if x < 0 || x >= p.width {
			t.Fatalf("step %d: cursor off row: x=%d width=%d", i, x, p.width)
		}
	}
}

func TestUnknownKeysIgnored(t *testing.T) {
	p := startPager(t, "abc", 80, 24)
	if out := p.Data('q'); out != nil {
		t.Errorf("expected unknown key ignored, got %q", out)
	}
}
