package apps

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dshills/retroweb/internal/term"
	"github.com/dshills/retroweb/internal/vfs"
)

// ErrPagerUsage is returned when the pager is started without a file.
var ErrPagerUsage = errors.New("vi: usage: vi <filename>")

// endOfLine is the sentinel column set by "$"; the effective-column
// clamp resolves it to the true line end. Kept far from the int limit so
// wrap arithmetic cannot overflow.
const endOfLine = math.MaxInt / 4

// Pager is a read-only, vi-like full-screen file viewer.
//
// The file is addressed through the owning snapshot plus a (directory,
// name) locator and re-resolved on use; the pager never caches a file
// pointer of its own.
type Pager struct {
	snap *vfs.Snapshot
	dir  int
	name string

	// cursorX, cursorY are the cursor position in file coordinates.
	// cursorX may exceed the current line length; rendering clamps it.
	cursorX int
	cursorY int

	// scrollLine is the file line at the top of the screen; scrollSub
	// counts how many full terminal-widths of that line have already
	// been scrolled past.
	scrollLine int
	scrollSub  int

	width  int
	height int

	// usable is the number of body rows (height minus the status row).
	usable int

	// lastX, lastY are the screen position the cursor was last placed
	// at, used to suppress redundant cursor moves.
	lastX int
	lastY int
}

// NewPager starts a pager for the command's file argument. On failure the
// returned error text is suitable for display to the user as-is.
func NewPager(snap *vfs.Snapshot, currentDir int, command string, width, height int) (*Pager, []byte, error) {
	fields := strings.Split(command, " ")
	if len(fields) < 2 || fields[1] == "" {
		return nil, nil, ErrPagerUsage
	}
	path := fields[1]

	dir, name, ok := snap.Locate(currentDir, path)
	if !ok {
		return nil, nil, fmt.Errorf("vi: cannot open %q: No such file", path)
	}

	p := &Pager{
		snap: snap,
		dir:  dir,
		name: name,
	}
	p.setSize(width, height)
	return p, p.render(), nil
}

// file re-resolves the viewed file through the locator. The snapshot is
// immutable, so the lookup always succeeds.
func (p *Pager) file() *vfs.File {
	return p.snap.Dir(p.dir).Files[p.name]
}

// Data handles one byte of input.
func (p *Pager) Data(b byte) []byte {
	switch b {
	case 'h', 'j', 'k', 'l':
		lines := p.file().Lines
		switch b {
		case 'h', 'l':
			// The cursor may sit beyond the line end (sticky column).
			// Right from there is a no-op; left snaps to the last
			// character before moving as usual.
			delta := 1
			if b == 'h' {
				delta = -1
			}
			lastChar := max(len(lines[p.cursorY]), 1) - 1
			if p.cursorX >= lastChar {
				if delta > 0 {
					return nil
				}
				p.cursorX = lastChar
			}
			p.cursorX = max(p.cursorX+delta, 0)
		case 'j':
			p.cursorY = min(p.cursorY+1, len(lines)-1)
		case 'k':
			p.cursorY = max(p.cursorY-1, 0)
		}
		return p.updateCursor()

	case '$':
		p.cursorX = endOfLine
		return p.updateCursor()
	}
	return nil
}

// Resize handles a window-size change: the wrap-aligned scroll offset is
// recomputed for the new width, the cursor is scrolled back on screen,
// and the whole screen is redrawn.
func (p *Pager) Resize(width, height int) []byte {
	scrolled := p.scrollSub * p.width
	p.setSize(width, height)
	p.scrollSub = scrolled / p.width

	p.scrollToCursor()
	return p.render()
}

func (p *Pager) setSize(width, height int) {
	p.width = max(width, 1)
	p.height = max(height, 1)
	p.usable = max(p.height-1, 1)
}

// render clears the screen and redraws the whole file view, hiding the
// cursor until it is placed so the client never paints it mid-redraw. It
// assumes the cursor is on screen for the current scroll position.
func (p *Pager) render() []byte {
	scr := term.NewScreen().HideCursor().Clear().MoveTo(0, 0)

	// Walk file lines from the scroll position, one screen row at a
	// time. lineStart is how far into the current file line this row
	// begins; a row that cannot hold the rest of the line emits exactly
	// one width and leaves lineStart mid-line for the next row.
	lines := p.file().Lines
	lineIdx := p.scrollLine
	lineStart := p.scrollSub * p.width
	for y := 0; y < p.usable; y++ {
		scr.MoveTo(0, y)
		if lineIdx >= len(lines) {
			scr.WriteString("~")
			continue
		}
		line := lines[lineIdx]
		if len(line)-lineStart > p.width {
			scr.WriteString(line[lineStart : lineStart+p.width])
			lineStart += p.width
		} else {
			scr.WriteString(line[min(lineStart, len(line)):])
			lineIdx++
			lineStart = 0
		}
	}
	scr.WriteString("\r\n: Ctrl-C to quit")

	x, y := p.cursorScreen()
	p.lastX, p.lastY = x, y
	scr.MoveTo(x, y).ShowCursor()
	return scr.Bytes()
}

// updateCursor scrolls the cursor back into view if needed, returning a
// full redraw when the view scrolled, a cursor move when only the cursor
// changed, and nothing when the screen position is unchanged.
func (p *Pager) updateCursor() []byte {
	x, y, scrolled := p.scrollToCursor()
	if scrolled {
		return p.render()
	}
	if x == p.lastX && y == p.lastY {
		return nil
	}
	p.lastX, p.lastY = x, y
	return term.NewScreen().MoveTo(x, y).Bytes()
}

// scrollToCursor adjusts the scroll position one wrap segment at a time
// until the cursor's screen position lies within [0, usable).
func (p *Pager) scrollToCursor() (x, y int, scrolled bool) {
	lines := p.file().Lines
	for {
		x, y = p.cursorScreen()
		switch {
		case y < 0:
			// Scroll up, preferring the sub-line offset.
			if p.scrollSub > 0 {
				p.scrollSub--
			} else {
				p.scrollLine--
			}
		case y >= p.usable:
			// Scroll down by a wrap segment while the top line has
			// one unshown, else advance to the next line.
			if (p.scrollSub+1)*p.width < len(lines[p.scrollLine]) {
				p.scrollSub++
			} else {
				p.scrollSub = 0
				p.scrollLine++
			}
		default:
			return x, y, scrolled
		}
		scrolled = true
	}
}

// cursorScreen maps the file cursor to screen coordinates for the
// current scroll position. A cursor above the window reports (0, -1);
// a cursor below reports a y of usable or more.
func (p *Pager) cursorScreen() (x, y int) {
	lines := p.file().Lines
	if p.cursorY < p.scrollLine ||
		(p.cursorY == p.scrollLine && p.cursorX < p.scrollSub*p.width) {
		return 0, -1
	}

	// Count the screen rows of every full line between the scroll line
	// and the cursor's line. The top line may start above the screen.
	y = -p.scrollSub
	for _, line := range lines[p.scrollLine:p.cursorY] {
		y += screenRows(len(line), p.width)
	}

	// Clamp the sticky column to the line, then spill overflow past the
	// width into additional rows.
	ex := min(p.cursorX, max(len(lines[p.cursorY]), 1)-1)
	y += ex / p.width
	return ex % p.width, y
}

// screenRows is the number of screen rows a file line occupies: one per
// full width, and at least one even when empty.
func screenRows(lineLen, width int) int {
	return max(lineLen-1, 0)/width + 1
}
