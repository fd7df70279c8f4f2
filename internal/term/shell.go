package term

import "strings"

// Arrow-key escape sequences (2-byte CSI). Only these are recognized; the
// accumulator is fixed at 3 bytes, so longer parameterized sequences are
// not understood.
const (
	csiUp    = 'A'
	csiDown  = 'B'
	csiRight = 'C'
	csiLeft  = 'D'
)

// Shell is the per-session line discipline. It consumes raw input one
// byte at a time and produces the exact echo bytes that keep the remote
// terminal's visible line in sync, plus a completed command on submit.
//
// History is append-only. Browsing with up/down edits lazily-materialized
// working copies, so editing an old line never mutates stored history;
// the copies are discarded when a line is submitted.
type Shell struct {
	// cursor is the offset into the current line, in [0, len(line)].
	cursor int

	// history holds submitted commands, oldest first.
	history []string

	// working holds editable copies for history browsing. Index 0 is
	// the newest (in-progress) line; index d is the d-th previous
	// command, copied from history on first visit.
	working []string

	// depth is the current browse position in working.
	depth int

	// escape accumulates a partial escape sequence (0-3 bytes).
	escape []byte
}

// NewShell creates an empty shell.
func NewShell() *Shell {
	return &Shell{working: []string{""}}
}

// Process consumes one input byte. It returns the bytes to echo to the
// client and, when a line was submitted, the completed command. A
// submitted empty command means "reprint the prompt, dispatch nothing".
func (sh *Shell) Process(b byte) (out []byte, command string, submitted bool) {
	if len(sh.escape) > 0 {
		return sh.processEscape(b), "", false
	}

	sh.syncLine()
	line := sh.working[sh.depth]

	switch {
	case b == carriage || b == lineFeed:
		sh.history = append(sh.history, line)
		sh.working = []string{""}
		sh.depth = 0
		sh.cursor = 0
		return CRLF, line, true

	case b == backspace || b == del:
		if sh.cursor == 0 {
			return nil, "", false
		}
		line = line[:sh.cursor-1] + line[sh.cursor:]
		sh.working[sh.depth] = line
		sh.cursor--
		if sh.cursor == len(line) {
			// Deleted at end of line: back up, blank the cell, back up.
			return []byte{backspace, space, backspace}, "", false
		}
		// Deleted mid-line: back up, rewrite the shifted tail plus one
		// blank for the vacated cell, then return to the cursor.
		out = append(out, backspace)
		out = append(out, line[sh.cursor:]...)
		out = append(out, space)
		out = append(out, repeat(backspace, len(line)-sh.cursor+1)...)
		return out, "", false

	case b == ctrlC:
		sh.working = []string{""}
		sh.depth = 0
		sh.cursor = 0
		return CRLF, "", true

	case b == ctrlD:
		return nil, "exit", true

	case b == ctrlA:
		out = repeat(backspace, sh.cursor)
		sh.cursor = 0
		return out, "", false

	case b == ctrlE:
		out = []byte(strings.Repeat("\x1b[C", len(line)-sh.cursor))
		sh.cursor = len(line)
		return out, "", false

	case b == escByte:
		sh.escape = append(sh.escape[:0], escByte)
		return nil, "", false

	case b >= space:
		line = line[:sh.cursor] + string(b) + line[sh.cursor:]
		sh.working[sh.depth] = line
		sh.cursor++
		if sh.cursor == len(line) {
			// Appended at end: echo just the character.
			return []byte{b}, "", false
		}
		// Inserted mid-line: echo the character, the shifted tail, and
		// cursor-backs to the insertion point.
		out = append(out, b)
		out = append(out, line[sh.cursor:]...)
		out = append(out, repeat(backspace, len(line)-sh.cursor)...)
		return out, "", false
	}

	return nil, "", false
}

// CursorOffset returns the cursor position within the current line.
func (sh *Shell) CursorOffset() int {
	return sh.cursor
}

// Line returns the current editable line.
func (sh *Shell) Line() string {
	sh.syncLine()
	return sh.working[sh.depth]
}

// processEscape consumes one byte of a pending escape sequence,
// dispatching once three bytes have accumulated.
func (sh *Shell) processEscape(b byte) []byte {
	sh.escape = append(sh.escape, b)
	if len(sh.escape) < 3 {
		return nil
	}

	sh.syncLine()
	line := sh.working[sh.depth]
	seq := sh.escape
	sh.escape = nil

	if seq[1] != '[' {
		return nil
	}
	switch seq[2] {
	case csiLeft:
		if sh.cursor > 0 {
			sh.cursor--
			return []byte{escByte, '[', csiLeft}
		}

	case csiRight:
		if sh.cursor < len(line) {
			sh.cursor++
			return []byte{escByte, '[', csiRight}
		}

	case csiUp, csiDown:
		if seq[2] == csiUp {
			// Saturates at the oldest entry via syncLine's clamp.
			sh.depth++
		} else {
			if sh.depth == 0 {
				return nil
			}
			sh.depth--
		}

		// Wipe the old line: back to column start, blank it, back again.
		out := repeat(backspace, sh.cursor)
		out = append(out, repeat(space, len(line))...)
		out = append(out, repeat(backspace, len(line))...)

		// Paint the newly selected line, cursor at its end.
		sh.syncLine()
		next := sh.working[sh.depth]
		sh.cursor = len(next)
		return append(out, next...)
	}
	return nil
}

// syncLine clamps the browse depth to stored history and materializes
// working copies up to that depth.
func (sh *Shell) syncLine() {
	if sh.depth > len(sh.history) {
		sh.depth = len(sh.history)
	}
	for len(sh.working) <= sh.depth {
		sh.working = append(sh.working, sh.history[len(sh.history)-len(sh.working)])
	}
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
