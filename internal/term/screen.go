// Package term implements the terminal protocol engine: the escape-code
// emitter and the line-discipline shell that turn per-byte input into
// exact terminal update sequences.
package term

import "fmt"

// Control bytes recognized by the shell.
const (
	ctrlA     = 1   // home
	ctrlC     = 3   // cancel line
	ctrlD     = 4   // end of session
	ctrlE     = 5   // end of line
	backspace = 8   // delete before cursor
	lineFeed  = 10  // submit
	carriage  = 13  // submit
	escByte   = 27  // escape introducer
	space     = 32  // first printable
	del       = 127 // delete before cursor
)

// Interrupt is the byte that cancels a line or quits a running app.
const Interrupt = ctrlC

// CRLF is the line terminator for all terminal output.
var CRLF = []byte{carriage, lineFeed}

// Screen accumulates terminal escape codes and text into one byte
// sequence to send to the client.
type Screen struct {
	buf []byte
}

// NewScreen creates an empty screen builder.
func NewScreen() *Screen {
	return &Screen{}
}

// Clear clears the screen without moving the cursor.
func (s *Screen) Clear() *Screen {
	s.buf = append(s.buf, "\x1b[2J"...)
	return s
}

// MoveTo moves the cursor to (x, y), zero-indexed from the top left.
// The emitted code is 1-indexed per the CSI H convention.
func (s *Screen) MoveTo(x, y int) *Screen {
	s.buf = append(s.buf, fmt.Sprintf("\x1b[%d;%dH", y+1, x+1)...)
	return s
}

// HideCursor hides the cursor.
func (s *Screen) HideCursor() *Screen {
	s.buf = append(s.buf, "\x1b[?25l"...)
	return s
}

// ShowCursor shows the cursor.
func (s *Screen) ShowCursor() *Screen {
	s.buf = append(s.buf, "\x1b[?25h"...)
	return s
}

// Write appends raw bytes.
func (s *Screen) Write(p []byte) *Screen {
	s.buf = append(s.buf, p...)
	return s
}

// WriteString appends raw text.
func (s *Screen) WriteString(text string) *Screen {
	s.buf = append(s.buf, text...)
	return s
}

// Bytes returns the accumulated sequence.
func (s *Screen) Bytes() []byte {
	return s.buf
}
