package gopher

import (
	"fmt"
	"io"
)

// Menu item types from RFC 1436 (plus the common 'h' extension).
type ItemType byte

const (
	File      ItemType = '0'
	Directory ItemType = '1'
	HTML      ItemType = 'h'
	Image     ItemType = 'I'
	infoType  ItemType = 'i'
)

// Menu writes gophermap lines: tab-separated fields terminated by CRLF,
// with the menu itself terminated by a lone dot. Write errors latch;
// End reports the first one.
type Menu struct {
	w    io.Writer
	host string
	port int
	err  error
}

// NewMenu creates a menu writer whose entries point at host:port.
func NewMenu(w io.Writer, host string, port int) *Menu {
	return &Menu{w: w, host: host, port: port}
}

// Info writes one non-selectable text line.
func (m *Menu) Info(text string) {
	if m.err != nil {
		return
	}
	_, m.err = fmt.Fprintf(m.w, "%c%s\tfake\t(NULL)\t0\r\n", infoType, text)
}

// Entry writes one selectable menu entry.
func (m *Menu) Entry(t ItemType, display, selector string) {
	if m.err != nil {
		return
	}
	_, m.err = fmt.Fprintf(m.w, "%c%s\t%s\t%s\t%d\r\n", t, display, selector, m.host, m.port)
}

// End terminates the menu, returning the first write error.
func (m *Menu) End() error {
	if m.err != nil {
		return m.err
	}
	_, m.err = io.WriteString(m.w, ".\r\n")
	return m.err
}
