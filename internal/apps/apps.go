// Package apps provides full-screen terminal applications that a session
// can run in place of its shell.
package apps

// App is a running full-screen application. The session forwards raw
// input bytes to the active app and relays its output verbatim; the
// interrupt byte never reaches the app, it tears the app down instead.
type App interface {
	// Data processes one byte of user input, returning the bytes to
	// send to the client.
	Data(b byte) []byte

	// Resize handles a client window-size change, returning the bytes
	// to send to the client.
	Resize(width, height int) []byte
}
