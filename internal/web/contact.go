package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/dshills/retroweb/internal/contact"
)

// threadIDError answers requests whose thread path segment does not
// parse as a thread ID.
const threadIDError = "Error: ill-formed thread ID (should be a 64-bit hexadecimal integer)"

// maxBodyBytes bounds contact request bodies. The store enforces its
// own message-size limit below this.
const maxBodyBytes = 1 << 20

// handleSend opens a new thread with the request body as its first
// message and answers with the thread's hex ID as plain text.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	id, err := s.threads.CreateThread(r.Context(), requestHost(r), body)
	if err != nil {
		s.contactError(w, err, "Error: %v")
		return
	}
	fmt.Fprint(w, id.String())
}

// handleReply appends a visitor message to an existing thread, answering
// an empty 200 on success.
func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	id, ok := s.threadID(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if err := s.threads.Send(r.Context(), id, body); err != nil {
		s.contactError(w, err, "Error sending message: %v")
	}
}

// handleLoad answers a thread's messages as JSON, oldest first.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := s.threadID(w, r)
	if !ok {
		return
	}
	messages, err := s.threads.Messages(r.Context(), id)
	if err != nil {
		s.contactError(w, err, "Error: %v")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(messages); err != nil {
		s.log.Error("encode messages", zap.Error(err))
	}
}

func (s *Server) threadID(w http.ResponseWriter, r *http.Request) (contact.ThreadID, bool) {
	id, err := contact.ParseThreadID(r.PathValue("thread"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, threadIDError)
		return 0, false
	}
	return id, true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		fmt.Fprintf(w, "Error: %v", contact.ErrTooLong)
		return "", false
	}
	return string(body), true
}

// contactError maps store errors onto status codes and writes the error
// as plain text in the given format.
func (s *Server) contactError(w http.ResponseWriter, err error, format string) {
	status := contactStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("contact store", zap.Error(err))
	}
	w.WriteHeader(status)
	fmt.Fprintf(w, format, err)
}

func contactStatus(err error) int {
	switch {
	case errors.Is(err, contact.ErrTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, contact.ErrSourceLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, contact.ErrTooManyThreads):
		return http.StatusServiceUnavailable
	case errors.Is(err, contact.ErrNoSuchThread):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// requestHost is the client address with any port stripped, so the
// per-source thread cap keys on the address alone.
func requestHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
