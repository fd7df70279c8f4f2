// Package contact implements the message-thread store behind the
// terminal's msg command: anonymous visitors open threads, the site
// owner replies, and unread-thread caps rate-limit new threads.
package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Store errors surfaced to users as plain text.
var (
	ErrNoSuchThread   = errors.New("no such thread")
	ErrTooLong        = errors.New("message too long")
	ErrTooManyThreads = errors.New("too many open threads, try again later")
	ErrSourceLimit    = errors.New("too many open threads from your address")
)

// ThreadID identifies one message thread. It renders as 64-bit hex.
type ThreadID uint64

// String returns the canonical hex form.
func (id ThreadID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// ParseThreadID parses the hex form produced by String.
func ParseThreadID(s string) (ThreadID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("ill-formed thread ID: %w", err)
	}
	return ThreadID(v), nil
}

// Message is one message on a thread. The JSON form is what the
// website's contact form consumes.
type Message struct {
	Contents string `json:"contents"`

	// Response marks messages sent by the site owner.
	Response bool `json:"response"`

	// Timestamp is seconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// Limits caps message size and open (unread) threads.
type Limits struct {
	// MaxSize is the maximum message length in bytes.
	MaxSize int

	// MaxUnread caps unread threads globally; 0 disables the check.
	MaxUnread int

	// MaxUnreadPerSource caps unread threads per source address; 0
	// disables the check.
	MaxUnreadPerSource int
}

// Store is a sqlite-backed thread store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	limits Limits
}

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id          INTEGER PRIMARY KEY,
	source_ip   TEXT NOT NULL,
	unread      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS messages (
	thread      INTEGER NOT NULL REFERENCES threads(id) ON DELETE CASCADE ON UPDATE CASCADE,
	contents    TEXT NOT NULL,
	response    INTEGER NOT NULL CHECK(response = 0 OR response = 1),
	time        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS message_thread_index ON messages(thread);
CREATE TRIGGER IF NOT EXISTS unread_increment BEFORE INSERT ON messages WHEN (NEW.response = 0) BEGIN
	UPDATE threads SET unread = unread + 1 WHERE id = NEW.thread;
END;
CREATE TRIGGER IF NOT EXISTS unread_reset AFTER INSERT ON messages WHEN (NEW.response = 1) BEGIN
	UPDATE threads SET unread = 0 WHERE id = NEW.thread;
END;
`

// Open opens (creating if needed) the store at path.
func Open(path string, limits Limits) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection sidesteps sqlite writer contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, limits: limits}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Messages returns all messages on a thread, oldest first.
func (s *Store) Messages(ctx context.Context, id ThreadID) ([]Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM threads WHERE id = ?;", int64(id)).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check thread: %w", err)
	}
	if exists == 0 {
		return nil, ErrNoSuchThread
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT contents, response, time FROM messages WHERE thread = ? ORDER BY time ASC;",
		int64(id))
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Contents, &m.Response, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CreateThread opens a new thread from the given source address with an
// initial message, returning the new thread's ID.
func (s *Store) CreateThread(ctx context.Context, source, body string) (ThreadID, error) {
	if len([]rune(body)) > s.limits.MaxSize {
		return 0, ErrTooLong
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkUnread(ctx, tx, source); err != nil {
		return 0, err
	}

	id := ThreadID(rand.Uint64())
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO threads (id, source_ip) VALUES (?, ?);", int64(id), source); err != nil {
		return 0, fmt.Errorf("create thread: %w", err)
	}
	if err := addMessage(ctx, tx, id, body, false); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Send appends a visitor message to an existing thread.
func (s *Store) Send(ctx context.Context, id ThreadID, body string) error {
	return s.append(ctx, id, body, false)
}

// Reply appends an owner response to an existing thread.
func (s *Store) Reply(ctx context.Context, id ThreadID, body string) error {
	return s.append(ctx, id, body, true)
}

func (s *Store) append(ctx context.Context, id ThreadID, body string, response bool) error {
	if len([]rune(body)) > s.limits.MaxSize {
		return ErrTooLong
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM threads WHERE id = ?;", int64(id)).Scan(&exists); err != nil {
		return fmt.Errorf("check thread: %w", err)
	}
	if exists == 0 {
		return ErrNoSuchThread
	}
	if err := addMessage(ctx, tx, id, body, response); err != nil {
		return err
	}
	return tx.Commit()
}

func addMessage(ctx context.Context, tx *sql.Tx, id ThreadID, body string, response bool) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO messages (thread, contents, response, time) VALUES (?, ?, ?, ?);",
		int64(id), body, response, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

// checkUnread enforces the global and per-source unread-thread caps.
func (s *Store) checkUnread(ctx context.Context, tx *sql.Tx, source string) error {
	if s.limits.MaxUnread > 0 {
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM threads WHERE unread > 0;").Scan(&n); err != nil {
			return fmt.Errorf("count unread: %w", err)
		}
		if n >= s.limits.MaxUnread {
			return ErrTooManyThreads
		}
	}
	if s.limits.MaxUnreadPerSource > 0 {
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM threads WHERE unread > 0 AND source_ip = ?;", source).Scan(&n); err != nil {
			return fmt.Errorf("count unread for source: %w", err)
		}
		if n >= s.limits.MaxUnreadPerSource {
			return ErrSourceLimit
		}
	}
	return nil
}
