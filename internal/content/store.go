package content

import (
	"sync"
	"sync/atomic"
)

// Store holds the current content snapshot and fans out reload
// notifications. Readers get whatever snapshot is current at the time of
// the call; replacing the snapshot never mutates one already handed out.
type Store struct {
	snapshot atomic.Pointer[Snapshot]

	mu   sync.Mutex
	subs []chan struct{}
}

// NewStore creates a store holding the given snapshot.
func NewStore(snap *Snapshot) *Store {
	s := &Store{}
	s.snapshot.Store(snap)
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Replace installs a new snapshot and notifies subscribers. Notification
// sends are non-blocking; a subscriber that has not drained its channel
// already has a reload pending.
func (s *Store) Replace(snap *Snapshot) {
	s.snapshot.Store(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe returns a channel that receives after each Replace.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}
