package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hopebridge/portalauth"
)

// PendingStore persists at most one pending redirect attempt across process
// restarts. Take removes the record as it returns it, which is what makes
// redirect recovery a consume-once operation.
type PendingStore struct {
	mu   sync.Mutex
	path string
}

// NewPendingStore creates a pending-attempt store at path. If path is empty
// it defaults to ~/.config/hopebridge/pending-signin.json.
func NewPendingStore(path string) (*PendingStore, error) {
	path, err := defaultPath(path, "pending-signin.json")
	if err != nil {
		return nil, err
	}
	return &PendingStore{path: path}, nil
}

// Put records the attempt, replacing any previous one.
func (s *PendingStore) Put(a *portalauth.PendingAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path, a)
}

// Take returns and removes the pending attempt; (nil, nil) when none.
func (s *PendingStore) Take() (*portalauth.PendingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var attempt portalauth.PendingAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		// A corrupt record cannot be resumed; drop it.
		os.Remove(s.path)
		return nil, fmt.Errorf("failed to parse pending attempt: %w", err)
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return &attempt, nil
}

// Clear drops any pending attempt.
func (s *PendingStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
