// Package fs provides file-backed implementations of the portalauth stores,
// suitable for the portal host process and for tests.
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hopebridge/portalauth"
)

// SessionStore persists the current first-party session as one JSON file.
// Save writes to a temp file and renames it into place, so concurrent
// readers see either the old session or the new one, never a mix.
type SessionStore struct {
	mu   sync.RWMutex
	path string
}

// NewSessionStore creates a session store at path. If path is empty it
// defaults to ~/.config/hopebridge/session.json.
func NewSessionStore(path string) (*SessionStore, error) {
	path, err := defaultPath(path, "session.json")
	if err != nil {
		return nil, err
	}
	return &SessionStore{path: path}, nil
}

// Save atomically replaces the whole session: tokens and cached user
// profile together.
func (s *SessionStore) Save(session *portalauth.BackendSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path, session)
}

// Load returns the stored session, or (nil, nil) when signed out.
func (s *SessionStore) Load() (*portalauth.BackendSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var session portalauth.BackendSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}

// Clear removes the session; a subsequent Load returns (nil, nil).
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// defaultPath resolves an empty path to ~/.config/hopebridge/<name> and
// ensures the parent directory exists.
func defaultPath(path, name string) (string, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		path = filepath.Join(configDir, "hopebridge", name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}
	return path, nil
}

// writeJSON writes v to path via a temp file + rename.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
