package fs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/hopebridge/portalauth"
)

func testSession() *portalauth.BackendSession {
	return &portalauth.BackendSession{
		AccessToken:  "jwt-access",
		RefreshToken: "jwt-refresh",
		User: portalauth.BackendUser{
			"email": "ann@example.org",
			"name":  "Ann Lee",
		},
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store, err := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatal(err)
	}

	session := testSession()
	if err := store.Save(session); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, session) {
		t.Errorf("loaded session = %+v, want %+v", loaded, session)
	}
}

func TestSessionStoreLoadEmpty(t *testing.T) {
	store, err := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatal(err)
	}

	session, err := store.Load()
	if err != nil {
		t.Fatalf("loading a missing file should not error: %v", err)
	}
	if session != nil {
		t.Errorf("session = %+v, want nil", session)
	}
}

func TestSessionStoreClear(t *testing.T) {
	store, err := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testSession()); err != nil {
		t.Fatal(err)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if session, _ := store.Load(); session != nil {
		t.Errorf("session survived Clear: %+v", session)
	}

	// Clearing an already-clear store is not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() = %v", err)
	}
}

func TestSessionStoreSaveReplaces(t *testing.T) {
	store, err := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatal(err)
	}

	first := testSession()
	if err := store.Save(first); err != nil {
		t.Fatal(err)
	}
	second := testSession()
	second.AccessToken = "jwt-access-2"
	second.RefreshToken = ""
	if err := store.Save(second); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AccessToken != "jwt-access-2" {
		t.Errorf("AccessToken = %q", loaded.AccessToken)
	}
	if loaded.RefreshToken != "" {
		t.Errorf("RefreshToken = %q, leaked from the replaced session", loaded.RefreshToken)
	}
}

func TestSessionStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewSessionStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(testSession()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file mode = %o, want 0600", perm)
	}
}

func TestPendingStoreTakeConsumes(t *testing.T) {
	store, err := NewPendingStore(filepath.Join(t.TempDir(), "pending.json"))
	if err != nil {
		t.Fatal(err)
	}

	attempt := &portalauth.PendingAttempt{
		Provider:  portalauth.ProviderGoogle,
		State:     "state-123",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Put(attempt); err != nil {
		t.Fatal(err)
	}

	taken, err := store.Take()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(taken, attempt) {
		t.Errorf("taken = %+v, want %+v", taken, attempt)
	}

	again, err := store.Take()
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Errorf("second Take = %+v, want nil; the record must be consumed", again)
	}
}

func TestPendingStorePutReplaces(t *testing.T) {
	store, err := NewPendingStore(filepath.Join(t.TempDir(), "pending.json"))
	if err != nil {
		t.Fatal(err)
	}

	store.Put(&portalauth.PendingAttempt{Provider: portalauth.ProviderGoogle, State: "old"})
	store.Put(&portalauth.PendingAttempt{Provider: portalauth.ProviderFacebook, State: "new"})

	taken, err := store.Take()
	if err != nil {
		t.Fatal(err)
	}
	if taken.Provider != portalauth.ProviderFacebook || taken.State != "new" {
		t.Errorf("taken = %+v, want the latest attempt", taken)
	}
}

func TestPendingStoreCorruptRecordDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	store, err := NewPendingStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Take(); err == nil {
		t.Fatal("expected an error for a corrupt record")
	}

	// The corrupt record must not wedge the store.
	taken, err := store.Take()
	if err != nil || taken != nil {
		t.Errorf("Take after corrupt record = (%+v, %v), want (nil, nil)", taken, err)
	}
}
