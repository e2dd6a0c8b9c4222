package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hopebridge/portalauth"
)

type staticSessionStore struct {
	session *portalauth.BackendSession
}

func (s *staticSessionStore) Save(sess *portalauth.BackendSession) error {
	s.session = sess
	return nil
}

func (s *staticSessionStore) Load() (*portalauth.BackendSession, error) { return s.session, nil }

func (s *staticSessionStore) Clear() error {
	s.session = nil
	return nil
}

func TestSessionTransportStampsBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	store := &staticSessionStore{session: &portalauth.BackendSession{AccessToken: "jwt-access"}}
	hc := NewSessionHTTPClient(store)

	resp, err := hc.Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if gotAuth != "Bearer jwt-access" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	store.Clear()
	resp, err = hc.Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if gotAuth != "" {
		t.Errorf("Authorization = %q after sign-out, want empty", gotAuth)
	}
}

func TestSessionTransportDoesNotMutateRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	store := &staticSessionStore{session: &portalauth.BackendSession{AccessToken: "jwt-access"}}
	hc := NewSessionHTTPClient(store)

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := hc.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if req.Header.Get("Authorization") != "" {
		t.Errorf("caller's request was mutated: %q", req.Header.Get("Authorization"))
	}
}
