package grpc

import (
	"context"
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

func TestGetRequestMetadata(t *testing.T) {
	store := &staticSessionStore{session: &portalauth.BackendSession{AccessToken: "jwt-access"}}
	creds := &SessionCredentials{Sessions: store}

	md, err := creds.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if md["authorization"] != "Bearer jwt-access" {
		t.Errorf("metadata = %+v", md)
	}

	store.Clear()
	md, err = creds.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if md != nil {
		t.Errorf("metadata = %+v while signed out, want nil", md)
	}
}

func TestGetRequestMetadataCustomKey(t *testing.T) {
	store := &staticSessionStore{session: &portalauth.BackendSession{AccessToken: "jwt-access"}}
	creds := &SessionCredentials{Sessions: store, MetadataKey: "x-portal-token"}

	md, err := creds.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if md["x-portal-token"] != "Bearer jwt-access" {
		t.Errorf("metadata = %+v", md)
	}
}

func TestRequireTransportSecurity(t *testing.T) {
	if !(&SessionCredentials{}).RequireTransportSecurity() {
		t.Error("transport security must be required by default")
	}
	if (&SessionCredentials{AllowInsecure: true}).RequireTransportSecurity() {
		t.Error("AllowInsecure should disable the requirement")
	}
}
