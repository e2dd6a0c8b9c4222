// Package grpc propagates the portal's first-party session to gRPC
// backends: outgoing calls carry the current access token as bearer
// metadata, sourced from the SessionStore on every call so token rotation
// is picked up automatically.
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/hopebridge/portalauth"
)

// DefaultAuthorizationKey is the metadata key the token travels under.
const DefaultAuthorizationKey = "authorization"

// SessionCredentials implements credentials.PerRPCCredentials over a
// portalauth.SessionStore. Calls made while signed out go out without auth
// metadata; the receiving service decides whether that is acceptable.
type SessionCredentials struct {
	// Sessions is the authoritative session source. Required.
	Sessions portalauth.SessionStore

	// AllowInsecure permits sending the token over connections without
	// transport security. Only for local development.
	AllowInsecure bool

	// MetadataKey overrides the metadata key. Defaults to "authorization".
	MetadataKey string
}

var _ credentials.PerRPCCredentials = (*SessionCredentials)(nil)

// GetRequestMetadata implements credentials.PerRPCCredentials.
func (c *SessionCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	session, err := c.Sessions.Load()
	if err != nil {
		return nil, err
	}
	if session == nil || session.AccessToken == "" {
		return nil, nil
	}

	key := c.MetadataKey
	if key == "" {
		key = DefaultAuthorizationKey
	}
	return map[string]string{key: "Bearer " + session.AccessToken}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
func (c *SessionCredentials) RequireTransportSecurity() bool {
	return !c.AllowInsecure
}

// WithSession returns a DialOption that attaches the current session to
// every call on the connection.
func WithSession(sessions portalauth.SessionStore) grpc.DialOption {
	return grpc.WithPerRPCCredentials(&SessionCredentials{Sessions: sessions})
}

// WithInsecureSession is WithSession for plaintext local connections.
func WithInsecureSession(sessions portalauth.SessionStore) grpc.DialOption {
	return grpc.WithPerRPCCredentials(&SessionCredentials{Sessions: sessions, AllowInsecure: true})
}
