// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package oidctest holds hand-rolled fakes for the external collaborators
// of spec §6, shared across the pipeline packages' unit tests, rather
// than a generated-mock library.
package oidctest

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/go-jose/go-jose/v4"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/consent"
	"github.com/authcore/oidcauth/pkg/identity"
	"github.com/authcore/oidcauth/pkg/mint"
	"github.com/authcore/oidcauth/pkg/session"
)

// ErrNotFound is returned by fakes that model a missing lookup, so test
// callers can assert against a single sentinel regardless of which fake
// collaborator produced it.
var ErrNotFound = errors.New("oidctest: not found")

// ClientStore is a fake client.ClientInfoProvider backed by a map.
type ClientStore struct {
	Clients map[string]*client.ClientInfo
	Err     error // when set, GetClient always returns this error
}

// NewClientStore builds a ClientStore seeded with clients.
func NewClientStore(clients ...*client.ClientInfo) *ClientStore {
	s := &ClientStore{Clients: make(map[string]*client.ClientInfo, len(clients))}
	for _, c := range clients {
		s.Clients[c.ID] = c
	}
	return s
}

// GetClient implements client.ClientInfoProvider.
func (s *ClientStore) GetClient(_ context.Context, clientID string) (*client.ClientInfo, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	c, ok := s.Clients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

var _ client.ClientInfoProvider = (*ClientStore)(nil)

// ConsentProvider is a fake consent.Provider returning a canned decision,
// capturing the last request it was asked to decide.
type ConsentProvider struct {
	Decision   *consent.Decision
	Err        error
	LastReq    consent.Request
	CallCount  int
}

// AllGranted builds a ConsentProvider that grants everything requested.
func AllGranted() *ConsentProvider {
	return &ConsentProvider{Decision: nil} // nil signals "echo request as granted"; see Decide
}

// Decide implements consent.Provider.
func (c *ConsentProvider) Decide(_ context.Context, req consent.Request, _ *session.AuthSession) (*consent.Decision, error) {
	c.CallCount++
	c.LastReq = req
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Decision != nil {
		return c.Decision, nil
	}
	return &consent.Decision{GrantedScopes: req.RequestedScopes, GrantedResources: req.RequestedResources}, nil
}

var _ consent.Provider = (*ConsentProvider)(nil)

// UserAuthenticator is a fake password-grant authenticator (spec §6).
type UserAuthenticator struct {
	Users map[string]struct {
		Password string
		Session  *session.AuthSession
	}
}

// NewUserAuthenticator builds an empty UserAuthenticator; use AddUser to
// register credentials.
func NewUserAuthenticator() *UserAuthenticator {
	return &UserAuthenticator{Users: make(map[string]struct {
		Password string
		Session  *session.AuthSession
	})}
}

// AddUser registers a username/password pair and the session to return on
// successful authentication.
func (a *UserAuthenticator) AddUser(username, password string, sess *session.AuthSession) {
	a.Users[username] = struct {
		Password string
		Session  *session.AuthSession
	}{Password: password, Session: sess}
}

// Authenticate implements the password-grant UserAuthenticator collaborator
// of spec §6: "(username,password)->AuthSession?".
func (a *UserAuthenticator) Authenticate(_ context.Context, username, password string) (*session.AuthSession, error) {
	u, ok := a.Users[username]
	if !ok || u.Password != password {
		return nil, ErrNotFound
	}
	return u.Session, nil
}

var _ identity.UserAuthenticator = (*UserAuthenticator)(nil)

// UserInfoProvider is a fake UserInfoProvider (spec §6): "(subject,
// claim_names)->claim_map?".
type UserInfoProvider struct {
	BySubject map[string]map[string]any // subject -> claim name -> value
}

// NewUserInfoProvider builds an empty UserInfoProvider.
func NewUserInfoProvider() *UserInfoProvider {
	return &UserInfoProvider{BySubject: make(map[string]map[string]any)}
}

// SetClaims registers the full claim set available for subject.
func (p *UserInfoProvider) SetClaims(subject string, claims map[string]any) {
	p.BySubject[subject] = claims
}

// Claims implements UserInfoProvider: returns the subset of the
// registered claims named by claimNames.
func (p *UserInfoProvider) Claims(_ context.Context, subject string, claimNames []string) (map[string]any, error) {
	all, ok := p.BySubject[subject]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[string]any, len(claimNames))
	for _, name := range claimNames {
		if v, ok := all[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

var _ identity.UserInfoProvider = (*UserInfoProvider)(nil)

// NewTestSigner builds a real mint.JoseSigner over a freshly generated
// 2048-bit RSA key, for pipeline tests that need genuine sign/verify
// round trips rather than a mocked signer.
func NewTestSigner(t *testing.T) *mint.JoseSigner {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("oidctest: generating RSA key: %v", err)
	}
	return mint.NewJoseSigner(jose.RS256, "test-key-1", key, &key.PublicKey)
}
