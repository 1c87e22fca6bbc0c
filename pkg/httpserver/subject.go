// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"context"
	"net/http"

	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/session"
)

// SubjectResolver answers "which end-user subject is this browser request
// already signed in as", the fact authorize.Request.Subject needs to
// enumerate sessions (spec §4.1 step 1) but that neither the authorization
// nor token pipeline models: a subject only becomes meaningful once some
// outer login surface has established it. SubjectResolver is this
// package's narrow seam for that surface, the same way identity.
// UserAuthenticator is the password grant's.
//
// An empty return value means no subject is established; the pipeline
// then enumerates zero sessions and falls through to KindLoginRequired.
type SubjectResolver interface {
	Resolve(r *http.Request) string
}

// CookieSubjectResolver is the default SubjectResolver: the subject is
// whatever value a named cookie carries, unvalidated beyond that. A host
// that authenticates end users some other way (a reverse-proxy header, a
// session-store lookup) supplies its own SubjectResolver instead.
type CookieSubjectResolver struct {
	CookieName string
}

// NewCookieSubjectResolver builds a CookieSubjectResolver reading cookieName.
func NewCookieSubjectResolver(cookieName string) *CookieSubjectResolver {
	return &CookieSubjectResolver{CookieName: cookieName}
}

// Resolve implements SubjectResolver.
func (c *CookieSubjectResolver) Resolve(r *http.Request) string {
	cookie, err := r.Cookie(c.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

var _ SubjectResolver = (*CookieSubjectResolver)(nil)

// sessionForSubject resolves the session an out-of-band approval (device
// verification, CIBA) should attach its grant to: the first of subject's
// already-established sessions. Creating a session is outside this core's
// scope (spec §3: sessions are "created on interactive login" by whatever
// login surface the host provides) so an approval with no existing session
// is rejected rather than silently fabricating one.
func (s *Server) sessionForSubject(ctx context.Context, subject string) (*session.AuthSession, error) {
	sessions, err := s.sessions.ListBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, oidcerr.New("invalid_request", "subject has no active session to anchor this approval to", 400)
	}
	return sessions[0], nil
}
