// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"

	"github.com/authcore/oidcauth/pkg/logger"
	"github.com/authcore/oidcauth/pkg/logout"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/session"
)

// handleLogout implements RP-initiated logout (spec §4.5): destroys the
// caller's session, dispatches back-channel logout tokens to every
// affected client (best-effort, one failure does not block the rest),
// then renders the front-channel iframe page for whichever clients
// require it.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	subject := s.subjects.Resolve(r)
	if subject == "" {
		writeProtocolError(w, oidcerr.New("invalid_request", "no active session to log out", 400))
		return
	}

	sess, err := s.resolveLogoutSession(r, subject)
	if err != nil {
		writeProtocolError(w, err)
		return
	}

	fc := logout.NewFrontChannelContext(s.issuer, sess.SessionID)
	for _, clientID := range sess.AffectedClientIDs {
		c, err := s.clients.GetClient(r.Context(), clientID)
		if err != nil {
			continue
		}
		if c.BackChannelLogoutURI != "" {
			if err := s.backChan.Notify(r.Context(), c, sess); err != nil {
				logger.Warnw("back-channel logout delivery failed", "clientID", clientID, "err", err)
			}
		}
		if err := fc.Append(c); err != nil {
			logger.Warnw("front-channel logout frame skipped", "clientID", clientID, "err", err)
		}
	}

	if err := s.sessions.Delete(r.Context(), sess.SessionID); err != nil {
		writeProtocolError(w, err)
		return
	}

	page, err := logout.Render(fc)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	if page.ContentSecurity != "" {
		w.Header().Set("Content-Security-Policy", page.ContentSecurity)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page.HTML))
}

// resolveLogoutSession picks the session a logout request targets: the
// one named by an explicit ?sid= query parameter (only if it belongs to
// subject), or otherwise the first session the session store lists for
// subject.
func (s *Server) resolveLogoutSession(r *http.Request, subject string) (*session.AuthSession, error) {
	if sid := r.URL.Query().Get("sid"); sid != "" {
		sess, err := s.sessions.Get(r.Context(), sid)
		if err != nil || sess.Subject != subject {
			return nil, oidcerr.New("invalid_request", "unknown session", 400)
		}
		return sess, nil
	}
	return s.sessionForSubject(r.Context(), subject)
}
