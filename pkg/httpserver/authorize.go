// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"

	"github.com/authcore/oidcauth/pkg/authorize"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/session"
	"github.com/authcore/oidcauth/pkg/wire"
)

// interactionResponse is the JSON shape returned for every outcome of
// authorize.Pipeline.Run that requires the end user to do something this
// core does not render itself (sign in, pick an account, grant consent):
// a host's own login/consent UI reads it to decide what to show next,
// mirroring the "requires_consent" prompt-description idiom rather than a
// bare redirect, since there is nowhere to redirect to for these kinds.
type interactionResponse struct {
	Interaction string              `json:"interaction"`
	Sessions    []sessionSummary    `json:"sessions,omitempty"`
	Pending     *pendingConsentView `json:"pending,omitempty"`
}

type sessionSummary struct {
	SessionID string `json:"session_id"`
	Subject   string `json:"subject"`
}

type pendingConsentView struct {
	Scopes    []string `json:"scopes,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// handleAuthorize implements the authorization endpoint (spec §4.1) for
// both GET (query string) and POST (form body) requests.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var values map[string][]string
	if r.Method == http.MethodPost {
		if err := decodeForm(w, r); err != nil {
			writeProtocolError(w, err)
			return
		}
		values = r.Form
	} else {
		values = r.URL.Query()
	}

	raw, err := wire.DecodeAuthorizationRequest(values)
	if err != nil {
		// request/request_uri exclusivity failure: no trusted redirect_uri
		// has been established yet, so render directly.
		writeProtocolError(w, err)
		return
	}
	raw.Subject = s.subjects.Resolve(r)

	req, err := s.validator.Authorization(ctx, raw)
	if err != nil {
		// Every validator failure is rendered directly, never redirected:
		// distinguishing which check failed (and therefore whether
		// redirect_uri can already be trusted) isn't possible without more
		// bookkeeping than the validator currently returns, so the
		// conservative reading of OAuth 2.0 §4.1.2.1 applies uniformly.
		writeProtocolError(w, err)
		return
	}

	mode := values.Get("response_mode")
	if mode == "" {
		mode = wire.DefaultResponseMode(req.ResponseTypes)
	}

	result, err := s.authorizeP.Run(ctx, *req)
	if err != nil {
		writeProtocolError(w, err)
		return
	}

	switch result.Kind {
	case authorize.KindLoginRequired:
		writeJSON(w, http.StatusOK, interactionResponse{Interaction: "login_required"})
	case authorize.KindAccountSelectionRequired:
		writeJSON(w, http.StatusOK, interactionResponse{
			Interaction: "account_selection_required",
			Sessions:    summarizeSessions(result.Sessions),
		})
	case authorize.KindConsentRequired:
		writeJSON(w, http.StatusOK, interactionResponse{
			Interaction: "consent_required",
			Pending: &pendingConsentView{
				Scopes:    result.Pending.PendingScopes,
				Resources: result.Pending.PendingResources,
			},
		})
	case authorize.KindAuthorizationError:
		redirectOrRender(w, r, req.RedirectURI, mode, func() (*wire.AuthorizationRedirect, error) {
			return wire.EncodeAuthorizationError(req.RedirectURI, result.Err, req.State, mode)
		})
	case authorize.KindSuccess:
		redirectOrRender(w, r, req.RedirectURI, mode, func() (*wire.AuthorizationRedirect, error) {
			return wire.EncodeAuthorizationSuccess(req.RedirectURI, result, req.State, mode)
		})
	default:
		writeProtocolError(w, oidcerr.New("server_error", "unrecognized authorization result", 500))
	}
}

// redirectOrRender issues the assembled redirect: a 302 for query/fragment
// mode, or an auto-submitting HTML form for form_post mode (OAuth 2.0 Form
// Post Response Mode), per spec §4.1's wire-format note.
func redirectOrRender(w http.ResponseWriter, r *http.Request, redirectURI, mode string, assemble func() (*wire.AuthorizationRedirect, error)) {
	redirect, err := assemble()
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	if redirect.Mode == wire.ResponseModeFormPost {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(redirect.Body))
		return
	}
	http.Redirect(w, r, redirect.URL, http.StatusFound)
}

func summarizeSessions(sessions []*session.AuthSession) []sessionSummary {
	out := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionSummary{SessionID: s.SessionID, Subject: s.Subject})
	}
	return out
}
