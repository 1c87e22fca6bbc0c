// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"

	"github.com/authcore/oidcauth/pkg/model"
	"github.com/authcore/oidcauth/pkg/oidcerr"
)

// handleCIBAAuthenticate implements the backchannel-authentication request
// endpoint (spec §4.3): the client submits a login_hint identifying the
// end user to notify, plus the scope/resources it is requesting.
// Resolving login_hint to a subject identity is a host concern this core
// does not model (analogous to SubjectResolver for the browser-facing
// flows); here login_hint is taken as the subject value directly.
func (s *Server) handleCIBAAuthenticate(w http.ResponseWriter, r *http.Request) {
	if err := decodeForm(w, r); err != nil {
		writeProtocolError(w, err)
		return
	}
	form := r.Form
	clientID := form.Get("client_id")
	loginHint := form.Get("login_hint")
	if clientID == "" || loginHint == "" {
		writeProtocolError(w, oidcerr.New("invalid_request", "client_id and login_hint are required", 400))
		return
	}
	c, err := s.clients.GetClient(r.Context(), clientID)
	if err != nil {
		writeProtocolError(w, oidcerr.New("invalid_client", "unknown client", 401))
		return
	}

	scope := splitSpace(form.Get("scope"))
	grant := model.AuthorizedGrant{
		Context: model.AuthorizationContext{ClientID: clientID, Scope: scope, Resources: form["resource"]},
	}
	req, err := s.ciba.Initiate(r.Context(), clientID, grant,
		c.CIBAClientNotificationEndpoint, form.Get("client_notification_token"),
		s.deviceOpts.PollInterval, s.deviceOpts.CodeLifespan)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cibaAuthenticateResponse{
		AuthReqID: req.AuthReqID,
		ExpiresIn: int64(s.deviceOpts.CodeLifespan.Seconds()),
		Interval:  int64(s.deviceOpts.PollInterval.Seconds()),
	})
}

type cibaAuthenticateResponse struct {
	AuthReqID string `json:"auth_req_id"`
	ExpiresIn int64  `json:"expires_in"`
	Interval  int64  `json:"interval"`
}

// cibaVerifyDecision is the end user's approve/deny decision for a pending
// backchannel-authentication request, submitted by the host's own
// resource-owner-facing UI once it resolves. Scope/resources are carried
// here rather than recovered from the original request, since
// model.CIBARequest does not retain them past Initiate (spec §3's record
// shape tracks only the delivery/lifecycle fields).
type cibaVerifyDecision struct {
	AuthReqID string   `json:"auth_req_id"`
	Approved  bool     `json:"approved"`
	ClientID  string   `json:"client_id"`
	Scope     []string `json:"scope,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// handleCIBAVerifyDecision records the resource owner's decision and
// triggers poll/ping/push completion dispatch (spec §4.3).
func (s *Server) handleCIBAVerifyDecision(w http.ResponseWriter, r *http.Request) {
	var decision cibaVerifyDecision
	if !decodeJSON(w, r, &decision) {
		return
	}
	if decision.AuthReqID == "" {
		writeProtocolError(w, oidcerr.New("invalid_request", "auth_req_id is required", 400))
		return
	}

	var grant *model.AuthorizedGrant
	if decision.Approved {
		subject := s.subjects.Resolve(r)
		if subject == "" {
			writeProtocolError(w, oidcerr.New("invalid_request", "an authenticated subject is required to approve a backchannel request", 400))
			return
		}
		sess, err := s.sessionForSubject(r.Context(), subject)
		if err != nil {
			writeProtocolError(w, err)
			return
		}
		grant = &model.AuthorizedGrant{
			SessionID: sess.SessionID,
			Context: model.AuthorizationContext{
				ClientID:  decision.ClientID,
				Scope:     decision.Scope,
				Resources: decision.Resources,
			},
		}
	}

	if err := s.ciba.Complete(r.Context(), decision.AuthReqID, decision.Approved, grant); err != nil {
		writeProtocolError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
