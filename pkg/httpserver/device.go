// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"
	"strings"

	"github.com/authcore/oidcauth/pkg/model"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/wire"
)

func splitSpace(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// remoteIP extracts the caller's address for the per-IP rate limiter (spec
// §4.4); this core trusts r.RemoteAddr directly and leaves any reverse-
// proxy header handling (X-Forwarded-For) to the host, since that trust
// decision depends on deployment topology this package cannot see.
func remoteIP(r *http.Request) string { return r.RemoteAddr }

// handleDeviceAuthorization implements RFC 8628's device_authorization
// endpoint (spec §4.4).
func (s *Server) handleDeviceAuthorization(w http.ResponseWriter, r *http.Request) {
	if err := decodeForm(w, r); err != nil {
		writeProtocolError(w, err)
		return
	}
	form := r.Form
	clientID := form.Get("client_id")
	if clientID == "" {
		writeProtocolError(w, oidcerr.New("invalid_request", "client_id is required", 400))
		return
	}
	if _, err := s.clients.GetClient(r.Context(), clientID); err != nil {
		writeProtocolError(w, oidcerr.New("invalid_client", "unknown client", 401))
		return
	}

	scope := splitSpace(form.Get("scope"))
	req, err := s.device.Initiate(r.Context(), clientID, scope, form["resource"], s.deviceOpts.PollInterval, s.deviceOpts.CodeLifespan)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	resp := wire.EncodeDeviceAuthorizationResponse(req, s.deviceOpts.VerificationURI, int64(s.deviceOpts.CodeLifespan.Seconds()))
	body, err := resp.EncodeJSON()
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// deviceVerifyView is what the end-user verification page (rendered by a
// host, not this core) needs to show: the pending request's client and
// scope, resolved from the user_code query parameter.
type deviceVerifyView struct {
	ClientID  string   `json:"client_id"`
	Scope     []string `json:"scope,omitempty"`
	Resources []string `json:"resources,omitempty"`
}

// handleDeviceVerifyPrompt resolves a user_code to the pending request's
// details, applying the rate limiters spec §4.4 calls for before the
// lookup itself (testable property 9).
func (s *Server) handleDeviceVerifyPrompt(w http.ResponseWriter, r *http.Request) {
	userCode := r.URL.Query().Get("user_code")
	if userCode == "" {
		writeProtocolError(w, oidcerr.New("invalid_request", "user_code is required", 400))
		return
	}
	ip := remoteIP(r)
	if err := s.device.CheckAsync(r.Context(), userCode, ip); err != nil {
		writeProtocolError(w, err)
		return
	}
	req, err := s.device.LoadByUserCode(r.Context(), userCode)
	if err != nil {
		_ = s.device.RecordFailure(r.Context(), userCode, ip)
		writeProtocolError(w, oidcerr.New("invalid_request", "unknown or expired user_code", 400))
		return
	}
	writeJSON(w, http.StatusOK, deviceVerifyView{ClientID: req.ClientID, Scope: req.Scope, Resources: req.Resources})
}

// deviceVerifyDecision is the end user's approve/deny decision, submitted
// by the host's verification-page UI once the resource-owner interaction
// this core does not render has resolved.
type deviceVerifyDecision struct {
	UserCode string `json:"user_code"`
	Approved bool   `json:"approved"`
}

// handleDeviceVerifyDecision records the user's approve/deny decision
// against the pending request (spec §4.4). The caller's own login surface
// is responsible for having authenticated the resource owner before
// calling this endpoint; SubjectResolver supplies the subject whose
// existing session the resulting grant is anchored to.
func (s *Server) handleDeviceVerifyDecision(w http.ResponseWriter, r *http.Request) {
	var decision deviceVerifyDecision
	if !decodeJSON(w, r, &decision) {
		return
	}
	ip := remoteIP(r)
	if err := s.device.CheckAsync(r.Context(), decision.UserCode, ip); err != nil {
		writeProtocolError(w, err)
		return
	}

	req, err := s.device.LoadByUserCode(r.Context(), decision.UserCode)
	if err != nil {
		_ = s.device.RecordFailure(r.Context(), decision.UserCode, ip)
		writeProtocolError(w, oidcerr.New("invalid_request", "unknown or expired user_code", 400))
		return
	}

	var grant *model.AuthorizedGrant
	if decision.Approved {
		subject := s.subjects.Resolve(r)
		if subject == "" {
			writeProtocolError(w, oidcerr.New("invalid_request", "an authenticated subject is required to approve a device request", 400))
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
				ClientID:  req.ClientID,
				Scope:     req.Scope,
				Resources: req.Resources,
			},
		}
	}

	if err := s.device.Complete(r.Context(), decision.UserCode, decision.Approved, grant); err != nil {
		writeProtocolError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
