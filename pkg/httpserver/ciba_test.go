// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCIBAFlow(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	h.establishSession("erin")

	initRec := postForm(t, h, h.server.handleCIBAAuthenticate, url.Values{
		"client_id":  {"web-client"},
		"login_hint": {"erin"},
		"scope":      {"openid"},
	})
	require.Equal(t, http.StatusOK, initRec.Code)
	var initResp map[string]any
	require.NoError(t, json.Unmarshal(initRec.Body.Bytes(), &initResp))
	authReqID, _ := initResp["auth_req_id"].(string)
	require.NotEmpty(t, authReqID)

	decisionRec := postJSON(t, authedRequestHandler(h.server.handleCIBAVerifyDecision, "erin"), cibaVerifyDecision{
		AuthReqID: authReqID,
		Approved:  true,
		ClientID:  "web-client",
		Scope:     []string{"openid"},
	})
	require.Equal(t, http.StatusOK, decisionRec.Code)

	tokenRec := postForm(t, h, h.server.handleToken, url.Values{
		"grant_type":  {"urn:openid:params:grant-type:ciba"},
		"auth_req_id": {authReqID},
	})
	require.Equal(t, http.StatusOK, tokenRec.Code)
	var tokenResp map[string]any
	require.NoError(t, json.Unmarshal(tokenRec.Body.Bytes(), &tokenResp))
	require.NotEmpty(t, tokenResp["access_token"])
}

func TestCIBAAuthenticateRequiresLoginHint(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	rec := postForm(t, h, h.server.handleCIBAAuthenticate, url.Values{"client_id": {"web-client"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCIBAVerifyDecisionDenied(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	initRec := postForm(t, h, h.server.handleCIBAAuthenticate, url.Values{
		"client_id":  {"web-client"},
		"login_hint": {"erin"},
	})
	var initResp map[string]any
	require.NoError(t, json.Unmarshal(initRec.Body.Bytes(), &initResp))
	authReqID := initResp["auth_req_id"].(string)

	decisionRec := postJSON(t, h.server.handleCIBAVerifyDecision, cibaVerifyDecision{
		AuthReqID: authReqID,
		Approved:  false,
	})
	require.Equal(t, http.StatusOK, decisionRec.Code)

	tokenRec := postForm(t, h, h.server.handleToken, url.Values{
		"grant_type":  {"urn:openid:params:grant-type:ciba"},
		"auth_req_id": {authReqID},
	})
	require.Equal(t, http.StatusForbidden, tokenRec.Code)
}
