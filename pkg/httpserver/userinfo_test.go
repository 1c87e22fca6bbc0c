// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// issueAccessTokenFor mints an access token whose sub claim is subject, via
// the password grant, so the userinfo tests have a bearer token bound to a
// real end user rather than client_credentials' client-as-subject token.
func issueAccessTokenFor(t *testing.T, h *testHarness, subject, scope string) string {
	t.Helper()
	sess := h.establishSession(subject)
	h.auth.AddUser(subject, "hunter2", sess)

	rec := postForm(t, h, h.server.handleToken, url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web-client"},
		"client_secret": {"super-secret"},
		"username":      {subject},
		"password":      {"hunter2"},
		"scope":         {scope},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["access_token"].(string)
}

func TestHandleUserInfoReturnsClaimsForGrantedScope(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	h.userinfo.SetClaims("gina", map[string]any{
		"name":  "Gina Example",
		"email": "gina@example.test",
	})
	token := issueAccessTokenFor(t, h, "gina", "profile email")

	req := httptest.NewRequest(http.MethodGet, "/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.server.handleUserInfo(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "gina", body["sub"])
	require.Equal(t, "Gina Example", body["name"])
	require.Equal(t, "gina@example.test", body["email"])
}

func TestHandleUserInfoRequiresBearerToken(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/userinfo", nil)
	rec := httptest.NewRecorder()
	h.server.handleUserInfo(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleUserInfoRejectsRevokedToken(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	token := issueAccessTokenFor(t, h, "gina", "profile")

	revokeRec := postForm(t, h, h.server.handleRevoke, url.Values{"token": {token}})
	require.Equal(t, http.StatusOK, revokeRec.Code)

	req := httptest.NewRequest(http.MethodGet, "/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.server.handleUserInfo(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
