// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func postForm(t *testing.T, h *testHarness, handler func(http.ResponseWriter, *http.Request), form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleTokenClientCredentials(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	rec := postForm(t, h, h.server.handleToken, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"web-client"},
		"client_secret": {"super-secret"},
		"scope":         {"profile"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Bearer", body["token_type"])
	require.NotEmpty(t, body["access_token"])
}

func TestHandleTokenClientCredentialsWrongSecretRejected(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	rec := postForm(t, h, h.server.handleToken, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"web-client"},
		"client_secret": {"not-the-secret"},
		"scope":         {"profile"},
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_client", body["error"])
}

func TestHandleTokenClientCredentialsViaBasicAuth(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {"profile"},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("web-client", "super-secret")
	rec := httptest.NewRecorder()
	h.server.handleToken(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleTokenUnknownGrantType(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)

	rec := postForm(t, h, h.server.handleToken, url.Values{"grant_type": {"bogus"}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "unsupported_grant_type", body["error"])
}

func TestHandleTokenPasswordGrant(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	sess := h.establishSession("carol")
	h.auth.AddUser("carol", "hunter2", sess)

	rec := postForm(t, h, h.server.handleToken, url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web-client"},
		"client_secret": {"super-secret"},
		"username":      {"carol"},
		"password":      {"hunter2"},
		"scope":         {"openid"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["access_token"])
}

func TestHandleTokenPasswordGrantBadCredentials(t *testing.T) {
	t.Parallel()
	h := newTestHarness(t)
	h.auth.AddUser("carol", "hunter2", h.establishSession("carol"))

	rec := postForm(t, h, h.server.handleToken, url.Values{
		"grant_type":    {"password"},
		"client_id":     {"web-client"},
		"client_secret": {"super-secret"},
		"username":      {"carol"},
		"password":      {"wrong"},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
