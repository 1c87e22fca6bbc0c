// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package logout implements the logout orchestrator of spec §4.5
// (component K): back-channel logout-token delivery and front-channel
// iframe-page assembly.
package logout

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/mint"
	"github.com/authcore/oidcauth/pkg/session"
)

// BackChannelNotifier mints and delivers a logout token to a single
// client's back-channel logout endpoint.
type BackChannelNotifier struct {
	Minter *mint.Minter
	Client *http.Client
}

// NewBackChannelNotifier builds a BackChannelNotifier.
func NewBackChannelNotifier(minter *mint.Minter) *BackChannelNotifier {
	return &BackChannelNotifier{Minter: minter}
}

// Notify mints a logout token for sess scoped to c and POSTs it
// form-url-encoded to c.BackChannelLogoutURI. Configuration errors (no
// URI configured, a session id required but absent) fail fast without a
// network call; HTTP/network errors propagate to the caller, per spec
// §4.5 and §5 ("the orchestrator chooses to continue per-client").
func (n *BackChannelNotifier) Notify(ctx context.Context, c *client.ClientInfo, sess *session.AuthSession) error {
	if c.BackChannelLogoutURI == "" {
		return fmt.Errorf("logout: client %s has no back_channel_logout_uri configured", c.ID)
	}
	if c.BackChannelLogoutSessionReqd && sess.SessionID == "" {
		return fmt.Errorf("logout: client %s requires a session id but none is present", c.ID)
	}

	minted, err := n.Minter.MintLogoutToken(ctx, c, sess, c.BackChannelLogoutSessionReqd)
	if err != nil {
		return fmt.Errorf("logout: minting logout token for client %s: %w", c.ID, err)
	}

	form := url.Values{"logout_token": {minted.JWS}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BackChannelLogoutURI, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("logout: building back-channel request for client %s: %w", c.ID, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := n.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout: delivering back-channel logout to client %s: %w", c.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("logout: client %s back-channel endpoint returned %d", c.ID, resp.StatusCode)
	}
	return nil
}

// FrameSource is one front-channel logout target, ready to render as an
// <iframe src="...">.
type FrameSource struct {
	ClientID string
	URI      string
}

// FrontChannelContext accumulates front-channel logout targets across the
// set of clients sharing the session being logged out.
type FrontChannelContext struct {
	Issuer string
	SID    string
	frames []FrameSource
}

// NewFrontChannelContext builds an empty FrontChannelContext.
func NewFrontChannelContext(issuer, sid string) *FrontChannelContext {
	return &FrontChannelContext{Issuer: issuer, SID: sid}
}

// Append adds c's front-channel logout URI to the frame_sources list,
// appending iss/sid query parameters when the client requires a session
// id. Returns an error naming the client if it requires a session id that
// is not present on the context.
func (fc *FrontChannelContext) Append(c *client.ClientInfo) error {
	if c.FrontChannelLogoutURI == "" {
		return nil
	}
	uri := c.FrontChannelLogoutURI
	if c.FrontChannelLogoutSessionReqd {
		if fc.SID == "" {
			return fmt.Errorf("logout: client %s requires a session id but none is present", c.ID)
		}
		parsed, err := url.Parse(uri)
		if err != nil {
			return fmt.Errorf("logout: client %s has an unparseable front_channel_logout_uri: %w", c.ID, err)
		}
		q := parsed.Query()
		q.Set("iss", fc.Issuer)
		q.Set("sid", fc.SID)
		parsed.RawQuery = q.Encode()
		uri = parsed.String()
	}
	fc.frames = append(fc.frames, FrameSource{ClientID: c.ID, URI: uri})
	return nil
}

// Frames returns the accumulated frame sources.
func (fc *FrontChannelContext) Frames() []FrameSource { return fc.frames }

// Page renders the front-channel logout HTML page: one <iframe> per
// frame source, a CSP frame-src header value listing deduplicated
// origins, and a nonce-scoped inline <script>/<style> pair.
type Page struct {
	HTML            string
	ContentSecurity string
}

// Render assembles the front-channel logout page from fc's accumulated
// frame sources.
func Render(fc *FrontChannelContext) (*Page, error) {
	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("logout: generating csp nonce: %w", err)
	}

	origins := dedupOrigins(fc.frames)

	var iframes strings.Builder
	for _, f := range fc.frames {
		iframes.WriteString(fmt.Sprintf("<iframe src=%q width=\"0\" height=\"0\" style=\"display:none\"></iframe>\n", f.URI))
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style nonce=%[1]q>body{margin:0}</style>
</head>
<body>
%[2]s<script nonce=%[1]q>
window.__logoutCookieName = %[3]s;
</script>
</body>
</html>
`, nonce, iframes.String(), jsStringLiteral("__authcore_session"))

	csp := "frame-src " + strings.Join(origins, " ")
	return &Page{HTML: html, ContentSecurity: csp}, nil
}

func dedupOrigins(frames []FrameSource) []string {
	seen := make(map[string]struct{}, len(frames))
	var origins []string
	for _, f := range frames {
		parsed, err := url.Parse(f.URI)
		if err != nil {
			continue
		}
		origin := parsed.Scheme + "://" + parsed.Host
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

func randomNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// jsStringLiteral renders s as a double-quoted, escaped JavaScript string
// literal safe to inline into a <script> body.
func jsStringLiteral(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '<':
			sb.WriteString(`\x3c`)
		case '>':
			sb.WriteString(`\x3e`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
