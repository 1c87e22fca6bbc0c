// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/authcore/oidcauth/pkg/logger"
)

// Validate checks the invariants spec §3 attaches to ClientInfo:
//   - any URI field is absolute HTTPS (localhost HTTP permitted only when
//     explicitly allowed via AllowInsecureLocalhost)
//   - a pairwise subject type requires either a sector-identifier URI or an
//     unambiguous redirect-URI host
func (c *ClientInfo) Validate() error {
	logger.Debugw("validating client", "clientID", c.ID, "subjectType", c.SubjectType)

	if c.ID == "" {
		return fmt.Errorf("client id is required")
	}
	if !c.Public && len(c.SecretHash) == 0 {
		return fmt.Errorf("client %s: secret hash is required for confidential clients", c.ID)
	}
	if len(c.RedirectURIs) == 0 {
		return fmt.Errorf("client %s: at least one redirect_uri is required", c.ID)
	}

	uriFields := map[string]string{
		"sector_identifier_uri":             c.SectorIdentifierURI,
		"ciba_client_notification_endpoint": c.CIBAClientNotificationEndpoint,
		"front_channel_logout_uri":          c.FrontChannelLogoutURI,
		"back_channel_logout_uri":           c.BackChannelLogoutURI,
		"jwks_uri":                          c.JWKSURI,
	}
	for name, raw := range uriFields {
		if raw == "" {
			continue
		}
		if err := c.validateAbsoluteHTTPSURI(name, raw); err != nil {
			return err
		}
	}
	for i, raw := range c.RedirectURIs {
		if err := c.validateAbsoluteHTTPSURI(fmt.Sprintf("redirect_uris[%d]", i), raw); err != nil {
			return err
		}
	}
	for i, raw := range c.PostLogoutRedirectURIs {
		if err := c.validateAbsoluteHTTPSURI(fmt.Sprintf("post_logout_redirect_uris[%d]", i), raw); err != nil {
			return err
		}
	}

	if c.SubjectType == SubjectPairwise {
		if _, err := c.SectorHost(); err != nil {
			return err
		}
	}

	if c.CIBADeliveryMode == CIBAModePing || c.CIBADeliveryMode == CIBAModePush {
		if c.CIBAClientNotificationEndpoint == "" {
			return fmt.Errorf("client %s: ciba delivery mode %q requires a client_notification_endpoint", c.ID, c.CIBADeliveryMode)
		}
	}

	logger.Debugw("client validated", "clientID", c.ID)
	return nil
}

// validateAbsoluteHTTPSURI enforces spec §3's URI invariant: absolute HTTPS,
// with a carve-out for http://localhost when AllowInsecureLocalhost is set.
func (c *ClientInfo) validateAbsoluteHTTPSURI(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("client %s: %s is not a valid URI: %w", c.ID, field, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("client %s: %s must be an absolute URI", c.ID, field)
	}
	if u.Scheme == "https" {
		return nil
	}
	if c.AllowInsecureLocalhost && u.Scheme == "http" && IsLoopbackHost(u.Hostname()) {
		return nil
	}
	return fmt.Errorf("client %s: %s must use https (got %q)", c.ID, field, u.Scheme)
}

// IsLoopbackHost reports whether hostname names a loopback address:
// "localhost", "127.0.0.1" or "::1". Used by the AllowInsecureLocalhost
// carve-out above.
func IsLoopbackHost(hostname string) bool {
	if strings.EqualFold(hostname, "localhost") {
		return true
	}
	return hostname == "127.0.0.1" || hostname == "::1"
}
