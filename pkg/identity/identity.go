// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity holds the two narrow end-user collaborators of spec
// §6 that are not session-state (pkg/session) or consent (pkg/consent):
// password-grant authentication and userinfo-claim lookup.
package identity

import (
	"context"

	"github.com/authcore/oidcauth/pkg/session"
)

// UserAuthenticator is the password-grant collaborator of spec §6:
// "(username,password)->AuthSession?". The core never sees or stores
// credentials beyond this call.
type UserAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*session.AuthSession, error)
}

// UserInfoProvider is the userinfo collaborator of spec §6: "(subject,
// claim_names)->claim_map?", used both by the userinfo endpoint and by
// identity-token minting when a client forces inline user claims.
type UserInfoProvider interface {
	Claims(ctx context.Context, subject string, claimNames []string) (map[string]any, error)
}
