// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "net/url"

// TokenHintRequest is the shared decoded form for the introspection
// (RFC 7662) and revocation (RFC 7009) endpoints: both take `token` and
// an optional `token_type_hint`.
type TokenHintRequest struct {
	Token         string
	TokenTypeHint string
}

// DecodeTokenHintRequest reads the introspection/revocation form fields.
func DecodeTokenHintRequest(form url.Values) TokenHintRequest {
	return TokenHintRequest{
		Token:         form.Get("token"),
		TokenTypeHint: form.Get("token_type_hint"),
	}
}
