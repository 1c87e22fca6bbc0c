// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "github.com/ory/fosite"

// asRFC6749Error unwraps err as a *fosite.RFC6749Error, the wire shape
// every Protocol error in spec §7 uses (whether it originated in fosite
// or in pkg/oidcerr).
func asRFC6749Error(err error) (*fosite.RFC6749Error, bool) {
	rfcErr, ok := err.(*fosite.RFC6749Error)
	return rfcErr, ok
}
