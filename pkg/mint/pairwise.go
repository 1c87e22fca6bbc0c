// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package mint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// DerivePairwiseSubject implements spec §3/§4.7's pairwise-subject rule:
// "sub is pairwise-derived when client.subject_type=pairwise using the
// client's sector host salted by a server secret." The derivation is
// HMAC-SHA256(serverSecret, sectorHost || "|" || subject), so the same
// (subject, sector) pair always yields the same pseudonym, two clients in
// different sectors get unlinkable pseudonyms for the same subject, and
// the pseudonym cannot be reversed without serverSecret.
func DerivePairwiseSubject(subject, sectorHost string, serverSecret []byte) string {
	mac := hmac.New(sha256.New, serverSecret)
	mac.Write([]byte(sectorHost))
	mac.Write([]byte{'|'})
	mac.Write([]byte(subject))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
