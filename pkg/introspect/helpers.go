// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package introspect

import "time"

// toUnixTime converts a claim value that round-tripped through
// encoding/json (so a Unix-seconds int becomes float64) back to a Time.
func toUnixTime(v any) time.Time {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0)
	case int64:
		return time.Unix(n, 0)
	default:
		return time.Time{}
	}
}
