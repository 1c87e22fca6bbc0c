// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReal(t *testing.T) {
	t.Parallel()
	before := time.Now().UTC()
	got := Real{}.Now()
	after := time.Now().UTC()
	assert.True(t, !got.Before(before) && !got.After(after))
}

func TestFixed(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, Fixed(ts).Now())
}

func TestMutable(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMutable(ts)
	assert.Equal(t, ts, m.Now())

	m.Advance(time.Hour)
	assert.Equal(t, ts.Add(time.Hour), m.Now())

	m.Set(ts)
	assert.Equal(t, ts, m.Now())
}
