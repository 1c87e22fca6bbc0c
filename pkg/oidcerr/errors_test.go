// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package oidcerr

import (
	"testing"

	"github.com/ory/fosite"
	"github.com/stretchr/testify/assert"
)

func TestIsCode(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCode(LoginRequired, "login_required"))
	assert.False(t, IsCode(LoginRequired, "consent_required"))
	assert.False(t, IsCode(assert.AnError, "login_required"))
}

func TestWithHint(t *testing.T) {
	t.Parallel()

	hinted := WithHint(ConsentRequired, "scope profile was never granted")
	assert.Equal(t, "consent_required", hinted.ErrorField)
	assert.Contains(t, hinted.HintField, "profile")
	// Original is untouched.
	assert.Empty(t, ConsentRequired.HintField)
}

func TestNewBuildsRFC6749Error(t *testing.T) {
	t.Parallel()

	err := New("invalid_request", "bad request", 400)
	var target *fosite.RFC6749Error
	assert.ErrorAs(t, err, &target)
	assert.Equal(t, 400, err.CodeField)
}
