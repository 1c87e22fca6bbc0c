// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package consent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/oidcauth/pkg/session"
	"github.com/authcore/oidcauth/pkg/store"
)

func TestStoreProviderDecideWithNoPriorGrantIsAllPending(t *testing.T) {
	t.Parallel()
	p := NewStoreProvider(store.NewMemoryStoreWithCleanupInterval(0), 0)
	sess := &session.AuthSession{Subject: "alice"}

	decision, err := p.Decide(context.Background(), Request{
		ClientID:        "c1",
		RequestedScopes: []string{"openid", "profile"},
	}, sess)

	require.NoError(t, err)
	assert.Empty(t, decision.GrantedScopes)
	assert.Equal(t, []string{"openid", "profile"}, decision.PendingScopes)
	assert.True(t, decision.Pending())
}

func TestStoreProviderGrantThenDecideIsSatisfied(t *testing.T) {
	t.Parallel()
	p := NewStoreProvider(store.NewMemoryStoreWithCleanupInterval(0), 0)
	sess := &session.AuthSession{Subject: "alice"}

	require.NoError(t, p.Grant(context.Background(), "alice", "c1", []string{"openid", "profile"}, nil))

	decision, err := p.Decide(context.Background(), Request{
		ClientID:        "c1",
		RequestedScopes: []string{"openid", "profile"},
	}, sess)

	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "profile"}, decision.GrantedScopes)
	assert.Empty(t, decision.PendingScopes)
	assert.False(t, decision.Pending())
}

func TestStoreProviderGrantIsCumulativeAcrossCalls(t *testing.T) {
	t.Parallel()
	p := NewStoreProvider(store.NewMemoryStoreWithCleanupInterval(0), 0)

	require.NoError(t, p.Grant(context.Background(), "alice", "c1", []string{"openid"}, nil))
	require.NoError(t, p.Grant(context.Background(), "alice", "c1", []string{"profile"}, nil))

	decision, err := p.Decide(context.Background(), Request{
		ClientID:        "c1",
		RequestedScopes: []string{"openid", "profile", "email"},
	}, &session.AuthSession{Subject: "alice"})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"openid", "profile"}, decision.GrantedScopes)
	assert.Equal(t, []string{"email"}, decision.PendingScopes)
}

func TestStoreProviderDecisionIsPerSubjectAndClient(t *testing.T) {
	t.Parallel()
	p := NewStoreProvider(store.NewMemoryStoreWithCleanupInterval(0), 0)

	require.NoError(t, p.Grant(context.Background(), "alice", "c1", []string{"openid"}, nil))

	decision, err := p.Decide(context.Background(), Request{
		ClientID:        "c2",
		RequestedScopes: []string{"openid"},
	}, &session.AuthSession{Subject: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, decision.PendingScopes)

	decision, err = p.Decide(context.Background(), Request{
		ClientID:        "c1",
		RequestedScopes: []string{"openid"},
	}, &session.AuthSession{Subject: "bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid"}, decision.PendingScopes)
}
