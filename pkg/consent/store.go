// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/authcore/oidcauth/pkg/session"
	"github.com/authcore/oidcauth/pkg/store"
)

// record is the persisted consent grant for one (subject, client) pair:
// the cumulative set of scopes/resources the subject has ever approved
// for that client.
type record struct {
	GrantedScopes    []string `json:"grantedScopes"`
	GrantedResources []string `json:"grantedResources"`
}

// StoreProvider is the production Provider: consent decisions are
// computed from a persisted grant record, keyed by store.ConsentKey, with
// whatever the caller requests beyond that record's contents reported as
// pending. Recording a grant (after an interactive consent prompt the
// core does not render) is Grant's job.
type StoreProvider struct {
	backing store.KVStore
	ttl     time.Duration // zero means the grant never expires on its own
}

// NewStoreProvider builds a StoreProvider over backing. ttl bounds how
// long a recorded grant survives without being renewed by Grant; zero
// means grants persist until explicitly revoked.
func NewStoreProvider(backing store.KVStore, ttl time.Duration) *StoreProvider {
	return &StoreProvider{backing: backing, ttl: ttl}
}

func (p *StoreProvider) load(ctx context.Context, subject, clientID string) (*record, error) {
	raw, err := p.backing.Get(ctx, store.ConsentKey(subject, clientID))
	if errors.Is(err, store.ErrNotFound) {
		return &record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consent: loading grant: %w", err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("consent: decoding grant: %w", err)
	}
	return &rec, nil
}

// Decide implements Provider: granted is the intersection of what was
// requested and what the persisted record already covers; pending is
// whatever was requested beyond that.
func (p *StoreProvider) Decide(ctx context.Context, req Request, sess *session.AuthSession) (*Decision, error) {
	rec, err := p.load(ctx, sess.Subject, req.ClientID)
	if err != nil {
		return nil, err
	}
	granted, pending := partition(req.RequestedScopes, rec.GrantedScopes)
	grantedRes, pendingRes := partition(req.RequestedResources, rec.GrantedResources)
	return &Decision{
		GrantedScopes:    granted,
		GrantedResources: grantedRes,
		PendingScopes:    pending,
		PendingResources: pendingRes,
	}, nil
}

// Grant records that subject has approved scopes/resources for clientID,
// merging with any previously granted set. Called once an interactive
// consent prompt (outside this package's scope) resolves.
func (p *StoreProvider) Grant(ctx context.Context, subject, clientID string, scopes, resources []string) error {
	rec, err := p.load(ctx, subject, clientID)
	if err != nil {
		return err
	}
	rec.GrantedScopes = union(rec.GrantedScopes, scopes)
	rec.GrantedResources = union(rec.GrantedResources, resources)

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("consent: encoding grant: %w", err)
	}
	if err := p.backing.Set(ctx, store.ConsentKey(subject, clientID), raw, p.ttl); err != nil {
		return fmt.Errorf("consent: storing grant: %w", err)
	}
	return nil
}

// partition splits requested into the subset already present in granted
// (order preserved) and the remainder.
func partition(requested, granted []string) (inGranted, pending []string) {
	for _, r := range requested {
		if contains(granted, r) {
			inGranted = append(inGranted, r)
		} else {
			pending = append(pending, r)
		}
	}
	return inGranted, pending
}

func union(a, b []string) []string {
	out := append([]string{}, a...)
	for _, v := range b {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

var _ Provider = (*StoreProvider)(nil)
