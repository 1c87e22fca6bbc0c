// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package consent defines the ConsentProvider external collaborator of
// spec §6 ("Decide which scopes/resources need user consent", component
// E) and the Decision it returns.
package consent

import (
	"context"

	"github.com/authcore/oidcauth/pkg/session"
)

// Request is what the authorization pipeline asks a ConsentProvider to
// decide over: the scopes/resources a client is requesting for a subject.
type Request struct {
	ClientID            string
	RequestedScopes     []string
	RequestedResources  []string
}

// Decision is the {granted, pending} pair spec §6 describes.
type Decision struct {
	GrantedScopes     []string
	GrantedResources  []string
	PendingScopes     []string
	PendingResources  []string
}

// Pending reports whether any scope or resource still needs consent
// (spec §4.1 step 5: "pending.scopes ∪ pending.resources ≠ ∅").
func (d *Decision) Pending() bool {
	return len(d.PendingScopes) > 0 || len(d.PendingResources) > 0
}

// Provider is the narrow ConsentProvider collaborator of spec §6.
type Provider interface {
	Decide(ctx context.Context, req Request, sess *session.AuthSession) (*Decision, error)
}
