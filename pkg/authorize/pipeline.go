// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package authorize

import (
	"context"
	"fmt"
	"time"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/consent"
	"github.com/authcore/oidcauth/pkg/logger"
	"github.com/authcore/oidcauth/pkg/mint"
	"github.com/authcore/oidcauth/pkg/model"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/session"
)

// Prompt values recognized by the authorization request (spec §4.1 step 4).
const (
	PromptNone          = "none"
	PromptLogin         = "login"
	PromptSelectAccount = "select_account"
	PromptConsent       = "consent"
)

// ResponseType values this pipeline can mint (spec §4.1 step 8).
const (
	ResponseTypeCode    = "code"
	ResponseTypeToken   = "token"
	ResponseTypeIDToken = "id_token"
)

// Request is the validated authorization request this pipeline consumes
// (spec §4.1's "Input": a validated AuthorizationRequest).
type Request struct {
	ClientID            string
	ResponseTypes       []string
	Scope               []string
	Resources           []string
	RedirectURI         string
	Nonce               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	MaxAge              *time.Duration
	ACRValues           []string
	Prompt              string
	Subject             string // the caller's already-authenticated top-level subject, used to enumerate sessions
}

// ResultKind tags which of the five outcomes spec §4.1 names a Result carries.
type ResultKind string

// Result kinds per spec §4.1.
const (
	KindLoginRequired            ResultKind = "login_required"
	KindAccountSelectionRequired ResultKind = "account_selection_required"
	KindConsentRequired          ResultKind = "consent_required"
	KindAuthorizationError       ResultKind = "authorization_error"
	KindSuccess                  ResultKind = "successfully_authenticated"
)

// Result is the pipeline's output (spec §4.1 "Output").
type Result struct {
	Kind ResultKind

	// Populated for KindAccountSelectionRequired.
	Sessions []*session.AuthSession
	// Populated for KindConsentRequired.
	Pending *consent.Decision
	// Populated for KindAuthorizationError.
	Err error

	// Populated for KindSuccess.
	Code        string
	AccessToken string
	IDToken     string
	TokenType   string
	SessionID   string
}

// SessionEnumerator lists every session belonging to the requesting
// subject, the "enumerate available sessions from the session store" step
// spec §4.1 step 1 describes. It is a thin extension of session.Store,
// since a plain Get(sessionID) cannot answer "which sessions does this
// subject have".
type SessionEnumerator interface {
	ListBySubject(ctx context.Context, subject string) ([]*session.AuthSession, error)
}

// Pipeline drives the Authorization endpoint (spec §4.1).
type Pipeline struct {
	sessions  SessionEnumerator
	sessionStore session.Store
	clients   client.ClientInfoProvider
	consents  consent.Provider
	codes     *CodeStore
	minter    *mint.Minter
	clock     clock.TimeSource
}

// NewPipeline builds a Pipeline over its collaborators.
func NewPipeline(
	sessions SessionEnumerator,
	sessionStore session.Store,
	clients client.ClientInfoProvider,
	consents consent.Provider,
	codes *CodeStore,
	minter *mint.Minter,
	clk clock.TimeSource,
) *Pipeline {
	return &Pipeline{
		sessions:     sessions,
		sessionStore: sessionStore,
		clients:      clients,
		consents:     consents,
		codes:        codes,
		minter:       minter,
		clock:        clk,
	}
}

// Run executes the algorithm of spec §4.1.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	c, err := p.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return &Result{Kind: KindAuthorizationError, Err: fmt.Errorf("unknown client: %w", err)}, nil
	}
	if !c.MatchRedirectURI(req.RedirectURI) {
		return &Result{Kind: KindAuthorizationError, Err: fmt.Errorf("redirect_uri does not match a registered uri")}, nil
	}

	sessions, err := p.sessions.ListBySubject(ctx, req.Subject)
	if err != nil {
		return nil, fmt.Errorf("authorize: listing sessions: %w", err)
	}

	// Step 2: filter by max_age.
	if req.MaxAge != nil {
		now := p.clock.Now()
		filtered := sessions[:0:0]
		for _, s := range sessions {
			if now.Sub(s.AuthenticationTime) <= *req.MaxAge {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}

	// Step 3: filter by acr_values.
	if len(req.ACRValues) > 0 {
		filtered := sessions[:0:0]
		for _, s := range sessions {
			if containsString(req.ACRValues, s.ACR) {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}

	// Step 4: apply prompt.
	switch req.Prompt {
	case PromptNone:
		if len(sessions) == 0 {
			return &Result{Kind: KindAuthorizationError, Err: oidcerr.LoginRequired}, nil
		}
		if len(sessions) >= 2 {
			return &Result{Kind: KindAuthorizationError, Err: oidcerr.AccountSelectionRequired}, nil
		}
	case PromptLogin:
		return &Result{Kind: KindLoginRequired}, nil
	case PromptSelectAccount:
		return &Result{Kind: KindAccountSelectionRequired, Sessions: sessions}, nil
	default:
		if len(sessions) == 0 {
			return &Result{Kind: KindLoginRequired}, nil
		}
		if len(sessions) >= 2 {
			return &Result{Kind: KindAccountSelectionRequired, Sessions: sessions}, nil
		}
	}

	sess := sessions[0]

	// Step 5: consent.
	decision, err := p.consents.Decide(ctx, consent.Request{
		ClientID:           req.ClientID,
		RequestedScopes:    req.Scope,
		RequestedResources: req.Resources,
	}, sess)
	if err != nil {
		return nil, fmt.Errorf("authorize: deciding consent: %w", err)
	}
	if decision.Pending() {
		if req.Prompt == PromptNone {
			return &Result{Kind: KindAuthorizationError, Err: oidcerr.ConsentRequired}, nil
		}
		return &Result{Kind: KindConsentRequired, Pending: decision}, nil
	}

	// Step 6: sign-in tick.
	if !sess.HasClient(req.ClientID) {
		if err := p.sessionStore.AppendAffectedClient(ctx, sess.SessionID, req.ClientID); err != nil {
			return nil, fmt.Errorf("authorize: sign-in tick: %w", err)
		}
	}

	// Step 7: build the authorization context.
	authCtx := model.AuthorizationContext{
		ClientID:            req.ClientID,
		Scope:               decision.GrantedScopes,
		Resources:           decision.GrantedResources,
		Nonce:               req.Nonce,
		RedirectURI:         req.RedirectURI,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	}
	grant := model.AuthorizedGrant{SessionID: sess.SessionID, Context: authCtx}

	result := &Result{Kind: KindSuccess, TokenType: "Bearer", SessionID: sess.SessionID}

	wantsCode := containsString(req.ResponseTypes, ResponseTypeCode)
	wantsToken := containsString(req.ResponseTypes, ResponseTypeToken)
	wantsIDToken := containsString(req.ResponseTypes, ResponseTypeIDToken)

	// Step 8: mint whichever artifacts were requested.
	if wantsCode {
		code, err := p.codes.Issue(ctx, grant, c.AuthCodeLifespan)
		if err != nil {
			return nil, fmt.Errorf("authorize: issuing code: %w", err)
		}
		result.Code = code
	}
	if wantsToken {
		minted, err := p.minter.MintAccessToken(ctx, c, sess, decision.GrantedScopes, decision.GrantedResources)
		if err != nil {
			return nil, fmt.Errorf("authorize: minting access token: %w", err)
		}
		result.AccessToken = minted.JWS
	}
	if wantsIDToken {
		soleResponseType := len(req.ResponseTypes) == 1 && wantsIDToken
		opts := mint.IdentityTokenOptions{
			Nonce:             req.Nonce,
			IncludeUserClaims: soleResponseType || c.ForceUserClaimsInIDToken,
		}
		if wantsCode {
			opts.AuthorizationCode = result.Code
		}
		if wantsToken {
			opts.AccessToken = result.AccessToken
		}
		minted, err := p.minter.MintIdentityToken(ctx, c, sess, opts)
		if err != nil {
			return nil, fmt.Errorf("authorize: minting identity token: %w", err)
		}
		result.IDToken = minted.JWS
	}

	logger.Infow("authorization succeeded", "clientID", req.ClientID, "sessionID", sess.SessionID)
	return result, nil
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
