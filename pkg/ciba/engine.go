// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package ciba implements the Client-Initiated Backchannel Authentication
// engine of spec §4.3 (component I): the Pending -> {Authenticated, Denied,
// Expired} state machine and the poll/ping/push completion dispatch.
package ciba

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/logger"
	"github.com/authcore/oidcauth/pkg/model"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/store"
	"github.com/authcore/oidcauth/pkg/token"
)

// ErrNotFound is returned when an auth_req_id names no CIBA record.
var ErrNotFound = errors.New("ciba: not found")

// Notifier posts a JSON payload to a CIBA client-notification endpoint,
// abstracted so tests can substitute a recording double for net/http.
type Notifier interface {
	Notify(ctx context.Context, endpoint, bearerToken string, payload []byte) error
}

// HTTPNotifier is the production Notifier, backed by net/http.
type HTTPNotifier struct {
	Client *http.Client
}

// Notify implements Notifier.
func (n *HTTPNotifier) Notify(ctx context.Context, endpoint, bearerToken string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ciba: building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	c := n.Client
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("ciba: delivering notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ciba: notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Engine drives CIBA requests.
type Engine struct {
	backing  store.KVStore
	clients  client.ClientInfoProvider
	tokens   *token.Pipeline
	notifier Notifier
	clock    clock.TimeSource
}

// NewEngine builds an Engine over its collaborators.
func NewEngine(backing store.KVStore, clients client.ClientInfoProvider, tokens *token.Pipeline, notifier Notifier, clk clock.TimeSource) *Engine {
	return &Engine{backing: backing, clients: clients, tokens: tokens, notifier: notifier, clock: clk}
}

// Initiate creates a new Pending CIBA request.
func (e *Engine) Initiate(ctx context.Context, clientID string, grant model.AuthorizedGrant, notificationEndpoint, notificationToken string, interval, ttl time.Duration) (*model.CIBARequest, error) {
	req := &model.CIBARequest{
		AuthReqID:                  uuid.NewString(),
		ClientID:                   clientID,
		Status:                     model.CIBAPending,
		ClientNotificationEndpoint: notificationEndpoint,
		ClientNotificationToken:    notificationToken,
		Interval:                   interval,
		ExpiresAt:                  e.clock.Now().Add(ttl),
	}
	if err := e.save(ctx, req, ttl); err != nil {
		return nil, err
	}
	return req, nil
}

func (e *Engine) save(ctx context.Context, req *model.CIBARequest, ttl time.Duration) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("ciba: encoding request: %w", err)
	}
	if err := e.backing.Set(ctx, store.CIBAKey(req.AuthReqID), raw, ttl); err != nil {
		return fmt.Errorf("ciba: storing request: %w", err)
	}
	return nil
}

func (e *Engine) load(ctx context.Context, authReqID string) (*model.CIBARequest, error) {
	raw, err := e.backing.Get(ctx, store.CIBAKey(authReqID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ciba: loading request: %w", err)
	}
	var req model.CIBARequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("ciba: decoding request: %w", err)
	}
	return &req, nil
}

// Complete transitions a Pending request to Authenticated (approved=true)
// or Denied (approved=false), carrying the grant on approval, and then
// dispatches per the client's delivery mode. Storage status update
// precedes ping/push notification, per spec §5.
func (e *Engine) Complete(ctx context.Context, authReqID string, approved bool, grant *model.AuthorizedGrant) error {
	req, err := e.load(ctx, authReqID)
	if err != nil {
		return err
	}
	c, err := e.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return fmt.Errorf("ciba: resolving client: %w", err)
	}

	if !approved {
		req.Status = model.CIBADenied
		return e.save(ctx, req, remainingTTL(req.ExpiresAt, e.clock.Now()))
	}
	req.Status = model.CIBAAuthenticated
	req.Grant = grant
	if err := e.save(ctx, req, remainingTTL(req.ExpiresAt, e.clock.Now())); err != nil {
		return err
	}

	switch c.CIBADeliveryMode {
	case client.CIBAModePoll, "":
		// The client polls the token endpoint; nothing more to do here.
	case client.CIBAModePing:
		e.ping(ctx, req, c)
	case client.CIBAModePush:
		e.push(ctx, req, c)
	}
	return nil
}

func remainingTTL(expiresAt, now time.Time) time.Duration {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return d
}

// pingPayload is the body a ping notification POSTs (spec §6 wire format).
type pingPayload struct {
	AuthReqID string `json:"authenticationRequestId"`
}

func (e *Engine) ping(ctx context.Context, req *model.CIBARequest, c *client.ClientInfo) {
	if req.ClientNotificationEndpoint == "" {
		logger.Warnw("ciba ping skipped: no notification endpoint configured", "authReqID", req.AuthReqID)
		return
	}
	payload, err := json.Marshal(pingPayload{AuthReqID: req.AuthReqID})
	if err != nil {
		logger.Errorw("ciba ping: encoding payload failed", "authReqID", req.AuthReqID, "err", err)
		return
	}
	// Best-effort delivery per spec §4.3: one attempt, no retry, no error
	// propagates to the caller.
	if err := e.notifier.Notify(ctx, req.ClientNotificationEndpoint, req.ClientNotificationToken, payload); err != nil {
		logger.Errorw("ciba ping delivery failed", "authReqID", req.AuthReqID, "err", err)
		return
	}
	logger.Debugw("ciba ping delivered", "authReqID", req.AuthReqID)
}

func (e *Engine) push(ctx context.Context, req *model.CIBARequest, c *client.ClientInfo) {
	if req.ClientNotificationEndpoint == "" {
		e.denyAfterFailedPush(ctx, req, "push configured with no notification endpoint")
		return
	}

	issued, err := e.tokens.IssueForGrant(ctx, c, *req.Grant)
	if err != nil {
		e.denyAfterFailedPush(ctx, req, fmt.Sprintf("token generation failed: %v", err))
		return
	}
	payload, err := json.Marshal(issued)
	if err != nil {
		e.denyAfterFailedPush(ctx, req, fmt.Sprintf("encoding token response failed: %v", err))
		return
	}

	if err := e.notifier.Notify(ctx, req.ClientNotificationEndpoint, req.ClientNotificationToken, payload); err != nil {
		e.denyAfterFailedPush(ctx, req, fmt.Sprintf("delivery failed: %v", err))
		return
	}

	if err := e.backing.Remove(ctx, store.CIBAKey(req.AuthReqID)); err != nil {
		logger.Errorw("ciba push: removing completed request failed", "authReqID", req.AuthReqID, "err", err)
	}
}

func (e *Engine) denyAfterFailedPush(ctx context.Context, req *model.CIBARequest, reason string) {
	logger.Warnw("ciba push failed, denying request", "authReqID", req.AuthReqID, "reason", reason)
	req.Status = model.CIBADenied
	req.Grant = nil
	if err := e.save(ctx, req, remainingTTL(req.ExpiresAt, e.clock.Now())); err != nil {
		logger.Errorw("ciba push: persisting denied status failed", "authReqID", req.AuthReqID, "err", err)
	}
}

// Redeem is the token endpoint's urn:openid:params:grant-type:ciba handler
// (spec §4.2): Pending returns authorization_pending, Denied/Expired
// returns the matching protocol error, Authenticated atomically removes
// the record and mints tokens.
func (e *Engine) Redeem(ctx context.Context, authReqID string) (*token.TokenIssued, error) {
	req, err := e.load(ctx, authReqID)
	if err != nil {
		return nil, oidcerr.New("invalid_grant", "unknown auth_req_id", 400).WithWrap(err)
	}
	if e.clock.Now().After(req.ExpiresAt) {
		return nil, oidcerr.ExpiredToken
	}
	switch req.Status {
	case model.CIBAPending:
		return nil, oidcerr.AuthorizationPending
	case model.CIBADenied:
		return nil, oidcerr.AccessDenied
	case model.CIBAExpired:
		return nil, oidcerr.ExpiredToken
	}

	c, err := e.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, oidcerr.New("invalid_client", "unknown client", 401)
	}
	if _, err := e.backing.GetAndRemove(ctx, store.CIBAKey(authReqID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, oidcerr.New("invalid_grant", "unknown auth_req_id", 400).WithWrap(ErrNotFound)
		}
		return nil, fmt.Errorf("ciba: removing redeemed request: %w", err)
	}
	return e.tokens.IssueForGrant(ctx, c, *req.Grant)
}
