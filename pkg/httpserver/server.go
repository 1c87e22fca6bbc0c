// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpserver wires every pipeline and engine in this module
// behind chi-routed HTTP handlers: the authorization and token endpoints
// (spec §4.1, §4.2), introspection/revocation (§4.6), device
// authorization (§4.4), CIBA (§4.3), logout (§4.5), and the JWKS
// well-known document (§4.7). Handlers are split across an OAuthMux for
// the protocol endpoints and a WellKnownMux for the discovery surface,
// so a caller can mount each under its own path prefix.
package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-jose/go-jose/v4"

	"github.com/authcore/oidcauth/pkg/authorize"
	"github.com/authcore/oidcauth/pkg/ciba"
	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/config"
	"github.com/authcore/oidcauth/pkg/consent"
	"github.com/authcore/oidcauth/pkg/device"
	"github.com/authcore/oidcauth/pkg/identity"
	"github.com/authcore/oidcauth/pkg/introspect"
	"github.com/authcore/oidcauth/pkg/logger"
	"github.com/authcore/oidcauth/pkg/logout"
	"github.com/authcore/oidcauth/pkg/mint"
	"github.com/authcore/oidcauth/pkg/registry"
	"github.com/authcore/oidcauth/pkg/session"
	"github.com/authcore/oidcauth/pkg/store"
	"github.com/authcore/oidcauth/pkg/token"
	"github.com/authcore/oidcauth/pkg/validate"
)

// DeviceFlowOptions bounds the device-authorization and CIBA endpoints'
// default lifetimes and polling intervals, since neither spec §3 nor the
// engines they drive hardcode them.
type DeviceFlowOptions struct {
	// VerificationURI is the end-user verification page advertised in
	// the device_authorization response (spec §6).
	VerificationURI string
	// CodeLifespan is how long a device_code/user_code pair or CIBA
	// auth_req_id remains redeemable. Defaults to 10 minutes.
	CodeLifespan time.Duration
	// PollInterval is the minimum gap the client is told to leave
	// between token-endpoint polls. Defaults to 5 seconds.
	PollInterval time.Duration
}

func (o *DeviceFlowOptions) applyDefaults() {
	if o.CodeLifespan == 0 {
		o.CodeLifespan = 10 * time.Minute
	}
	if o.PollInterval == 0 {
		o.PollInterval = 5 * time.Second
	}
}

// Server assembles the protocol pipelines into routable HTTP handlers.
type Server struct {
	issuer   string
	clock    clock.TimeSource
	subjects SubjectResolver

	clients    *client.StaticStore
	validator  *validate.Validator
	sessions   *session.KVStore
	consents   *consent.StoreProvider
	userinfo   identity.UserInfoProvider
	authorizeP *authorize.Pipeline
	tokens     *token.Pipeline
	ciba       *ciba.Engine
	device     *device.Engine
	introspect *introspect.Service
	backChan   *logout.BackChannelNotifier
	keys       *mint.KeySet

	deviceOpts DeviceFlowOptions
	devicePoll *pollTracker

	oauthMux     *chi.Mux
	wellKnownMux *chi.Mux
}

// Dependencies are the external collaborators New cannot construct
// itself: the shared KV backing store (spec §6's "underlying distributed
// cache"), how the HTTP layer learns which end-user subject is browsing,
// and the two identity collaborators the password grant and id-token
// claim inlining need.
type Dependencies struct {
	Backing  store.KVStore
	Subjects SubjectResolver
	Auth     identity.UserAuthenticator
	UserInfo identity.UserInfoProvider
	Clock    clock.TimeSource
}

// New resolves cfg's client roster, builds every pipeline/engine over
// deps, and assembles the chi routers. Clock defaults to clock.Real{}
// when left nil.
func New(cfg *config.Config, deps Dependencies, opts DeviceFlowOptions) (*Server, error) {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	subjects := deps.Subjects
	if subjects == nil {
		subjects = NewCookieSubjectResolver("authcore_session")
	}
	opts.applyDefaults()

	infos, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("httpserver: resolving config: %w", err)
	}
	clients := client.NewStaticStore(infos)

	signer, err := buildSigner(cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("httpserver: building signer: %w", err)
	}

	sessions := session.NewKVStore(deps.Backing, clk)
	consents := consent.NewStoreProvider(deps.Backing, 0)
	codes := authorize.NewCodeStore(deps.Backing, clk)
	reg := registry.New(deps.Backing, clk)
	minter := mint.NewMinter(signer, mint.StaticIssuer(cfg.Issuer), cfg.PairwiseSecret, clk)

	s := &Server{
		issuer:     cfg.Issuer,
		clock:      clk,
		subjects:   subjects,
		clients:    clients,
		validator:  validate.NewValidator(clients),
		sessions:   sessions,
		consents:   consents,
		userinfo:   deps.UserInfo,
		authorizeP: authorize.NewPipeline(sessions, sessions, clients, consents, codes, minter, clk),
		tokens:     token.NewPipeline(clients, sessions, codes, reg, minter, signer, deps.Auth, clk),
		introspect: introspect.NewService(signer, reg),
		backChan:   logout.NewBackChannelNotifier(minter),
		keys:       mint.NewKeySet(signer),
		deviceOpts: opts,
		devicePoll: newPollTracker(),
	}
	s.ciba = ciba.NewEngine(deps.Backing, clients, s.tokens, &ciba.HTTPNotifier{}, clk)
	s.device = device.NewEngine(deps.Backing, clients, s.tokens, clk, device.Policy{})

	s.buildRouters()
	return s, nil
}

// buildSigner turns a config.SigningKey into the mint.Signer its
// algorithm calls for: an HMAC signer for HS*, a JoseSigner over the
// asymmetric key otherwise. cfg.Validate (called by Resolve) already
// checked the key/algorithm pairing, so the type assertions here cannot
// fail in practice.
func buildSigner(k config.SigningKey) (mint.Signer, error) {
	alg := jose.SignatureAlgorithm(k.Algorithm)
	if strings.HasPrefix(k.Algorithm, "HS") {
		secret, ok := k.Key.([]byte)
		if !ok {
			return nil, fmt.Errorf("signing key %s requires a []byte secret", k.Algorithm)
		}
		return mint.NewJoseHMACSigner(alg, k.KeyID, secret), nil
	}
	signer, ok := k.Signer()
	if !ok {
		return nil, fmt.Errorf("signing key %s is not a crypto.Signer", k.Algorithm)
	}
	return mint.NewJoseSigner(alg, k.KeyID, signer, signer.Public()), nil
}

func (s *Server) buildRouters() {
	oauth := chi.NewRouter()
	oauth.Use(middleware.RequestID)
	oauth.Use(requestLogger)
	oauth.Use(middleware.Recoverer)

	oauth.Get("/authorize", s.handleAuthorize)
	oauth.Post("/authorize", s.handleAuthorize)
	oauth.Post("/token", s.handleToken)
	oauth.Post("/introspect", s.handleIntrospect)
	oauth.Post("/revoke", s.handleRevoke)
	oauth.Post("/device_authorization", s.handleDeviceAuthorization)
	oauth.Get("/device/verify", s.handleDeviceVerifyPrompt)
	oauth.Post("/device/verify", s.handleDeviceVerifyDecision)
	oauth.Post("/backchannel/authenticate", s.handleCIBAAuthenticate)
	oauth.Post("/backchannel/verify", s.handleCIBAVerifyDecision)
	oauth.Get("/logout", s.handleLogout)
	oauth.Get("/userinfo", s.handleUserInfo)
	oauth.Post("/userinfo", s.handleUserInfo)
	s.oauthMux = oauth

	wellKnown := chi.NewRouter()
	wellKnown.Use(middleware.Recoverer)
	wellKnown.Get("/jwks.json", s.handleJWKS)
	wellKnown.Get("/openid-configuration", s.handleDiscovery)
	s.wellKnownMux = wellKnown
}

// HandlerResult holds the two muxes a caller mounts under /oauth/ and
// /.well-known/ respectively.
type HandlerResult struct {
	OAuthMux     http.Handler
	WellKnownMux http.Handler
}

// Handlers returns the routers a caller mounts on its own top-level mux.
func (s *Server) Handlers() HandlerResult {
	return HandlerResult{OAuthMux: s.oauthMux, WellKnownMux: s.wellKnownMux}
}

// Handler assembles a single combined http.Handler for callers that don't
// need the OAuthMux/WellKnownMux split, mounting /oauth/ and
// /.well-known/ on one root mux.
func (s *Server) Handler() http.Handler {
	root := chi.NewRouter()
	root.Mount("/oauth", s.oauthMux)
	root.Mount("/.well-known", s.wellKnownMux)
	return root
}

// requestLogger logs each request at Debug through this module's
// singleton logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debugw("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// pollTracker remembers the last time a device_code was polled, the
// per-process state device.Engine.Redeem needs to enforce its
// minimum-interval backoff (spec §4.4). It is intentionally not
// persisted in the shared KV store: losing it on restart only resets
// throttling, never correctness, since the engine itself is the source
// of truth for whether a device_code is still pending.
type pollTracker struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func newPollTracker() *pollTracker {
	return &pollTracker{last: make(map[string]time.Time)}
}

func (t *pollTracker) get(deviceCode string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last[deviceCode]
}

func (t *pollTracker) set(deviceCode string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[deviceCode] = at
}

func (t *pollTracker) forget(deviceCode string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, deviceCode)
}
