// internal/gateway/gateway.go
//
// The content gateway endpoint.
//
// Context
// -------
// One http.Handler serves every resource.  Per request:
//
//  1. OPTIONS is answered immediately: 200, empty body, CORS headers.
//  2. Normalize parses the body into a Request.
//  3. Credentials are validated (auth.Validator).  With
//     `gateway.public_submit` enabled, forms:submit without an API key
//     proceeds as an anonymous caller of the named tenant.
//  4. The route table picks a handler and applies the permission gate.
//  5. The handler runs against the tenant-scoped record store.
//  6. The body or the classified error is written as JSON.
//
// Panics anywhere in steps 2–5 are recovered once, here, and reported as
// KindInternal.  Internal causes are always logged; the client sees them
// only when `gateway.expose_internal_errors` is set.
//
// Notes
// -----
// • The gateway itself is stateless; the route table is built once in New.
// • Oxford commas, two spaces after periods.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/yanizio/adept-gateway/internal/auth"
	"github.com/yanizio/adept-gateway/internal/config"
	"github.com/yanizio/adept-gateway/internal/logger"
	"github.com/yanizio/adept-gateway/internal/metrics"
	"github.com/yanizio/adept-gateway/internal/store"
)

// Authenticator validates credentials.  *auth.Validator implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey, tenantID string) (*auth.Caller, error)
}

// Options wires a Gateway.
type Options struct {
	Records store.Store
	Auth    Authenticator
	Config  config.Gateway
}

// Gateway is the http.Handler for the content API.
type Gateway struct {
	records store.Store
	authn   Authenticator
	cfg     atomic.Pointer[config.Gateway]
	routes  map[routeKey]route
}

var _ http.Handler = (*Gateway)(nil)

// New returns a ready Gateway.
func New(opts Options) *Gateway {
	g := &Gateway{
		records: opts.Records,
		authn:   opts.Auth,
	}
	g.SetConfig(opts.Config)
	g.routes = g.buildRoutes()
	return g
}

// SetConfig swaps the behaviour toggles.  Requests already in flight keep
// the settings they started with.
func (g *Gateway) SetConfig(cfg config.Gateway) {
	if cfg.DefaultSuccessMessage == "" {
		cfg.DefaultSuccessMessage = "Thank you!"
	}
	g.cfg.Store(&cfg)
}

func (g *Gateway) settings() *config.Gateway { return g.cfg.Load() }

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	cfg := g.settings()

	req := Normalize(r)
	body, err := g.dispatch(ctx, r, req, cfg)

	status := http.StatusOK
	if err != nil {
		ge := classify(err)
		var msg string
		status, msg = statusAndMessage(ge, *cfg)
		if ge.Kind == KindInternal {
			log.Errorw("gateway internal error",
				"resource", req.Resource, "action", req.Action, "err", ge.Err)
		} else {
			log.Debugw("gateway request rejected",
				"resource", req.Resource, "action", req.Action, "kind", ge.Kind.String())
		}
		body = errorBody{Error: msg}
	}
	writeJSON(w, log, status, body)

	res, act := g.labels(req)
	metrics.RequestsTotal.WithLabelValues(res, act, strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(res, act).Observe(time.Since(start).Seconds())
}

// dispatch authenticates, routes, and runs the handler for req.
func (g *Gateway) dispatch(ctx context.Context, r *http.Request, req Request, cfg *config.Gateway) (body any, err error) {
	defer func() {
		if p := recover(); p != nil {
			metrics.PanicsTotal.Inc()
			body, err = nil, internal(fmt.Errorf("panic: %v", p))
		}
	}()

	caller, err := g.authenticate(ctx, r, req, cfg.PublicSubmit)
	if err != nil {
		return nil, err
	}
	rt, err := g.resolve(caller, req)
	if err != nil {
		return nil, err
	}
	return rt.handler(withSettings(auth.WithCaller(ctx, caller), cfg), caller, req)
}

// authenticate maps credential failures onto gateway kinds.
func (g *Gateway) authenticate(ctx context.Context, r *http.Request, req Request, publicSubmit bool) (*auth.Caller, error) {
	key, tenant := auth.Credentials(r)

	var (
		c   *auth.Caller
		err error
	)
	if key == "" && publicSubmit && g.isPublic(req) {
		c, err = auth.Anonymous(tenant)
	} else {
		c, err = g.authn.Authenticate(ctx, key, tenant)
	}

	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, auth.ErrMissingCredentials):
		return nil, fail(KindMissingCredentials, "")
	case errors.Is(err, auth.ErrInvalidKey):
		return nil, fail(KindInvalidKey, "")
	case errors.Is(err, auth.ErrExpired):
		return nil, fail(KindExpired, "")
	}
	return nil, internal(err)
}

func (g *Gateway) isPublic(req Request) bool {
	rt, ok := g.lookup(req)
	return ok && rt.public
}

// labels bounds metric cardinality to routes that exist.
func (g *Gateway) labels(req Request) (string, string) {
	if _, ok := g.lookup(req); ok {
		return req.Resource, req.Action
	}
	return "unknown", "unknown"
}

type settingsKey struct{}

// withSettings pins the request's config snapshot for handlers.
func withSettings(ctx context.Context, cfg *config.Gateway) context.Context {
	return context.WithValue(ctx, settingsKey{}, cfg)
}

// settingsFrom returns the pinned snapshot, or the current one.
func (g *Gateway) settingsFrom(ctx context.Context) *config.Gateway {
	if cfg, ok := ctx.Value(settingsKey{}).(*config.Gateway); ok {
		return cfg
	}
	return g.settings()
}
