// Package gateway mediates every call the console makes to the inventory
// backend. It attaches the session's bearer token, persists fresh tokens
// from responses, and recovers from an expired access token with a single
// refresh followed by a single replay of the original request.
//
// Usage:
//
//	f := gateway.NewFactory(gateway.Options{BaseURL: cfg.APIBaseURL, Logger: logger})
//	gw := f.For(sessionStore)
//	resp, err := gw.Dispatch(ctx, gateway.Request{Method: http.MethodGet, Path: "/product"})
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefreshPath is the backend endpoint that exchanges a refresh token for a
// new token pair.
const RefreshPath = "/account/refresh"

// maxBodyBytes caps how much of a backend response is read.
const maxBodyBytes = 8 << 20

// Options configures a Factory.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client // nil uses a client with Timeout
	Timeout    time.Duration
	Logger     *zap.Logger

	// Coalesce shares one refresh call among concurrent 401s that hold the
	// same refresh token.
	Coalesce bool
}

// Factory builds per-session Gateways that share one HTTP client and one
// refresh group.
type Factory struct {
	base    string
	client  *http.Client
	log     *zap.Logger
	flights *flights
}

// NewFactory constructs a Factory from opts.
func NewFactory(opts Options) *Factory {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		client: client,
		log:    logger,
	}
	if opts.Coalesce {
		f.flights = newFlights()
	}
	return f
}

// For returns a Gateway bound to one session's store.
func (f *Factory) For(store sessionstore.Store) *Gateway {
	return &Gateway{f: f, store: store}
}

// New is shorthand for NewFactory(opts).For(store).
func New(opts Options, store sessionstore.Store) *Gateway {
	return NewFactory(opts).For(store)
}

// Gateway dispatches requests on behalf of one console session.
type Gateway struct {
	f     *Factory
	store sessionstore.Store
}

// Session returns the store this Gateway reads and writes tokens in.
func (g *Gateway) Session() sessionstore.Store { return g.store }

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded when non-nil
	Header http.Header

	// Anonymous requests carry no bearer token and skip refresh handling.
	// Login and registration use it.
	Anonymous bool
}

// Response is a fully read backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("gateway: empty response body")
	}
	return json.Unmarshal(r.Body, v)
}

// Dispatch sends req and returns the backend's response.
//
// Non-2xx responses return a *RequestError along with the response. A 401
// on an authenticated request triggers one refresh and one replay; when the
// refresh cannot happen the session is cleared and ErrSessionExpired is
// returned. Transport failures return a *NetworkFailure.
func (g *Gateway) Dispatch(ctx context.Context, req Request) (*Response, error) {
	resp, err := g.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusUnauthorized && !req.Anonymous {
		return g.reauthenticate(ctx, req)
	}
	return finish(resp)
}

// send performs one round trip and persists any tokens the response carries.
func (g *Gateway) send(ctx context.Context, req Request) (*Response, error) {
	resp, err := g.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := g.capture(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// capture stores the token pair from response headers when present.
func (g *Gateway) capture(ctx context.Context, resp *Response) error {
	c := credentialFromHeaders(resp.Header)
	if c.AccessToken != "" {
		if err := g.store.Set(ctx, sessionstore.AccessToken, c.AccessToken); err != nil {
			return fmt.Errorf("gateway: persist access token: %w", err)
		}
	}
	if c.RefreshToken != "" {
		if err := g.store.Set(ctx, sessionstore.RefreshToken, c.RefreshToken); err != nil {
			return fmt.Errorf("gateway: persist refresh token: %w", err)
		}
	}
	return nil
}

// roundTrip builds, sends, and fully reads one HTTP exchange.
func (g *Gateway) roundTrip(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := g.build(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := g.f.client.Do(httpReq)
	requestSeconds.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, statusClass(0)).Inc()
		g.f.log.Warn("backend request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err))
		return nil, &NetworkFailure{Op: req.Method + " " + req.Path, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, statusClass(0)).Inc()
		return nil, &NetworkFailure{Op: "read " + req.Path, Err: err}
	}
	requestsTotal.WithLabelValues(req.Method, statusClass(httpResp.StatusCode)).Inc()

	g.f.log.Debug("backend request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: body}, nil
}

func (g *Gateway) build(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u := g.f.base + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode body for %s: %w", req.Path, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request %s: %w", req.Path, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}

	if !req.Anonymous {
		token, ok, err := g.store.Get(ctx, sessionstore.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("gateway: read access token: %w", err)
		}
		if ok && token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}

// finish maps a response to the Dispatch result.
func finish(resp *Response) (*Response, error) {
	if resp.OK() {
		return resp, nil
	}
	return resp, newRequestError(resp.Status, resp.Body)
}
