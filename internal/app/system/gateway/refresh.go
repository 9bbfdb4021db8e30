// internal/app/system/gateway/refresh.go
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// refreshState tracks recovery from a 401 on an authenticated request.
type refreshState int

const (
	stateUnauthenticated refreshState = iota // original request got 401
	stateRefreshing                          // exchanging the refresh token
	stateRetrying                            // replaying the original request
	stateResolved                            // replay answered; its result is final
	stateFailed                              // no refresh possible; session is torn down
)

func (s refreshState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateRefreshing:
		return "refreshing"
	case stateRetrying:
		return "retrying"
	case stateResolved:
		return "resolved"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("refreshState(%d)", int(s))
}

// errNoToken marks a refresh response that carried no access token.
var errNoToken = errors.New("refresh response carried no token")

// reauthenticate runs the 401 state machine for req. Each pass issues at
// most one refresh and one replay; a second 401 on the replay is returned
// to the caller as-is.
func (g *Gateway) reauthenticate(ctx context.Context, req Request) (*Response, error) {
	log := g.f.log.With(zap.String("method", req.Method), zap.String("path", req.Path))

	state := stateUnauthenticated
	var refreshToken string
	var replay *Response

	for {
		log.Debug("reauth transition", zap.Stringer("state", state))

		switch state {
		case stateUnauthenticated:
			tok, ok, err := g.store.Get(ctx, sessionstore.RefreshToken)
			if err != nil {
				return nil, fmt.Errorf("gateway: read refresh token: %w", err)
			}
			if !ok || tok == "" {
				refreshTotal.WithLabelValues(outcomeNoToken).Inc()
				state = stateFailed
				continue
			}
			refreshToken = tok
			state = stateRefreshing

		case stateRefreshing:
			c, err := g.refresh(ctx, refreshToken)
			if err != nil {
				log.Info("token refresh failed", zap.Error(err))
				state = stateFailed
				continue
			}
			if err := sessionstore.SetCredential(ctx, g.store, c); err != nil {
				return nil, fmt.Errorf("gateway: persist refreshed credential: %w", err)
			}
			state = stateRetrying

		case stateRetrying:
			resp, err := g.send(ctx, req)
			if err != nil {
				return nil, err
			}
			replay = resp
			state = stateResolved

		case stateResolved:
			return finish(replay)

		case stateFailed:
			if err := g.store.Clear(ctx, sessionstore.AllKeys...); err != nil {
				log.Error("clear session after failed refresh", zap.Error(err))
			}
			log.Warn("session expired; credential cleared")
			return nil, ErrSessionExpired
		}
	}
}

// refresh exchanges refreshToken for a new credential, sharing the call
// with concurrent callers holding the same token when coalescing is on.
func (g *Gateway) refresh(ctx context.Context, refreshToken string) (models.Credential, error) {
	if g.f.flights == nil {
		return g.doRefresh(ctx, refreshToken)
	}
	c, err, shared := g.f.flights.do(refreshToken, func() (models.Credential, error) {
		return g.doRefresh(context.WithoutCancel(ctx), refreshToken)
	})
	if shared {
		refreshTotal.WithLabelValues(outcomeCoalesced).Inc()
	}
	return c, err
}

// doRefresh issues exactly one POST /account/refresh.
func (g *Gateway) doRefresh(ctx context.Context, refreshToken string) (models.Credential, error) {
	resp, err := g.roundTrip(ctx, Request{
		Method: http.MethodPost,
		Path:   RefreshPath,
		Body:   map[string]string{"refreshToken": refreshToken},
	})
	if err != nil {
		refreshTotal.WithLabelValues(outcomeFailed).Inc()
		return models.Credential{}, err
	}
	if !resp.OK() {
		refreshTotal.WithLabelValues(outcomeFailed).Inc()
		return models.Credential{}, newRequestError(resp.Status, resp.Body)
	}

	c := credentialFromHeaders(resp.Header)
	if c.AccessToken == "" {
		c = credentialFromBody(resp.Body)
	}
	if c.AccessToken == "" {
		refreshTotal.WithLabelValues(outcomeFailed).Inc()
		return models.Credential{}, errNoToken
	}
	refreshTotal.WithLabelValues(outcomeRefreshed).Inc()
	return c, nil
}

// flights coalesces refresh calls keyed by refresh token.
type flights struct {
	g singleflight.Group
}

func newFlights() *flights { return &flights{} }

func (f *flights) do(key string, fn func() (models.Credential, error)) (models.Credential, error, bool) {
	v, err, shared := f.g.Do(key, func() (any, error) {
		return fn()
	})
	c, _ := v.(models.Credential)
	return c, err, shared
}
