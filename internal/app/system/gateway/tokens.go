// internal/app/system/gateway/tokens.go
package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
)

// Response headers that carry a fresh token pair.
const (
	HeaderAuthorization = "Authorization"
	HeaderRefreshToken  = "RefreshToken"
)

// StripBearer removes the "Bearer " scheme prefix from an Authorization value.
func StripBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}

// credentialFromHeaders reads the token pair from response headers.
// AccessToken is empty when the response carried none.
func credentialFromHeaders(h http.Header) models.Credential {
	return models.Credential{
		AccessToken:  StripBearer(h.Get(HeaderAuthorization)),
		RefreshToken: strings.TrimSpace(h.Get(HeaderRefreshToken)),
	}
}

// credentialFromBody reads a token pair from a JSON body. Some backend
// builds return the refreshed pair in the body instead of headers.
func credentialFromBody(body []byte) models.Credential {
	var b struct {
		AccessToken  string `json:"accessToken"`
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	if len(body) == 0 || json.Unmarshal(body, &b) != nil {
		return models.Credential{}
	}
	access := b.AccessToken
	if access == "" {
		access = b.Token
	}
	return models.Credential{AccessToken: StripBearer(access), RefreshToken: b.RefreshToken}
}

// ExpiresAt reads the exp claim of a JWT access token without verifying it.
// The result is for display only; expiry is enforced by the backend.
func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
