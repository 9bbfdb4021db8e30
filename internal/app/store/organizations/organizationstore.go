// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"github.com/dalemusser/stockconsole/internal/app/system/envelope"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/domain/models"
)

// MsgCreateFailed is shown when organization creation fails without a
// backend message.
const MsgCreateFailed = "Error al crear la organización."

// maxCodeLen bounds suggested organization codes.
const maxCodeLen = 10

type Store struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) *Store {
	return &Store{gw: gw}
}

// Create adds an organization for the signed-in user.
func (s *Store) Create(ctx context.Context, name, code string) (models.Organization, error) {
	resp, err := s.gw.Dispatch(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/organization",
		Body: struct {
			Name string `json:"Name"`
			Code string `json:"Code"`
		}{Name: strings.TrimSpace(name), Code: strings.TrimSpace(code)},
	})
	if err != nil {
		return models.Organization{}, err
	}
	return envelope.Entity[models.Organization](resp.Body)
}

// CreateMessage renders a Create error.
func CreateMessage(err error) string {
	if msg := gateway.BackendMessage(err); msg != "" {
		return msg
	}
	return gateway.MessageOf(err, MsgCreateFailed)
}

// SuggestCode derives a code from an organization name: upper case, only
// A-Z and 0-9, at most ten characters.
func SuggestCode(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if b.Len() == maxCodeLen {
			break
		}
		if r > unicode.MaxASCII {
			continue
		}
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
