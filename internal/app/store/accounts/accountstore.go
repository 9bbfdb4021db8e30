// internal/app/store/accounts/accountstore.go
package accountstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/stockconsole/internal/app/system/envelope"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/domain/models"
)

const (
	loginPath       = "/account/login"
	registerPath    = "/account/register"
	registerOrgPath = "/account/register-with-organization"
	forgotPath      = "/account/forgot-password"
)

// Messages shown when the backend explains nothing.
const (
	MsgBadCredentials   = "Email o contraseña incorrectos."
	MsgLoginFailed      = "Error al iniciar sesión."
	MsgInvalidResponse  = "Respuesta inválida del servidor."
	MsgRegisterFailed   = "Error al registrar."
	MsgGenericFailure   = "Ocurrió un error. Intenta de nuevo."
	MsgResetCodeEmailed = "Código de verificación enviado a tu email"
)

// ErrInvalidResponse means a 2xx login response carried no user profile.
var ErrInvalidResponse = errors.New("login response carried no user profile")

// RegisterRequest is the body of POST /account/register.
type RegisterRequest struct {
	FullName             string `json:"FullName"`
	Email                string `json:"Email"`
	Password             string `json:"Password"`
	ConfirmationPassword string `json:"ConfirmationPassword"`
	Birthday             string `json:"Birthday"`
	Gender               int    `json:"Gender"`
	Phone                string `json:"Phone,omitempty"`
	OrganizationID       *int64 `json:"OrganizationId,omitempty"`
}

// RegisterWithOrganizationRequest is the body of
// POST /account/register-with-organization.
type RegisterWithOrganizationRequest struct {
	OrganizationName     string `json:"organizationName"`
	OrganizationCode     string `json:"organizationCode,omitempty"`
	FullName             string `json:"fullName"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	ConfirmationPassword string `json:"confirmationPassword"`
	Birthday             string `json:"birthday"`
	Gender               int    `json:"gender"`
	Phone                string `json:"phone,omitempty"`
}

// Store runs the account flows against the backend. Tokens are captured
// by the gateway; the store adds the profile cache.
type Store struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) *Store {
	return &Store{gw: gw}
}

// Login authenticates and caches the returned profile.
func (s *Store) Login(ctx context.Context, email, password string) (models.UserProfile, error) {
	resp, err := s.gw.Dispatch(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      loginPath,
		Body:      map[string]string{"email": email, "password": password},
		Anonymous: true,
	})
	if err != nil {
		return models.UserProfile{}, err
	}

	profile, ok, err := envelope.Member[models.UserProfile](resp.Body, "data", "result")
	if err != nil || !ok {
		return models.UserProfile{}, ErrInvalidResponse
	}
	if err := sessionstore.SaveProfile(ctx, s.gw.Session(), profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("cache profile: %w", err)
	}
	return profile, nil
}

// Register creates a user. It does not sign in.
func (s *Store) Register(ctx context.Context, req RegisterRequest) error {
	_, err := s.gw.Dispatch(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      registerPath,
		Body:      req,
		Anonymous: true,
	})
	return err
}

// RegisterWithOrganization creates a user together with a new
// organization, then signs in with the same credentials.
func (s *Store) RegisterWithOrganization(ctx context.Context, req RegisterWithOrganizationRequest) (models.UserProfile, error) {
	_, err := s.gw.Dispatch(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      registerOrgPath,
		Body:      req,
		Anonymous: true,
	})
	if err != nil {
		return models.UserProfile{}, err
	}
	return s.Login(ctx, req.Email, req.Password)
}

// ForgotPassword asks the backend to email a reset code.
func (s *Store) ForgotPassword(ctx context.Context, email string) error {
	_, err := s.gw.Dispatch(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      forgotPath,
		Body:      map[string]string{"email": email},
		Anonymous: true,
	})
	return err
}

// Logout forgets the credential and the profile cache. The backend is not
// told.
func (s *Store) Logout(ctx context.Context) error {
	return s.gw.Session().Clear(ctx)
}

// LoginMessage renders a Login error for the login form.
func LoginMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInvalidResponse) {
		return MsgInvalidResponse
	}
	if msg := gateway.BackendMessage(err); msg != "" {
		return msg
	}
	switch gateway.StatusOf(err) {
	case 0:
		return gateway.MessageOf(err, MsgLoginFailed)
	case http.StatusUnauthorized:
		return MsgBadCredentials
	}
	return MsgLoginFailed
}

// RegisterMessage renders a registration error.
func RegisterMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInvalidResponse) {
		return MsgInvalidResponse
	}
	if msg := gateway.BackendMessage(err); msg != "" {
		return msg
	}
	var nf *gateway.NetworkFailure
	if errors.As(err, &nf) {
		return gateway.MsgNetworkFailure
	}
	return MsgRegisterFailed
}
