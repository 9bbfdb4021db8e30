package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/dalemusser/stockconsole/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "secret1"
)

func newBackend(t *testing.T) *testutil.Backend {
	t.Helper()
	b := testutil.NewBackend(t)
	b.AddUser(testEmail, testPassword, models.UserProfile{FullName: "Ana"})
	b.SeedProducts(3)
	return b
}

func newGateway(b *testutil.Backend, store sessionstore.Store, coalesce bool) *gateway.Gateway {
	return gateway.New(gateway.Options{
		BaseURL:  b.URL(),
		Timeout:  5 * time.Second,
		Logger:   zap.NewNop(),
		Coalesce: coalesce,
	}, store)
}

func signedInStore(t *testing.T, b *testutil.Backend) *sessionstore.Memory {
	t.Helper()
	access, refresh := b.IssueTokens(testEmail)
	s := sessionstore.NewMemory()
	require.NoError(t, sessionstore.SetCredential(context.Background(), s, models.Credential{AccessToken: access, RefreshToken: refresh}))
	require.NoError(t, sessionstore.SaveProfile(context.Background(), s, models.UserProfile{FullName: "Ana"}))
	return s
}

func listProducts() gateway.Request {
	return gateway.Request{
		Method: http.MethodGet,
		Path:   "/product",
		Query:  url.Values{"page": {"1"}, "perPage": {"10"}, "sortOrder": {"desc"}},
	}
}

func TestDispatch_AttachesHeaders(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, true)

	resp, err := gw.Dispatch(context.Background(), listProducts())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	rec, ok := b.LastRequest(http.MethodGet, "/product")
	require.True(t, ok)
	token, _, _ := store.Get(context.Background(), sessionstore.AccessToken)
	assert.Equal(t, "Bearer "+token, rec.Authorization)
	assert.Equal(t, "application/json", rec.ContentType)
	assert.Contains(t, rec.Query, "sortOrder=desc")
}

func TestDispatch_AnonymousCapturesTokens(t *testing.T) {
	b := newBackend(t)
	store := sessionstore.NewMemory()
	gw := newGateway(b, store, true)

	resp, err := gw.Dispatch(context.Background(), gateway.Request{
		Method:    http.MethodPost,
		Path:      "/account/login",
		Body:      map[string]string{"email": testEmail, "password": testPassword},
		Anonymous: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	rec, _ := b.LastRequest(http.MethodPost, "/account/login")
	assert.Empty(t, rec.Authorization)

	access, ok, _ := store.Get(context.Background(), sessionstore.AccessToken)
	require.True(t, ok)
	assert.False(t, strings.HasPrefix(access, "Bearer "), "bearer prefix must be stripped")
	_, ok, _ = store.Get(context.Background(), sessionstore.RefreshToken)
	assert.True(t, ok)
}

func TestDispatch_AnonymousUnauthorizedDoesNotRefresh(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, true)

	_, err := gw.Dispatch(context.Background(), gateway.Request{
		Method:    http.MethodPost,
		Path:      "/account/login",
		Body:      map[string]string{"email": testEmail, "password": "wrong"},
		Anonymous: true,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err))
	assert.Equal(t, 0, b.Calls(http.MethodPost, gateway.RefreshPath))
	assert.Equal(t, 3, store.Len(), "session must be untouched")
}

func TestDispatch_RefreshesAndReplaysOnce(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	oldAccess, _, _ := store.Get(context.Background(), sessionstore.AccessToken)
	gw := newGateway(b, store, true)

	b.ExpireAccessTokens()

	resp, err := gw.Dispatch(context.Background(), listProducts())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	assert.Equal(t, 1, b.Calls(http.MethodPost, gateway.RefreshPath))
	assert.Equal(t, 2, b.Calls(http.MethodGet, "/product"))

	newAccess, _, _ := store.Get(context.Background(), sessionstore.AccessToken)
	assert.NotEqual(t, oldAccess, newAccess)

	rec, _ := b.LastRequest(http.MethodGet, "/product")
	assert.Equal(t, "Bearer "+newAccess, rec.Authorization)

	refreshReq, _ := b.LastRequest(http.MethodPost, gateway.RefreshPath)
	assert.Contains(t, string(refreshReq.Body), `"refreshToken"`)
}

func TestDispatch_NoRefreshTokenExpiresSession(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	require.NoError(t, store.Clear(context.Background(), sessionstore.RefreshToken))
	gw := newGateway(b, store, true)

	b.ExpireAccessTokens()

	_, err := gw.Dispatch(context.Background(), listProducts())
	require.ErrorIs(t, err, gateway.ErrSessionExpired)
	assert.Equal(t, 0, b.Calls(http.MethodPost, gateway.RefreshPath))
	assert.Equal(t, 1, b.Calls(http.MethodGet, "/product"), "no replay")
	assert.Equal(t, 0, store.Len(), "all session keys cleared")
}

func TestDispatch_FailedRefreshExpiresSession(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, true)

	b.ExpireAccessTokens()
	b.FailRefresh = true

	_, err := gw.Dispatch(context.Background(), listProducts())
	require.ErrorIs(t, err, gateway.ErrSessionExpired)
	assert.Equal(t, 1, b.Calls(http.MethodPost, gateway.RefreshPath))
	assert.Equal(t, 1, b.Calls(http.MethodGet, "/product"))
	assert.Equal(t, 0, store.Len())
}

func TestDispatch_RefreshWithoutTokenExpiresSession(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, true)

	b.ExpireAccessTokens()
	b.RefreshWithoutToken = true

	_, err := gw.Dispatch(context.Background(), listProducts())
	require.ErrorIs(t, err, gateway.ErrSessionExpired)
	assert.Equal(t, 1, b.Calls(http.MethodGet, "/product"))
	assert.Equal(t, 0, store.Len())
}

func TestDispatch_ReplayFailureIsReturnedWithoutSecondRefresh(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, true)

	b.FailNext(http.MethodGet, "/product", http.StatusUnauthorized, "expirado")
	b.FailNext(http.MethodGet, "/product", http.StatusUnauthorized, "otra vez")

	resp, err := gw.Dispatch(context.Background(), listProducts())
	require.Error(t, err)
	assert.False(t, errors.Is(err, gateway.ErrSessionExpired))
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusOf(err))
	require.NotNil(t, resp)
	assert.Equal(t, "otra vez", gateway.MessageOf(err, ""))

	assert.Equal(t, 1, b.Calls(http.MethodPost, gateway.RefreshPath))
	assert.Equal(t, 2, b.Calls(http.MethodGet, "/product"))
	assert.Equal(t, 3, store.Len(), "replay failure keeps the refreshed session")
}

func TestDispatch_RequestErrorMessages(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, true)

	b.FailNext(http.MethodGet, "/product", http.StatusInternalServerError, "Falló el servidor")
	_, err := gw.Dispatch(context.Background(), listProducts())
	var re *gateway.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusInternalServerError, re.Status)
	assert.Equal(t, "Falló el servidor", re.Message)

	b.FailNext(http.MethodGet, "/product", http.StatusBadRequest, "")
	_, err = gw.Dispatch(context.Background(), listProducts())
	require.ErrorAs(t, err, &re)
	assert.Equal(t, gateway.MsgRequestFailed, re.Message)
	assert.True(t, re.Generic)
}

func TestDispatch_NetworkFailure(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, true)
	b.Server.Close()

	_, err := gw.Dispatch(context.Background(), listProducts())
	var nf *gateway.NetworkFailure
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, gateway.MsgNetworkFailure, gateway.MessageOf(err, "x"))
	assert.Equal(t, 3, store.Len())
}

func TestDispatch_ConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, true)

	b.ExpireAccessTokens()
	b.SetRefreshDelay(150 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gw.Dispatch(context.Background(), listProducts())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, b.Calls(http.MethodPost, gateway.RefreshPath))
}

func TestDispatch_UncoalescedRefreshesRace(t *testing.T) {
	b := newBackend(t)
	store := signedInStore(t, b)
	gw := newGateway(b, store, false)

	b.ExpireAccessTokens()
	b.SetRefreshDelay(150 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gw.Dispatch(context.Background(), listProducts())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, b.Calls(http.MethodPost, gateway.RefreshPath))
	expired := 0
	for _, err := range errs {
		if errors.Is(err, gateway.ErrSessionExpired) {
			expired++
		}
	}
	assert.Equal(t, 1, expired, "the rotated refresh token fails the second caller")
}

func TestExpiresAt(t *testing.T) {
	b := newBackend(t)
	access, _ := b.IssueTokens(testEmail)

	exp, ok := gateway.ExpiresAt(access)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, time.Minute)

	_, ok = gateway.ExpiresAt("not-a-jwt")
	assert.False(t, ok)
}

func TestStripBearer(t *testing.T) {
	assert.Equal(t, "abc", gateway.StripBearer("Bearer abc"))
	assert.Equal(t, "abc", gateway.StripBearer("bearer abc"))
	assert.Equal(t, "abc", gateway.StripBearer("abc"))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, gateway.MsgSessionExpired, gateway.MessageOf(gateway.ErrSessionExpired, "x"))
	assert.Equal(t, "m", gateway.MessageOf(&gateway.RequestError{Status: 409, Message: "m"}, "x"))
	assert.Equal(t, "x", gateway.MessageOf(errors.New("other"), "x"))
	assert.Equal(t, "", gateway.MessageOf(nil, "x"))
}

func TestBackendMessage(t *testing.T) {
	assert.Equal(t, "m", gateway.BackendMessage(&gateway.RequestError{Status: 400, Message: "m"}))
	assert.Equal(t, "", gateway.BackendMessage(&gateway.RequestError{Status: 401, Message: gateway.MsgUnauthorized, Generic: true}))
	assert.Equal(t, "", gateway.BackendMessage(errors.New("other")))
}
