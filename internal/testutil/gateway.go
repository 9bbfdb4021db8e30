// internal/testutil/gateway.go
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"go.uber.org/zap"
)

// Gateway returns a coalescing gateway to b backed by store.
func (b *Backend) Gateway(store sessionstore.Store) *gateway.Gateway {
	return gateway.New(gateway.Options{
		BaseURL:  b.URL(),
		Timeout:  5 * time.Second,
		Logger:   zap.NewNop(),
		Coalesce: true,
	}, store)
}

// Factory returns a gateway factory for b, as the app wires it.
func (b *Backend) Factory() *gateway.Factory {
	return gateway.NewFactory(gateway.Options{
		BaseURL:  b.URL(),
		Timeout:  5 * time.Second,
		Logger:   zap.NewNop(),
		Coalesce: true,
	})
}

// SignedIn returns a session store holding fresh tokens and the profile
// of email, which must have been added with AddUser.
func (b *Backend) SignedIn(t *testing.T, email string) *sessionstore.Memory {
	t.Helper()
	ctx := context.Background()
	access, refresh := b.IssueTokens(email)
	s := sessionstore.NewMemory()
	if err := sessionstore.SetCredential(ctx, s, models.Credential{AccessToken: access, RefreshToken: refresh}); err != nil {
		t.Fatalf("set credential: %v", err)
	}
	b.mu.Lock()
	profile := b.users[strings.ToLower(email)].profile
	b.mu.Unlock()
	if err := sessionstore.SaveProfile(ctx, s, profile); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	return s
}
