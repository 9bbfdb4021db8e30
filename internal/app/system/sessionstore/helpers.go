package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dalemusser/stockconsole/internal/domain/models"
)

// Credential reads the token pair. Missing keys yield empty strings.
func Credential(ctx context.Context, s Store) (models.Credential, error) {
	access, _, err := s.Get(ctx, AccessToken)
	if err != nil {
		return models.Credential{}, err
	}
	refresh, _, err := s.Get(ctx, RefreshToken)
	if err != nil {
		return models.Credential{}, err
	}
	return models.Credential{AccessToken: access, RefreshToken: refresh}, nil
}

// SetCredential writes both tokens. An empty refresh token leaves the
// stored one in place, matching the backend's habit of omitting it.
func SetCredential(ctx context.Context, s Store, c models.Credential) error {
	if err := s.Set(ctx, AccessToken, c.AccessToken); err != nil {
		return err
	}
	if c.RefreshToken == "" {
		return nil
	}
	return s.Set(ctx, RefreshToken, c.RefreshToken)
}

// SaveProfile caches the user profile as JSON.
func SaveProfile(ctx context.Context, s Store, p models.UserProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.Set(ctx, UserProfile, string(b))
}

// LoadProfile returns the cached profile. ok is false when none is cached
// or the cached value no longer decodes.
func LoadProfile(ctx context.Context, s Store) (models.UserProfile, bool, error) {
	raw, ok, err := s.Get(ctx, UserProfile)
	if err != nil || !ok || raw == "" {
		return models.UserProfile{}, false, err
	}
	var p models.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return models.UserProfile{}, false, nil
	}
	return p, true, nil
}

// Copy writes every key held by src into dst. Keys src lacks are left
// untouched in dst.
func Copy(ctx context.Context, dst, src Store) error {
	for _, k := range AllKeys {
		v, ok, err := src.Get(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := dst.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
