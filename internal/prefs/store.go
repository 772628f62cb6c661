package prefs

import (
	"context"
	"strings"
	"time"
)

// Keys used by the client.
const (
	RememberedEmailKey = "remembered_email"
	IDTokenKey         = "id_token"
)

// Store is a small key-value store for persisted client preferences.
// Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value; ttl <= 0 keeps it until deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RememberEmail stores the email used for the last successful login.
// An empty email forgets it.
func RememberEmail(ctx context.Context, s Store, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return s.Delete(ctx, RememberedEmailKey)
	}
	return s.Set(ctx, RememberedEmailKey, email, 0)
}

// RememberedEmail returns the remembered email, or "" when none is stored.
func RememberedEmail(ctx context.Context, s Store) (string, error) {
	v, ok, err := s.Get(ctx, RememberedEmailKey)
	if err != nil || !ok {
		return "", err
	}
	return v, nil
}
