package security

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ts := NewTokenStore(client)
	ts.Configure("client-id", "client-secret", "http://localhost:8080/auth/google/callback")
	return ts
}

func TestStoreAndGetToken(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	require.NoError(t, ts.StoreToken(ctx, "ops", token))

	got, err := ts.Token(ctx, "ops")
	require.NoError(t, err)
	require.Equal(t, "access", got.AccessToken)
	require.Equal(t, "refresh", got.RefreshToken)
	require.Equal(t, "valid", ts.Status(ctx, "ops"))
}

func TestTokenMissing(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	_, err := ts.Token(ctx, "nobody")
	require.Error(t, err)
	require.Equal(t, "missing", ts.Status(ctx, "nobody"))
}

func TestStatusExpired(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	token := &oauth2.Token{
		AccessToken: "stale",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, ts.StoreToken(ctx, "ops", token))
	require.Equal(t, "expired", ts.Status(ctx, "ops"))
}

func TestAuthURLStoresState(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	url, state, err := ts.AuthURL(ctx, "ops")
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.Contains(t, url, "client-id")
	require.Contains(t, url, "access_type=offline")

	account, err := ts.redisClient.Get(ctx, stateKey(state)).Result()
	require.NoError(t, err)
	require.Equal(t, "ops", account)
}

func TestExchangeRejectsUnknownState(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	_, err := ts.Exchange(ctx, "code", "bogus-state")
	require.Error(t, err)
	require.Contains(t, err.Error(), "state")
}

func TestRefreshRequiresRefreshToken(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	token := &oauth2.Token{
		AccessToken: "access-only",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(-time.Minute),
	}
	require.NoError(t, ts.StoreToken(ctx, "ops", token))

	_, err := ts.Refresh(ctx, "ops")
	require.Error(t, err)
	require.Contains(t, err.Error(), "refresh token")
}

func TestDeleteToken(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, ts.StoreToken(ctx, "ops", &oauth2.Token{
		AccessToken: "a", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour),
	}))
	require.NoError(t, ts.DeleteToken(ctx, "ops"))
	require.Equal(t, "missing", ts.Status(ctx, "ops"))
}
