// Package security holds the Google OAuth plumbing: redis-backed token
// storage with refresh, CSRF state handling and construction of an
// authenticated Calendar service.
package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// CalendarScopes covers everything the sync needs: listing calendars,
// creating them and managing events.
var CalendarScopes = []string{
	calendar.CalendarScope,
}

// TokenInfo is the stored shape of an OAuth token.
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	Account      string    `json:"account"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenStore manages the calendar OAuth token in Redis.
type TokenStore struct {
	redisClient *redis.Client
	config      *oauth2.Config
}

// NewTokenStore creates a token store around a redis client.
func NewTokenStore(redisClient *redis.Client) *TokenStore {
	return &TokenStore{redisClient: redisClient}
}

// Configure sets the OAuth client credentials.
func (ts *TokenStore) Configure(clientID, clientSecret, redirectURL string) {
	ts.config = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       CalendarScopes,
		Endpoint:     google.Endpoint,
	}
	log.Printf("security: configured calendar OAuth client %s", clientID)
}

// Configured reports whether OAuth credentials are present.
func (ts *TokenStore) Configured() bool {
	return ts.config != nil
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

func tokenKey(account string) string {
	return "oauth_token:" + account
}

// AuthURL generates the consent URL plus a CSRF state bound to the
// account for ten minutes.
func (ts *TokenStore) AuthURL(ctx context.Context, account string) (string, string, error) {
	if ts.config == nil {
		return "", "", fmt.Errorf("calendar OAuth not configured")
	}

	stateBytes := make([]byte, 32)
	if _, err := rand.Read(stateBytes); err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(stateBytes)

	if err := ts.redisClient.Set(ctx, stateKey(state), account, 10*time.Minute).Err(); err != nil {
		return "", "", fmt.Errorf("store OAuth state: %w", err)
	}

	authURL := ts.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return authURL, state, nil
}

// Exchange validates the callback state, trades the code for a token
// and stores it. It returns the account the state was issued for.
func (ts *TokenStore) Exchange(ctx context.Context, code, state string) (string, error) {
	if ts.config == nil {
		return "", fmt.Errorf("calendar OAuth not configured")
	}

	account, err := ts.redisClient.Get(ctx, stateKey(state)).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("invalid or expired state parameter")
	} else if err != nil {
		return "", fmt.Errorf("verify state: %w", err)
	}
	defer ts.redisClient.Del(ctx, stateKey(state))

	token, err := ts.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if err := ts.StoreToken(ctx, account, token); err != nil {
		return "", err
	}
	return account, nil
}

// StoreToken persists a token for the account. Tokens keep a 30 day
// TTL and are refreshed on access.
func (ts *TokenStore) StoreToken(ctx context.Context, account string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	info := &TokenInfo{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
		Account:      account,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal token info: %w", err)
	}
	if err := ts.redisClient.Set(ctx, tokenKey(account), data, 30*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("store token in redis: %w", err)
	}

	log.Printf("security: stored calendar token for %s", account)
	return nil
}

// Token retrieves the stored token for an account.
func (ts *TokenStore) Token(ctx context.Context, account string) (*oauth2.Token, error) {
	data, err := ts.redisClient.Get(ctx, tokenKey(account)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("no calendar token for %s", account)
	} else if err != nil {
		return nil, fmt.Errorf("retrieve token: %w", err)
	}

	var info TokenInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, fmt.Errorf("unmarshal token info: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  info.AccessToken,
		RefreshToken: info.RefreshToken,
		TokenType:    info.TokenType,
		Expiry:       info.Expiry,
	}, nil
}

// Refresh forces a refresh of the stored token.
func (ts *TokenStore) Refresh(ctx context.Context, account string) (*oauth2.Token, error) {
	if ts.config == nil {
		return nil, fmt.Errorf("calendar OAuth not configured")
	}

	current, err := ts.Token(ctx, account)
	if err != nil {
		return nil, err
	}
	if current.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token for %s", account)
	}

	// Mark the cached token expired so the TokenSource actually
	// refreshes instead of handing the old one back.
	if current.Expiry.After(time.Now()) {
		current.Expiry = time.Now().Add(-1 * time.Minute)
	}

	fresh, err := ts.config.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if err := ts.StoreToken(ctx, account, fresh); err != nil {
		return nil, err
	}

	log.Printf("security: refreshed calendar token for %s", account)
	return fresh, nil
}

// ValidToken returns a usable token, refreshing when it expires within
// five minutes.
func (ts *TokenStore) ValidToken(ctx context.Context, account string) (*oauth2.Token, error) {
	token, err := ts.Token(ctx, account)
	if err != nil {
		return nil, err
	}
	if token.Expiry.Before(time.Now().Add(5 * time.Minute)) {
		log.Printf("security: token for %s expires soon, refreshing", account)
		return ts.Refresh(ctx, account)
	}
	return token, nil
}

// DeleteToken removes the stored token.
func (ts *TokenStore) DeleteToken(ctx context.Context, account string) error {
	if err := ts.redisClient.Del(ctx, tokenKey(account)).Err(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	log.Printf("security: deleted calendar token for %s", account)
	return nil
}

// Status describes the stored token: "missing", "expired" or "valid".
func (ts *TokenStore) Status(ctx context.Context, account string) string {
	token, err := ts.Token(ctx, account)
	if err != nil {
		return "missing"
	}
	if token.Expiry.Before(time.Now().Add(5 * time.Minute)) {
		return "expired"
	}
	return "valid"
}
