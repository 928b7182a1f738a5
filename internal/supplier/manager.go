package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	applog "b2bcatalog/internal/log"
)

const userAgent = "b2bcatalog/1.0"

type Credentials struct {
	BaseURL  string
	Email    string
	Password string
}

// TokenManager owns the supplier token. It is safe for concurrent use; all
// credential exchanges are serialized.
type TokenManager struct {
	creds  Credentials
	http   *http.Client
	store  TokenStore
	margin time.Duration
	ttl    time.Duration

	// Now is the clock; tests replace it.
	Now func() time.Time

	mu     sync.Mutex
	tok    Token
	loaded bool
}

func NewTokenManager(creds Credentials, hc *http.Client, store TokenStore, margin, ttl time.Duration) *TokenManager {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if store == nil {
		store = &MemoryTokenStore{}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{creds: creds, http: hc, store: store, margin: margin, ttl: ttl, Now: time.Now}
}

// ValidToken returns an access token that is good for at least the safety
// margin, refreshing or logging in again when needed.
func (m *TokenManager) ValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked(ctx)
	if m.tok.Valid(m.Now(), m.margin) {
		return m.tok.AccessToken, nil
	}
	var (
		t   Token
		err error
	)
	if m.tok.RefreshToken != "" {
		t, err = m.refreshLocked(ctx)
	} else {
		t, err = m.authenticateLocked(ctx)
	}
	if err != nil {
		return "", err
	}
	if !t.Valid(m.Now(), m.margin) {
		return "", &AuthenticationError{Op: "token", Err: ErrShortLived}
	}
	return t.AccessToken, nil
}

// Authenticate exchanges the configured credentials for a new token pair.
func (m *TokenManager) Authenticate(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticateLocked(ctx)
}

// Refresh trades the stored refresh token for a new access token and falls
// back to a full login when that fails.
func (m *TokenManager) Refresh(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked(ctx)
	return m.refreshLocked(ctx)
}

// Invalidate forgets the access and refresh tokens, in memory and in the
// store, since a 401 on a locally valid token means the session is gone.
func (m *TokenManager) Invalidate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keepLocked(ctx, Token{})
}

// Reauthenticate is Invalidate followed by a fresh login.
func (m *TokenManager) Reauthenticate(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keepLocked(ctx, Token{})
	t, err := m.authenticateLocked(ctx)
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}

// Current returns the cached token without touching the network.
func (m *TokenManager) Current() Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok
}

func (m *TokenManager) loadLocked(ctx context.Context) {
	if m.loaded {
		return
	}
	m.loaded = true
	t, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoToken):
	case err != nil:
		applog.Warn(nil, "supplier.token.load", err, nil)
	default:
		m.tok = t
	}
}

type tokenResponse struct {
	Access       string `json:"access"`
	Refresh      string `json:"refresh"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (r tokenResponse) access() string {
	if r.Access != "" {
		return r.Access
	}
	return r.AccessToken
}

func (r tokenResponse) refresh() string {
	if r.Refresh != "" {
		return r.Refresh
	}
	return r.RefreshToken
}

func (m *TokenManager) authenticateLocked(ctx context.Context) (Token, error) {
	if m.creds.Email == "" || m.creds.Password == "" {
		return Token{}, &AuthenticationError{Op: "login", Err: ErrMissingCredentials}
	}
	var resp tokenResponse
	status, err := m.postJSON(ctx, "/auth/login/", map[string]string{
		"email":    m.creds.Email,
		"password": m.creds.Password,
	}, &resp)
	if err != nil || status/100 != 2 {
		return Token{}, &AuthenticationError{Op: "login", Status: status, Err: err}
	}
	if resp.access() == "" {
		return Token{}, &AuthenticationError{Op: "login", Status: status, Err: errors.New("response has no access token")}
	}
	t := Token{AccessToken: resp.access(), RefreshToken: resp.refresh(), ExpiresAt: m.expiry(resp)}
	m.keepLocked(ctx, t)
	applog.Info(nil, "supplier.auth.login", map[string]any{"expires_at": t.ExpiresAt.UTC().Format(time.RFC3339)})
	return t, nil
}

func (m *TokenManager) refreshLocked(ctx context.Context) (Token, error) {
	if m.tok.RefreshToken == "" {
		return m.authenticateLocked(ctx)
	}
	var resp tokenResponse
	status, err := m.postJSON(ctx, "/auth/refresh/", map[string]string{"refresh": m.tok.RefreshToken}, &resp)
	if err != nil || status/100 != 2 || resp.access() == "" {
		applog.Warn(nil, "supplier.auth.refresh.fail", err, map[string]any{"status": status})
		return m.authenticateLocked(ctx)
	}
	t := Token{AccessToken: resp.access(), RefreshToken: resp.refresh(), ExpiresAt: m.expiry(resp)}
	if t.RefreshToken == "" {
		t.RefreshToken = m.tok.RefreshToken
	}
	m.keepLocked(ctx, t)
	applog.Info(nil, "supplier.auth.refresh", map[string]any{"expires_at": t.ExpiresAt.UTC().Format(time.RFC3339)})
	return t, nil
}

// keepLocked caches t and persists it. A failed save is logged only; the
// token is still usable for this process.
func (m *TokenManager) keepLocked(ctx context.Context, t Token) {
	m.tok = t
	m.loaded = true
	if err := m.store.Save(ctx, t); err != nil {
		applog.Error(nil, "supplier.token.save", err, nil)
	}
}

// expiry prefers expires_in, then the access token's exp claim, then the
// configured ttl.
func (m *TokenManager) expiry(r tokenResponse) time.Time {
	now := m.Now()
	if r.ExpiresIn > 0 {
		return now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if exp, ok := jwtExpiry(r.access()); ok {
		return exp
	}
	return now.Add(m.ttl)
}

// jwtExpiry reads the exp claim without verifying the signature; the
// supplier signs its tokens with a key we do not hold.
func jwtExpiry(access string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (m *TokenManager) postJSON(ctx context.Context, path string, body any, out any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.creds.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	resp, err := m.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}
