package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid is true only while an access token exists and now is before
// ExpiresAt minus margin.
func (t Token) Valid(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

// TokenStore persists the single token set for one credential.
// Load returns ErrNoToken when nothing has been saved yet.
type TokenStore interface {
	Load(ctx context.Context) (Token, error)
	Save(ctx context.Context, t Token) error
}

// FileTokenStore keeps the token as a small JSON file.
type FileTokenStore struct {
	Path string
}

func NewFileTokenStore(path string) *FileTokenStore { return &FileTokenStore{Path: path} }

func (s *FileTokenStore) Load(_ context.Context) (Token, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Token{}, ErrNoToken
	}
	if err != nil {
		return Token{}, err
	}
	var t Token
	if err := json.Unmarshal(b, &t); err != nil {
		return Token{}, fmt.Errorf("token file %s: %w", s.Path, err)
	}
	return t, nil
}

// Save writes through a temp file so a crash never leaves half a token behind.
func (s *FileTokenStore) Save(_ context.Context, t Token) error {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// MemoryTokenStore keeps the token for the life of the process only.
type MemoryTokenStore struct {
	tok *Token
}

func (s *MemoryTokenStore) Load(_ context.Context) (Token, error) {
	if s.tok == nil {
		return Token{}, ErrNoToken
	}
	return *s.tok, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, t Token) error {
	s.tok = &t
	return nil
}
