// Package ownerauth stores the arcade owner's admin token in the OS
// keychain, with an optional JSON file fallback for headless hosts
// where no system keyring is available.
package ownerauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const keyAdminToken = "admintoken"

// ErrNotFound is returned when no token has been stored yet.
var ErrNotFound = keyring.ErrNotFound

// TokenStore wraps the OS keychain with an optional file fallback.
type TokenStore struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// NewTokenStore creates a keyring wrapper.
func NewTokenStore(serviceName, fallbackPath string) *TokenStore {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = "arcaded"
	}
	return &TokenStore{
		service:      serviceName,
		fallbackPath: fallbackPath,
	}
}

func (s *TokenStore) key(owner string) string {
	return fmt.Sprintf("%s/%s", owner, keyAdminToken)
}

// EnsureToken returns the stored admin token for owner, minting and
// persisting a fresh one on first use.
func (s *TokenStore) EnsureToken(owner string) (string, error) {
	tok, err := s.GetToken(owner)
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ownerauth: mint token: %w", err)
	}
	tok = hex.EncodeToString(buf)
	if err := s.SetToken(owner, tok); err != nil {
		return "", err
	}
	return tok, nil
}

// SetToken stores the admin token for owner.
func (s *TokenStore) SetToken(owner, value string) error {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return fmt.Errorf("ownerauth: owner is required")
	}

	if err := keyring.Set(s.service, s.key(owner), value); err == nil {
		return nil
	} else if !isKeyringUnavailable(err) {
		return fmt.Errorf("ownerauth: keyring set: %w", err)
	}

	return s.setFallback(owner, value)
}

// GetToken fetches the stored admin token for owner.
func (s *TokenStore) GetToken(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", fmt.Errorf("ownerauth: owner is required")
	}

	val, err := keyring.Get(s.service, s.key(owner))
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("ownerauth: keyring get: %w", err)
	}

	fallback, ferr := s.getFallback(owner)
	if ferr == nil {
		return fallback, nil
	}

	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return "", ferr
}

// DeleteToken removes the stored token for owner.
func (s *TokenStore) DeleteToken(owner string) error {
	if err := keyring.Delete(s.service, s.key(owner)); err != nil &&
		!errors.Is(err, keyring.ErrNotFound) && !isKeyringUnavailable(err) {
		_ = s.deleteFallback(owner)
		return fmt.Errorf("ownerauth: keyring delete: %w", err)
	}
	return s.deleteFallback(owner)
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

type fallbackSecrets map[string]string

func (s *TokenStore) setFallback(owner, value string) error {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return fmt.Errorf("ownerauth: keyring unavailable and no fallback path configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return err
	}
	data[owner] = value
	return s.writeFallbackUnlocked(data)
}

func (s *TokenStore) getFallback(owner string) (string, error) {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return "", fmt.Errorf("ownerauth: fallback path not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return "", err
	}
	val, ok := data[owner]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *TokenStore) deleteFallback(owner string) error {
	if strings.TrimSpace(s.fallbackPath) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readFallbackUnlocked()
	if err != nil {
		return err
	}
	delete(data, owner)
	return s.writeFallbackUnlocked(data)
}

func (s *TokenStore) readFallbackUnlocked() (fallbackSecrets, error) {
	out := fallbackSecrets{}
	raw, err := os.ReadFile(s.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("ownerauth: read fallback secrets: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("ownerauth: decode fallback secrets: %w", err)
	}
	return out, nil
}

func (s *TokenStore) writeFallbackUnlocked(data fallbackSecrets) error {
	dir := filepath.Dir(s.fallbackPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ownerauth: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ownerauth: encode fallback secrets: %w", err)
	}
	if err := os.WriteFile(s.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("ownerauth: write fallback secrets: %w", err)
	}
	return nil
}
