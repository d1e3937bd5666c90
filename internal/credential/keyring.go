// Package credential keeps the session token and receiver id in the
// system keyring.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "reportwell-notifyfeed"

// Keyring item keys.
const (
	KeyAccessToken = "access_token"
	KeyReceiverID  = "receiver_id"
)

// ErrNoSession is returned when no complete session is stored.
var ErrNoSession = errors.New("no stored session")

// Session is what Connect needs to open the notification socket.
type Session struct {
	ReceiverID  string
	AccessToken string
}

// Valid reports whether both parts are present.
func (s Session) Valid() bool {
	return s.ReceiverID != "" && s.AccessToken != ""
}

// Vault reads and writes credentials in a keyring.
type Vault struct {
	ring keyring.Keyring
}

// NewVault wraps an already opened keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// Open returns a Vault backed by the system keyring, falling back to an
// encrypted file under configDir.
func Open(configDir string) (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(configDir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("reportwell-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewVault(ring), nil
}

// Get retrieves a credential value by key.
func (v *Vault) Get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func (v *Vault) Set(key, value string) error {
	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "Reportwell " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key. A missing key is not an error.
func (v *Vault) Delete(key string) error {
	err := v.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// LoadSession returns the stored session or ErrNoSession.
func (v *Vault) LoadSession() (Session, error) {
	var s Session
	var err error

	if s.ReceiverID, err = v.Get(KeyReceiverID); err != nil {
		return Session{}, notFound(err)
	}
	if s.AccessToken, err = v.Get(KeyAccessToken); err != nil {
		return Session{}, notFound(err)
	}
	if !s.Valid() {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// SaveSession stores both parts of s.
func (v *Vault) SaveSession(s Session) error {
	if !s.Valid() {
		return errors.New("saving session: receiver id and token are required")
	}
	if err := v.Set(KeyReceiverID, s.ReceiverID); err != nil {
		return err
	}
	return v.Set(KeyAccessToken, s.AccessToken)
}

// ClearSession removes the stored session.
func (v *Vault) ClearSession() error {
	return errors.Join(v.Delete(KeyAccessToken), v.Delete(KeyReceiverID))
}

func notFound(err error) error {
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNoSession
	}
	return err
}
