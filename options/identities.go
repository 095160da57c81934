package options

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNoIdentity is returned when no password is saved for a username.
var ErrNoIdentity = errors.New("no saved identity")

// IdentityStore keeps saved usernames and, optionally, their passwords.
// Passwords are sealed with XChaCha20-Poly1305 under a key derived from the
// install secret and a per-file salt.
type IdentityStore struct {
	mu      sync.RWMutex
	key     []byte
	salt    []byte
	entries map[string]string // username → sealed password, "" when not remembered
}

type identityFile struct {
	Salt    string            `json:"salt"`
	Entries []identityFileRow `json:"entries"`
}

type identityFileRow struct {
	Username string `json:"username"`
	Secret   string `json:"secret,omitempty"`
}

func newIdentityStore(secret string, salt []byte) (*IdentityStore, error) {
	if salt == nil {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	key := argon2.IDKey([]byte(secret), salt, 1, 32*1024, 2, chacha20poly1305.KeySize)
	return &IdentityStore{key: key, salt: salt, entries: make(map[string]string)}, nil
}

func loadIdentityStore(secret string, f *identityFile) (*IdentityStore, error) {
	var salt []byte
	if f != nil && f.Salt != "" {
		s, err := base64.StdEncoding.DecodeString(f.Salt)
		if err != nil {
			return nil, fmt.Errorf("failed to decode identity salt: %w", err)
		}
		salt = s
	}
	s, err := newIdentityStore(secret, salt)
	if err != nil {
		return nil, err
	}
	if f != nil {
		for _, row := range f.Entries {
			if row.Username != "" {
				s.entries[row.Username] = row.Secret
			}
		}
	}
	return s, nil
}

func (s *IdentityStore) file() *identityFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := &identityFile{Salt: base64.StdEncoding.EncodeToString(s.salt)}
	for _, u := range s.usernamesLocked() {
		f.Entries = append(f.Entries, identityFileRow{Username: u, Secret: s.entries[u]})
	}
	return f
}

// Remember saves username.  When password is non-empty it is stored too;
// otherwise any previously stored password is dropped.
func (s *IdentityStore) Remember(username, password string) error {
	sealed := ""
	if password != "" {
		var err error
		if sealed, err = s.seal(password); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.entries[username] = sealed
	s.mu.Unlock()
	return nil
}

// Forget removes username and its password.
func (s *IdentityStore) Forget(username string) {
	s.mu.Lock()
	delete(s.entries, username)
	s.mu.Unlock()
}

// ForgetAll removes every saved identity.
func (s *IdentityStore) ForgetAll() {
	s.mu.Lock()
	s.entries = make(map[string]string)
	s.mu.Unlock()
}

// Usernames returns saved usernames, sorted.
func (s *IdentityStore) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usernamesLocked()
}

func (s *IdentityStore) usernamesLocked() []string {
	out := make([]string, 0, len(s.entries))
	for u := range s.entries {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Password returns the saved password for username.
func (s *IdentityStore) Password(username string) (string, error) {
	s.mu.RLock()
	sealed, ok := s.entries[username]
	s.mu.RUnlock()
	if !ok || sealed == "" {
		return "", fmt.Errorf("%w: %s", ErrNoIdentity, username)
	}
	return s.open(sealed)
}

func (s *IdentityStore) seal(plain string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *IdentityStore) open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode saved password: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("saved password is truncated")
	}
	plain, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt saved password: %w", err)
	}
	return string(plain), nil
}
