package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService  = "plurkbackup"
	keyringPrefix   = "profile_"
	keyringIndexKey = "profiles"
)

// KeyringStore implements CredentialStore using the system keychain.
// The keychain cannot be enumerated, so profile names are kept in an index
// entry alongside the credentials.
type KeyringStore struct{}

// NewKeyringStore returns a store if the keychain accepts writes
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves credentials to the system keychain
func (k *KeyringStore) Store(creds *Credentials) error {
	if creds == nil || creds.Profile == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := keyring.Set(keyringService, keyringPrefix+creds.Profile, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return k.updateIndex(func(names map[string]bool) { names[creds.Profile] = true })
}

// Retrieve gets credentials from the system keychain
func (k *KeyringStore) Retrieve(profile string) (*Credentials, error) {
	if profile == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &creds, nil
}

// List returns the credentials of every indexed profile
func (k *KeyringStore) List() ([]*Credentials, error) {
	var out []*Credentials
	for name := range k.index() {
		if creds, err := k.Retrieve(name); err == nil {
			out = append(out, creds)
		}
	}
	return out, nil
}

// Delete removes credentials from the system keychain
func (k *KeyringStore) Delete(profile string) error {
	if profile == "" {
		return ErrInvalidCredentials
	}

	err := keyring.Delete(keyringService, keyringPrefix+profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return k.updateIndex(func(names map[string]bool) { delete(names, profile) })
}

// Exists checks if credentials exist in the keychain
func (k *KeyringStore) Exists(profile string) bool {
	if profile == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+profile)
	return err == nil
}

func (k *KeyringStore) index() map[string]bool {
	names := map[string]bool{}
	raw, err := keyring.Get(keyringService, keyringIndexKey)
	if err != nil {
		return names
	}
	for _, n := range strings.Split(raw, ",") {
		if n != "" {
			names[n] = true
		}
	}
	return names
}

func (k *KeyringStore) updateIndex(fn func(map[string]bool)) error {
	names := k.index()
	fn(names)

	if len(names) == 0 {
		err := keyring.Delete(keyringService, keyringIndexKey)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to update keyring index: %w", err)
		}
		return nil
	}

	list := make([]string, 0, len(names))
	for n := range names {
		list = append(list, n)
	}
	if err := keyring.Set(keyringService, keyringIndexKey, strings.Join(list, ",")); err != nil {
		return fmt.Errorf("failed to update keyring index: %w", err)
	}
	return nil
}
