package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"plurkbackup/pkg/config"
)

// DefaultProfile is the name credentials are stored under when none is given
const DefaultProfile = "default"

// Credentials is an OAuth application key pair plus an optional access
// token pair
type Credentials struct {
	Profile           string    `json:"profile"`
	ConsumerKey       string    `json:"consumer_key"`
	ConsumerSecret    string    `json:"consumer_secret"`
	AccessToken       string    `json:"access_token,omitempty"`
	AccessTokenSecret string    `json:"access_token_secret,omitempty"`
	LastModified      time.Time `json:"last_modified"`
}

// Complete reports whether all four values are present
func (c *Credentials) Complete() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Validate checks that creds names a profile and carries the consumer pair
func (c *Credentials) Validate() error {
	switch {
	case c == nil:
		return ErrInvalidCredentials
	case c.Profile == "":
		return fmt.Errorf("%w: profile is required", ErrInvalidCredentials)
	case c.ConsumerKey == "":
		return fmt.Errorf("%w: consumer key is required", ErrInvalidCredentials)
	case c.ConsumerSecret == "":
		return fmt.Errorf("%w: consumer secret is required", ErrInvalidCredentials)
	}
	return nil
}

// ApplyTo fills the empty credential fields of cfg. Values already set by
// the config file, environment or flags win.
func (c *Credentials) ApplyTo(cfg *config.PlurkConfig) {
	if cfg.ConsumerKey == "" {
		cfg.ConsumerKey = c.ConsumerKey
	}
	if cfg.ConsumerSecret == "" {
		cfg.ConsumerSecret = c.ConsumerSecret
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = c.AccessToken
	}
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = c.AccessTokenSecret
	}
}

// FromConfig copies the credential fields of cfg
func FromConfig(cfg config.PlurkConfig) *Credentials {
	return &Credentials{
		Profile:           DefaultProfile,
		ConsumerKey:       cfg.ConsumerKey,
		ConsumerSecret:    cfg.ConsumerSecret,
		AccessToken:       cfg.AccessToken,
		AccessTokenSecret: cfg.AccessTokenSecret,
	}
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials under creds.Profile
	Store(creds *Credentials) error

	// Retrieve gets the credentials saved under profile
	Retrieve(profile string) (*Credentials, error)

	// List returns all stored credentials
	List() ([]*Credentials, error)

	// Delete removes the credentials saved under profile
	Delete(profile string) error

	// Exists checks if credentials exist for profile
	Exists(profile string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager trying the system keychain, then an
// encrypted file, then envFile
func NewManager(envFile string) (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvFileStore(envFile))

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(creds *Credentials) error {
	if creds != nil && creds.Profile == "" {
		creds.Profile = DefaultProfile
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(creds)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(profile string) (*Credentials, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if creds, err := store.Retrieve(profile); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("%w: profile %s", ErrCredentialsNotFound, profile)
}

// List returns the stored credentials of every store, newest per profile
func (m *Manager) List() ([]*Credentials, error) {
	byProfile := make(map[string]*Credentials)

	for _, store := range m.stores {
		all, err := store.List()
		if err != nil {
			continue
		}
		for _, c := range all {
			if existing, ok := byProfile[c.Profile]; !ok || c.LastModified.After(existing.LastModified) {
				byProfile[c.Profile] = c
			}
		}
	}

	var result []*Credentials
	for _, c := range byProfile {
		result = append(result, c)
	}
	return result, nil
}

// Delete removes the profile from all stores
func (m *Manager) Delete(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: profile %s", ErrCredentialsNotFound, profile)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "plurkbackup")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "plurkbackup")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "plurkbackup")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "plurkbackup")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy with the secrets masked
func Sanitize(c *Credentials) *Credentials {
	if c == nil {
		return nil
	}
	return &Credentials{
		Profile:           c.Profile,
		ConsumerKey:       maskString(c.ConsumerKey),
		ConsumerSecret:    maskString(c.ConsumerSecret),
		AccessToken:       maskString(c.AccessToken),
		AccessTokenSecret: maskString(c.AccessTokenSecret),
		LastModified:      c.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
