package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Variable names used in .env files and the process environment
const (
	EnvConsumerKey       = "CONSUMER_KEY"
	EnvConsumerSecret    = "CONSUMER_SECRET"
	EnvAccessToken       = "ACCESS_TOKEN"
	EnvAccessTokenSecret = "ACCESS_TOKEN_SECRET"
)

var envKeys = []string{EnvConsumerKey, EnvConsumerSecret, EnvAccessToken, EnvAccessTokenSecret}

// EnvFileStore keeps a single profile in a dotenv file. Variables already
// set in the process environment take precedence over the file on reads.
// Other keys in the file are preserved on writes.
type EnvFileStore struct {
	path string
}

// NewEnvFileStore creates a store backed by path
func NewEnvFileStore(path string) *EnvFileStore {
	return &EnvFileStore{path: path}
}

// Path returns the dotenv file location
func (e *EnvFileStore) Path() string {
	return e.path
}

// Store writes the credentials into the file. Any profile name is
// accepted; the file only ever holds one set.
func (e *EnvFileStore) Store(creds *Credentials) error {
	if creds == nil || creds.ConsumerKey == "" {
		return ErrInvalidCredentials
	}

	values, err := e.read()
	if err != nil {
		return err
	}
	values[EnvConsumerKey] = creds.ConsumerKey
	values[EnvConsumerSecret] = creds.ConsumerSecret
	values[EnvAccessToken] = creds.AccessToken
	values[EnvAccessTokenSecret] = creds.AccessTokenSecret

	return e.write(values)
}

// Retrieve reads credentials from the environment and the file
func (e *EnvFileStore) Retrieve(profile string) (*Credentials, error) {
	values, err := e.read()
	if err != nil {
		return nil, err
	}

	get := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return values[key]
	}

	creds := &Credentials{
		Profile:           profile,
		ConsumerKey:       get(EnvConsumerKey),
		ConsumerSecret:    get(EnvConsumerSecret),
		AccessToken:       get(EnvAccessToken),
		AccessTokenSecret: get(EnvAccessTokenSecret),
	}
	if creds.Profile == "" {
		creds.Profile = DefaultProfile
	}
	if creds.ConsumerKey == "" || creds.ConsumerSecret == "" {
		return nil, ErrCredentialsNotFound
	}
	if info, err := os.Stat(e.path); err == nil {
		creds.LastModified = info.ModTime()
	}
	return creds, nil
}

// List returns the single stored profile, if any
func (e *EnvFileStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve(DefaultProfile)
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete removes the credential keys from the file
func (e *EnvFileStore) Delete(profile string) error {
	values, err := e.read()
	if err != nil {
		return err
	}

	found := false
	for _, k := range envKeys {
		if _, ok := values[k]; ok {
			delete(values, k)
			found = true
		}
	}
	if !found {
		return ErrCredentialsNotFound
	}

	if len(values) == 0 {
		return os.Remove(e.path)
	}
	return e.write(values)
}

// Exists checks if the file or environment holds a consumer key pair
func (e *EnvFileStore) Exists(profile string) bool {
	_, err := e.Retrieve(profile)
	return err == nil
}

func (e *EnvFileStore) read() (map[string]string, error) {
	values, err := godotenv.Read(e.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", e.path, err)
	}
	return values, nil
}

func (e *EnvFileStore) write(values map[string]string) error {
	if err := godotenv.Write(values, e.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", e.path, err)
	}
	return os.Chmod(e.path, 0600)
}
