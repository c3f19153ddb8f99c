package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultVersion = 1
	vaultKDF     = "pbkdf2-sha256"

	// PassphraseEnv overrides the generated vault passphrase
	PassphraseEnv = "PLURKBACKUP_PASSPHRASE"

	defaultIterations = 100000
	vaultSaltSize     = 16
	vaultKeySize      = 32
)

// vaultAAD binds the ciphertext to this file format
var vaultAAD = []byte("plurkbackup-credentials-v1")

// ErrVaultLocked is returned when the vault cannot be opened with the
// current passphrase
var ErrVaultLocked = errors.New("credential vault cannot be decrypted")

// vaultFile is the on-disk layout. Only the profile table is encrypted; the
// header carries what is needed to derive the key again.
type vaultFile struct {
	Version int       `json:"version"`
	KDF     vaultKey  `json:"kdf"`
	Nonce   []byte    `json:"nonce"`
	Sealed  []byte    `json:"sealed"`
	Updated time.Time `json:"updated"`
}

type vaultKey struct {
	Name       string `json:"name"`
	Salt       []byte `json:"salt"`
	Iterations int    `json:"iterations"`
}

// EncryptedFileStore is a passphrase-protected vault holding one entry per
// credential profile. It is the fallback when no system keychain exists.
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	iterations int
	mu         sync.Mutex
}

// NewEncryptedFileStore opens the vault at path. The passphrase comes from
// PLURKBACKUP_PASSPHRASE, or from a random one kept next to the vault.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	pass, err := vaultPassphrase(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to get vault passphrase: %w", err)
	}
	return NewEncryptedFileStoreWithPassphrase(path, pass)
}

// NewEncryptedFileStoreWithPassphrase opens the vault at path with an
// explicit passphrase
func NewEncryptedFileStoreWithPassphrase(path, passphrase string) (*EncryptedFileStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrStoreUnavailable)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &EncryptedFileStore{
		path:       path,
		passphrase: []byte(passphrase),
		iterations: defaultIterations,
	}, nil
}

// Store saves creds under its profile. The consumer pair is required, the
// access pair is optional.
func (e *EncryptedFileStore) Store(creds *Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	return e.update(func(profiles map[string]Credentials) (bool, error) {
		profiles[creds.Profile] = *creds
		return true, nil
	})
}

// Retrieve returns the credentials saved under profile
func (e *EncryptedFileStore) Retrieve(profile string) (*Credentials, error) {
	if profile == "" {
		return nil, ErrInvalidCredentials
	}
	profiles, err := e.read()
	if err != nil {
		return nil, err
	}
	c, ok := profiles[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &c, nil
}

// List returns every profile in the vault
func (e *EncryptedFileStore) List() ([]*Credentials, error) {
	profiles, err := e.read()
	if err != nil {
		return nil, err
	}
	out := make([]*Credentials, 0, len(profiles))
	for _, c := range profiles {
		out = append(out, &c)
	}
	return out, nil
}

// Delete removes profile. The vault file goes away with its last profile.
func (e *EncryptedFileStore) Delete(profile string) error {
	if profile == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(profiles map[string]Credentials) (bool, error) {
		if _, ok := profiles[profile]; !ok {
			return false, ErrCredentialsNotFound
		}
		delete(profiles, profile)
		return true, nil
	})
}

// Exists reports whether profile is in the vault
func (e *EncryptedFileStore) Exists(profile string) bool {
	_, err := e.Retrieve(profile)
	return err == nil
}

func (e *EncryptedFileStore) read() (map[string]Credentials, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	profiles, _, err := e.load()
	return profiles, err
}

// update runs fn on the decrypted profile table and writes the result back
// when fn reports a change
func (e *EncryptedFileStore) update(fn func(map[string]Credentials) (bool, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	profiles, key, err := e.load()
	if err != nil {
		return err
	}
	changed, err := fn(profiles)
	if err != nil || !changed {
		return err
	}
	if len(profiles) == 0 {
		return os.Remove(e.path)
	}
	return e.save(profiles, key)
}

// load returns the profile table and the key parameters of the vault. A
// missing vault is empty and gets fresh key parameters.
func (e *EncryptedFileStore) load() (map[string]Credentials, *vaultKey, error) {
	raw, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		key, err := e.newKey()
		return map[string]Credentials{}, key, err
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read vault: %w", err)
	}

	var vf vaultFile
	if err := json.Unmarshal(raw, &vf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse vault: %w", err)
	}
	if vf.Version != vaultVersion || vf.KDF.Name != vaultKDF {
		return nil, nil, fmt.Errorf("unsupported vault format %d/%s", vf.Version, vf.KDF.Name)
	}

	aead, err := e.aead(&vf.KDF)
	if err != nil {
		return nil, nil, err
	}
	if len(vf.Nonce) != aead.NonceSize() {
		return nil, nil, ErrVaultLocked
	}
	plain, err := aead.Open(nil, vf.Nonce, vf.Sealed, vaultAAD)
	if err != nil {
		return nil, nil, ErrVaultLocked
	}

	profiles := map[string]Credentials{}
	if err := json.Unmarshal(plain, &profiles); err != nil {
		return nil, nil, fmt.Errorf("failed to parse vault contents: %w", err)
	}
	return profiles, &vf.KDF, nil
}

func (e *EncryptedFileStore) save(profiles map[string]Credentials, key *vaultKey) error {
	plain, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	aead, err := e.aead(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	vf := vaultFile{
		Version: vaultVersion,
		KDF:     *key,
		Nonce:   nonce,
		Sealed:  aead.Seal(nil, nonce, plain, vaultAAD),
		Updated: time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(vf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) newKey() (*vaultKey, error) {
	salt := make([]byte, vaultSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return &vaultKey{Name: vaultKDF, Salt: salt, Iterations: e.iterations}, nil
}

func (e *EncryptedFileStore) aead(k *vaultKey) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, k.Salt, k.Iterations, vaultKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// vaultPassphrase prefers PLURKBACKUP_PASSPHRASE, then a passphrase file in
// dir, creating one on first use
func vaultPassphrase(dir string) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	file := filepath.Join(dir, ".passphrase")
	if b, err := os.ReadFile(file); err == nil && len(b) > 0 {
		return string(b), nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	pass := base64.RawURLEncoding.EncodeToString(b)
	if err := os.WriteFile(file, []byte(pass), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}
