package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// PassphraseEnvVar overrides the generated vault passphrase
const PassphraseEnvVar = "HTBWRITEUPS_PASSPHRASE"

const (
	vaultVersion = 2
	kdfRounds    = 100000
	saltLen      = 16
	aesKeyLen    = 32
)

// vaultFile is the on-disk layout. Tokens holds the sealed JSON object
// mapping profile names to tokens; salt and nonce are stored in the clear.
type vaultFile struct {
	Version  int       `json:"version"`
	Rounds   int       `json:"rounds"`
	Salt     []byte    `json:"salt"`
	Nonce    []byte    `json:"nonce"`
	Tokens   []byte    `json:"tokens"`
	Modified time.Time `json:"modified"`
}

// EncryptedFileStore keeps profile tokens in an AES-GCM sealed file. Every
// write draws a fresh salt and nonce.
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	mu         sync.Mutex
}

// NewEncryptedFileStore opens the vault at path. The passphrase comes from
// PassphraseEnvVar, or from a key file kept next to the vault and created
// on first use.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	passphrase, err := vaultPassphrase(path + ".key")
	if err != nil {
		return nil, err
	}

	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func (e *EncryptedFileStore) Store(creds *Credentials) error {
	if creds == nil || creds.Profile == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tokens, _, err := e.read()
	if err != nil {
		return err
	}
	tokens[creds.Profile] = creds.Token
	return e.write(tokens)
}

// Retrieve returns the token for profile. LastModified is the time the
// vault was last written.
func (e *EncryptedFileStore) Retrieve(profile string) (*Credentials, error) {
	if profile == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tokens, modified, err := e.read()
	if err != nil {
		return nil, err
	}
	token, ok := tokens[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &Credentials{Profile: profile, Token: token, LastModified: modified}, nil
}

// List returns every stored profile ordered by name
func (e *EncryptedFileStore) List() ([]*Credentials, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens, modified, err := e.read()
	if err != nil {
		return nil, err
	}

	list := make([]*Credentials, 0, len(tokens))
	for profile, token := range tokens {
		list = append(list, &Credentials{Profile: profile, Token: token, LastModified: modified})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Profile < list[j].Profile })
	return list, nil
}

// Delete drops a profile. The vault file is removed with its last profile;
// the key file stays so later writes reuse the same passphrase.
func (e *EncryptedFileStore) Delete(profile string) error {
	if profile == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tokens, _, err := e.read()
	if err != nil {
		return err
	}
	if _, ok := tokens[profile]; !ok {
		return ErrCredentialsNotFound
	}
	delete(tokens, profile)

	if len(tokens) == 0 {
		return os.Remove(e.path)
	}
	return e.write(tokens)
}

func (e *EncryptedFileStore) Exists(profile string) bool {
	_, err := e.Retrieve(profile)
	return err == nil
}

// read returns the decrypted profile map. A missing vault is an empty map.
func (e *EncryptedFileStore) read() (map[string]string, time.Time, error) {
	raw, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var v vaultFile
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, time.Time{}, fmt.Errorf("credentials file is corrupt: %w", err)
	}
	if v.Version != vaultVersion {
		return nil, time.Time{}, fmt.Errorf("unsupported credentials file version %d", v.Version)
	}

	plain, err := openTokens(e.passphrase, &v)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decrypt credentials (wrong passphrase?): %w", err)
	}

	tokens := map[string]string{}
	if err := json.Unmarshal(plain, &tokens); err != nil {
		return nil, time.Time{}, fmt.Errorf("credentials file is corrupt: %w", err)
	}
	return tokens, v.Modified, nil
}

func (e *EncryptedFileStore) write(tokens map[string]string) error {
	plain, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	v, err := sealTokens(e.passphrase, plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	v.Modified = time.Now().UTC()

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials file: %w", err)
	}
	return replaceFile(e.path, raw)
}

func sealTokens(passphrase, plain []byte) (*vaultFile, error) {
	v := &vaultFile{Version: vaultVersion, Rounds: kdfRounds, Salt: make([]byte, saltLen)}
	if _, err := rand.Read(v.Salt); err != nil {
		return nil, err
	}

	aead, err := newAEAD(passphrase, v.Salt, v.Rounds)
	if err != nil {
		return nil, err
	}

	v.Nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(v.Nonce); err != nil {
		return nil, err
	}
	v.Tokens = aead.Seal(nil, v.Nonce, plain, nil)
	return v, nil
}

func openTokens(passphrase []byte, v *vaultFile) ([]byte, error) {
	if v.Rounds <= 0 {
		return nil, errors.New("missing key derivation rounds")
	}

	aead, err := newAEAD(passphrase, v.Salt, v.Rounds)
	if err != nil {
		return nil, err
	}
	if len(v.Nonce) != aead.NonceSize() {
		return nil, errors.New("invalid nonce")
	}
	return aead.Open(nil, v.Nonce, v.Tokens, nil)
}

func newAEAD(passphrase, salt []byte, rounds int) (cipher.AEAD, error) {
	key := pbkdf2.Key(passphrase, salt, rounds, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// vaultPassphrase prefers the environment, then the key file. A missing
// or empty key file is filled with a random passphrase.
func vaultPassphrase(keyFile string) ([]byte, error) {
	if pass := os.Getenv(PassphraseEnvVar); pass != "" {
		return []byte(pass), nil
	}

	key, err := os.ReadFile(keyFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read passphrase file: %w", err)
	}
	if key = bytes.TrimSpace(key); len(key) > 0 {
		return key, nil
	}

	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("failed to generate passphrase: %w", err)
	}
	key = []byte(base64.RawURLEncoding.EncodeToString(random))
	if err := os.WriteFile(keyFile, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to save passphrase: %w", err)
	}
	return key, nil
}

// replaceFile writes data to a temp file in the same directory and renames
// it over path.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
