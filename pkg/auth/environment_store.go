package auth

import (
	"os"
	"time"
)

// TokenEnvVar is read by EnvironmentStore
const TokenEnvVar = "HTBWRITEUPS_TOKEN"

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve returns the token from the environment for any profile
func (e *EnvironmentStore) Retrieve(profile string) (*Credentials, error) {
	token := os.Getenv(TokenEnvVar)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	if profile == "" {
		profile = DefaultProfile
	}

	return &Credentials{
		Profile:      profile,
		Token:        token,
		LastModified: time.Now(),
	}, nil
}

// List returns a single entry if the environment variable is set
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment token exists
func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv(TokenEnvVar) != ""
}
