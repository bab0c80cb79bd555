package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// This is the read-only last resort for CI and one-off runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve gets the credential from environment variables
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	apiKey := os.Getenv("RAPIDAPI_KEY")
	apiHost := os.Getenv("RAPIDAPI_HOST")

	if apiKey == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables carry no profile name
	if profile == "" {
		profile = DefaultProfile
	}

	return &Credential{
		Profile:      profile,
		APIKey:       apiKey,
		APIHost:      apiHost,
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential if environment variables are set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv("RAPIDAPI_KEY") != ""
}
