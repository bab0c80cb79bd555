package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Credential holds a RapidAPI key for the marketplace API. Profiles let a
// user keep more than one key, e.g. separate free and paid plans.
type Credential struct {
	Profile      string    `json:"profile"`
	APIKey       string    `json:"api_key"`
	APIHost      string    `json:"api_host,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving API credentials
type CredentialStore interface {
	// Store saves a credential under its profile name
	Store(cred *Credential) error

	// Retrieve gets the credential for a profile
	Retrieve(profile string) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential for a profile
	Delete(profile string) error

	// Exists checks if a credential exists for a profile
	Exists(profile string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager with the available backends:
// system keychain first, encrypted file second, environment variables last.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	keyringStore, err := NewKeyringStore()
	if err == nil {
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

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves a credential using the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred.Profile == "" {
		return errors.New("profile name is required")
	}
	if cred.APIKey == "" {
		return errors.New("API key is required")
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credential: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(profile string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(profile); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("credential not found for profile: %s", profile)
}

// RetrieveDefault gets the credential for the default profile, falling back
// to the environment and then to the first stored profile.
func (m *Manager) RetrieveDefault() (*Credential, error) {
	if cred, err := m.Retrieve(DefaultProfile); err == nil {
		return cred, nil
	}

	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if cred, err := envStore.Retrieve(""); err == nil && cred != nil {
			return cred, nil
		}
	}

	creds, err := m.List()
	if err == nil && len(creds) > 0 {
		return creds[0], nil
	}

	return nil, errors.New("no credential found")
}

// List returns all stored credentials from all stores
func (m *Manager) List() ([]*Credential, error) {
	credMap := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			// Use the most recently modified version
			if existing, ok := credMap[cred.Profile]; !ok || cred.LastModified.After(existing.LastModified) {
				credMap[cred.Profile] = cred
			}
		}
	}

	var result []*Credential
	for _, cred := range credMap {
		result = append(result, cred)
	}

	return result, nil
}

// Delete removes the credential from all stores
func (m *Manager) Delete(profile string) error {
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
		return fmt.Errorf("failed to delete credential: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credential not found for profile: %s", profile)
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
		configDir = filepath.Join(home, "Library", "Application Support", "alicheck")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "alicheck")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "alicheck")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "alicheck")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize creates a copy of the credential with the key masked for display
func Sanitize(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}

	return &Credential{
		Profile:      cred.Profile,
		APIKey:       maskString(cred.APIKey),
		APIHost:      cred.APIHost,
		LastModified: cred.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// DefaultProfile is the profile used when none is named
const DefaultProfile = "default"

// Errors
var (
	ErrCredentialsNotFound = errors.New("credential not found")
	ErrInvalidCredentials  = errors.New("invalid credential")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
