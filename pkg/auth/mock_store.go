package auth

import "sync"

// MockStore is an in-memory CredentialStore for tests
type MockStore struct {
	mu          sync.RWMutex
	credentials map[string]*Credential

	// FailStore makes Store return ErrStoreUnavailable
	FailStore bool
}

// NewMockStore creates an empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{
		credentials: make(map[string]*Credential),
	}
}

func (m *MockStore) Store(cred *Credential) error {
	if m.FailStore {
		return ErrStoreUnavailable
	}
	if cred == nil || cred.Profile == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *cred
	m.credentials[cred.Profile] = &copied
	return nil
}

func (m *MockStore) Retrieve(profile string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.credentials[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	copied := *cred
	return &copied, nil
}

func (m *MockStore) List() ([]*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var creds []*Credential
	for _, cred := range m.credentials {
		copied := *cred
		creds = append(creds, &copied)
	}
	return creds, nil
}

func (m *MockStore) Delete(profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.credentials[profile]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.credentials, profile)
	return nil
}

func (m *MockStore) Exists(profile string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.credentials[profile]
	return ok
}
