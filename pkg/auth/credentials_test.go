package auth

import (
	"path/filepath"
	"testing"
	"time"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	m := &Manager{stores: []CredentialStore{NewMockStore()}}

	cred := &Credential{Profile: "default", APIKey: "abc123def456"}
	if err := m.Store(cred); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := m.Retrieve("default")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got.APIKey != "abc123def456" {
		t.Errorf("unexpected key %q", got.APIKey)
	}
	if got.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}
}

func TestManagerValidation(t *testing.T) {
	m := &Manager{stores: []CredentialStore{NewMockStore()}}

	if err := m.Store(&Credential{APIKey: "key"}); err == nil {
		t.Error("expected error for missing profile")
	}
	if err := m.Store(&Credential{Profile: "default"}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestManagerFallbackChain(t *testing.T) {
	broken := NewMockStore()
	broken.FailStore = true
	working := NewMockStore()

	m := &Manager{stores: []CredentialStore{broken, working}}

	cred := &Credential{Profile: "work", APIKey: "fallback-key-value"}
	if err := m.Store(cred); err != nil {
		t.Fatalf("Store should fall through to working store: %v", err)
	}

	if !working.Exists("work") {
		t.Error("credential should land in the second store")
	}
	if broken.Exists("work") {
		t.Error("credential should not be in the failing store")
	}
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	older.credentials["default"] = &Credential{
		Profile: "default", APIKey: "old-key", LastModified: time.Now().Add(-time.Hour),
	}
	newer.credentials["default"] = &Credential{
		Profile: "default", APIKey: "new-key", LastModified: time.Now(),
	}

	m := &Manager{stores: []CredentialStore{older, newer}}

	creds, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(creds) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(creds))
	}
	if creds[0].APIKey != "new-key" {
		t.Errorf("List should prefer the most recent version, got %q", creds[0].APIKey)
	}
}

func TestManagerDelete(t *testing.T) {
	store := NewMockStore()
	m := &Manager{stores: []CredentialStore{store}}

	if err := m.Store(&Credential{Profile: "gone", APIKey: "temporary-key"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Exists("gone") {
		t.Error("credential should be removed")
	}
	if err := m.Delete("missing"); err == nil {
		t.Error("deleting a missing profile should fail")
	}
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("ALICHECK_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("NewEncryptedFileStore failed: %v", err)
	}

	cred := &Credential{Profile: "default", APIKey: "secret-api-key-value", APIHost: "example.p.rapidapi.com"}
	if err := store.Store(cred); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// A fresh store over the same file must decrypt the same credential
	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Retrieve("default")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got.APIKey != cred.APIKey || got.APIHost != cred.APIHost {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestEncryptedFileStoreDeleteRemovesFile(t *testing.T) {
	t.Setenv("ALICHECK_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Store(&Credential{Profile: "only", APIKey: "key-material"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("only"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Exists("only") {
		t.Error("credential should be gone after delete")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("RAPIDAPI_KEY", "env-key-value")
	t.Setenv("RAPIDAPI_HOST", "env.p.rapidapi.com")

	store := NewEnvironmentStore()

	cred, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if cred.Profile != DefaultProfile {
		t.Errorf("expected default profile, got %q", cred.Profile)
	}
	if cred.APIKey != "env-key-value" || cred.APIHost != "env.p.rapidapi.com" {
		t.Errorf("unexpected credential %+v", cred)
	}

	if err := store.Store(cred); err != ErrStoreUnavailable {
		t.Error("environment store must be read-only")
	}

	t.Setenv("RAPIDAPI_KEY", "")
	if _, err := store.Retrieve(""); err == nil {
		t.Error("expected error with empty RAPIDAPI_KEY")
	}
}

func TestSanitizeMasksKey(t *testing.T) {
	masked := Sanitize(&Credential{Profile: "default", APIKey: "0123456789abcdef"})
	if masked.APIKey != "0123...cdef" {
		t.Errorf("unexpected mask %q", masked.APIKey)
	}

	short := Sanitize(&Credential{Profile: "default", APIKey: "tiny"})
	if short.APIKey != "********" {
		t.Errorf("short keys must be fully masked, got %q", short.APIKey)
	}

	if Sanitize(nil) != nil {
		t.Error("nil credential should sanitize to nil")
	}
}
