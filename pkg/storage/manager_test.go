package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewManagerCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "downloads")

	m, err := NewManager(root)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if m.RootDir() != root {
		t.Errorf("RootDir() = %q, want %q", m.RootDir(), root)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("download root was not created: %v", err)
	}
	if m.SavedCount() != 0 {
		t.Errorf("fresh manager should index zero files, got %d", m.SavedCount())
	}
}

func TestSaveImageAndHasFile(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("fake jpeg bytes")
	path, err := m.SaveImage("1005001234567890", 1, data)
	if err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("saved file unreadable: %v", err)
	}
	if string(saved) != string(data) {
		t.Error("saved content does not match input")
	}

	if !m.HasFile("1005001234567890", 1) {
		t.Error("HasFile should report saved image")
	}
	if m.HasFile("1005001234567890", 2) {
		t.Error("HasFile should not report unsaved slot")
	}
	if !m.HasFingerprint("1005001234567890", Fingerprint(data)) {
		t.Error("HasFingerprint should report saved content")
	}
	if m.SavedCount() != 1 {
		t.Errorf("SavedCount() = %d, want 1", m.SavedCount())
	}

	// No stray temp file left behind
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file was not cleaned up")
	}
}

func TestScanExistingFiles(t *testing.T) {
	root := t.TempDir()

	first, err := NewManager(root)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("previously downloaded")
	if _, err := first.SaveImage("123456", 1, data); err != nil {
		t.Fatal(err)
	}

	// A second manager over the same root must see the file and its content
	second, err := NewManager(root)
	if err != nil {
		t.Fatal(err)
	}

	if !second.HasFile("123456", 1) {
		t.Error("rescan should index existing file")
	}
	if !second.HasFingerprint("123456", Fingerprint(data)) {
		t.Error("rescan should index existing fingerprint")
	}
	if second.HasFingerprint("999999", Fingerprint(data)) {
		t.Error("rescanned fingerprint must stay scoped to its product")
	}
	if second.SavedCount() != 1 {
		t.Errorf("SavedCount() = %d, want 1", second.SavedCount())
	}
}

func TestFingerprintScopedPerProduct(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("shared picture bytes")
	if _, err := m.SaveImage("111", 1, data); err != nil {
		t.Fatal(err)
	}

	if !m.HasFingerprint("111", Fingerprint(data)) {
		t.Error("product 111 should know its own content")
	}
	if m.HasFingerprint("222", Fingerprint(data)) {
		t.Error("product 222 must not match content saved for product 111")
	}

	// A second product storing the same bytes keeps its own copy
	path, err := m.SaveImage("222", 1, data)
	if err != nil {
		t.Fatalf("SaveImage for second product failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("second product's file missing: %v", err)
	}
	if !m.HasFingerprint("222", Fingerprint(data)) {
		t.Error("product 222 should know its own content after saving")
	}
	if m.SavedCount() != 2 {
		t.Errorf("SavedCount() = %d, want 2", m.SavedCount())
	}
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	a := Fingerprint([]byte("image a"))
	b := Fingerprint([]byte("image b"))

	if a == b {
		t.Error("different content must produce different fingerprints")
	}
	if a != Fingerprint([]byte("image a")) {
		t.Error("fingerprint must be stable for identical content")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestProductDir(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	dir, err := m.ProductDir("987654")
	if err != nil {
		t.Fatalf("ProductDir failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("product directory missing: %v", err)
	}
	if !info.IsDir() {
		t.Error("product path is not a directory")
	}
	if filepath.Base(dir) != "987654" {
		t.Errorf("unexpected directory name %q", filepath.Base(dir))
	}
}

func TestConcurrentSaves(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 10)
	for i := 1; i <= 10; i++ {
		go func(n int) {
			_, err := m.SaveImage("555", n, []byte{byte(n)})
			done <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent save failed: %v", err)
		}
	}

	if m.SavedCount() != 10 {
		t.Errorf("SavedCount() = %d, want 10", m.SavedCount())
	}
}
