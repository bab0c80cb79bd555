package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Manager handles file storage operations and duplicate detection
type Manager struct {
	rootDir    string
	savedFiles map[string]bool // relative path -> present
	// fingerprints is keyed by product id: deduplication is scoped to a
	// single product, two products may legitimately store identical images
	fingerprints map[string]map[string]bool
	mu           sync.RWMutex
}

// NewManager creates a new storage manager rooted at rootDir. Product images
// live in one subdirectory per product id. Existing files are scanned and
// fingerprinted so that re-runs recognize prior downloads.
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	manager := &Manager{
		rootDir:      rootDir,
		savedFiles:   make(map[string]bool),
		fingerprints: make(map[string]map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles walks the download root and indexes already saved images
func (m *Manager) scanExistingFiles() error {
	return filepath.WalkDir(m.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != ".jpg" {
			return nil
		}

		rel, err := filepath.Rel(m.rootDir, path)
		if err != nil {
			return err
		}
		m.savedFiles[rel] = true

		data, err := os.ReadFile(path)
		if err != nil {
			// Unreadable leftovers are not fatal; they just lose dedup
			return nil
		}
		// The product id is the directory directly under the root
		m.registerFingerprint(filepath.Dir(rel), Fingerprint(data))
		return nil
	})
}

// Fingerprint returns the hex-encoded sha256 of image content
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ProductDir returns the directory for a product's images, creating it on
// first use.
func (m *Manager) ProductDir(productID string) (string, error) {
	dir := filepath.Join(m.rootDir, productID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create product directory: %w", err)
	}
	return dir, nil
}

// ImagePath returns the deterministic path for the n-th image of a product.
// Numbering starts at 1.
func (m *Manager) ImagePath(productID string, n int) string {
	return filepath.Join(m.rootDir, productID, fmt.Sprintf("%s_image_%d.jpg", productID, n))
}

// HasFile checks whether the n-th image of a product is already on disk
func (m *Manager) HasFile(productID string, n int) bool {
	rel := filepath.Join(productID, fmt.Sprintf("%s_image_%d.jpg", productID, n))

	m.mu.RLock()
	cached := m.savedFiles[rel]
	m.mu.RUnlock()
	if cached {
		return true
	}

	if _, err := os.Stat(filepath.Join(m.rootDir, rel)); err == nil {
		m.mu.Lock()
		m.savedFiles[rel] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// HasFingerprint checks whether identical image content has already been
// saved for this product. Other products' images never match.
func (m *Manager) HasFingerprint(productID, fingerprint string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fingerprints[productID][fingerprint]
}

// registerFingerprint records content for a product.
// Caller must hold m.mu for writing, or be inside single-threaded init.
func (m *Manager) registerFingerprint(productID, fingerprint string) {
	if m.fingerprints[productID] == nil {
		m.fingerprints[productID] = make(map[string]bool)
	}
	m.fingerprints[productID][fingerprint] = true
}

// SaveImage writes image data to the deterministic slot for productID/n and
// registers its fingerprint. The write is atomic: data lands in a temporary
// file that is renamed into place.
func (m *Manager) SaveImage(productID string, n int, data []byte) (string, error) {
	if _, err := m.ProductDir(productID); err != nil {
		return "", err
	}

	filename := m.ImagePath(productID, n)
	tempFile := filename + ".tmp"

	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write image data: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	rel, _ := filepath.Rel(m.rootDir, filename)
	m.mu.Lock()
	m.savedFiles[rel] = true
	m.registerFingerprint(productID, Fingerprint(data))
	m.mu.Unlock()

	return filename, nil
}

// RootDir returns the download root path
func (m *Manager) RootDir() string {
	return m.rootDir
}

// SavedCount returns the number of indexed image files
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.savedFiles)
}
