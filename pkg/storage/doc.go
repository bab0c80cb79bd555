// Package storage provides file management for downloaded product images.
//
// The storage package handles:
//   - Creating the download root and per-product directories
//   - Saving images with atomic write operations
//   - Detecting duplicate content via sha256 fingerprints
//   - Thread-safe file operations
//
// The Manager type is the primary interface for storage operations. It
// indexes existing files and their fingerprints on initialization so a
// repeated run over the same input recognizes prior downloads without any
// network traffic.
//
// Usage:
//
//	manager, err := storage.NewManager("downloads")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !manager.HasFile("1005001234567890", 1) {
//	    _, err = manager.SaveImage("1005001234567890", 1, imageData)
//	    if err != nil {
//	        log.Printf("Failed to save image: %v", err)
//	    }
//	}
package storage
