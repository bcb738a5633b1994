// Package storage defines the file-system abstraction used for mask export
// and import directories.
package storage

import "github.com/starford/masque/internal/models"

// Provider is the interface for directory-scoped file operations. All paths
// are relative to the provider root.
type Provider interface {
	// Root returns the absolute directory the provider is rooted at.
	Root() string
	// List returns metadata for the files directly under dir whose names end
	// in ext. Subdirectories are not descended into.
	List(dir, ext string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
}
