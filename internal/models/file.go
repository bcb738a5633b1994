package models

// FileMetadata describes a file in an import or export directory.
type FileMetadata struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}
