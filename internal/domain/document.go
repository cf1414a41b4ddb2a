package domain

import "time"

// Document is an instruction document from the platform catalog. The ticket
// core only validates existence and carries the reference; blob storage
// lives elsewhere.
type Document struct {
	ID         string
	Title      string
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
