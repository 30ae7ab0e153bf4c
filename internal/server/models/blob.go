// Package models defines server-side data models persisted in the database.
package models

import "time"

// Blob is an immutable content record keyed by its SHA-256 hash.
type Blob struct {
	Hash      string
	Size      int64
	MimeType  string
	CreatedAt time.Time
}
