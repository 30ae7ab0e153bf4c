package models

import "time"

type NodeKind string

const (
	KindFile NodeKind = "file"
	KindDir  NodeKind = "dir"
)

// Node is a file tree entry. BlobHash is set only for files.
type Node struct {
	ID        string
	SpaceID   string
	ParentID  *string
	Name      string
	Kind      NodeKind
	Size      int64
	MimeType  string
	BlobHash  *string
	IsStarred bool
	IsTrashed bool
	UpdatedAt time.Time
}

// Space is a namespace of nodes owned by one user.
type Space struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}
