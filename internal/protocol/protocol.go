// Package protocol holds the JSON bodies exchanged by the uploader and the
// storage API, plus the content-addressed key scheme both sides agree on.
package protocol

import (
	"fmt"
	"strings"
)

const (
	PathInit     = "/storage/multipart/init"
	PathSignPart = "/storage/multipart/sign-part"
	PathComplete = "/storage/multipart/complete"
	PathAbort    = "/storage/multipart/abort"
	PathHealth   = "/health"

	// PersonalSpace is resolved by the server to the caller's own space.
	PersonalSpace = "personal"

	// MaxParts is the object store's limit on parts per multipart upload.
	MaxParts = 10000
	// MinPartSize is the smallest size the store accepts for any part but
	// the last.
	MinPartSize = 5 << 20

	keyPrefix = "blobs/"
	hashLen   = 64
)

// Error kinds carried in ErrorResponse.Kind.
const (
	KindValidation   = "validation"
	KindUnauthorized = "unauthorized"
	KindNotFound     = "not_found"
	KindConflict     = "conflict"
	KindVerification = "verification"
	KindFinalize     = "finalize"
	KindInternal     = "internal"
)

type InitRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`
}

// InitResponse answers three ways: Exists (dedup hit), URL with a nil
// UploadID (single PUT) or UploadID (multipart).
type InitResponse struct {
	Exists   bool    `json:"exists"`
	UploadID *string `json:"uploadId"`
	Key      string  `json:"key,omitempty"`
	URL      string  `json:"url,omitempty"`
}

type SignPartRequest struct {
	Key        string `json:"key"`
	UploadID   string `json:"uploadId"`
	PartNumber int32  `json:"partNumber"`
}

type SignPartResponse struct {
	URL string `json:"url"`
}

type Part struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"eTag"`
}

// CompleteRequest finalizes a transfer. An empty Key links an already
// registered blob without any transfer.
type CompleteRequest struct {
	Key         string  `json:"key"`
	UploadID    *string `json:"uploadId"`
	Parts       []Part  `json:"parts"`
	Filename    string  `json:"filename"`
	ContentType string  `json:"contentType"`
	Size        int64   `json:"size"`
	Hash        string  `json:"hash"`
	SpaceID     string  `json:"spaceId"`
	ParentID    *string `json:"parentId"`
}

type CompleteResponse struct {
	Success bool   `json:"success"`
	BlobID  string `json:"blobId"`
	FileID  string `json:"fileId"`
}

type AbortRequest struct {
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

type AbortResponse struct {
	Success bool `json:"success"`
}

type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// Node is the wire form of a file tree entry.
type Node struct {
	ID        string  `json:"id"`
	SpaceID   string  `json:"spaceId"`
	ParentID  *string `json:"parentId"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Size      int64   `json:"size"`
	MimeType  string  `json:"mimeType,omitempty"`
	BlobHash  *string `json:"blobHash,omitempty"`
	IsStarred bool    `json:"isStarred"`
	IsTrashed bool    `json:"isTrashed"`
	UpdatedAt string  `json:"updatedAt"`
}

type NodeResponse struct {
	Node Node `json:"node"`
}

type ListNodesResponse struct {
	Nodes []Node `json:"nodes"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ValidHash reports whether h is a lowercase hex SHA-256 digest.
func ValidHash(h string) bool {
	if len(h) != hashLen {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// BlobKey maps a content hash to its object key, blobs/ab/cd/abcd....
func BlobKey(hash string) (string, error) {
	if !ValidHash(hash) {
		return "", fmt.Errorf("invalid hash %q", hash)
	}
	return fmt.Sprintf("%s%s/%s/%s", keyPrefix, hash[:2], hash[2:4], hash), nil
}

// IsBlobKey reports whether key looks like a key produced by BlobKey.
func IsBlobKey(key string) bool {
	if !strings.HasPrefix(key, keyPrefix) {
		return false
	}
	parts := strings.Split(strings.TrimPrefix(key, keyPrefix), "/")
	if len(parts) != 3 {
		return false
	}
	want, err := BlobKey(parts[2])
	return err == nil && want == key
}
