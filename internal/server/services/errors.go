// Package services holds the server side of the upload protocol: the
// content registry, the file tree and the init / sign / complete flow that
// ties them to the object store.
package services

import "errors"

var (
	// ErrVerificationFailed means a single PUT the client reported did not
	// land in the store as described.
	ErrVerificationFailed = errors.New("upload verification failed")
	// ErrFinalizeFailed means the store rejected multipart completion.
	ErrFinalizeFailed = errors.New("multipart completion failed")
	// ErrStore wraps any other object store failure.
	ErrStore = errors.New("object store error")
)
