package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/dbx"
	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/dmitrijs2005/casdrive/internal/server/models"
	"github.com/dmitrijs2005/casdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/casdrive/internal/server/storage"
)

// Gateway is the object store contract the upload flow depends on.
type Gateway interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	CreateMultipart(ctx context.Context, key, contentType string) (string, error)
	PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int32) (string, error)
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []protocol.Part) error
	AbortMultipart(ctx context.Context, key, uploadID string) error
	HeadObject(ctx context.Context, key string) (exists bool, size int64, err error)
}

type UploadConfig struct {
	// MultipartThreshold is the largest size sent as a single PUT.
	MultipartThreshold int64
	MaxUploadSize      int64
}

// UploadService implements init, sign-part, complete and abort. It keeps no
// state between calls: a transfer is identified by the key and upload id the
// client echoes back.
type UploadService struct {
	repos   repomanager.RepositoryManager
	gateway Gateway
	cfg     UploadConfig
	logger  logging.Logger
}

func NewUploadService(repos repomanager.RepositoryManager, gateway Gateway, cfg UploadConfig, logger logging.Logger) *UploadService {
	return &UploadService{
		repos:   repos,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.With("module", "upload"),
	}
}

func (s *UploadService) registry(db dbx.DBTX) *DedupRegistry {
	return NewDedupRegistry(s.repos.Blobs(db), s.logger)
}

// Tree returns a registrar working outside a transaction.
func (s *UploadService) Tree() *TreeRegistrar {
	conn := s.repos.Conn()
	return NewTreeRegistrar(s.repos.Nodes(conn), s.repos.Spaces(conn), s.logger)
}

// Init answers whether the content is already stored and, if not, how to
// send it. Invalid input is rejected before the store is contacted.
func (s *UploadService) Init(ctx context.Context, req protocol.InitRequest) (protocol.InitResponse, error) {
	if err := s.validateContent(req.Hash, req.Size); err != nil {
		return protocol.InitResponse{}, err
	}
	contentType := contentTypeOrDefault(req.ContentType)

	blob, err := s.registry(s.repos.Conn()).Lookup(ctx, req.Hash)
	if err != nil {
		return protocol.InitResponse{}, err
	}
	if blob != nil {
		s.logger.Debug(ctx, "dedup hit", "hash", req.Hash)
		return protocol.InitResponse{Exists: true}, nil
	}

	key, err := protocol.BlobKey(req.Hash)
	if err != nil {
		return protocol.InitResponse{}, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	if req.Size <= s.cfg.MultipartThreshold {
		url, err := s.gateway.PresignPut(ctx, key, contentType)
		if err != nil {
			return protocol.InitResponse{}, fmt.Errorf("%w: %w", ErrStore, err)
		}
		return protocol.InitResponse{Key: key, URL: url}, nil
	}

	uploadID, err := s.gateway.CreateMultipart(ctx, key, contentType)
	if err != nil {
		return protocol.InitResponse{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	s.logger.Info(ctx, "multipart upload started", "key", key, "upload_id", uploadID, "size", req.Size)
	return protocol.InitResponse{UploadID: &uploadID, Key: key}, nil
}

// SignPart presigns one part of a running multipart upload. Sign-part and
// Abort are not bound to the user who called Init: any authenticated caller
// holding the key and the store-issued upload id may use them. The upload id
// is unguessable and only returned to the initiator, and Complete still
// registers the node under the caller's own space.
func (s *UploadService) SignPart(ctx context.Context, req protocol.SignPartRequest) (string, error) {
	if err := validateMultipartRef(req.Key, req.UploadID); err != nil {
		return "", err
	}
	if req.PartNumber < 1 || req.PartNumber > protocol.MaxParts {
		return "", fmt.Errorf("%w: part number %d out of range", common.ErrorValidation, req.PartNumber)
	}

	url, err := s.gateway.PresignUploadPart(ctx, req.Key, req.UploadID, req.PartNumber)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	return url, nil
}

// Complete makes the object durable (multipart), or verifies it landed
// (single PUT), then registers the blob and the file node. An empty key
// links an already registered blob.
func (s *UploadService) Complete(ctx context.Context, userID string, req protocol.CompleteRequest) (protocol.CompleteResponse, error) {
	if err := s.validateContent(req.Hash, req.Size); err != nil {
		return protocol.CompleteResponse{}, err
	}
	if strings.TrimSpace(req.Filename) == "" {
		return protocol.CompleteResponse{}, fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}
	contentType := contentTypeOrDefault(req.ContentType)

	if req.Key == "" {
		blob, err := s.registry(s.repos.Conn()).Lookup(ctx, req.Hash)
		if err != nil {
			return protocol.CompleteResponse{}, err
		}
		if blob == nil {
			return protocol.CompleteResponse{}, fmt.Errorf("%w: no blob with hash %s", common.ErrorNotFound, req.Hash)
		}
		if blob.Size != req.Size {
			return protocol.CompleteResponse{}, fmt.Errorf("%w: size %d does not match stored blob", common.ErrorValidation, req.Size)
		}
	} else if err := s.finalizeObject(ctx, req); err != nil {
		return protocol.CompleteResponse{}, err
	}

	var blob *models.Blob
	var node *models.Node
	err := s.repos.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		blob, err = s.registry(tx).RegisterIfAbsent(ctx, req.Hash, req.Size, contentType)
		if err != nil {
			return err
		}

		tree := NewTreeRegistrar(s.repos.Nodes(tx), s.repos.Spaces(tx), s.logger)
		space, err := tree.ResolveSpace(ctx, userID, req.SpaceID)
		if err != nil {
			return err
		}
		node, err = tree.CreateFile(ctx, space.ID, req.ParentID, req.Filename, blob.Hash, blob.Size, contentType)
		return err
	})
	if err != nil {
		return protocol.CompleteResponse{}, err
	}

	return protocol.CompleteResponse{Success: true, BlobID: blob.Hash, FileID: node.ID}, nil
}

func (s *UploadService) finalizeObject(ctx context.Context, req protocol.CompleteRequest) error {
	want, err := protocol.BlobKey(req.Hash)
	if err != nil || want != req.Key {
		return fmt.Errorf("%w: key does not belong to hash", common.ErrorValidation)
	}

	if req.UploadID != nil {
		parts, err := normaliseParts(req.Parts)
		if err != nil {
			return err
		}
		if err := s.gateway.CompleteMultipart(ctx, req.Key, *req.UploadID, parts); err != nil {
			s.logger.Warn(ctx, "multipart completion rejected", "key", req.Key, "upload_id", *req.UploadID, "error", err)
			return fmt.Errorf("%w: %w", ErrFinalizeFailed, err)
		}
		s.logger.Info(ctx, "multipart upload completed", "key", req.Key, "parts", len(parts))
		return nil
	}

	exists, size, err := s.gateway.HeadObject(ctx, req.Key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	if !exists {
		return fmt.Errorf("%w: %w", ErrVerificationFailed, storage.ErrObjectNotFound)
	}
	if size > 0 && size != req.Size {
		return fmt.Errorf("%w: stored size %d, expected %d", ErrVerificationFailed, size, req.Size)
	}
	return nil
}

// Abort releases a multipart upload on the store. See SignPart for who may
// call it.
func (s *UploadService) Abort(ctx context.Context, req protocol.AbortRequest) error {
	if err := validateMultipartRef(req.Key, req.UploadID); err != nil {
		return err
	}
	if err := s.gateway.AbortMultipart(ctx, req.Key, req.UploadID); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	s.logger.Info(ctx, "multipart upload aborted", "key", req.Key, "upload_id", req.UploadID)
	return nil
}

func (s *UploadService) validateContent(hash string, size int64) error {
	if !protocol.ValidHash(hash) {
		return fmt.Errorf("%w: hash must be 64 lowercase hex characters", common.ErrorValidation)
	}
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive", common.ErrorValidation)
	}
	if s.cfg.MaxUploadSize > 0 && size > s.cfg.MaxUploadSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", common.ErrorValidation, size, s.cfg.MaxUploadSize)
	}
	return nil
}

func validateMultipartRef(key, uploadID string) error {
	if !protocol.IsBlobKey(key) {
		return fmt.Errorf("%w: invalid key", common.ErrorValidation)
	}
	if uploadID == "" {
		return fmt.Errorf("%w: uploadId is required", common.ErrorValidation)
	}
	return nil
}

// normaliseParts returns a sorted copy of parts, rejecting empty lists,
// out-of-range numbers and duplicates.
func normaliseParts(parts []protocol.Part) ([]protocol.Part, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: parts are required", common.ErrorValidation)
	}
	sorted := slices.Clone(parts)
	slices.SortFunc(sorted, func(a, b protocol.Part) int { return int(a.PartNumber) - int(b.PartNumber) })

	for i, p := range sorted {
		if p.PartNumber < 1 || p.PartNumber > protocol.MaxParts || p.ETag == "" {
			return nil, fmt.Errorf("%w: invalid part %d", common.ErrorValidation, p.PartNumber)
		}
		if i > 0 && sorted[i-1].PartNumber == p.PartNumber {
			return nil, fmt.Errorf("%w: duplicate part %d", common.ErrorValidation, p.PartNumber)
		}
	}
	return sorted, nil
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return common.DefaultContentType
	}
	return ct
}
