package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/client/api"
	"github.com/dmitrijs2005/casdrive/internal/client/chunk"
	"github.com/dmitrijs2005/casdrive/internal/client/hasher"
	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
)

const (
	DefaultConcurrency = 4
	abortTimeout       = 30 * time.Second
)

// Transport is the storage API as seen by the coordinator.
type Transport interface {
	Init(ctx context.Context, req protocol.InitRequest) (protocol.InitResponse, error)
	SignPart(ctx context.Context, req protocol.SignPartRequest) (string, error)
	Complete(ctx context.Context, req protocol.CompleteRequest) (protocol.CompleteResponse, error)
	Abort(ctx context.Context, req protocol.AbortRequest) error
}

// Putter sends bytes to a presigned URL and returns the ETag.
type Putter interface {
	Put(ctx context.Context, url string, body io.ReadSeeker, size int64, contentType string) (string, error)
}

type Options struct {
	ChunkSize      int64
	Concurrency    int
	HashWindow     int
	AbortOnFailure bool
}

// Result describes a completed session.
type Result struct {
	SessionID string
	Hash      string
	Key       string
	BlobID    string
	FileID    string
	FastPath  bool
	Strategy  chunk.Strategy
	Parts     []protocol.Part
}

type Coordinator struct {
	transport Transport
	putter    Putter
	opts      Options
	logger    logging.Logger
}

func NewCoordinator(transport Transport, putter Putter, opts Options, logger logging.Logger) *Coordinator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunk.DefaultChunkSize
	}
	if opts.HashWindow <= 0 {
		opts.HashWindow = hasher.DefaultWindow
	}
	return &Coordinator{
		transport: transport,
		putter:    putter,
		opts:      opts,
		logger:    logger.With("module", "upload"),
	}
}

// Run takes s from Pending to a terminal state. observe, if not nil, is
// called on this goroutine for every state or progress change. Cancelling
// ctx stops hashing and in-flight transfers; complete is then never called.
func (c *Coordinator) Run(ctx context.Context, s Session, observe Observer) (Result, error) {
	tr := newTracker(s, observe)
	tr.emit()

	if s.ContentType == "" {
		s.ContentType = common.DefaultContentType
	}
	if s.SpaceID == "" {
		s.SpaceID = protocol.PersonalSpace
	}
	if s.Size <= 0 || s.Source == nil || s.Name == "" {
		return c.finish(ctx, tr, &Error{Kind: KindValidation, Op: "validate", Err: fmt.Errorf("%w: name, source and a positive size are required", common.ErrorValidation)})
	}

	log := c.logger.With("session", s.ID, "name", s.Name)

	tr.enter(Hashing)
	digest, err := c.hash(ctx, s, tr)
	if err != nil {
		return c.finish(ctx, tr, err)
	}
	res := Result{SessionID: s.ID, Hash: digest}
	log.Debug(ctx, "hashed", "hash", digest)

	initResp, err := c.transport.Init(ctx, protocol.InitRequest{
		Filename:    s.Name,
		ContentType: s.ContentType,
		Size:        s.Size,
		Hash:        digest,
	})
	if err != nil {
		return c.finish(ctx, tr, remoteError("init", err, KindTransfer))
	}

	switch {
	case initResp.Exists:
		res.FastPath = true
		tr.enter(FastPathComplete)
		log.Info(ctx, "content already stored, linking", "hash", digest)

	case initResp.UploadID == nil:
		res.Key, res.Strategy = initResp.Key, chunk.Single
		if initResp.URL == "" || initResp.Key == "" {
			return c.finish(ctx, tr, &Error{Kind: KindTransfer, Op: "init", Err: errors.New("server returned neither url nor uploadId")})
		}
		tr.planned(1)
		tr.enter(Transferring)
		if err := ctx.Err(); err != nil {
			return c.finish(ctx, tr, err)
		}
		body := io.NewSectionReader(s.Source, 0, s.Size)
		if _, err := c.putter.Put(ctx, initResp.URL, body, s.Size, s.ContentType); err != nil {
			return c.finish(ctx, tr, &Error{Kind: KindTransfer, Op: "put", Err: err})
		}
		tr.transferred(s.Size)

	default:
		res.Key, res.Strategy = initResp.Key, chunk.Multipart
		uploadID := *initResp.UploadID
		ranges, err := chunk.Planner{ChunkSize: c.opts.ChunkSize}.Ranges(s.Size)
		if err != nil {
			c.abort(ctx, log, initResp.Key, uploadID)
			return c.finish(ctx, tr, &Error{Kind: KindValidation, Op: "plan", Err: err})
		}
		tr.planned(len(ranges))
		tr.enter(Transferring)
		log.Debug(ctx, "multipart transfer", "parts", len(ranges), "concurrency", c.opts.Concurrency)

		parts, err := c.transfer(ctx, s, initResp.Key, uploadID, ranges, tr)
		if err != nil {
			c.abort(ctx, log, initResp.Key, uploadID)
			return c.finish(ctx, tr, err)
		}
		res.Parts = parts
	}

	// nothing is finalized once cancelled
	if err := ctx.Err(); err != nil {
		if res.Strategy == chunk.Multipart && initResp.UploadID != nil {
			c.abort(ctx, log, res.Key, *initResp.UploadID)
		}
		return c.finish(ctx, tr, err)
	}

	tr.enter(Finalizing)
	completeResp, err := c.transport.Complete(ctx, protocol.CompleteRequest{
		Key:         res.Key,
		UploadID:    initResp.UploadID,
		Parts:       res.Parts,
		Filename:    s.Name,
		ContentType: s.ContentType,
		Size:        s.Size,
		Hash:        digest,
		SpaceID:     s.SpaceID,
		ParentID:    s.ParentID,
	})
	if err != nil {
		if api.KindOf(err) == protocol.KindFinalize && initResp.UploadID != nil {
			c.abort(ctx, log, res.Key, *initResp.UploadID)
		}
		return c.finish(ctx, tr, remoteError("complete", err, KindFinalize))
	}
	if !completeResp.Success {
		return c.finish(ctx, tr, &Error{Kind: KindFinalize, Op: "complete", Err: errors.New("server did not confirm completion")})
	}

	res.BlobID, res.FileID = completeResp.BlobID, completeResp.FileID
	tr.enter(Completed)
	log.Info(ctx, "upload completed", "file_id", res.FileID, "fast_path", res.FastPath, "strategy", res.Strategy.String())
	return res, nil
}

func (c *Coordinator) hash(ctx context.Context, s Session, tr *tracker) (string, error) {
	for m := range hasher.Start(ctx, s.Source, s.Size, c.opts.HashWindow) {
		switch {
		case m.Err != nil:
			return "", &Error{Kind: KindHash, Op: "hash", Err: m.Err}
		case m.Digest != "":
			if err := ctx.Err(); err != nil {
				return "", err
			}
			tr.hashed(1)
			return m.Digest, nil
		default:
			tr.hashed(m.Progress)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", &Error{Kind: KindHash, Op: "hash", Err: errors.New("hasher stopped without a digest")}
}

// abort releases a multipart upload on the store. It runs even when ctx is
// already cancelled.
func (c *Coordinator) abort(ctx context.Context, log logging.Logger, key, uploadID string) {
	if !c.opts.AbortOnFailure {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()

	if err := c.transport.Abort(actx, protocol.AbortRequest{Key: key, UploadID: uploadID}); err != nil {
		log.Warn(ctx, "abort multipart failed, left to store expiry", "key", key, "upload_id", uploadID, "error", err)
		return
	}
	log.Debug(ctx, "multipart aborted", "key", key, "upload_id", uploadID)
}

func (c *Coordinator) finish(ctx context.Context, tr *tracker, err error) (Result, error) {
	if ctx.Err() != nil {
		err = &Error{Kind: KindCancelled, Op: tr.snap.State.String(), Err: ctx.Err()}
		tr.fail(Cancelled, err)
		c.logger.Info(ctx, "upload cancelled", "session", tr.snap.SessionID)
		return Result{SessionID: tr.snap.SessionID}, err
	}
	tr.fail(Failed, err)
	c.logger.Error(ctx, "upload failed", "session", tr.snap.SessionID, "kind", string(KindOf(err)), "error", err)
	return Result{SessionID: tr.snap.SessionID}, err
}

// remoteError turns a storage API failure into an upload error, keeping the
// server's classification when it sent one.
func remoteError(op string, err error, fallback Kind) error {
	kind := fallback
	switch api.KindOf(err) {
	case protocol.KindValidation:
		kind = KindValidation
	case protocol.KindVerification:
		kind = KindVerification
	case protocol.KindFinalize:
		kind = KindFinalize
	case protocol.KindConflict, protocol.KindNotFound:
		kind = KindRegister
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
