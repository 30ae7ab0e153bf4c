package upload

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dmitrijs2005/casdrive/internal/client/chunk"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"golang.org/x/sync/errgroup"
)

type partResult struct {
	rng  chunk.Range
	etag string
}

// transfer uploads ranges with at most Concurrency parts in flight and
// returns the parts sorted by number. Workers only report results; byte
// counting happens here, on the session goroutine.
func (c *Coordinator) transfer(ctx context.Context, s Session, key, uploadID string, ranges []chunk.Range, tr *tracker) ([]protocol.Part, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	results := make(chan partResult)
	waitErr := make(chan error, 1)

	go func() {
		for _, r := range ranges {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				etag, err := c.sendPart(gctx, s, key, uploadID, r)
				if err != nil {
					return err
				}
				select {
				case results <- partResult{rng: r, etag: etag}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		waitErr <- g.Wait()
		close(results)
	}()

	parts := make([]protocol.Part, 0, len(ranges))
	for res := range results {
		parts = append(parts, protocol.Part{PartNumber: res.rng.PartNumber, ETag: res.etag})
		tr.transferred(res.rng.Length)
	}

	if err := <-waitErr; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(parts) != len(ranges) {
		return nil, &Error{Kind: KindTransfer, Op: "transfer", Err: fmt.Errorf("%d of %d parts uploaded", len(parts), len(ranges))}
	}

	SortParts(parts)
	return parts, nil
}

func (c *Coordinator) sendPart(ctx context.Context, s Session, key, uploadID string, r chunk.Range) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	url, err := c.transport.SignPart(ctx, protocol.SignPartRequest{Key: key, UploadID: uploadID, PartNumber: r.PartNumber})
	if err != nil {
		return "", remoteError(fmt.Sprintf("sign part %d", r.PartNumber), err, KindTransfer)
	}

	body := io.NewSectionReader(s.Source, r.Offset, r.Length)
	etag, err := c.putter.Put(ctx, url, body, r.Length, "")
	if err != nil {
		return "", &Error{Kind: KindTransfer, Op: fmt.Sprintf("put part %d", r.PartNumber), Err: err}
	}
	return etag, nil
}

// SortParts orders parts ascending by part number, as the store requires on
// completion.
func SortParts(parts []protocol.Part) {
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
}
