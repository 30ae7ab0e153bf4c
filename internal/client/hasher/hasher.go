// Package hasher computes the SHA-256 content digest of a file on a separate
// goroutine, reporting progress as it goes.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// DefaultWindow is how much of the file is read per step.
const DefaultWindow = 20 << 20

var ErrShortRead = errors.New("source ended before its declared size")

// Message is sent by the hashing goroutine. Exactly one of the terminal
// forms (Digest set, or Err set) is sent last; the rest carry Progress.
type Message struct {
	Progress float64
	Digest   string
	Err      error
}

// Done reports whether m is the final message.
func (m Message) Done() bool {
	return m.Digest != "" || m.Err != nil
}

// Start hashes size bytes of src in window-sized reads and returns the
// channel the goroutine reports on. The channel is closed when hashing ends.
// When ctx is cancelled the channel is closed without a digest.
func Start(ctx context.Context, src io.ReaderAt, size int64, window int) <-chan Message {
	if window <= 0 {
		window = DefaultWindow
	}
	out := make(chan Message)

	go func() {
		defer close(out)

		send := func(m Message) bool {
			select {
			case out <- m:
				return true
			case <-ctx.Done():
				return false
			}
		}

		h := sha256.New()
		buf := make([]byte, min(int64(window), max(size, 1)))
		var off int64

		for off < size {
			if ctx.Err() != nil {
				return
			}
			n := int(min(int64(len(buf)), size-off))
			read, err := src.ReadAt(buf[:n], off)
			if read < n {
				if err == nil || errors.Is(err, io.EOF) {
					err = ErrShortRead
				}
				send(Message{Err: fmt.Errorf("read at %d: %w", off, err)})
				return
			}
			h.Write(buf[:n])
			off += int64(n)

			if !send(Message{Progress: float64(off) / float64(size)}) {
				return
			}
		}

		// no digest once cancelled
		if ctx.Err() != nil {
			return
		}
		send(Message{Progress: 1, Digest: hex.EncodeToString(h.Sum(nil))})
	}()

	return out
}

// Sum hashes src and blocks until the digest is ready. onProgress may be nil.
func Sum(ctx context.Context, src io.ReaderAt, size int64, window int, onProgress func(float64)) (string, error) {
	for m := range Start(ctx, src, size, window) {
		switch {
		case m.Err != nil:
			return "", m.Err
		case m.Digest != "":
			return m.Digest, nil
		case onProgress != nil:
			onProgress(m.Progress)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", errors.New("hasher stopped without a result")
}
