package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrMissingETag is returned when the store accepts a PUT without an ETag.
var ErrMissingETag = errors.New("response has no ETag header")

// StatusError is a non-2xx answer from the remote side.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Putter uploads byte ranges to presigned URLs.
type Putter struct {
	client *retryablehttp.Client
}

func NewPutter(client *retryablehttp.Client) *Putter {
	return &Putter{client: client}
}

// Put sends size bytes from body to url and returns the ETag the store
// assigned. body is rewound before every attempt.
func (p *Putter) Put(ctx context.Context, url string, body io.ReadSeeker, size int64, contentType string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = common.DefaultContentType
	}
	req.Header.Set("Content-Type", contentType)
	// retryablehttp does not derive the length from an io.ReadSeeker
	req.ContentLength = size

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", UnwrapError(resp)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", ErrMissingETag
	}
	return etag, nil
}

// UnwrapError drains resp into a *StatusError.
func UnwrapError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return &StatusError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("read body: %s", err)}
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
}
