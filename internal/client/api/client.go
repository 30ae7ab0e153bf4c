// Package api is the uploader's client for the storage endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/casdrive/internal/common"
	"github.com/dmitrijs2005/casdrive/internal/logging"
	"github.com/dmitrijs2005/casdrive/internal/netx"
	"github.com/dmitrijs2005/casdrive/internal/protocol"
	"github.com/hashicorp/go-retryablehttp"
)

// Error is a non-2xx answer from the storage API.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("HTTP %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// KindOf returns the server-reported kind of err, or "" when err did not
// come from the server.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

type Client struct {
	baseURL     string
	accessToken string
	// retrying is used for idempotent calls; complete goes through once
	retrying *retryablehttp.Client
	once     *retryablehttp.Client
	logger   logging.Logger
}

func NewClient(baseURL, accessToken string, retries int, logger logging.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		retrying:    netx.NewRetryClient(retries, logger),
		once:        netx.NewRetryClient(0, logger),
		logger:      logger.With("module", "api"),
	}
}

// SetRequestTimeout bounds each attempt of the retried calls. Zero means no
// limit. Complete is never bounded: the store may take minutes to assemble a
// large object and the call is not repeated.
func (c *Client) SetRequestTimeout(d time.Duration) {
	c.retrying.HTTPClient.Timeout = d
}

func (c *Client) Init(ctx context.Context, req protocol.InitRequest) (protocol.InitResponse, error) {
	var resp protocol.InitResponse
	err := c.post(ctx, c.retrying, protocol.PathInit, req, &resp)
	return resp, err
}

func (c *Client) SignPart(ctx context.Context, req protocol.SignPartRequest) (string, error) {
	var resp protocol.SignPartResponse
	if err := c.post(ctx, c.retrying, protocol.PathSignPart, req, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", errors.New("sign-part returned an empty url")
	}
	return resp.URL, nil
}

func (c *Client) Complete(ctx context.Context, req protocol.CompleteRequest) (protocol.CompleteResponse, error) {
	var resp protocol.CompleteResponse
	err := c.post(ctx, c.once, protocol.PathComplete, req, &resp)
	return resp, err
}

func (c *Client) Abort(ctx context.Context, req protocol.AbortRequest) error {
	var resp protocol.AbortResponse
	return c.post(ctx, c.retrying, protocol.PathAbort, req, &resp)
}

func (c *Client) post(ctx context.Context, hc *retryablehttp.Client, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+c.accessToken)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn(ctx, "close response body", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unwrapError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func unwrapError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read body: %s", err)}
	}

	var body protocol.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return &Error{StatusCode: resp.StatusCode, Kind: body.Kind, Message: body.Error}
	}
	return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bytes.ToValidUTF8(data, nil)))}
}
