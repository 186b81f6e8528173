package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Client is the HTTP client for the chat backend. It carries no retry or
// timeout policy of its own; cancellation and deadlines come from the
// caller's context and the injected http.Client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	ret := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

// apiError is the structured error body some endpoints return. The
// profile upsert surfaces the persistence layer's error code here
// (Postgres unique violations arrive as code 23505).
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

// decodeError turns a non-2xx response body into an error, preferring the
// structured {error: {code, message}} shape, then {error: "…"}, then the
// raw status.
func decodeError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Error) > 0 {
		var detail apiError
		if err := json.Unmarshal(env.Error, &detail); err == nil && (detail.Code != "" || detail.Message != "") {
			return &StatusError{Status: status, Code: detail.Code, Message: detail.Message}
		}
		var msg string
		if err := json.Unmarshal(env.Error, &msg); err == nil && msg != "" {
			return &StatusError{Status: status, Message: msg}
		}
	}
	return &StatusError{Status: status, Message: http.StatusText(status)}
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := decodeError(resp.StatusCode, respBody)
		log.Debug().Str("path", req.URL.Path).Int("status", resp.StatusCode).Err(err).Msg("backend request failed")
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}
