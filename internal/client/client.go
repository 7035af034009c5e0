// Package client is a typed HTTP client for the dataserver API.
//
// Push computes the checksum of the content locally and validates the
// envelope shape before anything is sent, so a request the server would
// reject as malformed never leaves the process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/dataserver/internal/api"
	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/checksum"
	"github.com/roach88/dataserver/internal/codec"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 64 << 20

// Client talks to a dataserver over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	zstd       bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithZstd makes Push send zstd-compressed request bodies.
func WithZstd(enabled bool) Option {
	return func(client *Client) {
		client.zstd = enabled
	}
}

// New creates a Client for the server at baseURL, e.g. "http://127.0.0.1:8090".
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Push builds an envelope for content, checksums it and submits it.
func (client *Client) Push(ctx context.Context, name string, blockType block.BlockType, content string) (bool, error) {
	env := &block.Envelope{
		Header: &block.Header{Name: name, BlockType: blockType},
		Body:   block.Body{Content: content},
	}
	if err := env.Validate(); err != nil {
		return false, err
	}

	sum, err := checksum.Digest(env.Body.Bytes())
	if err != nil {
		return false, block.NewHashingError(name, err)
	}
	env.Checksum = sum
	return client.PushEnvelope(ctx, env)
}

// PushEnvelope submits env as-is. A refusal by the server returns false
// with a *block.Error carrying the server's rejection code.
func (client *Client) PushEnvelope(ctx context.Context, env *block.Envelope) (bool, error) {
	if env != nil {
		if err := env.Body.Validate(); err != nil {
			return false, err
		}
	}
	encoded, err := json.Marshal(env)
	if err != nil {
		return false, fmt.Errorf("push: encoding envelope: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if client.zstd {
		encoded = codec.CompressZstd(encoded)
		headers["Content-Encoding"] = codec.EncodingZstd
	}

	response, err := client.do(ctx, http.MethodPost, "/dataserver/pushdata", bytes.NewReader(encoded), headers)
	if err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return false, fmt.Errorf("push: HTTP %d: %s", response.StatusCode, errorBody(response.Body))
	}

	var ok bool
	if err := decodeResponse(response.Body, &ok); err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	if !ok {
		return false, rejection(response, nameOf(env))
	}
	return true, nil
}

// GetByType returns every record of blockType. No match is an empty slice.
func (client *Client) GetByType(ctx context.Context, blockType block.BlockType) ([]block.Record, error) {
	response, err := client.do(ctx, http.MethodGet, "/dataserver/data/"+url.PathEscape(string(blockType)), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get by type: %w", err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return []block.Record{}, nil
	default:
		return nil, fmt.Errorf("get by type: HTTP %d: %s", response.StatusCode, errorBody(response.Body))
	}

	var records []block.Record
	if err := decodeResponse(response.Body, &records); err != nil {
		return nil, fmt.Errorf("get by type: %w", err)
	}
	return records, nil
}

// GetByName returns the most recent record named name, or a NOT_FOUND
// *block.Error.
func (client *Client) GetByName(ctx context.Context, name string) (block.Record, error) {
	response, err := client.do(ctx, http.MethodGet, "/dataserver/block/"+url.PathEscape(name), nil, nil)
	if err != nil {
		return block.Record{}, fmt.Errorf("get by name: %w", err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return block.Record{}, block.NewNotFoundError(name)
	default:
		return block.Record{}, fmt.Errorf("get by name: HTTP %d: %s", response.StatusCode, errorBody(response.Body))
	}

	var record block.Record
	if err := decodeResponse(response.Body, &record); err != nil {
		return block.Record{}, fmt.Errorf("get by name: %w", err)
	}
	return record, nil
}

// Retype asks the server to re-ingest name under newType.
func (client *Client) Retype(ctx context.Context, name string, newType block.BlockType) (bool, error) {
	path := "/dataserver/update/" + url.PathEscape(name) + "/" + url.PathEscape(string(newType))
	response, err := client.do(ctx, http.MethodPut, path, nil, nil)
	if err != nil {
		return false, fmt.Errorf("retype: %w", err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK, http.StatusNotFound, http.StatusBadRequest:
	default:
		return false, fmt.Errorf("retype: HTTP %d: %s", response.StatusCode, errorBody(response.Body))
	}

	var ok bool
	if err := decodeResponse(response.Body, &ok); err != nil {
		return false, fmt.Errorf("retype: %w", err)
	}
	if !ok {
		return false, rejection(response, name)
	}
	return true, nil
}

// Health checks that the server is up.
func (client *Client) Health(ctx context.Context) error {
	response, err := client.do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("health: HTTP %d: %s", response.StatusCode, errorBody(response.Body))
	}
	return nil
}

func (client *Client) do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	return client.httpClient.Do(request)
}

// rejection converts a false response into a *block.Error using the
// server's rejection header.
func rejection(response *http.Response, name string) error {
	code := block.ErrorCode(response.Header.Get(api.RejectionHeader))
	if code == "" {
		code = block.ErrCodeMalformedEnvelope
	}
	return &block.Error{Code: code, Message: "rejected by server", Name: name}
}

func nameOf(env *block.Envelope) string {
	if env == nil || env.Header == nil {
		return ""
	}
	return env.Header.Name
}

func decodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// errorBody reads an error response body for diagnostic messages. Read
// errors are ignored since a partial body is still useful.
func errorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxResponseSize))
	return strings.TrimSpace(string(data))
}
