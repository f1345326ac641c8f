// Package dataapi talks to the JSON Data API and implements the Tables and Collections adapters on top of it.
package dataapi

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
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sethvargo/go-retry"
)

const (
	apiPath = "/api/json/v1"

	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3
	DefaultBackoff = 500 * time.Millisecond

	// maxBodyLen bounds how much of an error body is echoed back
	maxBodyLen = 512
)

var (
	// ErrAPI is matched by every error reported in the errors array of a response
	ErrAPI = errors.New("data api error")
	// ErrHTTP is matched by every non 2xx response
	ErrHTTP = errors.New("data api http error")

	errTransport = errors.New("transport error")

	// writeCommands carry client chosen ids, so a repeat of one that already
	// committed collides with itself
	writeCommands = map[string]bool{"insertOne": true, "insertMany": true}
)

const errCodeDocumentExists = "DOCUMENT_ALREADY_EXISTS"

// ErrorDetail is a single entry of the errors array
type ErrorDetail struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
	Family    string `json:"family,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

// APIError is returned when the Data API answers with a non empty errors array
type APIError struct {
	Command string
	Errors  []ErrorDetail
}

func (e *APIError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		if d.ErrorCode != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", d.ErrorCode, d.Message))
		} else {
			msgs = append(msgs, d.Message)
		}
	}
	return fmt.Sprintf("%s rejected: %s", e.Command, strings.Join(msgs, "; "))
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// HTTPError is returned for non 2xx responses
type HTTPError struct {
	Command    string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s failed with HTTP %d: %s", e.Command, e.StatusCode, e.Body)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTP
}

// Response is the decoded body of a successful command
type Response struct {
	Status map[string]json.RawMessage `json:"status,omitempty"`
	Data   *struct {
		Document  map[string]any   `json:"document,omitempty"`
		Documents []map[string]any `json:"documents,omitempty"`
	} `json:"data,omitempty"`
	Errors []ErrorDetail `json:"errors,omitempty"`
}

// InsertedIDs returns the number of ids reported in status.insertedIds
func (r *Response) InsertedIDs() int {
	raw, ok := r.Status["insertedIds"]
	if !ok {
		return 0
	}
	var ids []json.RawMessage
	if err := json.Unmarshal(raw, &ids); err != nil {
		return 0
	}
	return len(ids)
}

// Document returns the single document of a findOne response, nil when nothing matched
func (r *Response) Document() map[string]any {
	if r.Data == nil {
		return nil
	}
	return r.Data.Document
}

// Documents returns the documents of a find response
func (r *Response) Documents() []map[string]any {
	if r.Data == nil {
		return nil
	}
	return r.Data.Documents
}

// Config holds configuration for creating a new client
type Config struct {
	Endpoint   string
	Token      string
	Keyspace   string
	Timeout    time.Duration
	Retries    uint64
	Backoff    time.Duration
	HTTPClient *http.Client
	Log        log.Logger
}

// Client issues Data API commands. It is safe for use by both adapters at once.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
	keyspace string
	timeout  time.Duration
	retries  uint64
	backoff  time.Duration
	log      log.Logger
}

// NewClient creates a new Data API client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("api endpoint is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("application token is required")
	}
	if cfg.Keyspace == "" {
		return nil, fmt.Errorf("keyspace is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Client{
		http:     cfg.HTTPClient,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		token:    cfg.Token,
		keyspace: cfg.Keyspace,
		timeout:  cfg.Timeout,
		retries:  cfg.Retries,
		backoff:  cfg.Backoff,
		log:      cfg.Log,
	}, nil
}

// Keyspace returns the keyspace commands are sent to
func (c *Client) Keyspace() string {
	return c.keyspace
}

// KeyspaceCommand runs a command against the keyspace itself, eg. createTable
func (c *Client) KeyspaceCommand(ctx context.Context, name string, args Doc) (*Response, error) {
	return c.do(ctx, c.url(""), name, args)
}

// Command runs a command against a table or collection
func (c *Client) Command(ctx context.Context, target, name string, args Doc) (*Response, error) {
	return c.do(ctx, c.url(target), name, args)
}

// Ping lists the keyspace's collections to check the endpoint, token and keyspace before any case runs
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.KeyspaceCommand(ctx, "findCollections", Doc{}); err != nil {
		return fmt.Errorf("data api unreachable: %w", err)
	}
	return nil
}

// Close releases idle connections. It may be called more than once.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) url(target string) string {
	u := c.endpoint + apiPath + "/" + c.keyspace
	if target != "" {
		u += "/" + target
	}
	return u
}

func (c *Client) do(ctx context.Context, url, name string, args Doc) (*Response, error) {
	if args == nil {
		args = Doc{}
	}
	body, err := Marshal(Doc{name: args})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}

	var resp *Response
	attempt := 0
	// set once an attempt may have been applied server side without us seeing the answer
	ambiguous := false
	b := retry.WithMaxRetries(c.retries, retry.NewFibonacci(c.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		r, err := c.roundTrip(ctx, url, name, body)
		if err != nil {
			if retryable(ctx, err) {
				ambiguous = ambiguous || !throttled(err)
				c.log.Debug("Retrying Data API command", "command", name, "attempt", attempt, "err", err)
				return retry.RetryableError(err)
			}
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 && ambiguous && writeCommands[name] && allAlreadyExist(resp.Errors) {
		ids := requestIDs(args)
		c.log.Warn("Write committed by an earlier attempt", "command", name, "attempts", attempt, "ids", len(ids))
		resp.Errors = nil
		if resp.Status == nil {
			resp.Status = make(map[string]json.RawMessage)
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return nil, fmt.Errorf("failed to encode inserted ids of %s: %w", name, err)
		}
		resp.Status["insertedIds"] = raw
	}
	if len(resp.Errors) > 0 {
		return resp, &APIError{Command: name, Errors: resp.Errors}
	}
	return resp, nil
}

func allAlreadyExist(errs []ErrorDetail) bool {
	for _, e := range errs {
		if e.ErrorCode != errCodeDocumentExists {
			return false
		}
	}
	return true
}

// requestIDs collects the ids of the documents an insert command carried
func requestIDs(args Doc) []any {
	var docs []any
	if d, ok := args["document"]; ok {
		docs = append(docs, d)
	}
	switch list := args["documents"].(type) {
	case []Doc:
		for _, d := range list {
			docs = append(docs, d)
		}
	case []any:
		docs = append(docs, list...)
	}
	ids := make([]any, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(Doc)
		if !ok {
			continue
		}
		for _, key := range []string{"_id", "id"} {
			if id, ok := doc[key]; ok {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

func (c *Client) roundTrip(ctx context.Context, url, name string, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", name, err)
	}
	req.Header.Set("Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w: %w", name, errTransport, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", name, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &HTTPError{Command: name, StatusCode: res.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), maxBodyLen)}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", name, err)
	}
	return &out, nil
}

// retryable reports whether a failed round trip is worth repeating: throttling,
// server side errors and transport failures are, rejections of the payload are not
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	// per attempt timeouts and connection errors
	return errors.Is(err, errTransport)
}

// throttled reports a 429, which the server answers before applying anything
func throttled(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
