package client

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

	"github.com/goliatone/go-invoices/invoice"
	"github.com/goliatone/go-invoices/session"
)

const (
	DefaultBaseURL = "http://127.0.0.1:3000/api"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// Config configures the remote API client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Session    *session.Manager
	Logger     invoice.Logger
}

// Client talks to the remote invoice API. It forwards the bearer token from
// its session and expires that session on a 401.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    *session.Manager
	logger     invoice.Logger
}

// New creates a remote API client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	sess := cfg.Session
	if sess == nil {
		sess = session.NewManager(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = invoice.NopLogger{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		session:    sess,
		logger:     logger,
	}
}

// Session returns the session context the client authenticates with.
func (c *Client) Session() *session.Manager {
	return c.session
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doCall(ctx, method, path, body, out, "")
}

// doCall is do with a fallback message for failures the server does not
// explain.
func (c *Client) doCall(ctx context.Context, method, path string, body, out any, fallback string) error {
	if c == nil {
		return invoice.NewError(invoice.KindInternal, "api client is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return invoice.NewError(invoice.KindInternal, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return invoice.NewError(invoice.KindInternal, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	token := c.session.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		msg := fallback
		if msg == "" {
			msg = fmt.Sprintf("%s %s failed", method, path)
		}
		return invoice.NewError(invoice.KindRemote, msg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.parseError(ctx, req, resp, token, fallback)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return invoice.NewError(invoice.KindRemote, "decode response", err)
	}
	return nil
}

func (c *Client) parseError(ctx context.Context, req *http.Request, resp *http.Response, token string, fallback string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var parsed errorBody
	_ = json.Unmarshal(data, &parsed)
	msg := strings.TrimSpace(parsed.Message)
	if msg == "" {
		msg = strings.TrimSpace(parsed.Error)
	}
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = fmt.Sprintf("%s %s: %s", req.Method, req.URL.Path, http.StatusText(resp.StatusCode))
	}
	cause := &StatusError{StatusCode: resp.StatusCode, Body: string(data)}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.session.ExpireToken(ctx, token) {
			c.logger.Infof("api: session expired on %s %s", req.Method, req.URL.Path)
		}
		return invoice.NewError(invoice.KindUnauthenticated, msg, cause)
	case resp.StatusCode == http.StatusForbidden:
		return invoice.NewError(invoice.KindAuthz, msg, cause)
	case resp.StatusCode == http.StatusNotFound:
		return invoice.NewError(invoice.KindNotFound, msg, cause)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return invoice.NewError(invoice.KindValidation, msg, cause)
	default:
		return invoice.NewError(invoice.KindRemote, msg, cause)
	}
}

// StatusError carries the raw remote response of a failed call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote status %d", e.StatusCode)
}

// decodeEnvelope accepts either a bare JSON value or one wrapped in {data}.
func decodeEnvelope(raw json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
			trimmed = env.Data
		}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return invoice.NewError(invoice.KindRemote, "decode response", err)
	}
	return nil
}
