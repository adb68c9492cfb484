// Package api is the HTTP client for the case API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/agentuity/go-caselaw/logger"
	"github.com/agentuity/go-caselaw/resilience"
	"github.com/cockroachdb/errors"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  logger.Logger
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// Error is a failed request together with what the server sent back.
type Error struct {
	URL      string
	Method   string
	Status   int
	Body     string
	Detail   string
	TheError error
}

func (e *Error) Error() string {
	if e == nil || e.TheError == nil {
		return ""
	}
	return e.TheError.Error()
}

func (e *Error) Unwrap() error {
	return e.TheError
}

func NewError(url, method string, status int, body string, err error) *Error {
	return &Error{
		URL:      url,
		Method:   method,
		Status:   status,
		Body:     body,
		TheError: err,
	}
}

// Message returns the server's detail message carried by err, or fallback
// when there is none.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithLogger sets the logger. Defaults to a console logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// WithRetries sets the number of attempts made for a retryable failure.
// The default of 1 never retries.
func WithRetries(attempts int) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.retry.MaxRetries = attempts - 1
	}
}

// WithCircuitBreaker guards every request with cb. Client errors (4xx) do
// not count against the circuit.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	retry := resilience.DefaultRetryConfig()
	retry.MaxRetries = 0
	retry.RetryableErrors = shouldRetry
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		retry:   retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.NewConsoleLogger()
	}
	c.logger = c.logger.WithPrefix("[api]")
	return c
}

func UserAgent() string {
	gitSHA := Commit
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				gitSHA = setting.Value
			}
		}
	}
	return "Caselaw API Client/" + Version + " (" + gitSHA + ")"
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(err.Error(), "EOF") {
		return true
	}
	switch StatusCode(err) {
	case http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}

// countsAgainstCircuit keeps client errors from opening the circuit.
func countsAgainstCircuit(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	status := StatusCode(err)
	return status == 0 || status >= 500
}

// detailResponse is the error body of the API. Detail is either a string
// or a list of validation issues.
type detailResponse struct {
	Detail json.RawMessage `json:"detail"`
}

func parseDetail(body []byte) string {
	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(resp.Detail, &text); err == nil {
		return text
	}
	var issues []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(resp.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if len(issue.Loc) > 0 {
				parts := make([]string, len(issue.Loc))
				for i, loc := range issue.Loc {
					parts[i] = fmt.Sprint(loc)
				}
				msgs = append(msgs, issue.Msg+" ("+strings.Join(parts, ".")+")")
			} else {
				msgs = append(msgs, issue.Msg)
			}
		}
		return strings.Join(msgs, ". ")
	}
	return ""
}

// previewBody shortens a response body for debug logging.
func previewBody(body []byte, contentType string) string {
	if !strings.Contains(contentType, "json") && !strings.HasPrefix(contentType, "text/") {
		return fmt.Sprintf("<%d bytes of %s>", len(body), contentType)
	}
	if len(body) > 200 {
		return string(body[:200]) + fmt.Sprintf("[truncated, total: %d chars]", len(body))
	}
	return string(body)
}

func (c *Client) url(pathParam string, params url.Values) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", errors.Wrap(err, "error parsing base url")
	}
	if i := strings.Index(pathParam, "?"); i != -1 {
		u.RawQuery = pathParam[i+1:]
		pathParam = pathParam[:i]
	}
	if pathParam != "" {
		u.Path = path.Join("/", u.Path, pathParam)
	}
	if len(params) > 0 {
		query := u.Query()
		for name, vals := range params {
			for _, v := range vals {
				query.Add(name, v)
			}
		}
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// Do sends a request and decodes a JSON response into response, when it is
// not nil. Failures are returned as *Error unless the context ended.
func (c *Client) Do(ctx context.Context, method, pathParam string, params url.Values, payload any, response any) error {
	u, err := c.url(pathParam, params)
	if err != nil {
		return NewError(c.baseURL, method, 0, "", err)
	}
	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return NewError(u, method, 0, "", errors.Wrap(err, "error marshalling payload"))
		}
	}

	attempt := func(ctx context.Context) error {
		return c.send(ctx, method, u, body, response)
	}
	if c.breaker != nil {
		guarded := attempt
		attempt = func(ctx context.Context) error {
			var clientErr error
			err := c.breaker.Execute(ctx, func(ctx context.Context) error {
				err := guarded(ctx)
				if err != nil && !countsAgainstCircuit(err) {
					clientErr = err
					return nil
				}
				return err
			})
			if clientErr != nil {
				return clientErr
			}
			if errors.Is(err, resilience.ErrCircuitBreakerOpen) {
				return NewError(u, method, 0, "", err)
			}
			return err
		}
	}
	return resilience.Retry(ctx, c.retry, attempt)
}

func (c *Client) send(ctx context.Context, method, u string, body []byte, response any) error {
	c.logger.Trace("sending request: %s %s", method, u)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return NewError(u, method, 0, "", errors.Wrap(err, "error creating request"))
	}
	req.Header.Set("User-Agent", UserAgent())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewError(u, method, 0, "", errors.Wrap(err, "error sending request"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewError(u, method, resp.StatusCode, "", errors.Wrap(err, "error reading response body"))
	}
	contentType := resp.Header.Get("Content-Type")
	c.logger.Debug("%s %s: %s %s", method, u, resp.Status, previewBody(respBody, contentType))

	if resp.StatusCode > 299 {
		apiErr := NewError(u, method, resp.StatusCode, string(respBody), errors.Newf("request failed with status (%s)", resp.Status))
		if strings.Contains(contentType, "application/json") {
			if detail := parseDetail(respBody); detail != "" {
				apiErr.Detail = detail
				apiErr.TheError = errors.Newf("%s", detail)
			}
		}
		return apiErr
	}

	if response != nil {
		if err := json.Unmarshal(respBody, response); err != nil {
			return NewError(u, method, resp.StatusCode, string(respBody), errors.Wrap(err, "error JSON decoding response"))
		}
	}
	return nil
}
