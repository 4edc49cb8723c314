// Package transport performs the actual network calls: a resty HTTP
// client with per-request timeouts, retry with exponential backoff for
// retryable failures only, and typed error mapping for everything that
// comes back non-2xx.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"asterdex/pkg/core"
)

// Config tunes the HTTP client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client wraps a resty client with the retry policy and error mapping
// the rest of the module relies on.
type Client struct {
	client *resty.Client
	logger zerolog.Logger
}

// Response is the decoded transport result.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// apiErrorBody is the structured error shape the exchange returns.
type apiErrorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// NewClient creates a transport. Retries apply only to retryable
// failures: 5xx responses, 429/418 rate limits and network errors.
// Backoff is exponential between RetryWaitMin and RetryWaitMax, and a
// Retry-After header on a rate-limit response overrides the computed
// wait. Client errors are never retried.
func NewClient(config Config, logger zerolog.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	client.SetTimeout(config.Timeout)
	client.SetRetryCount(config.MaxRetries)
	client.SetRetryWaitTime(config.RetryWaitMin)
	client.SetRetryMaxWaitTime(config.RetryWaitMax)
	client.AddRetryConditions(func(resp *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled)
		}
		return isRetryableStatus(resp.StatusCode())
	})
	client.AddContentTypeEncoder("application/json", func(w io.Writer, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	client.AddContentTypeDecoder("application/json", func(r io.Reader, v any) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return sonic.Unmarshal(data, v)
	})

	client.AddRequestMiddleware(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("http request")
		return nil
	})
	client.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Int("size", len(resp.Bytes())).
			Msg("http response")
		return nil
	})

	return &Client{client: client, logger: logger}
}

func isRetryableStatus(status int) bool {
	return status >= 500 ||
		status == http.StatusTooManyRequests ||
		status == http.StatusTeapot
}

// Do executes a fully prepared request. Query parameters are serialized
// with keys sorted lexicographically and values percent-encoded (the
// same canonical form the HMAC signer hashes); form parameters go out
// application/x-www-form-urlencoded; any other body is JSON.
func (c *Client) Do(ctx context.Context, req *core.Request) (*Response, error) {
	r := c.client.R().SetContext(ctx)

	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query.StringMap())
	}
	if len(req.Form) > 0 {
		r.SetFormData(req.Form.StringMap())
	} else if req.Body != nil {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(req.Body)
	}

	var resp *resty.Response
	var err error
	switch req.Method {
	case http.MethodGet:
		resp, err = r.Get(req.Path)
	case http.MethodPost:
		resp, err = r.Post(req.Path)
	case http.MethodPut:
		resp, err = r.Put(req.Path)
	case http.MethodDelete:
		resp, err = r.Delete(req.Path)
	default:
		return nil, core.NewValidationError("method", fmt.Sprintf("unsupported http method %q", req.Method))
	}

	if err != nil {
		c.logger.Error().Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("http request failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.NewTimeoutError("request deadline exceeded", err)
		}
		return nil, core.NewNetworkError("http request failed", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Bytes(),
		Headers:    resp.Header(),
	}
	if apiErr := c.errorFromResponse(out); apiErr != nil {
		return nil, apiErr
	}
	return out, nil
}

// errorFromResponse maps a non-2xx response to its typed error.
func (c *Client) errorFromResponse(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	code, msg := "", http.StatusText(resp.StatusCode)
	var body apiErrorBody
	if err := sonic.Unmarshal(resp.Body, &body); err == nil && body.Code != 0 {
		code = strconv.Itoa(body.Code)
		msg = body.Msg
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot:
		return core.NewRateLimitError(resp.StatusCode, retryAfter(resp.Headers), msg)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return core.NewAuthError(msg, core.NewAPIError(resp.StatusCode, code, msg))
	default:
		return core.NewAPIError(resp.StatusCode, code, msg)
	}
}

func retryAfter(headers http.Header) time.Duration {
	v := headers.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Get performs a GET request with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query core.Params) (*Response, error) {
	req := core.NewRequest(http.MethodGet, path)
	if query != nil {
		req.SetQueryParams(query)
	}
	return c.Do(ctx, req)
}

// Post performs a POST request with a form-encoded body.
func (c *Client) Post(ctx context.Context, path string, form core.Params) (*Response, error) {
	req := core.NewRequest(http.MethodPost, path)
	if form != nil {
		req.SetForm(form)
	}
	return c.Do(ctx, req)
}

// SetBaseURL changes the base URL for subsequent requests.
func (c *Client) SetBaseURL(url string) {
	c.client.SetBaseURL(url)
}

// Close releases the underlying client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Unmarshal parses the response body into v using sonic.
func (r *Response) Unmarshal(v any) error {
	return sonic.Unmarshal(r.Body, v)
}

// IsSuccess returns true for a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
