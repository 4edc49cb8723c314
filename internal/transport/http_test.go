package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asterdex/pkg/core"
)

func newTestClient(t *testing.T, baseURL string, maxRetries int) *Client {
	t.Helper()
	c := NewClient(Config{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		MaxRetries:   maxRetries,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDoSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"serverTime":1700000000000}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	resp, err := client.Get(context.Background(), "/api/v1/time", nil)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	var body struct {
		ServerTime int64 `json:"serverTime"`
	}
	require.NoError(t, resp.Unmarshal(&body))
	assert.Equal(t, int64(1700000000000), body.ServerTime)
}

func TestDoQuerySortedAndEncoded(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Get(context.Background(), "/api/v1/klines", core.Params{
		"symbol":   "BTCUSDT",
		"interval": "1m",
		"limit":    500,
	})
	require.NoError(t, err)
	assert.Equal(t, "interval=1m&limit=500&symbol=BTCUSDT", gotQuery)
}

func TestDoFormBody(t *testing.T) {
	var gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotBody = r.PostForm.Encode()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Post(context.Background(), "/api/v1/order", core.Params{
		"symbol": "BTCUSDT",
		"side":   "BUY",
	})
	require.NoError(t, err)
	assert.Contains(t, gotContentType, "application/x-www-form-urlencoded")
	assert.Equal(t, "side=BUY&symbol=BTCUSDT", gotBody)
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	resp, err := client.Get(context.Background(), "/api/v1/time", nil)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	_, err := client.Get(context.Background(), "/api/v1/time", nil)
	require.Error(t, err)
	assert.True(t, core.IsAPIError(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoClientErrorNeverRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1102,"msg":"Mandatory parameter was not sent"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	_, err := client.Get(context.Background(), "/api/v1/order", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var clientErr *core.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, core.ErrorTypeAPIResponse, clientErr.Type)
	assert.Equal(t, http.StatusBadRequest, clientErr.StatusCode)
	assert.Equal(t, "-1102", clientErr.Code)
	assert.Equal(t, "Mandatory parameter was not sent", clientErr.Message)
}

func TestDoRateLimitRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Get(context.Background(), "/api/v1/ticker", nil)
	require.Error(t, err)
	assert.True(t, core.IsRateLimitError(err))

	var clientErr *core.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 30*time.Second, clientErr.RetryAfter)
}

func TestDoAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":-2015,"msg":"Invalid API-key"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.Get(context.Background(), "/api/v1/account", nil)
	require.Error(t, err)
	assert.True(t, core.IsAuthError(err))
}

func TestDoNetworkError(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1", 0)
	_, err := client.Get(context.Background(), "/api/v1/time", nil)
	require.Error(t, err)
	assert.True(t, core.IsNetworkError(err))
}

func TestDoContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	client := newTestClient(t, server.URL, 3)
	_, err := client.Get(ctx, "/api/v1/time", nil)
	require.Error(t, err)
}

func TestResponseHeadersExposed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Mbx-Used-Weight-1m", "42")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	resp, err := client.Get(context.Background(), "/api/v1/time", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Headers.Get("X-Mbx-Used-Weight-1m"))
}
