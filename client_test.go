package asterdex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asterdex/pkg/core"
	"asterdex/pkg/spot"
)

func testConfig(baseURL string) *core.Config {
	config := core.DefaultConfig()
	config.SpotBaseURL = baseURL
	config.FuturesBaseURL = baseURL
	config.MaxRetries = 0
	config.RetryWaitMin = time.Millisecond
	config.RetryWaitMax = time.Millisecond
	config.RateLimitBlocking = false
	config.LogLevel = "error"
	return config
}

func TestNewValidatesConfig(t *testing.T) {
	config := core.DefaultConfig()
	config.SpotBaseURL = "not a url"
	_, err := New(config)
	require.Error(t, err)

	var clientErr *core.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, core.ErrorTypeConfig, clientErr.Type)
}

func TestNewDefaultsWhenNil(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)
	defer client.Close()
	assert.NotNil(t, client.Spot())
	assert.NotNil(t, client.Futures())
}

func TestPublicEndpointWithoutCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-MBX-APIKEY"))
		_, _ = w.Write([]byte(`{"serverTime":1700000000000}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	ts, err := client.Spot().ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts.UnixMilli())
}

func TestSignedSpotRequestCarriesSignature(t *testing.T) {
	var gotKey, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-MBX-APIKEY")
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"canTrade":true,"balances":[]}`))
	}))
	defer server.Close()

	config := testConfig(server.URL).WithHMAC("test-key", "test-secret")
	client, err := New(config)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Spot().Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
	assert.Contains(t, gotQuery, "timestamp=")
	assert.Contains(t, gotQuery, "recvWindow=")
	assert.Contains(t, gotQuery, "signature=")
}

func TestSignedFuturesRequestCarriesWeb3Envelope(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	config := testConfig(server.URL).WithWeb3(
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	)
	client, err := New(config)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Futures().Balance(context.Background())
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "user=")
	assert.Contains(t, gotQuery, "signer=")
	assert.Contains(t, gotQuery, "nonce=")
	assert.Contains(t, gotQuery, "signature=0x")
}

func TestSignedRequestWithoutCredentialsFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Spot().Account(context.Background())
	assert.True(t, core.IsAuthError(err))

	_, err = client.Futures().Balance(context.Background())
	assert.True(t, core.IsAuthError(err))
}

func TestMarketDataCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"42000.00","closeTime":1700000000000}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.CacheTTL = time.Minute
	client, err := New(config)
	require.NoError(t, err)
	defer client.Close()

	for range 3 {
		_, err := client.Spot().Ticker(context.Background(), "BTCUSDT")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())

	// A different symbol misses the cache.
	_, err = client.Spot().Ticker(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRateLimitFailFast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.CacheEnabled = false
	config.RateLimitRequests = 2
	config.RateLimitPeriod = time.Minute
	client, err := New(config)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Spot().Ping(context.Background()))
	require.NoError(t, client.Spot().Ping(context.Background()))

	err = client.Spot().Ping(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsRateLimitError(err))

	var clientErr *core.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Greater(t, clientErr.RetryAfter, time.Duration(0))
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.CacheEnabled = false
	config.CircuitBreakerFailThreshold = 3
	client, err := New(config)
	require.NoError(t, err)
	defer client.Close()

	for range 3 {
		err := client.Spot().Ping(context.Background())
		assert.True(t, core.IsAPIError(err))
	}

	err = client.Spot().Ping(context.Background())
	assert.ErrorIs(t, err, core.ErrCircuitBreakerOpen)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClosedClientRejectsCalls(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	err = client.Spot().Ping(context.Background())
	assert.ErrorIs(t, err, core.ErrClientClosed)
}

func TestUpdateHMACTakesEffect(t *testing.T) {
	var keys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("X-MBX-APIKEY"))
		_, _ = w.Write([]byte(`{"balances":[]}`))
	}))
	defer server.Close()

	config := testConfig(server.URL).WithHMAC("old-key", "old-secret")
	client, err := New(config)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Spot().Account(context.Background())
	require.NoError(t, err)

	client.UpdateHMAC(&core.HMACCredentials{APIKey: "new-key", APISecret: "new-secret"})
	_, err = client.Spot().Account(context.Background())
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.Equal(t, "old-key", keys[0])
	assert.Equal(t, "new-key", keys[1])
}

func TestUpdateWeb3RejectsInvalid(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)
	defer client.Close()

	err = client.UpdateWeb3(&core.Web3Credentials{
		UserAddress:   "not-an-address",
		SignerAddress: "also-bad",
		PrivateKey:    "nope",
	})
	assert.True(t, core.IsAuthError(err))
}

func TestValidationFailuresSkipNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Spot().OrderBook(context.Background(), spot.OrderBookRequest{Limit: 10})
	assert.True(t, core.IsValidationError(err))
}
