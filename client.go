// Package asterdex is a client for the asterdex exchange: spot trading
// over the HMAC-authenticated REST API, derivatives trading over the
// wallet-signed REST API, and market/user data over multiplexed
// websocket streams.
package asterdex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"asterdex/internal/circuitbreaker"
	"asterdex/internal/clock"
	"asterdex/internal/ratelimit"
	"asterdex/internal/transport"
	"asterdex/pkg/auth"
	"asterdex/pkg/core"
	"asterdex/pkg/futures"
	"asterdex/pkg/spot"
	"asterdex/pkg/stream"
)

// Client is the top-level handle. It owns credentials, rate limiting,
// the circuit breaker and both HTTP transports, and hands out the spot,
// futures and stream facades. Safe for concurrent use.
type Client struct {
	config *core.Config
	logger zerolog.Logger
	closed atomic.Bool

	auth    *auth.Manager
	window  *ratelimit.Window
	buckets *ratelimit.Buckets
	breaker *circuitbreaker.Breaker
	cache   *cache

	spotTransport    *transport.Client
	futuresTransport *transport.Client

	spot    *spot.Service
	futures *futures.Service

	streamMu       sync.Mutex
	spotStreams    *stream.Client
	futuresStreams *stream.Client
}

// New creates a client from the given configuration. Credentials are
// optional: public market data works without any, spot signing needs
// HMAC credentials and futures signing needs web3 credentials.
func New(config *core.Config) (*Client, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(config.LogLevel)

	manager, err := auth.NewManager(config.HMAC, config.Web3, config.RecvWindow)
	if err != nil {
		return nil, err
	}
	manager.SetLogger(logger)

	c := &Client{
		config: config,
		logger: logger,
		auth:   manager,
	}

	if config.RateLimitEnabled {
		c.window = ratelimit.NewWindow(config.RateLimitRequests, config.RateLimitPeriod)
		c.buckets = ratelimit.NewBuckets(config.RateLimitRequests, config.RateLimitPeriod)
	}
	if config.CircuitBreakerEnabled {
		c.breaker = circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerFailThreshold,
			SuccessThreshold: config.CircuitBreakerSuccessThreshold,
			Timeout:          config.CircuitBreakerTimeout,
		})
	}
	if config.CacheEnabled {
		c.cache = newCache(config.CacheTTL, clock.Real{})
	}

	transportConfig := transport.Config{
		Timeout:      config.Timeout,
		MaxRetries:   config.MaxRetries,
		RetryWaitMin: config.RetryWaitMin,
		RetryWaitMax: config.RetryWaitMax,
	}
	transportConfig.BaseURL = config.SpotBaseURL
	c.spotTransport = transport.NewClient(transportConfig, logger)
	transportConfig.BaseURL = config.FuturesBaseURL
	c.futuresTransport = transport.NewClient(transportConfig, logger)

	c.spot = spot.NewService(&caller{client: c, family: auth.FamilySpot})
	c.futures = futures.NewService(&caller{client: c, family: auth.FamilyFutures})
	return c, nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(parsed).With().Timestamp().Logger()
}

// SetLogger replaces the client logger.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// Spot returns the spot REST facade.
func (c *Client) Spot() *spot.Service {
	return c.spot
}

// Futures returns the derivatives REST facade.
func (c *Client) Futures() *futures.Service {
	return c.futures
}

// Streams returns the spot market data stream client, creating it on
// first use.
func (c *Client) Streams() *stream.Client {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if c.spotStreams == nil {
		c.spotStreams = stream.NewClient(stream.Config{URL: c.config.SpotStreamURL}, c.logger)
	}
	return c.spotStreams
}

// FuturesStreams returns the derivatives stream client, creating it on
// first use.
func (c *Client) FuturesStreams() *stream.Client {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if c.futuresStreams == nil {
		c.futuresStreams = stream.NewClient(stream.Config{URL: c.config.FuturesStreamURL}, c.logger)
	}
	return c.futuresStreams
}

// UpdateHMAC rotates the spot API credentials. In-flight requests keep
// the credentials they were signed with.
func (c *Client) UpdateHMAC(creds *core.HMACCredentials) {
	c.auth.UpdateHMAC(creds)
}

// UpdateWeb3 rotates the wallet credentials. Invalid credentials are
// rejected and the previous set stays active.
func (c *Client) UpdateWeb3(creds *core.Web3Credentials) error {
	return c.auth.UpdateWeb3(creds)
}

// Close shuts the client down: stream connections disconnect, the
// cache clears and further calls fail with ErrClientClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.streamMu.Lock()
	if c.spotStreams != nil {
		_ = c.spotStreams.Close()
	}
	if c.futuresStreams != nil {
		_ = c.futuresStreams.Close()
	}
	c.streamMu.Unlock()

	if c.cache != nil {
		c.cache.clear()
	}
	_ = c.spotTransport.Close()
	_ = c.futuresTransport.Close()
	return nil
}

// caller binds the shared request pipeline to one signing family and
// its transport.
type caller struct {
	client *Client
	family auth.Family
}

func (cl *caller) Call(ctx context.Context, req *core.Request) ([]byte, error) {
	return cl.client.execute(ctx, req, cl.family)
}

// execute runs one request through the pipeline: cache, rate gate,
// circuit breaker, signing, transport.
func (c *Client) execute(ctx context.Context, req *core.Request, family auth.Family) ([]byte, error) {
	if c.closed.Load() {
		return nil, core.ErrClientClosed
	}

	cacheKey := ""
	if c.cache != nil && req.AuthType == core.AuthNone && req.Method == "GET" {
		cacheKey = c.cacheKey(req, family)
		if body := c.cache.get(cacheKey); body != nil {
			c.logger.Debug().Str("path", req.Path).Msg("cache hit")
			return body, nil
		}
	}

	if err := c.admit(ctx, req, family); err != nil {
		return nil, err
	}

	if c.breaker != nil && !c.breaker.Allow() {
		return nil, core.ErrCircuitBreakerOpen
	}

	if err := c.auth.Apply(req, family); err != nil {
		return nil, err
	}

	tr := c.spotTransport
	if family == auth.FamilyFutures {
		tr = c.futuresTransport
	}
	resp, err := tr.Do(ctx, req)
	c.record(err)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		c.cache.set(cacheKey, resp.Body)
	}
	return resp.Body, nil
}

// admit applies the rate gate: the sliding window admits the request
// itself and the per-family bucket charges its weight.
func (c *Client) admit(ctx context.Context, req *core.Request, family auth.Family) error {
	if c.window == nil {
		return nil
	}

	if c.config.RateLimitBlocking {
		if err := c.window.WaitUntilReady(ctx); err != nil {
			return err
		}
		c.window.RecordRequest()
		return c.buckets.Wait(ctx, family.String())
	}

	if !c.window.CanMakeRequest() {
		retryAfter := c.window.TimeUntilReset()
		return core.NewRateLimitError(0, retryAfter, "request rate limit reached")
	}
	if !c.buckets.AllowN(family.String(), req.Weight) {
		return core.NewRateLimitError(0, 0, "weight rate limit reached")
	}
	c.window.RecordRequest()
	return nil
}

// record feeds the circuit breaker. Client-side failures (validation,
// auth, 4xx responses) do not count against it.
func (c *Client) record(err error) {
	if c.breaker == nil {
		return
	}
	if err == nil {
		c.breaker.Record(true)
		return
	}
	if core.IsNetworkError(err) || core.IsTimeoutError(err) || is5xx(err) {
		c.breaker.Record(false)
	}
}

func is5xx(err error) bool {
	var clientErr *core.ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	return clientErr.StatusCode >= 500
}

func (c *Client) cacheKey(req *core.Request, family auth.Family) string {
	var b strings.Builder
	b.WriteString(family.String())
	b.WriteByte(':')
	b.WriteString(req.Method)
	b.WriteByte(':')
	b.WriteString(req.Path)
	for _, k := range req.Query.SortedKeys() {
		v, _ := core.StringifyValue(req.Query[k])
		fmt.Fprintf(&b, "&%s=%s", k, v)
	}
	return b.String()
}

// ServerTimeDrift measures the offset between the local clock and the
// exchange clock using the spot time endpoint.
func (c *Client) ServerTimeDrift(ctx context.Context) (time.Duration, error) {
	before := time.Now()
	serverTime, err := c.spot.ServerTime(ctx)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(before)
	local := before.Add(elapsed / 2)
	return serverTime.Sub(local), nil
}
