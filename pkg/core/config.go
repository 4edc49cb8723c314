package core

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// HMACCredentials holds the symmetric-key credential pair used by the
// spot API family.
type HMACCredentials struct {
	// APIKey is the public API key identifier.
	APIKey string `json:"api_key" validate:"required"`
	// APISecret is the shared secret used for HMAC signing.
	APISecret string `json:"api_secret" validate:"required"`
}

// Web3Credentials holds the wallet credential set used by the
// derivatives API family.
type Web3Credentials struct {
	// UserAddress is the account owner address (0x + 40 hex).
	UserAddress string `json:"user_address" validate:"required"`
	// SignerAddress is the address corresponding to PrivateKey (0x + 40 hex).
	SignerAddress string `json:"signer_address" validate:"required"`
	// PrivateKey is the secp256k1 signing key, 64 hex chars with optional 0x.
	PrivateKey string `json:"private_key" validate:"required"`
}

// Config contains all configuration options for a client instance.
// Credentials, base URLs, timeout, retry tuning and rate limiting are
// consumed at construction time only.
type Config struct {
	HMAC *HMACCredentials `json:"hmac,omitempty"`
	Web3 *Web3Credentials `json:"web3,omitempty"`

	SpotBaseURL      string `json:"spot_base_url" validate:"required,url"`
	FuturesBaseURL   string `json:"futures_base_url" validate:"required,url"`
	SpotStreamURL    string `json:"spot_stream_url" validate:"required"`
	FuturesStreamURL string `json:"futures_stream_url" validate:"required"`

	// Timeout is the per-request HTTP deadline.
	Timeout      time.Duration `json:"timeout" validate:"min=1ms"`
	MaxRetries   int           `json:"max_retries" validate:"min=0"`
	RetryWaitMin time.Duration `json:"retry_wait_min" validate:"min=0"`
	RetryWaitMax time.Duration `json:"retry_wait_max" validate:"min=0"`

	// RecvWindow bounds how stale a signed timestamp the exchange accepts.
	RecvWindow time.Duration `json:"recv_window" validate:"min=0"`

	RateLimitEnabled  bool `json:"rate_limit_enabled"`
	RateLimitRequests int  `json:"rate_limit_requests" validate:"min=1"`
	// RateLimitBlocking selects waiting for an admission slot over
	// failing fast with ErrRateLimited.
	RateLimitBlocking bool          `json:"rate_limit_blocking"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" validate:"min=1ms"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout"`

	CacheEnabled bool          `json:"cache_enabled"`
	CacheTTL     time.Duration `json:"cache_ttl" validate:"min=0"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config initialized with production endpoints
// and sensible defaults: 10s timeout, 3 retries, 100ms-1s retry wait,
// 1200 req/min blocking rate limit, 5s recv window, breaker at 5
// failures / 2 successes / 30s open timeout.
func DefaultConfig() *Config {
	return &Config{
		SpotBaseURL:      "https://sapi.asterdex.com",
		FuturesBaseURL:   "https://fapi.asterdex.com",
		SpotStreamURL:    "wss://sstream.asterdex.com/ws",
		FuturesStreamURL: "wss://fstream.asterdex.com/ws",

		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 1 * time.Second,

		RecvWindow: 5 * time.Second,

		RateLimitEnabled:  true,
		RateLimitRequests: 1200,
		RateLimitBlocking: true,
		RateLimitPeriod:   time.Minute,

		CircuitBreakerEnabled:          true,
		CircuitBreakerFailThreshold:    5,
		CircuitBreakerSuccessThreshold: 2,
		CircuitBreakerTimeout:          30 * time.Second,

		CacheEnabled: true,
		CacheTTL:     1 * time.Second,

		LogLevel: "info",
	}
}

var validate = validator.New()

// Validate checks the configuration, including nested credential sets
// when present. It returns a config-typed error describing the failure.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return NewConfigError("invalid configuration", err)
	}
	if c.HMAC != nil {
		if err := validate.Struct(c.HMAC); err != nil {
			return NewConfigError("invalid HMAC credentials", err)
		}
	}
	if c.Web3 != nil {
		if err := validate.Struct(c.Web3); err != nil {
			return NewConfigError("invalid web3 credentials", err)
		}
	}
	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerFailThreshold <= 0 {
			return NewConfigError("CircuitBreakerFailThreshold must be positive when enabled", nil)
		}
		if c.CircuitBreakerSuccessThreshold <= 0 {
			return NewConfigError("CircuitBreakerSuccessThreshold must be positive when enabled", nil)
		}
		if c.CircuitBreakerTimeout <= 0 {
			return NewConfigError("CircuitBreakerTimeout must be positive when enabled", nil)
		}
	}
	return nil
}

// WithHMAC sets the HMAC credential pair and returns the config for chaining.
func (c *Config) WithHMAC(apiKey, apiSecret string) *Config {
	c.HMAC = &HMACCredentials{APIKey: apiKey, APISecret: apiSecret}
	return c
}

// WithWeb3 sets the wallet credential set and returns the config for chaining.
func (c *Config) WithWeb3(userAddress, signerAddress, privateKey string) *Config {
	c.Web3 = &Web3Credentials{
		UserAddress:   userAddress,
		SignerAddress: signerAddress,
		PrivateKey:    privateKey,
	}
	return c
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRecvWindow sets the signed-request staleness window and returns
// the config for chaining.
func (c *Config) WithRecvWindow(window time.Duration) *Config {
	c.RecvWindow = window
	return c
}

// WithRateLimit sets the rate limiting parameters and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

// WithRetry sets the retry policy and returns the config for chaining.
func (c *Config) WithRetry(maxRetries int, waitMin, waitMax time.Duration) *Config {
	c.MaxRetries = maxRetries
	c.RetryWaitMin = waitMin
	c.RetryWaitMax = waitMax
	return c
}
