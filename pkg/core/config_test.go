package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 5*time.Second, config.RecvWindow)
	assert.True(t, config.RateLimitEnabled)
	assert.True(t, config.RateLimitBlocking)
	assert.True(t, config.CircuitBreakerEnabled)
	assert.True(t, config.CacheEnabled)
	assert.Nil(t, config.HMAC)
	assert.Nil(t, config.Web3)
}

func TestConfig_ValidateMissingBaseURL(t *testing.T) {
	config := DefaultConfig()
	config.SpotBaseURL = ""

	err := config.Validate()
	require.Error(t, err)
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrorTypeConfig, ce.Type)
}

func TestConfig_ValidateBadLogLevel(t *testing.T) {
	config := DefaultConfig()
	config.LogLevel = "verbose"

	assert.Error(t, config.Validate())
}

func TestConfig_ValidateIncompleteHMAC(t *testing.T) {
	config := DefaultConfig()
	config.HMAC = &HMACCredentials{APIKey: "key-only"}

	assert.Error(t, config.Validate())
}

func TestConfig_ValidateIncompleteWeb3(t *testing.T) {
	config := DefaultConfig()
	config.Web3 = &Web3Credentials{UserAddress: "0xabc"}

	assert.Error(t, config.Validate())
}

func TestConfig_ValidateBreakerThresholds(t *testing.T) {
	config := DefaultConfig()
	config.CircuitBreakerFailThreshold = 0

	assert.Error(t, config.Validate())

	config.CircuitBreakerEnabled = false
	assert.NoError(t, config.Validate())
}

func TestConfig_WithSetters(t *testing.T) {
	config := DefaultConfig().
		WithHMAC("key", "secret").
		WithWeb3("0xUser", "0xSigner", "deadbeef").
		WithTimeout(3*time.Second).
		WithRecvWindow(2*time.Second).
		WithRateLimit(100, 10*time.Second).
		WithRetry(1, 50*time.Millisecond, 500*time.Millisecond)

	assert.Equal(t, "key", config.HMAC.APIKey)
	assert.Equal(t, "secret", config.HMAC.APISecret)
	assert.Equal(t, "0xUser", config.Web3.UserAddress)
	assert.Equal(t, 3*time.Second, config.Timeout)
	assert.Equal(t, 2*time.Second, config.RecvWindow)
	assert.Equal(t, 100, config.RateLimitRequests)
	assert.Equal(t, 10*time.Second, config.RateLimitPeriod)
	assert.Equal(t, 1, config.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, config.RetryWaitMin)
}
