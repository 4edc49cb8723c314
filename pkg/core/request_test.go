package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequest(t *testing.T) {
	req := NewRequest("GET", "/api/v1/ticker/24hr")

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/api/v1/ticker/24hr", req.Path)
	assert.NotNil(t, req.Query)
	assert.NotNil(t, req.Headers)
	assert.Equal(t, 1, req.Weight)
	assert.Equal(t, AuthNone, req.AuthType)
}

func TestRequest_SetQuery(t *testing.T) {
	req := NewRequest("GET", "/api/v1/ticker/24hr")
	result := req.SetQuery("symbol", "BTCUSDT")

	assert.Equal(t, req, result)
	assert.Equal(t, "BTCUSDT", req.Query["symbol"])
}

func TestRequest_SetForm(t *testing.T) {
	req := NewRequest("POST", "/api/v1/order")
	result := req.SetForm(Params{"symbol": "BTCUSDT", "side": "BUY"})

	assert.Equal(t, req, result)
	assert.Equal(t, "BTCUSDT", req.Form["symbol"])
	assert.Equal(t, "BUY", req.Form["side"])
}

func TestRequest_SetHeader(t *testing.T) {
	req := NewRequest("GET", "/api/v1/account")
	result := req.SetHeader("X-MBX-APIKEY", "test-key")

	assert.Equal(t, req, result)
	assert.Equal(t, "test-key", req.Headers["X-MBX-APIKEY"])
}

func TestRequest_Chained(t *testing.T) {
	req := NewRequest("POST", "/api/v1/order").
		SetQuery("symbol", "BTCUSDT").
		SetHeader("X-MBX-APIKEY", "test-key").
		SetWeight(2).
		SetAuthType(AuthTrade)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "BTCUSDT", req.Query["symbol"])
	assert.Equal(t, "test-key", req.Headers["X-MBX-APIKEY"])
	assert.Equal(t, 2, req.Weight)
	assert.Equal(t, AuthTrade, req.AuthType)
}

func TestRequest_SignableParams(t *testing.T) {
	req := NewRequest("GET", "/api/v1/account").SetQuery("recvWindow", 5000)
	assert.Equal(t, req.Query, req.SignableParams())

	req = NewRequest("POST", "/api/v1/order").
		SetQuery("ignored", "x").
		SetForm(Params{"symbol": "BTCUSDT"})
	assert.Equal(t, req.Form, req.SignableParams())
}

func TestParams_StringMap(t *testing.T) {
	params := Params{
		"symbol":  "BTCUSDT",
		"limit":   100,
		"id":      int64(42),
		"rate":    0.5,
		"enabled": true,
		"empty":   "",
		"absent":  nil,
	}

	out := params.StringMap()
	assert.Equal(t, map[string]string{
		"symbol":  "BTCUSDT",
		"limit":   "100",
		"id":      "42",
		"rate":    "0.5",
		"enabled": "true",
	}, out)
}

func TestParams_SortedKeys(t *testing.T) {
	params := Params{
		"timestamp": int64(1700000000000),
		"symbol":    "BTCUSDT",
		"side":      "BUY",
		"skip":      nil,
	}

	assert.Equal(t, []string{"side", "symbol", "timestamp"}, params.SortedKeys())
}

func TestParams_MergeAndClone(t *testing.T) {
	params := Params{"a": 1}
	clone := params.Clone()
	params.Merge(Params{"b": 2})

	assert.Equal(t, 2, params["b"])
	assert.NotContains(t, clone, "b")
}

func TestStringifyValue_Stringer(t *testing.T) {
	s, ok := StringifyValue(SideSell)
	assert.True(t, ok)
	assert.Equal(t, "SELL", s)
}
