package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asterdex/internal/clock"
	"asterdex/pkg/core"
)

func newTestManager(t *testing.T, hmac *core.HMACCredentials, web3 *core.Web3Credentials) *Manager {
	t.Helper()
	m, err := newManager(hmac, web3, 5*time.Second, clock.NewFake(time.UnixMilli(1700000000000)))
	require.NoError(t, err)
	return m
}

func TestManager_AuthNoneUntouched(t *testing.T) {
	m := newTestManager(t, nil, nil)
	req := core.NewRequest(http.MethodGet, "/api/v1/ping")

	err := m.Apply(req, FamilySpot)

	require.NoError(t, err)
	assert.Empty(t, req.Headers)
	assert.Empty(t, req.Query)
}

func TestManager_MarketDataSetsAPIKeyHeader(t *testing.T) {
	m := newTestManager(t, &core.HMACCredentials{APIKey: "key", APISecret: "secret"}, nil)
	req := core.NewRequest(http.MethodGet, "/api/v1/userDataStream").SetAuthType(core.AuthUserStream)

	err := m.Apply(req, FamilySpot)

	require.NoError(t, err)
	assert.Equal(t, "key", req.Headers[HeaderAPIKey])
	assert.NotContains(t, req.Query, "signature")
}

func TestManager_MarketDataWithoutKeyFails(t *testing.T) {
	m := newTestManager(t, nil, nil)
	req := core.NewRequest(http.MethodGet, "/api/v1/account").SetAuthType(core.AuthUserData)

	err := m.Apply(req, FamilySpot)

	require.Error(t, err)
	assert.True(t, core.IsAuthError(err))
}

func TestManager_SignedSpotAddsSignature(t *testing.T) {
	m := newTestManager(t, &core.HMACCredentials{APIKey: "key", APISecret: "secret"}, nil)
	req := core.NewRequest(http.MethodPost, "/api/v1/order").SetAuthType(core.AuthTrade)
	req.SetForm(core.Params{"symbol": "BTCUSDT", "side": "BUY"})

	err := m.Apply(req, FamilySpot)

	require.NoError(t, err)
	assert.Equal(t, "key", req.Headers[HeaderAPIKey])
	assert.Contains(t, req.Form, "timestamp")
	assert.Contains(t, req.Form, "recvWindow")
	assert.Contains(t, req.Form, "signature")
}

func TestManager_SignedFuturesAddsWeb3Payload(t *testing.T) {
	m := newTestManager(t, nil, testCredentials())
	req := core.NewRequest(http.MethodPost, "/fapi/v1/order").SetAuthType(core.AuthTrade)
	req.SetForm(core.Params{"symbol": "BTCUSDT", "side": "BUY"})

	err := m.Apply(req, FamilyFutures)

	require.NoError(t, err)
	for _, key := range []string{"user", "signer", "nonce", "timestamp", "recvWindow", "signature"} {
		assert.Contains(t, req.Form, key)
	}
}

func TestManager_SignedFuturesWithoutWeb3Fails(t *testing.T) {
	m := newTestManager(t, &core.HMACCredentials{APIKey: "key", APISecret: "secret"}, nil)
	req := core.NewRequest(http.MethodPost, "/fapi/v1/order").SetAuthType(core.AuthTrade)

	err := m.Apply(req, FamilyFutures)

	require.Error(t, err)
	assert.True(t, core.IsAuthError(err))
}

func TestManager_UpdateHMACRotatesInPlace(t *testing.T) {
	m := newTestManager(t, &core.HMACCredentials{APIKey: "old-key", APISecret: "old-secret"}, nil)

	m.UpdateHMAC(&core.HMACCredentials{APIKey: "new-key", APISecret: "new-secret"})

	req := core.NewRequest(http.MethodGet, "/api/v1/account").SetAuthType(core.AuthUserData)
	require.NoError(t, m.Apply(req, FamilySpot))
	assert.Equal(t, "new-key", req.Headers[HeaderAPIKey])
}

func TestManager_UpdateWeb3RejectsInvalid(t *testing.T) {
	m := newTestManager(t, nil, testCredentials())

	err := m.UpdateWeb3(&core.Web3Credentials{
		UserAddress:   "not-an-address",
		SignerAddress: testAddress,
		PrivateKey:    testPrivateKey,
	})

	require.Error(t, err)
	assert.True(t, core.IsAuthError(err))
	// Old credentials remain active.
	assert.True(t, m.HasWeb3())
	req := core.NewRequest(http.MethodPost, "/fapi/v1/order").SetAuthType(core.AuthTrade)
	assert.NoError(t, m.Apply(req, FamilyFutures))
}
