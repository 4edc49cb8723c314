package auth

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"asterdex/internal/clock"
	"asterdex/pkg/core"
)

// HeaderAPIKey is the header carrying the HMAC-tier API key.
const HeaderAPIKey = "X-MBX-APIKEY"

// Family selects which signing scheme a request's endpoint belongs to.
type Family int

const (
	// FamilySpot endpoints sign with HMAC-SHA256.
	FamilySpot Family = iota
	// FamilyFutures endpoints sign with the web3 signature engine.
	FamilyFutures
)

// String returns the string representation of the endpoint family.
func (f Family) String() string {
	return [...]string{"spot", "futures"}[f]
}

type hmacCell struct {
	apiKey string
	signer *HMACSigner
}

// Manager owns the credential sets and applies the correct
// authentication to each request based on its declared tier. Each
// credential set lives in an atomic cell: rotation swaps the whole
// cell, so an in-flight signing never observes a half-updated pair.
type Manager struct {
	hmac       atomic.Pointer[hmacCell]
	web3       atomic.Pointer[Web3Signer]
	recvWindow time.Duration
	clock      clock.Clock
	logger     zerolog.Logger
}

// NewManager creates a manager with zero or one credential set per
// scheme. Either credentials pointer may be nil; the corresponding
// tiers then fail with an auth error when exercised.
func NewManager(hmacCreds *core.HMACCredentials, web3Creds *core.Web3Credentials, recvWindow time.Duration) (*Manager, error) {
	return newManager(hmacCreds, web3Creds, recvWindow, clock.Real{})
}

func newManager(hmacCreds *core.HMACCredentials, web3Creds *core.Web3Credentials, recvWindow time.Duration, c clock.Clock) (*Manager, error) {
	m := &Manager{
		recvWindow: recvWindow,
		clock:      c,
		logger:     zerolog.Nop(),
	}

	if hmacCreds != nil {
		m.hmac.Store(&hmacCell{
			apiKey: hmacCreds.APIKey,
			signer: NewHMACSigner(hmacCreds.APISecret),
		})
	}
	if web3Creds != nil {
		signer, err := newWeb3Signer(web3Creds, c)
		if err != nil {
			return nil, err
		}
		m.web3.Store(signer)
	}
	return m, nil
}

// SetLogger configures the logger for the manager.
func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.logger = logger
}

// HasHMAC reports whether an HMAC credential pair is configured.
func (m *Manager) HasHMAC() bool {
	return m.hmac.Load() != nil
}

// HasWeb3 reports whether a wallet credential set is configured.
func (m *Manager) HasWeb3() bool {
	return m.web3.Load() != nil
}

// UpdateHMAC rotates the HMAC credential pair in place. Dependent
// clients keep working; the next signed call uses the new pair.
func (m *Manager) UpdateHMAC(creds *core.HMACCredentials) {
	if creds == nil {
		m.hmac.Store(nil)
		return
	}
	m.hmac.Store(&hmacCell{
		apiKey: creds.APIKey,
		signer: NewHMACSigner(creds.APISecret),
	})
	m.logger.Info().Msg("hmac credentials rotated")
}

// UpdateWeb3 rotates the wallet credential set in place. It fails with
// an auth error when the new set is invalid, leaving the old set active.
func (m *Manager) UpdateWeb3(creds *core.Web3Credentials) error {
	if creds == nil {
		m.web3.Store(nil)
		return nil
	}
	signer, err := newWeb3Signer(creds, m.clock)
	if err != nil {
		return err
	}
	m.web3.Store(signer)
	m.logger.Info().Msg("web3 credentials rotated")
	return nil
}

// Apply authenticates req according to its declared tier and endpoint
// family: nothing for AuthNone, the API key header for key-only tiers,
// and a signed parameter set for signed tiers. It fails with an auth
// error when the required credential set is absent.
func (m *Manager) Apply(req *core.Request, family Family) error {
	if req.AuthType == core.AuthNone {
		return nil
	}

	if cell := m.hmac.Load(); cell != nil {
		req.SetHeader(HeaderAPIKey, cell.apiKey)
	} else if family == FamilySpot {
		return core.NewAuthError("api key required for "+req.AuthType.String()+" endpoint", core.ErrNoCredentials)
	}

	if !req.AuthType.RequiresSignature() {
		return nil
	}

	switch family {
	case FamilySpot:
		return m.signSpot(req)
	case FamilyFutures:
		return m.signFutures(req)
	default:
		return core.NewAuthError("unknown endpoint family", nil)
	}
}

func (m *Manager) signSpot(req *core.Request) error {
	cell := m.hmac.Load()
	if cell == nil {
		return core.NewAuthError("hmac credentials required for "+req.AuthType.String()+" endpoint", core.ErrNoCredentials)
	}

	params := req.SignableParams()
	signed, err := cell.signer.SignParams(params, m.clock.Now(), m.recvWindow)
	if err != nil {
		return err
	}

	if len(req.Form) > 0 {
		req.Form = signed
	} else {
		req.Query = signed
	}
	return nil
}

func (m *Manager) signFutures(req *core.Request) error {
	signer := m.web3.Load()
	if signer == nil {
		return core.NewAuthError("web3 credentials required for "+req.AuthType.String()+" endpoint", core.ErrNoCredentials)
	}

	params := req.SignableParams()
	signed, err := signer.SignParams(params)
	if err != nil {
		return err
	}

	if len(req.Form) > 0 {
		req.Form = signed
	} else {
		req.Query = signed
	}
	return nil
}
