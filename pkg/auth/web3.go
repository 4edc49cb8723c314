package auth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"asterdex/internal/clock"
	"asterdex/pkg/core"
)

// DefaultRecvWindow is the recvWindow injected into every web3-signed
// request when the caller does not supply one.
const DefaultRecvWindow = 50_000 * time.Millisecond

var (
	addressPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	privateKeyPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)
)

// signatureTuple is the ABI layout the exchange recomputes server-side:
// (string canonicalJson, address user, address signer, uint256 nonce).
var signatureTuple abi.Arguments

func init() {
	stringTy, _ := abi.NewType("string", "", nil)
	addressTy, _ := abi.NewType("address", "", nil)
	uint256Ty, _ := abi.NewType("uint256", "", nil)
	signatureTuple = abi.Arguments{
		{Type: stringTy},
		{Type: addressTy},
		{Type: addressTy},
		{Type: uint256Ty},
	}
}

// ValidateAddresses reports whether both addresses are well-formed
// 0x-prefixed 40-hex-character strings.
func ValidateAddresses(user, signer string) bool {
	return addressPattern.MatchString(user) && addressPattern.MatchString(signer)
}

// ValidatePrivateKey reports whether key is 64 hex characters, with or
// without a 0x prefix.
func ValidatePrivateKey(key string) bool {
	return privateKeyPattern.MatchString(key)
}

// Web3Signer produces the asymmetric signature every derivatives
// endpoint requires, binding the caller's parameters to the user
// address, signer address and a strictly increasing nonce.
type Web3Signer struct {
	user       common.Address
	signer     common.Address
	privateKey *ecdsa.PrivateKey
	nonces     *nonceSource
	recvWindow time.Duration
	clock      clock.Clock
}

// SignaturePayload is the full credential parameter set attached to a
// web3-signed request.
type SignaturePayload struct {
	User       string `json:"user"`
	Signer     string `json:"signer"`
	Nonce      int64  `json:"nonce"`
	Timestamp  int64  `json:"timestamp"`
	RecvWindow int64  `json:"recvWindow"`
	Signature  string `json:"signature"`
}

// NewWeb3Signer creates a signer from the wallet credential set.
// It fails with an auth error when any credential is missing or
// malformed, or when the private key does not parse.
func NewWeb3Signer(creds *core.Web3Credentials) (*Web3Signer, error) {
	return newWeb3Signer(creds, clock.Real{})
}

func newWeb3Signer(creds *core.Web3Credentials, c clock.Clock) (*Web3Signer, error) {
	if creds == nil || creds.UserAddress == "" || creds.SignerAddress == "" || creds.PrivateKey == "" {
		return nil, core.NewAuthError("web3 signing requires user address, signer address and private key", core.ErrNoCredentials)
	}
	if !ValidateAddresses(creds.UserAddress, creds.SignerAddress) {
		return nil, core.NewAuthError("user and signer must be 0x-prefixed 40-hex-character addresses", nil)
	}
	if !ValidatePrivateKey(creds.PrivateKey) {
		return nil, core.NewAuthError("private key must be 64 hex characters", nil)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(creds.PrivateKey, "0x"))
	if err != nil {
		return nil, core.NewAuthError("parse private key", err)
	}

	return &Web3Signer{
		user:       common.HexToAddress(creds.UserAddress),
		signer:     common.HexToAddress(creds.SignerAddress),
		privateKey: key,
		nonces:     newNonceSource(c),
		recvWindow: DefaultRecvWindow,
		clock:      c,
	}, nil
}

// SignerAddress returns the address corresponding to the private key
// actually held, derived rather than configured.
func (w *Web3Signer) SignerAddress() common.Address {
	return crypto.PubkeyToAddress(w.privateKey.PublicKey)
}

// GenerateSignature signs the caller's parameters and returns the
// credential payload to merge into the request. Each call captures a
// fresh timestamp and nonce, so payloads are never reusable.
func (w *Web3Signer) GenerateSignature(params core.Params) (*SignaturePayload, error) {
	now := w.clock.Now().UnixMilli()
	nonce := w.nonces.Next()

	prepared := params.Clone()
	prepared.Set("timestamp", now)
	if _, ok := prepared["recvWindow"]; !ok {
		prepared.Set("recvWindow", w.recvWindow.Milliseconds())
	}

	canonical, err := canonicalJSON(prepared)
	if err != nil {
		return nil, core.NewAuthError("canonicalize signing params", err)
	}

	signature, err := w.signCanonical(canonical, nonce)
	if err != nil {
		return nil, err
	}

	return &SignaturePayload{
		User:       strings.ToLower(w.user.Hex()),
		Signer:     strings.ToLower(w.signer.Hex()),
		Nonce:      nonce,
		Timestamp:  now,
		RecvWindow: toInt64(prepared["recvWindow"]),
		Signature:  signature,
	}, nil
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}

// SignParams signs params and returns a copy with the credential
// payload merged in.
func (w *Web3Signer) SignParams(params core.Params) (core.Params, error) {
	payload, err := w.GenerateSignature(params)
	if err != nil {
		return nil, err
	}

	signed := params.Clone()
	signed.Set("timestamp", payload.Timestamp)
	signed.Set("recvWindow", payload.RecvWindow)
	signed.Set("user", payload.User)
	signed.Set("signer", payload.Signer)
	signed.Set("nonce", payload.Nonce)
	signed.Set("signature", payload.Signature)
	return signed, nil
}

// signCanonical runs the encoding chain on an already canonical JSON
// payload: ABI tuple packing, Keccak-256, then personal-sign with the
// "\x19Ethereum Signed Message:\n32" preamble. Deterministic for a
// fixed (canonical, nonce) pair.
func (w *Web3Signer) signCanonical(canonical string, nonce int64) (string, error) {
	encoded, err := signatureTuple.Pack(canonical, w.user, w.signer, big.NewInt(nonce))
	if err != nil {
		return "", core.NewAuthError("abi encode signature tuple", err)
	}

	hash := crypto.Keccak256(encoded)
	digest := accounts.TextHash(hash)

	sig, err := crypto.Sign(digest, w.privateKey)
	if err != nil {
		return "", core.NewAuthError("sign message digest", err)
	}
	if len(sig) != 65 {
		return "", core.NewAuthError(fmt.Sprintf("unexpected signature length %d", len(sig)), nil)
	}

	// Recovery id to the 27/28 convention wallets emit.
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// canonicalJSON serializes the parameter bag as a compact JSON object
// with keys sorted lexicographically and every value reduced to a
// string. Nested objects and arrays become inner JSON strings. The
// output must match the exchange's recomputation byte for byte.
func canonicalJSON(params core.Params) (string, error) {
	flat := make(map[string]string, len(params))
	keys := make([]string, 0, len(params))
	for k, v := range params {
		s, ok, err := stringifyDeep(v)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		flat[k] = s
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeJSONString(&b, k); err != nil {
			return "", err
		}
		b.WriteByte(':')
		if err := writeJSONString(&b, flat[k]); err != nil {
			return "", err
		}
	}
	b.WriteByte('}')
	return b.String(), nil
}

// stringifyDeep reduces any parameter value to its canonical string.
// Scalars follow the shared coercion rules; maps become sorted inner
// JSON; slices become JSON arrays of the stringified elements. The
// second return is false when the value must be dropped.
func stringifyDeep(v any) (string, bool, error) {
	switch val := v.(type) {
	case nil:
		return "", false, nil
	case core.Params:
		s, err := canonicalJSON(val)
		return s, err == nil, err
	case map[string]any:
		s, err := canonicalJSON(core.Params(val))
		return s, err == nil, err
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, ok, err := stringifyDeep(rv.Index(i).Interface())
			if err != nil {
				return "", false, err
			}
			if !ok {
				continue
			}
			parts = append(parts, s)
		}
		data, err := sonic.ConfigStd.Marshal(parts)
		if err != nil {
			return "", false, err
		}
		return string(data), true, nil
	}

	s, ok := core.StringifyValue(v)
	return s, ok, nil
}

func writeJSONString(b *strings.Builder, s string) error {
	data, err := sonic.ConfigStd.Marshal(s)
	if err != nil {
		return err
	}
	b.Write(data)
	return nil
}
