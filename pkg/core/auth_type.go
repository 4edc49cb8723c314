package core

// AuthType declares the security level an endpoint requires.
// The auth manager selects signing behavior from this value alone.
type AuthType int

// Auth tier constants, from weakest to strongest requirement.
const (
	// AuthNone requires no credentials.
	AuthNone AuthType = iota
	// AuthMarketData requires only the API key header.
	AuthMarketData
	// AuthUserStream requires only the API key header (listen-key endpoints).
	AuthUserStream
	// AuthTrade requires a signed request and trading permission.
	AuthTrade
	// AuthUserData requires a signed request and account read permission.
	AuthUserData
	// AuthSigned requires a signed request.
	AuthSigned
)

// String returns the string representation of the auth tier.
func (a AuthType) String() string {
	return [...]string{
		"NONE",
		"MARKET_DATA",
		"USER_STREAM",
		"TRADE",
		"USER_DATA",
		"SIGNED",
	}[a]
}

// RequiresKey reports whether the tier needs the API key header.
func (a AuthType) RequiresKey() bool {
	return a != AuthNone
}

// RequiresSignature reports whether the tier needs a signed parameter set.
func (a AuthType) RequiresSignature() bool {
	return a == AuthTrade || a == AuthUserData || a == AuthSigned
}
