// Package spot is the REST facade for the HMAC-authenticated spot API.
// Every operation validates its request, flattens it to canonical
// parameters and delegates to the client pipeline for rate limiting,
// signing and transport.
package spot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"asterdex/pkg/core"
)

// Caller executes a prepared request through the client pipeline:
// rate gate, circuit breaker, signing and transport. The root client
// implements it.
type Caller interface {
	Call(ctx context.Context, req *core.Request) ([]byte, error)
}

// Service exposes the spot API operations.
type Service struct {
	call     Caller
	validate *validator.Validate
}

// NewService creates a spot facade on top of the given caller.
func NewService(caller Caller) *Service {
	return &Service{call: caller, validate: validator.New()}
}

// operation binds an API operation to its HTTP method, path, auth tier
// and rate-limit weight.
type operation struct {
	method string
	path   string
	auth   core.AuthType
	weight int
}

var operations = map[string]operation{
	"ping":               {http.MethodGet, "/api/v1/ping", core.AuthNone, 1},
	"serverTime":         {http.MethodGet, "/api/v1/time", core.AuthNone, 1},
	"ticker":             {http.MethodGet, "/api/v1/ticker/24hr", core.AuthNone, 1},
	"depth":              {http.MethodGet, "/api/v1/depth", core.AuthNone, 1},
	"trades":             {http.MethodGet, "/api/v1/trades", core.AuthNone, 1},
	"klines":             {http.MethodGet, "/api/v1/klines", core.AuthNone, 1},
	"account":            {http.MethodGet, "/api/v1/account", core.AuthUserData, 10},
	"placeOrder":         {http.MethodPost, "/api/v1/order", core.AuthTrade, 1},
	"cancelOrder":        {http.MethodDelete, "/api/v1/order", core.AuthTrade, 1},
	"getOrder":           {http.MethodGet, "/api/v1/order", core.AuthUserData, 2},
	"openOrders":         {http.MethodGet, "/api/v1/openOrders", core.AuthUserData, 3},
	"myTrades":           {http.MethodGet, "/api/v1/userTrades", core.AuthUserData, 5},
	"createListenKey":    {http.MethodPost, "/api/v1/listenKey", core.AuthUserStream, 1},
	"keepAliveListenKey": {http.MethodPut, "/api/v1/listenKey", core.AuthUserStream, 1},
	"closeListenKey":     {http.MethodDelete, "/api/v1/listenKey", core.AuthUserStream, 1},
}

func newRequest(name string) *core.Request {
	op, ok := operations[name]
	if !ok {
		panic(fmt.Sprintf("unknown spot operation %q", name))
	}
	return core.NewRequest(op.method, op.path).
		SetWeight(op.weight).
		SetAuthType(op.auth)
}

// validateStruct runs validator tags and maps the first failure to a
// validation error naming the offending field.
func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return core.NewValidationError(f.Field(), fmt.Sprintf("failed %q constraint", f.Tag()))
	}
	return core.NewValidationError("", err.Error())
}
