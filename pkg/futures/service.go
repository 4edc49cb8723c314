// Package futures is the REST facade for the Web3-authenticated
// derivatives API. Signed operations carry the EIP-191 signature
// envelope instead of an HMAC; the facade itself only validates,
// flattens and decodes.
package futures

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"asterdex/pkg/core"
)

// Caller executes a prepared request through the client pipeline. The
// root client implements it with the futures signing family.
type Caller interface {
	Call(ctx context.Context, req *core.Request) ([]byte, error)
}

// Service exposes the derivatives API operations.
type Service struct {
	call     Caller
	validate *validator.Validate
}

// NewService creates a futures facade on top of the given caller.
func NewService(caller Caller) *Service {
	return &Service{call: caller, validate: validator.New()}
}

type operation struct {
	method string
	path   string
	auth   core.AuthType
	weight int
}

var operations = map[string]operation{
	"balance":            {http.MethodGet, "/fapi/v2/balance", core.AuthUserData, 5},
	"positions":          {http.MethodGet, "/fapi/v2/positionRisk", core.AuthUserData, 5},
	"placeOrder":         {http.MethodPost, "/fapi/v1/order", core.AuthTrade, 1},
	"cancelOrder":        {http.MethodDelete, "/fapi/v1/order", core.AuthTrade, 1},
	"getOrder":           {http.MethodGet, "/fapi/v1/order", core.AuthUserData, 1},
	"openOrders":         {http.MethodGet, "/fapi/v1/openOrders", core.AuthUserData, 1},
	"leverage":           {http.MethodPost, "/fapi/v1/leverage", core.AuthTrade, 1},
	"markPrice":          {http.MethodGet, "/fapi/v1/premiumIndex", core.AuthNone, 1},
	"income":             {http.MethodGet, "/fapi/v1/income", core.AuthUserData, 30},
	"createListenKey":    {http.MethodPost, "/fapi/v1/listenKey", core.AuthUserStream, 1},
	"keepAliveListenKey": {http.MethodPut, "/fapi/v1/listenKey", core.AuthUserStream, 1},
	"closeListenKey":     {http.MethodDelete, "/fapi/v1/listenKey", core.AuthUserStream, 1},
}

func newRequest(name string) *core.Request {
	op, ok := operations[name]
	if !ok {
		panic(fmt.Sprintf("unknown futures operation %q", name))
	}
	return core.NewRequest(op.method, op.path).
		SetWeight(op.weight).
		SetAuthType(op.auth)
}

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
