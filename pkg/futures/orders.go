package futures

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"asterdex/pkg/core"
)

// PlaceOrderRequest places a new futures order.
type PlaceOrderRequest struct {
	Symbol        string `validate:"required"`
	Side          core.OrderSide
	PositionSide  core.PositionSide
	Type          core.OrderType
	Quantity      string
	Price         string
	StopPrice     string
	TimeInForce   core.TimeInForce
	ReduceOnly    bool
	ClosePosition bool
	ClientOrderID string
	CallbackRate  string
}

func (r *PlaceOrderRequest) check() error {
	switch r.Type {
	case core.TypeLimit:
		if r.Price == "" {
			return core.NewValidationError("price", "limit orders require a price")
		}
		if r.Quantity == "" {
			return core.NewValidationError("quantity", "limit orders require a quantity")
		}
	case core.TypeMarket:
		if r.Quantity == "" {
			return core.NewValidationError("quantity", "market orders require a quantity")
		}
	case core.TypeStop, core.TypeTakeProfit:
		if r.StopPrice == "" || r.Price == "" {
			return core.NewValidationError("stopPrice", "stop orders require stop and limit prices")
		}
	case core.TypeStopMarket, core.TypeTakeProfitMarket:
		if r.StopPrice == "" && !r.ClosePosition {
			return core.NewValidationError("stopPrice", "stop market orders require a stop price")
		}
	case core.TypeTrailingStopMarket:
		if r.CallbackRate == "" {
			return core.NewValidationError("callbackRate", "trailing stop orders require a callback rate")
		}
	}
	return nil
}

func (r *PlaceOrderRequest) params() core.Params {
	p := core.Params{
		"symbol":       strings.ToUpper(r.Symbol),
		"side":         r.Side.String(),
		"positionSide": r.PositionSide.String(),
		"type":         r.Type.String(),
	}
	p.Set("quantity", r.Quantity)
	p.Set("price", r.Price)
	p.Set("stopPrice", r.StopPrice)
	p.Set("newClientOrderId", r.ClientOrderID)
	p.Set("callbackRate", r.CallbackRate)
	if r.ReduceOnly {
		p.Set("reduceOnly", true)
	}
	if r.ClosePosition {
		p.Set("closePosition", true)
	}
	if r.Type == core.TypeLimit {
		p.Set("timeInForce", r.TimeInForce.String())
	}
	return p
}

type wireOrder struct {
	OrderID       int64             `json:"orderId"`
	ClientOrderID string            `json:"clientOrderId"`
	Symbol        string            `json:"symbol"`
	Side          core.OrderSide    `json:"side"`
	PositionSide  core.PositionSide `json:"positionSide"`
	Type          core.OrderType    `json:"type"`
	Price         apd.Decimal       `json:"price"`
	OrigQty       apd.Decimal       `json:"origQty"`
	ExecutedQty   apd.Decimal       `json:"executedQty"`
	AvgPrice      apd.Decimal       `json:"avgPrice"`
	Status        core.OrderStatus  `json:"status"`
	TimeInForce   core.TimeInForce  `json:"timeInForce"`
	ReduceOnly    bool              `json:"reduceOnly"`
	Time          int64             `json:"time"`
	UpdateTime    int64             `json:"updateTime"`
}

func (w *wireOrder) toCore() *core.Order {
	created := w.Time
	if created == 0 {
		created = w.UpdateTime
	}
	return &core.Order{
		ID:            w.OrderID,
		ClientOrderID: w.ClientOrderID,
		Symbol:        w.Symbol,
		Side:          w.Side,
		PositionSide:  w.PositionSide,
		Type:          w.Type,
		Price:         w.Price,
		Quantity:      w.OrigQty,
		FilledQty:     w.ExecutedQty,
		AvgPrice:      w.AvgPrice,
		Status:        w.Status,
		TimeInForce:   w.TimeInForce,
		ReduceOnly:    w.ReduceOnly,
		CreatedAt:     time.UnixMilli(created),
		UpdatedAt:     time.UnixMilli(w.UpdateTime),
	}
}

// PlaceOrder submits a new futures order.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderRequest) (*core.Order, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	if err := in.check(); err != nil {
		return nil, err
	}

	req := newRequest("placeOrder").SetForm(in.params())
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeOrder(body)
}

// CancelOrderRequest cancels an open order by exchange or client id.
type CancelOrderRequest struct {
	Symbol        string `validate:"required"`
	OrderID       int64
	ClientOrderID string
}

// CancelOrder cancels an open futures order.
func (s *Service) CancelOrder(ctx context.Context, in CancelOrderRequest) (*core.Order, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	if in.OrderID == 0 && in.ClientOrderID == "" {
		return nil, core.NewValidationError("orderId", "either orderId or clientOrderId is required")
	}

	req := newRequest("cancelOrder")
	req.SetQuery("symbol", strings.ToUpper(in.Symbol))
	if in.OrderID != 0 {
		req.SetQuery("orderId", in.OrderID)
	}
	if in.ClientOrderID != "" {
		req.SetQuery("origClientOrderId", in.ClientOrderID)
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeOrder(body)
}

// GetOrderRequest looks an order up by exchange or client id.
type GetOrderRequest struct {
	Symbol        string `validate:"required"`
	OrderID       int64
	ClientOrderID string
}

// GetOrder returns the current state of a futures order.
func (s *Service) GetOrder(ctx context.Context, in GetOrderRequest) (*core.Order, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	if in.OrderID == 0 && in.ClientOrderID == "" {
		return nil, core.NewValidationError("orderId", "either orderId or clientOrderId is required")
	}

	req := newRequest("getOrder")
	req.SetQuery("symbol", strings.ToUpper(in.Symbol))
	if in.OrderID != 0 {
		req.SetQuery("orderId", in.OrderID)
	}
	if in.ClientOrderID != "" {
		req.SetQuery("origClientOrderId", in.ClientOrderID)
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeOrder(body)
}

// OpenOrders returns all open futures orders, optionally filtered by
// symbol.
func (s *Service) OpenOrders(ctx context.Context, symbol string) ([]core.Order, error) {
	req := newRequest("openOrders")
	if symbol != "" {
		req.SetQuery("symbol", strings.ToUpper(symbol))
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	var raw []wireOrder
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, core.NewAPIError(0, "", "parse orders: "+err.Error())
	}
	orders := make([]core.Order, 0, len(raw))
	for i := range raw {
		orders = append(orders, *raw[i].toCore())
	}
	return orders, nil
}

func decodeOrder(body []byte) (*core.Order, error) {
	var w wireOrder
	if err := sonic.Unmarshal(body, &w); err != nil {
		return nil, core.NewAPIError(0, "", "parse order: "+err.Error())
	}
	return w.toCore(), nil
}
