package spot

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"asterdex/pkg/core"
)

// AccountInfo is the spot account snapshot.
type AccountInfo struct {
	CanTrade    bool           `json:"canTrade"`
	CanDeposit  bool           `json:"canDeposit"`
	CanWithdraw bool           `json:"canWithdraw"`
	UpdateTime  int64          `json:"updateTime"`
	Balances    []core.Balance `json:"balances"`
}

// Account returns balances and permissions for the authenticated
// account.
func (s *Service) Account(ctx context.Context) (*AccountInfo, error) {
	body, err := s.call.Call(ctx, newRequest("account"))
	if err != nil {
		return nil, err
	}

	var w struct {
		CanTrade    bool  `json:"canTrade"`
		CanDeposit  bool  `json:"canDeposit"`
		CanWithdraw bool  `json:"canWithdraw"`
		UpdateTime  int64 `json:"updateTime"`
		Balances    []struct {
			Asset  string      `json:"asset"`
			Free   apd.Decimal `json:"free"`
			Locked apd.Decimal `json:"locked"`
		} `json:"balances"`
	}
	if err := sonic.Unmarshal(body, &w); err != nil {
		return nil, core.NewAPIError(0, "", "parse account: "+err.Error())
	}

	info := &AccountInfo{
		CanTrade:    w.CanTrade,
		CanDeposit:  w.CanDeposit,
		CanWithdraw: w.CanWithdraw,
		UpdateTime:  w.UpdateTime,
	}
	for _, b := range w.Balances {
		info.Balances = append(info.Balances, core.Balance{
			Asset:  b.Asset,
			Free:   b.Free,
			Locked: b.Locked,
		})
	}
	return info, nil
}

// PlaceOrderRequest places a new spot order.
type PlaceOrderRequest struct {
	Symbol        string `validate:"required"`
	Side          core.OrderSide
	Type          core.OrderType
	Quantity      string
	QuoteOrderQty string
	Price         string
	TimeInForce   core.TimeInForce
	ClientOrderID string
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
		if r.Quantity == "" && r.QuoteOrderQty == "" {
			return core.NewValidationError("quantity", "market orders require a quantity or quote quantity")
		}
	}
	return nil
}

func (r *PlaceOrderRequest) params() core.Params {
	p := core.Params{
		"symbol": strings.ToUpper(r.Symbol),
		"side":   r.Side.String(),
		"type":   r.Type.String(),
	}
	p.Set("quantity", r.Quantity)
	p.Set("quoteOrderQty", r.QuoteOrderQty)
	p.Set("price", r.Price)
	p.Set("newClientOrderId", r.ClientOrderID)
	if r.Type == core.TypeLimit {
		p.Set("timeInForce", r.TimeInForce.String())
	}
	return p
}

type wireOrder struct {
	OrderID       int64            `json:"orderId"`
	ClientOrderID string           `json:"clientOrderId"`
	Symbol        string           `json:"symbol"`
	Side          core.OrderSide   `json:"side"`
	Type          core.OrderType   `json:"type"`
	Price         apd.Decimal      `json:"price"`
	OrigQty       apd.Decimal      `json:"origQty"`
	ExecutedQty   apd.Decimal      `json:"executedQty"`
	Status        core.OrderStatus `json:"status"`
	TimeInForce   core.TimeInForce `json:"timeInForce"`
	Time          int64            `json:"time"`
	TransactTime  int64            `json:"transactTime"`
	UpdateTime    int64            `json:"updateTime"`
}

func (w *wireOrder) toCore() *core.Order {
	created := w.Time
	if created == 0 {
		created = w.TransactTime
	}
	return &core.Order{
		ID:            w.OrderID,
		ClientOrderID: w.ClientOrderID,
		Symbol:        w.Symbol,
		Side:          w.Side,
		Type:          w.Type,
		Price:         w.Price,
		Quantity:      w.OrigQty,
		FilledQty:     w.ExecutedQty,
		Status:        w.Status,
		TimeInForce:   w.TimeInForce,
		CreatedAt:     time.UnixMilli(created),
		UpdatedAt:     time.UnixMilli(w.UpdateTime),
	}
}

// PlaceOrder submits a new order.
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

// CancelOrder cancels an open order.
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

// GetOrder returns the current state of an order.
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

// OpenOrders returns all open orders, optionally filtered by symbol.
func (s *Service) OpenOrders(ctx context.Context, symbol string) ([]core.Order, error) {
	req := newRequest("openOrders")
	if symbol != "" {
		req.SetQuery("symbol", strings.ToUpper(symbol))
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeOrders(body)
}

// MyTradesRequest fetches the account's trade history for a symbol.
type MyTradesRequest struct {
	Symbol string `validate:"required"`
	Limit  int    `validate:"omitempty,gte=1,lte=1000"`
	FromID int64
}

// MyTrades returns the account's executed trades for a symbol.
func (s *Service) MyTrades(ctx context.Context, in MyTradesRequest) ([]core.Trade, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	req := newRequest("myTrades").SetQuery("symbol", strings.ToUpper(in.Symbol))
	if in.Limit > 0 {
		req.SetQuery("limit", in.Limit)
	}
	if in.FromID > 0 {
		req.SetQuery("fromId", in.FromID)
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		ID              int64       `json:"id"`
		OrderID         int64       `json:"orderId"`
		Symbol          string      `json:"symbol"`
		Price           apd.Decimal `json:"price"`
		Quantity        apd.Decimal `json:"qty"`
		Commission      apd.Decimal `json:"commission"`
		CommissionAsset string      `json:"commissionAsset"`
		Time            int64       `json:"time"`
		IsBuyer         bool        `json:"isBuyer"`
		IsMaker         bool        `json:"isMaker"`
	}
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, core.NewAPIError(0, "", "parse trades: "+err.Error())
	}

	trades := make([]core.Trade, 0, len(raw))
	for _, t := range raw {
		side := core.SideSell
		if t.IsBuyer {
			side = core.SideBuy
		}
		trades = append(trades, core.Trade{
			ID:           t.ID,
			OrderID:      t.OrderID,
			Symbol:       t.Symbol,
			Side:         side,
			Price:        t.Price,
			Quantity:     t.Quantity,
			Fee:          t.Commission,
			FeeAsset:     t.CommissionAsset,
			IsBuyerMaker: t.IsMaker && !t.IsBuyer,
			Timestamp:    time.UnixMilli(t.Time),
		})
	}
	return trades, nil
}

func decodeOrder(body []byte) (*core.Order, error) {
	var w wireOrder
	if err := sonic.Unmarshal(body, &w); err != nil {
		return nil, core.NewAPIError(0, "", "parse order: "+err.Error())
	}
	return w.toCore(), nil
}

func decodeOrders(body []byte) ([]core.Order, error) {
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
