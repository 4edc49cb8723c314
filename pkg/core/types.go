package core

import (
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

// Order side constants define the direction of a trade.
const (
	// SideBuy indicates an order to purchase an asset.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell an asset.
	SideSell
)

// String returns the string representation of the order side ("BUY" or "SELL").
func (s OrderSide) String() string {
	return [...]string{"BUY", "SELL"}[s]
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// It accepts both uppercase and lowercase forms; anything else is an
// error rather than silently decoding to the zero value.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"BUY"`, `"buy"`:
		*s = SideBuy
	case `"SELL"`, `"sell"`:
		*s = SideSell
	default:
		return fmt.Errorf("unknown order side %s", data)
	}
	return nil
}

// PositionSide represents the side of a derivatives position.
type PositionSide int

// Position side constants for one-way and hedge position modes.
const (
	// PositionBoth is the one-way position mode side.
	PositionBoth PositionSide = iota
	// PositionLong is the long side in hedge mode.
	PositionLong
	// PositionShort is the short side in hedge mode.
	PositionShort
)

// String returns the string representation of the position side.
func (p PositionSide) String() string {
	return [...]string{"BOTH", "LONG", "SHORT"}[p]
}

// MarshalJSON implements json.Marshaler for PositionSide.
func (p PositionSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for PositionSide.
func (p *PositionSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"BOTH"`, `"both"`:
		*p = PositionBoth
	case `"LONG"`, `"long"`:
		*p = PositionLong
	case `"SHORT"`, `"short"`:
		*p = PositionShort
	default:
		return fmt.Errorf("unknown position side %s", data)
	}
	return nil
}

// OrderType represents the type of order to place on the exchange.
type OrderType int

// Order type constants define how an order is executed.
const (
	// TypeMarket executes immediately at the best available price.
	TypeMarket OrderType = iota
	// TypeLimit executes at a specified price or better.
	TypeLimit
	// TypeStop triggers a limit order when price reaches the stop price.
	TypeStop
	// TypeStopMarket triggers a market order when price reaches the stop price.
	TypeStopMarket
	// TypeTakeProfit triggers a limit order when price reaches the target.
	TypeTakeProfit
	// TypeTakeProfitMarket triggers a market order when price reaches the target.
	TypeTakeProfitMarket
	// TypeTrailingStopMarket follows the market with a callback rate.
	TypeTrailingStopMarket
)

// String returns the string representation of the order type.
func (t OrderType) String() string {
	return [...]string{
		"MARKET",
		"LIMIT",
		"STOP",
		"STOP_MARKET",
		"TAKE_PROFIT",
		"TAKE_PROFIT_MARKET",
		"TRAILING_STOP_MARKET",
	}[t]
}

// MarshalJSON implements json.Marshaler for OrderType.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderType.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"MARKET"`, `"market"`:
		*t = TypeMarket
	case `"LIMIT"`, `"limit"`:
		*t = TypeLimit
	case `"STOP"`, `"stop"`:
		*t = TypeStop
	case `"STOP_MARKET"`, `"stop_market"`:
		*t = TypeStopMarket
	case `"TAKE_PROFIT"`, `"take_profit"`:
		*t = TypeTakeProfit
	case `"TAKE_PROFIT_MARKET"`, `"take_profit_market"`:
		*t = TypeTakeProfitMarket
	case `"TRAILING_STOP_MARKET"`, `"trailing_stop_market"`:
		*t = TypeTrailingStopMarket
	default:
		return fmt.Errorf("unknown order type %s", data)
	}
	return nil
}

// OrderStatus represents the current state of an order.
type OrderStatus int

// Order status constants define the lifecycle state of an order.
const (
	// StatusNew indicates the order has been accepted by the exchange.
	StatusNew OrderStatus = iota
	// StatusPartiallyFilled indicates the order has been partially filled.
	StatusPartiallyFilled
	// StatusFilled indicates the order has been completely filled.
	StatusFilled
	// StatusCanceled indicates the order has been canceled.
	StatusCanceled
	// StatusRejected indicates the order was rejected by the exchange.
	StatusRejected
	// StatusExpired indicates the order has expired.
	StatusExpired
)

// String returns the string representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{"NEW", "PARTIALLY_FILLED", "FILLED", "CANCELED", "REJECTED", "EXPIRED"}[s]
}

// IsTerminal returns true if the order is in a terminal state.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected || s == StatusExpired
}

// MarshalJSON implements json.Marshaler for OrderStatus.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderStatus.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"NEW"`, `"new"`:
		*s = StatusNew
	case `"PARTIALLY_FILLED"`, `"partially_filled"`:
		*s = StatusPartiallyFilled
	case `"FILLED"`, `"filled"`:
		*s = StatusFilled
	case `"CANCELED"`, `"canceled"`:
		*s = StatusCanceled
	case `"REJECTED"`, `"rejected"`:
		*s = StatusRejected
	case `"EXPIRED"`, `"expired"`:
		*s = StatusExpired
	default:
		return fmt.Errorf("unknown order status %s", data)
	}
	return nil
}

// TimeInForce defines how long an order remains active.
type TimeInForce int

// Time in force constants define order lifetime behavior.
const (
	// GTC (Good Till Canceled) keeps the order active until filled or canceled.
	GTC TimeInForce = iota
	// IOC (Immediate Or Cancel) requires immediate execution; unfilled portion is canceled.
	IOC
	// FOK (Fill Or Kill) requires complete immediate execution or cancellation.
	FOK
	// GTX (Good Till Crossing) rejects the order if it would take liquidity.
	GTX
)

// String returns the string representation of time in force.
func (t TimeInForce) String() string {
	return [...]string{"GTC", "IOC", "FOK", "GTX"}[t]
}

// MarshalJSON implements json.Marshaler for TimeInForce.
func (t TimeInForce) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for TimeInForce.
func (t *TimeInForce) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"GTC"`, `"gtc"`:
		*t = GTC
	case `"IOC"`, `"ioc"`:
		*t = IOC
	case `"FOK"`, `"fok"`:
		*t = FOK
	case `"GTX"`, `"gtx"`:
		*t = GTX
	default:
		return fmt.Errorf("unknown time in force %s", data)
	}
	return nil
}

// Ticker contains 24-hour rolling statistics for a trading pair.
type Ticker struct {
	Symbol      string      `json:"symbol"`
	Bid         apd.Decimal `json:"bid"`
	Ask         apd.Decimal `json:"ask"`
	Last        apd.Decimal `json:"last"`
	Open        apd.Decimal `json:"open"`
	High        apd.Decimal `json:"high"`
	Low         apd.Decimal `json:"low"`
	Volume      apd.Decimal `json:"volume"`
	QuoteVolume apd.Decimal `json:"quote_volume"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Order represents an exchange order with all its details.
type Order struct {
	ID            int64        `json:"id"`
	ClientOrderID string       `json:"client_order_id"`
	Symbol        string       `json:"symbol"`
	Side          OrderSide    `json:"side"`
	PositionSide  PositionSide `json:"position_side"`
	Type          OrderType    `json:"type"`
	Price         apd.Decimal  `json:"price"`
	Quantity      apd.Decimal  `json:"quantity"`
	FilledQty     apd.Decimal  `json:"filled_quantity"`
	AvgPrice      apd.Decimal  `json:"avg_price"`
	Status        OrderStatus  `json:"status"`
	TimeInForce   TimeInForce  `json:"time_in_force"`
	ReduceOnly    bool         `json:"reduce_only"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Balance represents account balance for a single asset.
type Balance struct {
	Asset  string      `json:"asset"`
	Free   apd.Decimal `json:"free"`
	Locked apd.Decimal `json:"locked"`
}

// Position represents an open derivatives position.
type Position struct {
	Symbol           string       `json:"symbol"`
	Side             PositionSide `json:"side"`
	Amount           apd.Decimal  `json:"amount"`
	EntryPrice       apd.Decimal  `json:"entry_price"`
	MarkPrice        apd.Decimal  `json:"mark_price"`
	UnrealizedProfit apd.Decimal  `json:"unrealized_profit"`
	LiquidationPrice apd.Decimal  `json:"liquidation_price"`
	Leverage         int          `json:"leverage"`
	Isolated         bool         `json:"isolated"`
}

// Trade represents a single executed trade.
type Trade struct {
	ID           int64       `json:"id"`
	OrderID      int64       `json:"order_id"`
	Symbol       string      `json:"symbol"`
	Side         OrderSide   `json:"side"`
	Price        apd.Decimal `json:"price"`
	Quantity     apd.Decimal `json:"quantity"`
	Fee          apd.Decimal `json:"fee"`
	FeeAsset     string      `json:"fee_asset"`
	IsBuyerMaker bool        `json:"is_buyer_maker"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Kline represents a candlestick data point for one interval.
type Kline struct {
	Symbol      string      `json:"symbol"`
	Interval    string      `json:"interval"`
	OpenTime    time.Time   `json:"open_time"`
	Open        apd.Decimal `json:"open"`
	High        apd.Decimal `json:"high"`
	Low         apd.Decimal `json:"low"`
	Close       apd.Decimal `json:"close"`
	Volume      apd.Decimal `json:"volume"`
	CloseTime   time.Time   `json:"close_time"`
	QuoteVolume apd.Decimal `json:"quote_volume"`
	NumTrades   int64       `json:"num_trades"`
}

// OrderBookLevel represents a single price level in the order book.
type OrderBookLevel struct {
	Price    apd.Decimal `json:"price"`
	Quantity apd.Decimal `json:"quantity"`
}

// OrderBook represents an order book snapshot for a trading pair.
type OrderBook struct {
	Symbol       string           `json:"symbol"`
	LastUpdateID int64            `json:"last_update_id"`
	Bids         []OrderBookLevel `json:"bids"`
	Asks         []OrderBookLevel `json:"asks"`
	Timestamp    time.Time        `json:"timestamp"`
}

// MarkPrice carries the mark price and funding state of a perpetual contract.
type MarkPrice struct {
	Symbol          string      `json:"symbol"`
	MarkPrice       apd.Decimal `json:"mark_price"`
	IndexPrice      apd.Decimal `json:"index_price"`
	FundingRate     apd.Decimal `json:"funding_rate"`
	NextFundingTime time.Time   `json:"next_funding_time"`
	Timestamp       time.Time   `json:"timestamp"`
}

// ListenKey is the handle of a user-data stream session.
type ListenKey struct {
	Key string `json:"listenKey"`
}
