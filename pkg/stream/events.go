// Package stream decodes the exchange's market and account data
// streams: one router classifies every inbound frame and dispatches it
// to the typed handlers registered for it.
package stream

import (
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"
)

// EventType identifies the kind of a stream event.
type EventType int

// The closed set of event kinds the router can produce. Frames that
// match no known discriminator classify as EventUnknown.
const (
	EventUnknown EventType = iota
	EventTicker
	EventMiniTicker
	EventBookTicker
	EventTrade
	EventAggTrade
	EventKline
	EventDepth
	EventMarkPrice
	EventForceOrder
	EventAccountUpdate
	EventAccountConfigUpdate
	EventOrderTradeUpdate
	EventExecutionReport
	EventListenKeyExpired
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return [...]string{
		"unknown",
		"ticker",
		"miniTicker",
		"bookTicker",
		"trade",
		"aggTrade",
		"kline",
		"depth",
		"markPrice",
		"forceOrder",
		"accountUpdate",
		"accountConfigUpdate",
		"orderTradeUpdate",
		"executionReport",
		"listenKeyExpired",
	}[t]
}

// eventTypes maps the wire discriminator ("e" field) to its kind.
// Book tickers carry no discriminator and are detected structurally.
var eventTypes = map[string]EventType{
	"24hrTicker":            EventTicker,
	"24hrMiniTicker":        EventMiniTicker,
	"trade":                 EventTrade,
	"aggTrade":              EventAggTrade,
	"kline":                 EventKline,
	"depthUpdate":           EventDepth,
	"markPriceUpdate":       EventMarkPrice,
	"forceOrder":            EventForceOrder,
	"ACCOUNT_UPDATE":        EventAccountUpdate,
	"ACCOUNT_CONFIG_UPDATE": EventAccountConfigUpdate,
	"ORDER_TRADE_UPDATE":    EventOrderTradeUpdate,
	"executionReport":       EventExecutionReport,
	"listenKeyExpired":      EventListenKeyExpired,
}

// envelope is the combined-stream wrapper. Raw streams deliver the
// payload directly.
type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// Classify unwraps a combined-stream envelope if present and returns
// the event kind plus the inner payload. Book tickers are recognized
// by shape: an order-book update id together with quote fields and no
// event discriminator.
func Classify(data []byte) (EventType, []byte, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err == nil && env.Stream != "" && len(env.Data) > 0 {
		data = env.Data
	}

	var fields map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &fields); err != nil {
		return EventUnknown, data, err
	}

	if raw, ok := fields["e"]; ok {
		var event string
		if err := sonic.Unmarshal(raw, &event); err != nil {
			return EventUnknown, data, err
		}
		if kind, ok := eventTypes[event]; ok {
			return kind, data, nil
		}
		return EventUnknown, data, nil
	}

	if _, ok := fields["u"]; ok {
		for _, quote := range []string{"b", "B", "a", "A"} {
			if _, ok := fields[quote]; ok {
				return EventBookTicker, data, nil
			}
		}
	}
	return EventUnknown, data, nil
}

// TickerEvent is a 24hr rolling window ticker update.
type TickerEvent struct {
	Event       string      `json:"e"`
	EventTime   int64       `json:"E"`
	Symbol      string      `json:"s"`
	PriceChange apd.Decimal `json:"p"`
	PriceChgPct apd.Decimal `json:"P"`
	LastPrice   apd.Decimal `json:"c"`
	OpenPrice   apd.Decimal `json:"o"`
	HighPrice   apd.Decimal `json:"h"`
	LowPrice    apd.Decimal `json:"l"`
	Volume      apd.Decimal `json:"v"`
	QuoteVolume apd.Decimal `json:"q"`
	OpenTime    int64       `json:"O"`
	CloseTime   int64       `json:"C"`
	TradeCount  int64       `json:"n"`
}

// MiniTickerEvent is the reduced 24hr ticker.
type MiniTickerEvent struct {
	Event       string      `json:"e"`
	EventTime   int64       `json:"E"`
	Symbol      string      `json:"s"`
	LastPrice   apd.Decimal `json:"c"`
	OpenPrice   apd.Decimal `json:"o"`
	HighPrice   apd.Decimal `json:"h"`
	LowPrice    apd.Decimal `json:"l"`
	Volume      apd.Decimal `json:"v"`
	QuoteVolume apd.Decimal `json:"q"`
}

// BookTickerEvent is a best bid/ask update. It carries no event
// discriminator on the wire.
type BookTickerEvent struct {
	UpdateID    int64       `json:"u"`
	Symbol      string      `json:"s"`
	BidPrice    apd.Decimal `json:"b"`
	BidQuantity apd.Decimal `json:"B"`
	AskPrice    apd.Decimal `json:"a"`
	AskQuantity apd.Decimal `json:"A"`
}

// TradeEvent is a single executed trade.
type TradeEvent struct {
	Event        string      `json:"e"`
	EventTime    int64       `json:"E"`
	Symbol       string      `json:"s"`
	TradeID      int64       `json:"t"`
	Price        apd.Decimal `json:"p"`
	Quantity     apd.Decimal `json:"q"`
	TradeTime    int64       `json:"T"`
	IsBuyerMaker bool        `json:"m"`
}

// AggTradeEvent is an aggregated trade.
type AggTradeEvent struct {
	Event        string      `json:"e"`
	EventTime    int64       `json:"E"`
	Symbol       string      `json:"s"`
	AggTradeID   int64       `json:"a"`
	Price        apd.Decimal `json:"p"`
	Quantity     apd.Decimal `json:"q"`
	FirstTradeID int64       `json:"f"`
	LastTradeID  int64       `json:"l"`
	TradeTime    int64       `json:"T"`
	IsBuyerMaker bool        `json:"m"`
}

// KlineEvent is a candlestick update.
type KlineEvent struct {
	Event     string    `json:"e"`
	EventTime int64     `json:"E"`
	Symbol    string    `json:"s"`
	Kline     KlineData `json:"k"`
}

// KlineData is the candle payload inside a kline event.
type KlineData struct {
	StartTime   int64       `json:"t"`
	EndTime     int64       `json:"T"`
	Symbol      string      `json:"s"`
	Interval    string      `json:"i"`
	Open        apd.Decimal `json:"o"`
	Close       apd.Decimal `json:"c"`
	High        apd.Decimal `json:"h"`
	Low         apd.Decimal `json:"l"`
	Volume      apd.Decimal `json:"v"`
	QuoteVolume apd.Decimal `json:"q"`
	TradeCount  int64       `json:"n"`
	Closed      bool        `json:"x"`
}

// DepthEvent is an incremental order book update.
type DepthEvent struct {
	Event         string     `json:"e"`
	EventTime     int64      `json:"E"`
	Symbol        string     `json:"s"`
	FirstUpdateID int64      `json:"U"`
	FinalUpdateID int64      `json:"u"`
	Bids          [][]string `json:"b"`
	Asks          [][]string `json:"a"`
}

// MarkPriceEvent is a futures mark price and funding rate update.
type MarkPriceEvent struct {
	Event           string      `json:"e"`
	EventTime       int64       `json:"E"`
	Symbol          string      `json:"s"`
	MarkPrice       apd.Decimal `json:"p"`
	IndexPrice      apd.Decimal `json:"i"`
	FundingRate     apd.Decimal `json:"r"`
	NextFundingTime int64       `json:"T"`
}

// ForceOrderEvent is a futures liquidation order.
type ForceOrderEvent struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Order     struct {
		Symbol       string      `json:"s"`
		Side         string      `json:"S"`
		OrderType    string      `json:"o"`
		TimeInForce  string      `json:"f"`
		Quantity     apd.Decimal `json:"q"`
		Price        apd.Decimal `json:"p"`
		AveragePrice apd.Decimal `json:"ap"`
		Status       string      `json:"X"`
		TradeTime    int64       `json:"T"`
	} `json:"o"`
}

// AccountUpdateEvent is a futures account balance/position update.
type AccountUpdateEvent struct {
	Event           string `json:"e"`
	EventTime       int64  `json:"E"`
	TransactionTime int64  `json:"T"`
	Data            struct {
		Reason   string `json:"m"`
		Balances []struct {
			Asset              string      `json:"a"`
			WalletBalance      apd.Decimal `json:"wb"`
			CrossWalletBalance apd.Decimal `json:"cw"`
		} `json:"B"`
		Positions []struct {
			Symbol         string      `json:"s"`
			PositionAmount apd.Decimal `json:"pa"`
			EntryPrice     apd.Decimal `json:"ep"`
			UnrealizedPnL  apd.Decimal `json:"up"`
			PositionSide   string      `json:"ps"`
		} `json:"P"`
	} `json:"a"`
}

// AccountConfigUpdateEvent reports a leverage or margin mode change.
type AccountConfigUpdateEvent struct {
	Event           string `json:"e"`
	EventTime       int64  `json:"E"`
	TransactionTime int64  `json:"T"`
	Config          struct {
		Symbol   string `json:"s"`
		Leverage int    `json:"l"`
	} `json:"ac"`
}

// OrderTradeUpdateEvent is a futures order lifecycle update.
type OrderTradeUpdateEvent struct {
	Event           string `json:"e"`
	EventTime       int64  `json:"E"`
	TransactionTime int64  `json:"T"`
	Order           struct {
		Symbol        string      `json:"s"`
		ClientOrderID string      `json:"c"`
		Side          string      `json:"S"`
		OrderType     string      `json:"o"`
		TimeInForce   string      `json:"f"`
		Quantity      apd.Decimal `json:"q"`
		Price         apd.Decimal `json:"p"`
		AveragePrice  apd.Decimal `json:"ap"`
		ExecType      string      `json:"x"`
		Status        string      `json:"X"`
		OrderID       int64       `json:"i"`
		FilledQty     apd.Decimal `json:"z"`
		LastFillPrice apd.Decimal `json:"L"`
		TradeTime     int64       `json:"T"`
		PositionSide  string      `json:"ps"`
		RealizedPnL   apd.Decimal `json:"rp"`
	} `json:"o"`
}

// ExecutionReportEvent is a spot order lifecycle update.
type ExecutionReportEvent struct {
	Event         string      `json:"e"`
	EventTime     int64       `json:"E"`
	Symbol        string      `json:"s"`
	ClientOrderID string      `json:"c"`
	Side          string      `json:"S"`
	OrderType     string      `json:"o"`
	TimeInForce   string      `json:"f"`
	Quantity      apd.Decimal `json:"q"`
	Price         apd.Decimal `json:"p"`
	ExecType      string      `json:"x"`
	Status        string      `json:"X"`
	OrderID       int64       `json:"i"`
	FilledQty     apd.Decimal `json:"z"`
	LastFillPrice apd.Decimal `json:"L"`
	TradeID       int64       `json:"t"`
	OrderTime     int64       `json:"O"`
}

// ListenKeyExpiredEvent signals a user data stream key expiry.
type ListenKeyExpiredEvent struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	ListenKey string `json:"listenKey"`
}
