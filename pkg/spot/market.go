package spot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"asterdex/pkg/core"
)

// Ping checks API connectivity.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.call.Call(ctx, newRequest("ping"))
	return err
}

// ServerTime returns the exchange's clock.
func (s *Service) ServerTime(ctx context.Context) (time.Time, error) {
	body, err := s.call.Call(ctx, newRequest("serverTime"))
	if err != nil {
		return time.Time{}, err
	}
	var resp struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return time.Time{}, core.NewAPIError(0, "", "parse server time: "+err.Error())
	}
	return time.UnixMilli(resp.ServerTime), nil
}

type wireTicker struct {
	Symbol      string      `json:"symbol"`
	LastPrice   apd.Decimal `json:"lastPrice"`
	BidPrice    apd.Decimal `json:"bidPrice"`
	AskPrice    apd.Decimal `json:"askPrice"`
	OpenPrice   apd.Decimal `json:"openPrice"`
	HighPrice   apd.Decimal `json:"highPrice"`
	LowPrice    apd.Decimal `json:"lowPrice"`
	Volume      apd.Decimal `json:"volume"`
	QuoteVolume apd.Decimal `json:"quoteVolume"`
	CloseTime   int64       `json:"closeTime"`
}

func (w *wireTicker) toCore() *core.Ticker {
	return &core.Ticker{
		Symbol:      w.Symbol,
		Bid:         w.BidPrice,
		Ask:         w.AskPrice,
		Last:        w.LastPrice,
		Open:        w.OpenPrice,
		High:        w.HighPrice,
		Low:         w.LowPrice,
		Volume:      w.Volume,
		QuoteVolume: w.QuoteVolume,
		Timestamp:   time.UnixMilli(w.CloseTime),
	}
}

// Ticker returns the 24hr rolling window statistics for a symbol.
func (s *Service) Ticker(ctx context.Context, symbol string) (*core.Ticker, error) {
	if symbol == "" {
		return nil, core.NewValidationError("symbol", "symbol is required")
	}
	req := newRequest("ticker").SetQuery("symbol", strings.ToUpper(symbol))
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var w wireTicker
	if err := sonic.Unmarshal(body, &w); err != nil {
		return nil, core.NewAPIError(0, "", "parse ticker: "+err.Error())
	}
	return w.toCore(), nil
}

// OrderBookRequest fetches a depth snapshot.
type OrderBookRequest struct {
	Symbol string `validate:"required"`
	Limit  int    `validate:"omitempty,gte=1,lte=1000"`
}

// OrderBook returns an order book snapshot.
func (s *Service) OrderBook(ctx context.Context, in OrderBookRequest) (*core.OrderBook, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	req := newRequest("depth").SetQuery("symbol", strings.ToUpper(in.Symbol))
	if in.Limit > 0 {
		req.SetQuery("limit", in.Limit)
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	var w struct {
		LastUpdateID int64      `json:"lastUpdateId"`
		Bids         [][]string `json:"bids"`
		Asks         [][]string `json:"asks"`
	}
	if err := sonic.Unmarshal(body, &w); err != nil {
		return nil, core.NewAPIError(0, "", "parse order book: "+err.Error())
	}

	book := &core.OrderBook{
		Symbol:       strings.ToUpper(in.Symbol),
		LastUpdateID: w.LastUpdateID,
		Timestamp:    time.Now(),
	}
	book.Bids = parseLevels(w.Bids)
	book.Asks = parseLevels(w.Asks)
	return book, nil
}

func parseLevels(raw [][]string) []core.OrderBookLevel {
	levels := make([]core.OrderBookLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			continue
		}
		var level core.OrderBookLevel
		if _, _, err := level.Price.SetString(pair[0]); err != nil {
			continue
		}
		if _, _, err := level.Quantity.SetString(pair[1]); err != nil {
			continue
		}
		levels = append(levels, level)
	}
	return levels
}

// TradesRequest fetches recent public trades.
type TradesRequest struct {
	Symbol string `validate:"required"`
	Limit  int    `validate:"omitempty,gte=1,lte=1000"`
}

type wireTrade struct {
	ID           int64       `json:"id"`
	Price        apd.Decimal `json:"price"`
	Quantity     apd.Decimal `json:"qty"`
	Time         int64       `json:"time"`
	IsBuyerMaker bool        `json:"isBuyerMaker"`
}

// Trades returns the most recent public trades for a symbol.
func (s *Service) Trades(ctx context.Context, in TradesRequest) ([]core.Trade, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	req := newRequest("trades").SetQuery("symbol", strings.ToUpper(in.Symbol))
	if in.Limit > 0 {
		req.SetQuery("limit", in.Limit)
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	var raw []wireTrade
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, core.NewAPIError(0, "", "parse trades: "+err.Error())
	}

	trades := make([]core.Trade, 0, len(raw))
	for _, t := range raw {
		side := core.SideBuy
		if t.IsBuyerMaker {
			side = core.SideSell
		}
		trades = append(trades, core.Trade{
			ID:           t.ID,
			Symbol:       strings.ToUpper(in.Symbol),
			Side:         side,
			Price:        t.Price,
			Quantity:     t.Quantity,
			IsBuyerMaker: t.IsBuyerMaker,
			Timestamp:    time.UnixMilli(t.Time),
		})
	}
	return trades, nil
}

// KlinesRequest fetches candlestick data.
type KlinesRequest struct {
	Symbol    string `validate:"required"`
	Interval  string `validate:"required"`
	Limit     int    `validate:"omitempty,gte=1,lte=1500"`
	StartTime int64
	EndTime   int64
}

// Klines returns candlestick data. The wire format is a positional
// array per candle.
func (s *Service) Klines(ctx context.Context, in KlinesRequest) ([]core.Kline, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	req := newRequest("klines").
		SetQuery("symbol", strings.ToUpper(in.Symbol)).
		SetQuery("interval", in.Interval)
	if in.Limit > 0 {
		req.SetQuery("limit", in.Limit)
	}
	if in.StartTime > 0 {
		req.SetQuery("startTime", in.StartTime)
	}
	if in.EndTime > 0 {
		req.SetQuery("endTime", in.EndTime)
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	var raw [][]any
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, core.NewAPIError(0, "", "parse klines: "+err.Error())
	}

	klines := make([]core.Kline, 0, len(raw))
	for _, row := range raw {
		if len(row) < 9 {
			continue
		}
		k := core.Kline{
			Symbol:   strings.ToUpper(in.Symbol),
			Interval: in.Interval,
		}
		k.OpenTime = time.UnixMilli(asInt64(row[0]))
		parseDecimal(&k.Open, row[1])
		parseDecimal(&k.High, row[2])
		parseDecimal(&k.Low, row[3])
		parseDecimal(&k.Close, row[4])
		parseDecimal(&k.Volume, row[5])
		k.CloseTime = time.UnixMilli(asInt64(row[6]))
		parseDecimal(&k.QuoteVolume, row[7])
		k.NumTrades = asInt64(row[8])
		klines = append(klines, k)
	}
	return klines, nil
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}

func parseDecimal(dst *apd.Decimal, v any) {
	s, ok := v.(string)
	if !ok {
		return
	}
	_, _, _ = dst.SetString(s)
}
