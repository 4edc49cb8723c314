package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"asterdex/internal/ws"
)

// Config tunes a stream client.
type Config struct {
	// URL is the stream endpoint (spot or futures).
	URL string
	// RequestTimeout bounds subscription management requests.
	RequestTimeout time.Duration
	// PingInterval and PongWait drive heartbeat supervision.
	PingInterval time.Duration
	PongWait     time.Duration
	// MaxReconnectAttempts bounds reconnects after an abnormal close.
	MaxReconnectAttempts int
}

// Client multiplexes typed market data subscriptions over a single
// stream connection. Obtain one from the root client's Streams method
// or construct one directly with NewClient.
type Client struct {
	conn   *ws.Conn
	router *Router
	logger zerolog.Logger
}

// NewClient creates a stream client for the given endpoint.
func NewClient(config Config, logger zerolog.Logger) *Client {
	router := NewRouter()
	conn := ws.NewConn(ws.Config{
		URL:                  config.URL,
		RequestTimeout:       config.RequestTimeout,
		PingInterval:         config.PingInterval,
		PongWait:             config.PongWait,
		MaxReconnectAttempts: config.MaxReconnectAttempts,
	}, logger)
	conn.OnFrame(router.Route)
	conn.OnError(func(err error) {
		router.reportError(err)
	})
	return &Client{conn: conn, router: router, logger: logger}
}

// Router exposes the event router for handler registration.
func (c *Client) Router() *Router {
	return c.router
}

// Connect establishes the stream connection.
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Connect(ctx)
}

// Close shuts the stream connection down.
func (c *Client) Close() error {
	return c.conn.Disconnect()
}

// IsConnected returns true while the connection is open.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// Subscribe adds raw stream names to the connection.
func (c *Client) Subscribe(ctx context.Context, streams ...string) error {
	return c.conn.Subscribe(ctx, streams...)
}

// Unsubscribe removes raw stream names from the connection.
func (c *Client) Unsubscribe(ctx context.Context, streams ...string) error {
	return c.conn.Unsubscribe(ctx, streams...)
}

// Subscriptions returns the locally tracked stream set.
func (c *Client) Subscriptions() []string {
	return c.conn.Subscriptions()
}

// ListSubscriptions asks the server for the active stream set.
func (c *Client) ListSubscriptions(ctx context.Context) ([]string, error) {
	return c.conn.ListSubscriptions(ctx)
}

// SubscribeTicker registers a handler and subscribes to the symbol's
// 24hr ticker stream.
func (c *Client) SubscribeTicker(ctx context.Context, symbol string, fn func(*TickerEvent)) error {
	c.router.OnTicker(fn)
	return c.Subscribe(ctx, streamName(symbol, "ticker"))
}

// SubscribeMiniTicker registers a handler and subscribes to the
// symbol's mini ticker stream.
func (c *Client) SubscribeMiniTicker(ctx context.Context, symbol string, fn func(*MiniTickerEvent)) error {
	c.router.OnMiniTicker(fn)
	return c.Subscribe(ctx, streamName(symbol, "miniTicker"))
}

// SubscribeBookTicker registers a handler and subscribes to the
// symbol's best bid/ask stream.
func (c *Client) SubscribeBookTicker(ctx context.Context, symbol string, fn func(*BookTickerEvent)) error {
	c.router.OnBookTicker(fn)
	return c.Subscribe(ctx, streamName(symbol, "bookTicker"))
}

// SubscribeTrade registers a handler and subscribes to the symbol's
// trade stream.
func (c *Client) SubscribeTrade(ctx context.Context, symbol string, fn func(*TradeEvent)) error {
	c.router.OnTrade(fn)
	return c.Subscribe(ctx, streamName(symbol, "trade"))
}

// SubscribeAggTrade registers a handler and subscribes to the symbol's
// aggregated trade stream.
func (c *Client) SubscribeAggTrade(ctx context.Context, symbol string, fn func(*AggTradeEvent)) error {
	c.router.OnAggTrade(fn)
	return c.Subscribe(ctx, streamName(symbol, "aggTrade"))
}

// SubscribeKline registers a handler and subscribes to the symbol's
// candlestick stream for the given interval.
func (c *Client) SubscribeKline(ctx context.Context, symbol, interval string, fn func(*KlineEvent)) error {
	c.router.OnKline(fn)
	return c.Subscribe(ctx, streamName(symbol, "kline_"+interval))
}

// SubscribeDepth registers a handler and subscribes to the symbol's
// order book diff stream.
func (c *Client) SubscribeDepth(ctx context.Context, symbol string, fn func(*DepthEvent)) error {
	c.router.OnDepth(fn)
	return c.Subscribe(ctx, streamName(symbol, "depth"))
}

// SubscribeMarkPrice registers a handler and subscribes to the
// symbol's mark price stream.
func (c *Client) SubscribeMarkPrice(ctx context.Context, symbol string, fn func(*MarkPriceEvent)) error {
	c.router.OnMarkPrice(fn)
	return c.Subscribe(ctx, streamName(symbol, "markPrice"))
}

// SubscribeUserData subscribes to the user data stream for the given
// listen key. Register account and order handlers on the router first.
func (c *Client) SubscribeUserData(ctx context.Context, listenKey string) error {
	return c.Subscribe(ctx, listenKey)
}

func streamName(symbol, suffix string) string {
	return fmt.Sprintf("%s@%s", strings.ToLower(symbol), suffix)
}
