package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"asterdex/internal/clock"
	"asterdex/pkg/core"
)

// DefaultMaxStreams is the exchange-imposed ceiling on streams per
// connection.
const DefaultMaxStreams = 200

// Config holds the tunables for a stream connection.
type Config struct {
	// URL is the websocket endpoint to connect to.
	URL string
	// RequestTimeout bounds how long a subscribe command waits for its
	// correlated reply.
	RequestTimeout time.Duration
	// PingInterval is the heartbeat period once the connection is open.
	PingInterval time.Duration
	// PongWait is how long after a ping a pong must arrive before the
	// connection is considered dead.
	PongWait time.Duration
	// ReconnectBaseWait is the initial backoff before the first
	// reconnect attempt.
	ReconnectBaseWait time.Duration
	// ReconnectMaxWait caps the backoff between attempts.
	ReconnectMaxWait time.Duration
	// MaxReconnectAttempts bounds consecutive failed reconnects before
	// the connection stays closed.
	MaxReconnectAttempts int
	// MaxStreams caps the subscription set size.
	MaxStreams int
}

func (c *Config) applyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 3 * time.Minute
	}
	if c.PongWait == 0 {
		c.PongWait = 10 * time.Minute
	}
	if c.ReconnectBaseWait == 0 {
		c.ReconnectBaseWait = 1 * time.Second
	}
	if c.ReconnectMaxWait == 0 {
		c.ReconnectMaxWait = 30 * time.Second
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 10
	}
	if c.MaxStreams == 0 {
		c.MaxStreams = DefaultMaxStreams
	}
}

// command is the wire frame for subscription management requests.
type command struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// commandReply is the correlated response frame. A nil ID marks a data
// frame, which never resolves a pending command.
type commandReply struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *commandError   `json:"error"`
}

type commandError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type pendingReply struct {
	result []byte
	err    error
}

// Conn multiplexes market streams over one websocket connection. All
// exported methods are safe for concurrent use.
type Conn struct {
	config Config
	dial   Dialer
	clock  clock.Clock
	logger zerolog.Logger
	state  *State
	nextID atomic.Int64

	mu                sync.Mutex
	socket            Socket
	subs              map[string]struct{}
	pending           map[int64]chan pendingReply
	reconnectEnabled  bool
	reconnectAttempts int
	heartbeatTimer    clock.Timer
	pongTimer         clock.Timer
	reconnectTimer    clock.Timer

	onFrame func(data []byte)
	onError func(err error)
}

// NewConn creates a stream connection using the production gws dialer
// and the real clock.
func NewConn(config Config, logger zerolog.Logger) *Conn {
	return newConn(config, GWSDial, clock.Real{}, logger)
}

func newConn(config Config, dial Dialer, clk clock.Clock, logger zerolog.Logger) *Conn {
	config.applyDefaults()
	return &Conn{
		config:  config,
		dial:    dial,
		clock:   clk,
		logger:  logger,
		state:   &State{},
		subs:    make(map[string]struct{}),
		pending: make(map[int64]chan pendingReply),
	}
}

// OnFrame registers the handler for data frames. Frames carrying a
// numeric id are consumed as command replies and never reach it.
// Register before Connect.
func (c *Conn) OnFrame(fn func(data []byte)) {
	c.mu.Lock()
	c.onFrame = fn
	c.mu.Unlock()
}

// OnError registers the handler for non-fatal receive errors such as
// malformed frames. Register before Connect.
func (c *Conn) OnError(fn func(err error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Conn) State() ConnState {
	return c.state.Load()
}

// IsConnected returns true while the connection is open.
func (c *Conn) IsConnected() bool {
	return c.state.Load() == StateOpen
}

// Connect dials the configured URL. It is a no-op when the connection
// is already open or a dial is in progress.
func (c *Conn) Connect(ctx context.Context) error {
	switch c.state.Load() {
	case StateOpen, StateConnecting:
		return nil
	case StateClosing:
		return core.NewWebSocketError(0, "connection is shutting down", nil)
	}
	if !c.state.CompareAndSwap(StateClosed, StateConnecting) {
		return nil
	}

	socket, err := c.dial(ctx, c.config.URL, Callbacks{
		OnMessage: c.handleMessage,
		OnPong:    c.handlePong,
		OnClose:   c.handleClose,
	})
	if err != nil {
		c.state.Store(StateClosed)
		return core.NewWebSocketError(0, fmt.Sprintf("dial %s", c.config.URL), err)
	}

	c.mu.Lock()
	c.socket = socket
	c.reconnectEnabled = true
	c.reconnectAttempts = 0
	c.mu.Unlock()

	c.state.Store(StateOpen)
	c.logger.Info().Str("url", c.config.URL).Msg("websocket connected")
	c.armHeartbeat()
	return nil
}

// Disconnect shuts the connection down for good: auto-reconnect is
// disabled, pending commands fail and an open socket gets a normal
// close frame.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	c.reconnectEnabled = false
	c.stopTimersLocked()
	socket := c.socket
	c.mu.Unlock()

	if c.state.CompareAndSwap(StateOpen, StateClosing) {
		if socket != nil {
			_ = socket.Close(CloseNormal, []byte("bye"))
		}
	}
	c.state.Store(StateClosed)
	c.failPending(core.ErrClientClosed)
	c.logger.Info().Str("url", c.config.URL).Msg("websocket disconnected")
	return nil
}

// Subscribe adds the given streams to the multiplexed connection. It
// blocks until the server acknowledges the request or the request
// timeout elapses.
func (c *Conn) Subscribe(ctx context.Context, streams ...string) error {
	if len(streams) == 0 {
		return nil
	}

	c.mu.Lock()
	added := 0
	for _, s := range streams {
		if _, ok := c.subs[s]; !ok {
			added++
		}
	}
	if len(c.subs)+added > c.config.MaxStreams {
		c.mu.Unlock()
		return core.NewWebSocketError(0,
			fmt.Sprintf("subscription set would exceed %d streams", c.config.MaxStreams),
			core.ErrTooManyStreams)
	}
	c.mu.Unlock()

	if _, err := c.do(ctx, "SUBSCRIBE", streams); err != nil {
		return err
	}

	c.mu.Lock()
	for _, s := range streams {
		c.subs[s] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

// Unsubscribe removes the given streams from the connection.
func (c *Conn) Unsubscribe(ctx context.Context, streams ...string) error {
	if len(streams) == 0 {
		return nil
	}
	if _, err := c.do(ctx, "UNSUBSCRIBE", streams); err != nil {
		return err
	}

	c.mu.Lock()
	for _, s := range streams {
		delete(c.subs, s)
	}
	c.mu.Unlock()
	return nil
}

// ListSubscriptions asks the server for the active subscription set.
func (c *Conn) ListSubscriptions(ctx context.Context) ([]string, error) {
	result, err := c.do(ctx, "LIST_SUBSCRIPTIONS", nil)
	if err != nil {
		return nil, err
	}
	var streams []string
	if err := sonic.Unmarshal(result, &streams); err != nil {
		return nil, core.NewWebSocketError(0, "parse subscription list", err)
	}
	return streams, nil
}

// Subscriptions returns the locally tracked subscription set.
func (c *Conn) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	streams := make([]string, 0, len(c.subs))
	for s := range c.subs {
		streams = append(streams, s)
	}
	return streams
}

// do sends a command frame and waits for the id-correlated reply.
func (c *Conn) do(ctx context.Context, method string, params []string) ([]byte, error) {
	if c.state.Load() != StateOpen {
		return nil, core.ErrNotConnected
	}

	id := c.nextID.Add(1)
	replyCh := make(chan pendingReply, 1)

	c.mu.Lock()
	socket := c.socket
	c.pending[id] = replyCh
	c.mu.Unlock()

	if socket == nil {
		c.dropPending(id)
		return nil, core.ErrNotConnected
	}

	frame, err := sonic.Marshal(command{Method: method, Params: params, ID: id})
	if err != nil {
		c.dropPending(id)
		return nil, core.NewWebSocketError(0, "encode command", err)
	}
	if err := socket.Send(frame); err != nil {
		c.dropPending(id)
		return nil, core.NewWebSocketError(0, "send command", err)
	}

	timer := c.clock.AfterFunc(c.config.RequestTimeout, func() {
		c.resolvePending(id, pendingReply{err: core.ErrRequestTimeout})
	})
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply.result, reply.err
	case <-ctx.Done():
		c.dropPending(id)
		return nil, ctx.Err()
	}
}

func (c *Conn) resolvePending(id int64, reply pendingReply) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if ok {
		ch <- reply
	}
}

func (c *Conn) dropPending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) failPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]chan pendingReply)
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- pendingReply{err: err}
	}
}

func (c *Conn) handleMessage(data []byte) {
	if len(data) == 0 {
		return
	}

	var reply commandReply
	if err := sonic.Unmarshal(data, &reply); err != nil {
		c.reportError(core.NewWebSocketError(0, "malformed frame", err))
		return
	}

	if reply.ID != nil {
		out := pendingReply{result: reply.Result}
		if reply.Error != nil {
			out.err = core.NewWebSocketError(0,
				fmt.Sprintf("server rejected request: %s (%d)", reply.Error.Msg, reply.Error.Code), nil)
		}
		c.resolvePending(*reply.ID, out)
		return
	}

	c.mu.Lock()
	onFrame := c.onFrame
	c.mu.Unlock()
	if onFrame != nil {
		onFrame(data)
	}
}

func (c *Conn) handlePong(payload []byte) {
	c.mu.Lock()
	if c.pongTimer != nil {
		c.pongTimer.Stop()
		c.pongTimer = nil
	}
	c.mu.Unlock()
}

func (c *Conn) handleClose(code int, reason string) {
	c.mu.Lock()
	c.stopTimersLocked()
	c.socket = nil
	reconnect := c.reconnectEnabled
	c.mu.Unlock()

	if c.state.CompareAndSwap(StateClosing, StateClosed) {
		return
	}
	c.state.Store(StateClosed)
	c.failPending(core.ErrNotConnected)

	c.logger.Warn().
		Int("code", code).
		Str("reason", reason).
		Str("url", c.config.URL).
		Msg("websocket connection lost")

	if reconnect && code != CloseNormal {
		c.scheduleReconnect()
	}
}

func (c *Conn) armHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
	}
	c.heartbeatTimer = c.clock.AfterFunc(c.config.PingInterval, c.heartbeat)
}

func (c *Conn) heartbeat() {
	if c.state.Load() != StateOpen {
		return
	}

	c.mu.Lock()
	socket := c.socket
	c.mu.Unlock()
	if socket == nil {
		return
	}

	if err := socket.Ping(nil); err != nil {
		c.logger.Warn().Err(err).Msg("heartbeat ping failed")
	}

	// An unanswered ping keeps its original deadline; re-arming here
	// would push it out past every subsequent ping when PongWait exceeds
	// PingInterval.
	c.mu.Lock()
	if c.pongTimer == nil {
		c.pongTimer = c.clock.AfterFunc(c.config.PongWait, c.pongTimeout)
	}
	c.mu.Unlock()

	c.armHeartbeat()
}

// pongTimeout fires when a ping went unanswered. Terminating the
// socket surfaces an abnormal close, which takes the reconnect path.
func (c *Conn) pongTimeout() {
	c.mu.Lock()
	c.pongTimer = nil
	socket := c.socket
	c.mu.Unlock()

	c.logger.Warn().Str("url", c.config.URL).Msg("pong deadline missed, terminating connection")
	if socket != nil {
		_ = socket.Terminate()
	}
}

func (c *Conn) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reconnectAttempts >= c.config.MaxReconnectAttempts {
		c.logger.Error().
			Int("attempts", c.reconnectAttempts).
			Msg("reconnect attempts exhausted")
		return
	}

	wait := c.backoff(c.reconnectAttempts)
	c.reconnectAttempts++
	c.logger.Info().
		Dur("wait", wait).
		Int("attempt", c.reconnectAttempts).
		Msg("scheduling reconnect")

	c.reconnectTimer = c.clock.AfterFunc(wait, c.reconnect)
}

func (c *Conn) reconnect() {
	c.mu.Lock()
	if !c.reconnectEnabled {
		c.mu.Unlock()
		return
	}
	attempts := c.reconnectAttempts
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout)
	err := c.Connect(ctx)
	cancel()
	if err != nil {
		c.logger.Error().Err(err).Msg("reconnect failed")
		c.scheduleReconnect()
		return
	}

	// Connect resets the attempt counter; keep it across the replay so
	// a failing replay keeps backing off instead of starting over.
	c.mu.Lock()
	c.reconnectAttempts = attempts
	c.mu.Unlock()

	if err := c.replaySubscriptions(); err != nil {
		// The local set no longer matches what the server registered;
		// drop the socket so the abnormal-close path runs the whole
		// reconnect sequence again.
		c.logger.Error().Err(err).Msg("subscription replay failed, dropping connection")
		c.mu.Lock()
		socket := c.socket
		c.mu.Unlock()
		if socket != nil {
			_ = socket.Terminate()
		}
		return
	}

	c.mu.Lock()
	c.reconnectAttempts = 0
	c.mu.Unlock()
	c.logger.Info().Msg("reconnected")
}

// replaySubscriptions re-issues the tracked subscription set after a
// reconnect.
func (c *Conn) replaySubscriptions() error {
	streams := c.Subscriptions()
	if len(streams) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout)
	defer cancel()
	_, err := c.do(ctx, "SUBSCRIBE", streams)
	return err
}

func (c *Conn) stopTimersLocked() {
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
		c.heartbeatTimer = nil
	}
	if c.pongTimer != nil {
		c.pongTimer.Stop()
		c.pongTimer = nil
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Conn) reportError(err error) {
	c.mu.Lock()
	onError := c.onError
	c.mu.Unlock()
	if onError != nil {
		onError(err)
	} else {
		c.logger.Error().Err(err).Msg("websocket receive error")
	}
}

func (c *Conn) backoff(attempts int) time.Duration {
	wait := min(c.config.ReconnectBaseWait*time.Duration(1<<uint(attempts)), c.config.ReconnectMaxWait)
	return wait
}
