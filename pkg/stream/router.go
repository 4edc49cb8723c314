package stream

import (
	"fmt"
	"sync"

	"github.com/bytedance/sonic"

	"asterdex/pkg/core"
)

// Router classifies inbound frames and fans them out to the typed
// handlers registered for each event kind. Registration and routing
// are safe for concurrent use; handlers run on the routing goroutine.
type Router struct {
	mu sync.RWMutex

	onTicker              []func(*TickerEvent)
	onMiniTicker          []func(*MiniTickerEvent)
	onBookTicker          []func(*BookTickerEvent)
	onTrade               []func(*TradeEvent)
	onAggTrade            []func(*AggTradeEvent)
	onKline               []func(*KlineEvent)
	onDepth               []func(*DepthEvent)
	onMarkPrice           []func(*MarkPriceEvent)
	onForceOrder          []func(*ForceOrderEvent)
	onAccountUpdate       []func(*AccountUpdateEvent)
	onAccountConfigUpdate []func(*AccountConfigUpdateEvent)
	onOrderTradeUpdate    []func(*OrderTradeUpdateEvent)
	onExecutionReport     []func(*ExecutionReportEvent)
	onListenKeyExpired    []func(*ListenKeyExpiredEvent)
	onUnknown             []func(data []byte)
	onError               []func(err error)
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{}
}

// OnTicker registers a handler for 24hr ticker events.
func (r *Router) OnTicker(fn func(*TickerEvent)) {
	r.mu.Lock()
	r.onTicker = append(r.onTicker, fn)
	r.mu.Unlock()
}

// OnMiniTicker registers a handler for mini ticker events.
func (r *Router) OnMiniTicker(fn func(*MiniTickerEvent)) {
	r.mu.Lock()
	r.onMiniTicker = append(r.onMiniTicker, fn)
	r.mu.Unlock()
}

// OnBookTicker registers a handler for best bid/ask events.
func (r *Router) OnBookTicker(fn func(*BookTickerEvent)) {
	r.mu.Lock()
	r.onBookTicker = append(r.onBookTicker, fn)
	r.mu.Unlock()
}

// OnTrade registers a handler for trade events.
func (r *Router) OnTrade(fn func(*TradeEvent)) {
	r.mu.Lock()
	r.onTrade = append(r.onTrade, fn)
	r.mu.Unlock()
}

// OnAggTrade registers a handler for aggregated trade events.
func (r *Router) OnAggTrade(fn func(*AggTradeEvent)) {
	r.mu.Lock()
	r.onAggTrade = append(r.onAggTrade, fn)
	r.mu.Unlock()
}

// OnKline registers a handler for candlestick events.
func (r *Router) OnKline(fn func(*KlineEvent)) {
	r.mu.Lock()
	r.onKline = append(r.onKline, fn)
	r.mu.Unlock()
}

// OnDepth registers a handler for order book diff events.
func (r *Router) OnDepth(fn func(*DepthEvent)) {
	r.mu.Lock()
	r.onDepth = append(r.onDepth, fn)
	r.mu.Unlock()
}

// OnMarkPrice registers a handler for mark price events.
func (r *Router) OnMarkPrice(fn func(*MarkPriceEvent)) {
	r.mu.Lock()
	r.onMarkPrice = append(r.onMarkPrice, fn)
	r.mu.Unlock()
}

// OnForceOrder registers a handler for liquidation order events.
func (r *Router) OnForceOrder(fn func(*ForceOrderEvent)) {
	r.mu.Lock()
	r.onForceOrder = append(r.onForceOrder, fn)
	r.mu.Unlock()
}

// OnAccountUpdate registers a handler for futures account updates.
func (r *Router) OnAccountUpdate(fn func(*AccountUpdateEvent)) {
	r.mu.Lock()
	r.onAccountUpdate = append(r.onAccountUpdate, fn)
	r.mu.Unlock()
}

// OnAccountConfigUpdate registers a handler for leverage changes.
func (r *Router) OnAccountConfigUpdate(fn func(*AccountConfigUpdateEvent)) {
	r.mu.Lock()
	r.onAccountConfigUpdate = append(r.onAccountConfigUpdate, fn)
	r.mu.Unlock()
}

// OnOrderTradeUpdate registers a handler for futures order updates.
func (r *Router) OnOrderTradeUpdate(fn func(*OrderTradeUpdateEvent)) {
	r.mu.Lock()
	r.onOrderTradeUpdate = append(r.onOrderTradeUpdate, fn)
	r.mu.Unlock()
}

// OnExecutionReport registers a handler for spot order updates.
func (r *Router) OnExecutionReport(fn func(*ExecutionReportEvent)) {
	r.mu.Lock()
	r.onExecutionReport = append(r.onExecutionReport, fn)
	r.mu.Unlock()
}

// OnListenKeyExpired registers a handler for listen key expiry.
func (r *Router) OnListenKeyExpired(fn func(*ListenKeyExpiredEvent)) {
	r.mu.Lock()
	r.onListenKeyExpired = append(r.onListenKeyExpired, fn)
	r.mu.Unlock()
}

// OnUnknown registers a catch-all for frames of unrecognized kind.
func (r *Router) OnUnknown(fn func(data []byte)) {
	r.mu.Lock()
	r.onUnknown = append(r.onUnknown, fn)
	r.mu.Unlock()
}

// OnError registers a handler for classification and decode failures.
func (r *Router) OnError(fn func(err error)) {
	r.mu.Lock()
	r.onError = append(r.onError, fn)
	r.mu.Unlock()
}

// Route classifies one frame and dispatches it. Decode failures go to
// the error handlers and never panic the routing goroutine.
func (r *Router) Route(data []byte) {
	kind, payload, err := Classify(data)
	if err != nil {
		r.reportError(core.NewWebSocketError(0, "classify frame", err))
		return
	}

	switch kind {
	case EventTicker:
		dispatch(r, payload, kind, func() []func(*TickerEvent) { return r.onTicker })
	case EventMiniTicker:
		dispatch(r, payload, kind, func() []func(*MiniTickerEvent) { return r.onMiniTicker })
	case EventBookTicker:
		dispatch(r, payload, kind, func() []func(*BookTickerEvent) { return r.onBookTicker })
	case EventTrade:
		dispatch(r, payload, kind, func() []func(*TradeEvent) { return r.onTrade })
	case EventAggTrade:
		dispatch(r, payload, kind, func() []func(*AggTradeEvent) { return r.onAggTrade })
	case EventKline:
		dispatch(r, payload, kind, func() []func(*KlineEvent) { return r.onKline })
	case EventDepth:
		dispatch(r, payload, kind, func() []func(*DepthEvent) { return r.onDepth })
	case EventMarkPrice:
		dispatch(r, payload, kind, func() []func(*MarkPriceEvent) { return r.onMarkPrice })
	case EventForceOrder:
		dispatch(r, payload, kind, func() []func(*ForceOrderEvent) { return r.onForceOrder })
	case EventAccountUpdate:
		dispatch(r, payload, kind, func() []func(*AccountUpdateEvent) { return r.onAccountUpdate })
	case EventAccountConfigUpdate:
		dispatch(r, payload, kind, func() []func(*AccountConfigUpdateEvent) { return r.onAccountConfigUpdate })
	case EventOrderTradeUpdate:
		dispatch(r, payload, kind, func() []func(*OrderTradeUpdateEvent) { return r.onOrderTradeUpdate })
	case EventExecutionReport:
		dispatch(r, payload, kind, func() []func(*ExecutionReportEvent) { return r.onExecutionReport })
	case EventListenKeyExpired:
		dispatch(r, payload, kind, func() []func(*ListenKeyExpiredEvent) { return r.onListenKeyExpired })
	default:
		r.mu.RLock()
		handlers := r.onUnknown
		r.mu.RUnlock()
		for _, fn := range handlers {
			fn(payload)
		}
	}
}

// dispatch decodes the payload into E and invokes every registered
// handler for the kind.
func dispatch[E any](r *Router, payload []byte, kind EventType, handlers func() []func(*E)) {
	r.mu.RLock()
	fns := handlers()
	r.mu.RUnlock()
	if len(fns) == 0 {
		return
	}

	event := new(E)
	if err := sonic.Unmarshal(payload, event); err != nil {
		r.reportError(core.NewWebSocketError(0, fmt.Sprintf("decode %s event", kind), err))
		return
	}
	for _, fn := range fns {
		fn(event)
	}
}

func (r *Router) reportError(err error) {
	r.mu.RLock()
	handlers := r.onError
	r.mu.RUnlock()
	for _, fn := range handlers {
		fn(err)
	}
}
