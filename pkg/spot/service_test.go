package spot

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asterdex/pkg/core"
)

type fakeCaller struct {
	requests []*core.Request
	body     []byte
	err      error
}

func (f *fakeCaller) Call(_ context.Context, req *core.Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func (f *fakeCaller) last(t *testing.T) *core.Request {
	t.Helper()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func TestPing(t *testing.T) {
	caller := &fakeCaller{body: []byte(`{}`)}
	svc := NewService(caller)

	require.NoError(t, svc.Ping(context.Background()))
	req := caller.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/v1/ping", req.Path)
	assert.Equal(t, core.AuthNone, req.AuthType)
}

func TestServerTime(t *testing.T) {
	caller := &fakeCaller{body: []byte(`{"serverTime":1700000000000}`)}
	svc := NewService(caller)

	ts, err := svc.ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts.UnixMilli())
}

func TestTicker(t *testing.T) {
	caller := &fakeCaller{body: []byte(`{
		"symbol":"BTCUSDT","lastPrice":"42000.50","bidPrice":"41999.00",
		"askPrice":"42001.00","openPrice":"41000.00","highPrice":"42500.00",
		"lowPrice":"40800.00","volume":"1234.56","quoteVolume":"51234567.89",
		"closeTime":1700000000000}`)}
	svc := NewService(caller)

	ticker, err := svc.Ticker(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", ticker.Symbol)
	assert.Equal(t, "42000.50", ticker.Last.String())
	assert.Equal(t, "41999.00", ticker.Bid.String())

	req := caller.last(t)
	assert.Equal(t, "BTCUSDT", req.Query["symbol"])
}

func TestTickerRequiresSymbol(t *testing.T) {
	svc := NewService(&fakeCaller{})
	_, err := svc.Ticker(context.Background(), "")
	assert.True(t, core.IsValidationError(err))
}

func TestOrderBook(t *testing.T) {
	caller := &fakeCaller{body: []byte(`{
		"lastUpdateId":1027024,
		"bids":[["4.00000000","431.00000000"],["3.99000000","12.00000000"]],
		"asks":[["4.00000200","12.00000000"]]}`)}
	svc := NewService(caller)

	book, err := svc.OrderBook(context.Background(), OrderBookRequest{Symbol: "BNBUSDT", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1027024), book.LastUpdateID)
	require.Len(t, book.Bids, 2)
	assert.Equal(t, "4.00000000", book.Bids[0].Price.String())
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "12.00000000", book.Asks[0].Quantity.String())
}

func TestOrderBookLimitValidation(t *testing.T) {
	svc := NewService(&fakeCaller{})
	_, err := svc.OrderBook(context.Background(), OrderBookRequest{Symbol: "BNBUSDT", Limit: 5000})
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))

	var clientErr *core.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "Limit", clientErr.Field)
}

func TestKlines(t *testing.T) {
	caller := &fakeCaller{body: []byte(`[
		[1700000000000,"42000.00","42100.00","41900.00","42050.00","100.5",1700000059999,"4221525.00",321,"50.2","2110762.50","0"]
	]`)}
	svc := NewService(caller)

	klines, err := svc.Klines(context.Background(), KlinesRequest{Symbol: "BTCUSDT", Interval: "1m"})
	require.NoError(t, err)
	require.Len(t, klines, 1)
	assert.Equal(t, "42050.00", klines[0].Close.String())
	assert.Equal(t, int64(321), klines[0].NumTrades)
	assert.Equal(t, int64(1700000000000), klines[0].OpenTime.UnixMilli())
}

func TestPlaceOrderLimit(t *testing.T) {
	caller := &fakeCaller{body: []byte(`{
		"orderId":12345,"clientOrderId":"my-order","symbol":"BTCUSDT",
		"side":"BUY","type":"LIMIT","price":"42000.00","origQty":"0.50000000",
		"executedQty":"0.00000000","status":"NEW","timeInForce":"GTC",
		"transactTime":1700000000000}`)}
	svc := NewService(caller)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol:      "btcusdt",
		Side:        core.SideBuy,
		Type:        core.TypeLimit,
		Quantity:    "0.5",
		Price:       "42000.00",
		TimeInForce: core.GTC,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12345), order.ID)
	assert.Equal(t, core.StatusNew, order.Status)

	req := caller.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, core.AuthTrade, req.AuthType)
	assert.Equal(t, "BTCUSDT", req.Form["symbol"])
	assert.Equal(t, "LIMIT", req.Form["type"])
	assert.Equal(t, "GTC", req.Form["timeInForce"])
}

func TestPlaceOrderLimitRequiresPrice(t *testing.T) {
	svc := NewService(&fakeCaller{})
	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol:   "BTCUSDT",
		Side:     core.SideBuy,
		Type:     core.TypeLimit,
		Quantity: "0.5",
	})
	require.Error(t, err)

	var clientErr *core.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "price", clientErr.Field)
}

func TestPlaceOrderMarketRequiresQuantity(t *testing.T) {
	svc := NewService(&fakeCaller{})
	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Symbol: "BTCUSDT",
		Side:   core.SideBuy,
		Type:   core.TypeMarket,
	})
	assert.True(t, core.IsValidationError(err))
}

func TestCancelOrderRequiresIdentifier(t *testing.T) {
	svc := NewService(&fakeCaller{})
	_, err := svc.CancelOrder(context.Background(), CancelOrderRequest{Symbol: "BTCUSDT"})
	assert.True(t, core.IsValidationError(err))
}

func TestCancelOrderByID(t *testing.T) {
	caller := &fakeCaller{body: []byte(`{
		"orderId":12345,"symbol":"BTCUSDT","side":"BUY","type":"LIMIT",
		"price":"42000.00","origQty":"0.5","executedQty":"0","status":"CANCELED",
		"timeInForce":"GTC","updateTime":1700000000000}`)}
	svc := NewService(caller)

	order, err := svc.CancelOrder(context.Background(), CancelOrderRequest{Symbol: "BTCUSDT", OrderID: 12345})
	require.NoError(t, err)
	assert.Equal(t, core.StatusCanceled, order.Status)
	assert.True(t, order.Status.IsTerminal())

	req := caller.last(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, int64(12345), req.Query["orderId"])
}

func TestOpenOrders(t *testing.T) {
	caller := &fakeCaller{body: []byte(`[
		{"orderId":1,"symbol":"BTCUSDT","side":"BUY","type":"LIMIT","price":"42000.00","origQty":"0.5","executedQty":"0.1","status":"PARTIALLY_FILLED","timeInForce":"GTC"},
		{"orderId":2,"symbol":"ETHUSDT","side":"SELL","type":"LIMIT","price":"2200.00","origQty":"3","executedQty":"0","status":"NEW","timeInForce":"IOC"}
	]`)}
	svc := NewService(caller)

	orders, err := svc.OpenOrders(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, core.StatusPartiallyFilled, orders[0].Status)
	assert.Equal(t, core.SideSell, orders[1].Side)
	assert.NotContains(t, caller.last(t).Query, "symbol")
}

func TestListenKeyLifecycle(t *testing.T) {
	caller := &fakeCaller{body: []byte(`{"listenKey":"pqia91ma19a5s61cv6a81va65sdf19v8a65a1a5s61cv6a81va65sdf19v8a65a1"}`)}
	svc := NewService(caller)

	key, err := svc.CreateListenKey(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, key.Key)
	assert.Equal(t, core.AuthUserStream, caller.last(t).AuthType)

	require.NoError(t, svc.KeepAliveListenKey(context.Background(), key.Key))
	assert.Equal(t, http.MethodPut, caller.last(t).Method)

	require.NoError(t, svc.CloseListenKey(context.Background(), key.Key))
	assert.Equal(t, http.MethodDelete, caller.last(t).Method)
}

func TestKeepAliveListenKeyRequiresKey(t *testing.T) {
	svc := NewService(&fakeCaller{})
	assert.True(t, core.IsValidationError(svc.KeepAliveListenKey(context.Background(), "")))
}
