package ws

import (
	"context"
	"errors"

	"github.com/lxzan/gws"
)

// CloseNormal is the close code sent on a locally initiated shutdown.
const CloseNormal = 1000

// CloseAbnormal is the code reported when a connection drops without a
// close frame.
const CloseAbnormal = 1006

// Socket is the transport a Conn drives. Production code uses the gws
// adapter; tests substitute a fake.
type Socket interface {
	// Send writes a text frame.
	Send(data []byte) error
	// Ping writes a ping frame.
	Ping(payload []byte) error
	// Close writes a close frame with the given code and reason.
	Close(code int, reason []byte) error
	// Terminate tears the connection down without a close handshake.
	Terminate() error
}

// Callbacks receive inbound events from a Socket. All callbacks are
// optional.
type Callbacks struct {
	OnMessage func(data []byte)
	OnPong    func(payload []byte)
	OnClose   func(code int, reason string)
}

// Dialer opens a Socket to the given URL, delivering events to cb
// until the socket closes.
type Dialer func(ctx context.Context, url string, cb Callbacks) (Socket, error)

type gwsSocket struct {
	conn *gws.Conn
}

func (s *gwsSocket) Send(data []byte) error {
	return s.conn.WriteMessage(gws.OpcodeText, data)
}

func (s *gwsSocket) Ping(payload []byte) error {
	return s.conn.WritePing(payload)
}

func (s *gwsSocket) Close(code int, reason []byte) error {
	return s.conn.WriteClose(uint16(code), reason)
}

func (s *gwsSocket) Terminate() error {
	return s.conn.NetConn().Close()
}

type gwsHandler struct {
	cb Callbacks
}

func (h *gwsHandler) OnOpen(socket *gws.Conn) {}

func (h *gwsHandler) OnClose(socket *gws.Conn, err error) {
	code, reason := CloseAbnormal, ""
	var closeErr *gws.CloseError
	if errors.As(err, &closeErr) {
		code = int(closeErr.Code)
		reason = string(closeErr.Reason)
	}
	if h.cb.OnClose != nil {
		h.cb.OnClose(code, reason)
	}
}

func (h *gwsHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (h *gwsHandler) OnPong(socket *gws.Conn, payload []byte) {
	if h.cb.OnPong != nil {
		h.cb.OnPong(payload)
	}
}

func (h *gwsHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	if h.cb.OnMessage != nil {
		h.cb.OnMessage(message.Bytes())
	}
}

// GWSDial is the production Dialer backed by lxzan/gws. The read loop
// runs on its own goroutine and drives the callbacks until the
// connection closes.
func GWSDial(ctx context.Context, url string, cb Callbacks) (Socket, error) {
	handler := &gwsHandler{cb: cb}
	conn, _, err := gws.NewClient(handler, &gws.ClientOption{Addr: url})
	if err != nil {
		return nil, err
	}
	go conn.ReadLoop()

	select {
	case <-ctx.Done():
		_ = conn.NetConn().Close()
		return nil, ctx.Err()
	default:
	}
	return &gwsSocket{conn: conn}, nil
}
