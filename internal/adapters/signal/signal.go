package signal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/relay/internal/app/orch"
	"github.com/dkeye/relay/internal/config"
	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrConnClosed = errors.New("connection closed")

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	WriteControl(mt int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	RemoteAddr() net.Addr
	Close() error
}

// WsSignalConn is the outbound sink of one connection.
// It implements core.SignalConnection.
type WsSignalConn struct {
	conn      WSConn
	writeWait time.Duration

	mu     sync.Mutex
	closed atomic.Bool
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

func NewWsSignalConn(conn WSConn, writeWait time.Duration) *WsSignalConn {
	return &WsSignalConn{conn: conn, writeWait: writeWait}
}

// Send writes f as a text frame. Writers are serialized; a slow peer blocks
// the caller until the write completes, fails, or write_wait expires.
func (c *WsSignalConn) Send(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return ErrConnClosed
	}
	if c.writeWait > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, f)
}

// Ping may run concurrently with Send.
func (c *WsSignalConn) Ping(deadline time.Time) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

// Close does not wait for an in-flight Send.
func (c *WsSignalConn) Close() {
	if c.closed.Swap(true) {
		return
	}
	_ = c.conn.Close()
}

type SignalWSController struct {
	Orch *orch.Orchestrator

	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch: o,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleSignal promotes the request to a WebSocket and starts its lifecycle.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sid := domain.NewConnID()
	log.Info().
		Str("module", "signal").
		Str("sid", string(sid)).
		Str("client", c.GetString("client_token")).
		Msg("new WS connection")

	go ctl.Serve(ctx, sid, NewWsSignalConn(ws, ctl.cfg.WriteWait))
}

// Serve runs one connection from Open to Closed and returns once the
// connection has been removed from the relay.
func (ctl *SignalWSController) Serve(ctx context.Context, sid domain.ConnID, c *WsSignalConn) {
	if ctl.cfg.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	}
	if ctl.cfg.PingPeriod > 0 && ctl.cfg.PongWait > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
		})
	}

	ctl.Orch.Registry.Register(sid, c)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("remote", c.conn.RemoteAddr().String()).Msg("connection open")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ctl.keepalive(ctx, sid, c)
	ctl.readPump(ctx, sid, c)
}
