// Package transport provides the websocket connection to the off-chain
// payment network. It owns request/response correlation at the wire level:
// responses are routed back to their caller by request ID, and everything
// that matches no pending request surfaces on the event channel as an
// unsolicited notification.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/statewire/walletcore/pkg/log"
	"github.com/statewire/walletcore/pkg/wire"
)

// Sentinel errors returned by the dialer.
var (
	ErrAlreadyConnected  = fmt.Errorf("already connected")
	ErrNotConnected      = fmt.Errorf("not connected")
	ErrConnectionTimeout = fmt.Errorf("websocket connection timeout")
	ErrReadingMessage    = fmt.Errorf("error reading message")
	ErrNilRequest        = fmt.Errorf("nil request")
	ErrMarshalingRequest = fmt.Errorf("error marshaling request")
	ErrSendingRequest    = fmt.Errorf("error sending request")
	ErrNoResponse        = fmt.Errorf("no response received")
	ErrSendingPing       = fmt.Errorf("error sending ping")
	ErrDialingWebsocket  = fmt.Errorf("error dialing websocket server")
)

// Dialer is the connection-level interface the off-chain provider builds on.
type Dialer interface {
	// Dial connects to url and returns once the connection is up; the
	// connection then lives in the background. handleClosure fires once
	// on close, with the first error encountered, if any.
	Dial(ctx context.Context, url string, handleClosure func(err error)) error

	// IsConnected reports whether an active connection exists.
	IsConnected() bool

	// Call sends a request and waits for the response correlated to its
	// request ID. The context bounds the wait.
	Call(ctx context.Context, req *wire.Request) (*wire.Response, error)

	// EventCh delivers responses that match no pending request ID —
	// unsolicited notifications pushed by the network.
	EventCh() <-chan *wire.Response
}

// WSDialerConfig configures the websocket dialer.
type WSDialerConfig struct {
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration

	// PingInterval is how often keepalive pings are sent.
	PingInterval time.Duration

	// PingMethod and PongMethod name the keepalive request and its reply.
	PingMethod string
	PongMethod string

	// PingRequestID is a reserved ID that regular requests never use.
	PingRequestID uint64

	// EventChanSize buffers the unsolicited event channel.
	EventChanSize int
}

// DefaultWSDialerConfig provides sensible defaults.
var DefaultWSDialerConfig = WSDialerConfig{
	HandshakeTimeout: 5 * time.Second,
	PingInterval:     5 * time.Second,
	PingMethod:       "ping",
	PongMethod:       "pong",
	PingRequestID:    100,
	EventChanSize:    100,
}

// dialCtx holds the per-connection resources.
type dialCtx struct {
	ctx  context.Context
	conn *websocket.Conn
	lg   log.Logger
}

// WSDialer implements Dialer over a gorilla websocket connection.
// It is safe for concurrent use; writes are serialized and responses are
// demultiplexed by request ID.
type WSDialer struct {
	cfg           WSDialerConfig
	dialCtx       *dialCtx
	eventCh       chan *wire.Response
	responseSinks map[uint64]chan *wire.Response
	mu            sync.RWMutex // protects dialCtx and responseSinks
	writeMu       sync.Mutex   // serializes websocket writes
}

var _ Dialer = (*WSDialer)(nil)

// NewWSDialer creates a dialer with the given configuration.
func NewWSDialer(cfg WSDialerConfig) *WSDialer {
	return &WSDialer{
		cfg:           cfg,
		eventCh:       make(chan *wire.Response, cfg.EventChanSize),
		responseSinks: make(map[uint64]chan *wire.Response),
	}
}

// Dial connects to url and returns once the handshake completes.
// Three goroutines run per connection: one closing on context
// cancellation, one reading and routing messages, one pinging.
func (d *WSDialer) Dial(parentCtx context.Context, url string, handleClosure func(err error)) error {
	if d.IsConnected() {
		return ErrAlreadyConnected
	}

	wsDialer := websocket.Dialer{
		HandshakeTimeout:  d.cfg.HandshakeTimeout,
		EnableCompression: true,
	}

	conn, _, err := wsDialer.DialContext(parentCtx, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDialingWebsocket, err)
	}

	childCtx, cancel := context.WithCancel(parentCtx)
	wg := sync.WaitGroup{}
	wg.Add(3)

	var closureErr error
	var closureErrMu sync.Mutex
	childHandleClosure := func(err error) {
		closureErrMu.Lock()
		defer closureErrMu.Unlock()

		// Keep the first error only.
		if err != nil && closureErr == nil {
			closureErr = err
		}

		cancel()
		wg.Done()
	}

	d.mu.Lock()
	d.dialCtx = &dialCtx{
		ctx:  childCtx,
		conn: conn,
		lg:   log.FromContext(parentCtx).Named("ws-dialer"),
	}
	d.eventCh = make(chan *wire.Response, d.cfg.EventChanSize)
	d.mu.Unlock()

	go d.closeOnContextDone(childCtx, childHandleClosure)
	go d.readMessages(childCtx, childHandleClosure)
	go d.pingPeriodically(childCtx, childHandleClosure)

	go func() {
		wg.Wait()

		closureErrMu.Lock()
		defer closureErrMu.Unlock()

		handleClosure(closureErr)
	}()

	return nil
}

// IsConnected reports whether an active connection exists.
func (d *WSDialer) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.dialCtx != nil && d.dialCtx.ctx.Err() == nil
}

func (d *WSDialer) closeOnContextDone(ctx context.Context, handleClosure func(err error)) {
	<-ctx.Done()

	d.mu.RLock()
	conn := d.dialCtx.conn
	d.mu.RUnlock()

	err := conn.Close()

	// Close pending sinks so waiting callers unblock.
	d.mu.Lock()
	for _, sink := range d.responseSinks {
		close(sink)
	}
	d.responseSinks = make(map[uint64]chan *wire.Response)
	d.mu.Unlock()

	handleClosure(err)
}

// readMessages reads from the connection and routes each response either
// to the sink registered for its request ID or to the event channel.
func (d *WSDialer) readMessages(ctx context.Context, handleClosure func(err error)) {
	d.mu.RLock()
	conn := d.dialCtx.conn
	lg := d.dialCtx.lg
	d.mu.RUnlock()

	for {
		_, messageBytes, err := conn.ReadMessage()
		if ctx.Err() != nil {
			handleClosure(nil)
			lg.Info("websocket read loop exiting, context done")
			return
		} else if _, ok := err.(net.Error); ok {
			handleClosure(fmt.Errorf("%w: %w", ErrConnectionTimeout, err))
			lg.Error("websocket connection timeout", "error", err)
			return
		} else if err != nil {
			handleClosure(fmt.Errorf("%w: %w", ErrReadingMessage, err))
			lg.Error("websocket read error", "error", err)
			return
		}

		var msg wire.Response
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			lg.Warn("malformed message", "message", string(messageBytes), "error", err)
			continue
		}

		d.mu.Lock()
		responseSink, exists := d.responseSinks[msg.Res.RequestID]
		d.mu.Unlock()

		if !exists {
			// No pending request with this ID: unsolicited notification.
			responseSink = d.eventCh
		}

		select {
		case <-ctx.Done():
			handleClosure(nil)
			return
		case responseSink <- &msg:
		default:
			lg.Warn("response channel full, dropping message", "requestID", msg.Res.RequestID)
		}
	}
}

// Call sends req and waits for the response carrying the same request ID.
// Completion order across concurrent calls is unrelated to send order.
func (d *WSDialer) Call(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	// Register the sink atomically with the connectivity check so a
	// response arriving immediately still finds it.
	d.mu.Lock()
	if d.dialCtx == nil || d.dialCtx.ctx.Err() != nil {
		d.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := d.dialCtx.conn
	connCtx := d.dialCtx.ctx
	responseSink := make(chan *wire.Response, 1)
	d.responseSinks[req.Req.RequestID] = responseSink
	d.mu.Unlock()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarshalingRequest, err)
	}

	d.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, reqJSON)
	d.writeMu.Unlock()

	if err != nil {
		d.mu.Lock()
		delete(d.responseSinks, req.Req.RequestID)
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrSendingRequest, err)
	}

	var res *wire.Response
	select {
	case <-ctx.Done():
	case <-connCtx.Done():
	case res = <-responseSink:
	}

	d.mu.Lock()
	delete(d.responseSinks, req.Req.RequestID)
	d.mu.Unlock()

	if res == nil {
		return nil, fmt.Errorf("%w for request %d", ErrNoResponse, req.Req.RequestID)
	}
	return res, nil
}

func (d *WSDialer) pingPeriodically(ctx context.Context, handleClosure func(err error)) {
	d.mu.RLock()
	lg := d.dialCtx.lg
	d.mu.RUnlock()

	ticker := time.NewTicker(d.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			handleClosure(nil)
			lg.Info("ping loop exiting, context done")
			return
		case <-ticker.C:
			req := wire.NewRequest(wire.NewPayload(d.cfg.PingRequestID, d.cfg.PingMethod, nil))

			res, err := d.Call(ctx, &req)
			if err != nil {
				handleClosure(fmt.Errorf("%w: %w", ErrSendingPing, err))
				lg.Error("error sending ping", "error", err)
				return
			}

			if res.Res.Method != d.cfg.PongMethod {
				lg.Warn("unexpected response to ping", "method", res.Res.Method)
			}
		}
	}
}

// EventCh returns the unsolicited notification channel for the current
// connection.
func (d *WSDialer) EventCh() <-chan *wire.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.eventCh
}
