package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/vault-inventory/internal/model"
	"github.com/vyrodovalexey/vault-inventory/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// DefaultSnapshotInterval is used when no positive interval is configured.
	DefaultSnapshotInterval = 1 * time.Second
)

var wsSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "vault_ws_subscribers",
	Help: "Number of WebSocket clients subscribed to vault snapshots.",
})

// subscriber is one upgraded connection. Only its stream goroutine writes to conn.
type subscriber struct {
	conn   *websocket.Conn
	remote string
	cancel context.CancelFunc
}

func (s *subscriber) sendJSON(v any) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *subscriber) sendControl(messageType int, data []byte) error {
	return s.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// WebSocketHandler pushes vault summaries to subscribers. A snapshot goes out
// on connect and afterwards whenever the summary differs from the last one
// sent; the store is polled every interval.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	store    store.Store
	logger   *zap.Logger
	interval time.Duration

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool
	streams     sync.WaitGroup
}

// NewWebSocketHandler creates a handler polling s every interval.
func NewWebSocketHandler(s store.Store, logger *zap.Logger, interval time.Duration) *WebSocketHandler {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS middleware.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		store:       s,
		logger:      logger,
		interval:    interval,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket)
}

// Subscribers returns the number of connected clients.
func (h *WebSocketHandler) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// HandleWebSocket upgrades the request and streams snapshots until the client
// leaves or CloseAllConnections is called.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn("websocket upgrade rejected",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscriber{conn: conn, remote: r.RemoteAddr, cancel: cancel}
	if !h.subscribe(sub) {
		cancel()
		_ = sub.sendControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	go h.stream(ctx, sub)
	h.drain(sub)
}

func (h *WebSocketHandler) subscribe(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.subscribers[sub] = struct{}{}
	h.streams.Add(1)
	wsSubscribers.Inc()
	h.logger.Info("websocket subscriber joined",
		zap.String("remote_addr", sub.remote),
		zap.Int("subscribers", len(h.subscribers)),
	)
	return true
}

func (h *WebSocketHandler) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		wsSubscribers.Dec()
	}
	remaining := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("websocket subscriber left",
		zap.String("remote_addr", sub.remote),
		zap.Int("subscribers", remaining),
	)
}

// drain consumes inbound frames so control frames get processed. Any read
// error, including a missed pong, ends the subscription.
func (h *WebSocketHandler) drain(sub *subscriber) {
	defer sub.cancel()

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed",
					zap.String("remote_addr", sub.remote),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func (h *WebSocketHandler) stream(ctx context.Context, sub *subscriber) {
	poll := time.NewTicker(h.interval)
	keepalive := time.NewTicker(pingPeriod)
	defer func() {
		poll.Stop()
		keepalive.Stop()
		_ = sub.conn.Close()
		h.unsubscribe(sub)
		h.streams.Done()
	}()

	var last *model.VaultSummary
	publish := func() error {
		summary, err := h.store.Summary(ctx)
		if err != nil {
			return err
		}
		if last != nil && *last == summary {
			return nil
		}
		if err := sub.sendJSON(model.NewSnapshotMessage(summary)); err != nil {
			return err
		}
		last = &summary
		return nil
	}

	if err := publish(); err != nil {
		h.endStream(ctx, sub, err)
		return
	}
	for {
		var err error
		select {
		case <-ctx.Done():
			h.endStream(ctx, sub, ctx.Err())
			return
		case <-poll.C:
			err = publish()
		case <-keepalive.C:
			err = sub.sendControl(websocket.PingMessage, nil)
		}
		if err != nil {
			h.endStream(ctx, sub, err)
			return
		}
	}
}

// endStream says goodbye when the server is the one leaving. Any other
// failure gets an error frame and close 1011, which fail quietly when the
// connection itself is what broke.
func (h *WebSocketHandler) endStream(ctx context.Context, sub *subscriber, cause error) {
	if ctx.Err() != nil || errors.Is(cause, context.Canceled) {
		_ = sub.sendControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription ended"))
		return
	}
	h.logger.Warn("websocket stream stopped",
		zap.String("remote_addr", sub.remote),
		zap.Error(cause),
	)
	if err := sub.sendJSON(model.NewErrorMessage("vault snapshot unavailable")); err != nil {
		return
	}
	_ = sub.sendControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "snapshot failed"))
}

// CloseAllConnections stops accepting subscribers, says goodbye to the
// current ones and waits up to writeWait for their streams to finish.
func (h *WebSocketHandler) CloseAllConnections() {
	count := h.Subscribers()

	h.mu.Lock()
	h.closed = true
	for sub := range h.subscribers {
		sub.cancel()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.streams.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("websocket subscribers closed", zap.Int("count", count))
	case <-time.After(writeWait):
		h.logger.Warn("websocket subscribers did not close in time", zap.Int("count", count))
	}
}
