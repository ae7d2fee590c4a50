// Package push maintains the long-lived connection to the real-time
// endpoint and dispatches its event categories to registered handlers.
//
// Each category has a single subscriber slot: registering a handler replaces
// the previous one. That is a deliberate contract, not an accident; callers
// needing fan-out should multiplex in their own handler.
package push

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"ripple/internal/models"
	"ripple/internal/observability"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20
)

// Event category names on the wire.
const (
	EventFeedUpdate    = "feed_update"
	EventCommentUpdate = "comment_update"
	EventLikeUpdate    = "like_update"
)

// envelope is the wire frame for every push message.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Options configures the adapter's endpoint and reconnect policy.
type Options struct {
	URL string
	// ReconnectDelay is the initial backoff; doubled per attempt up to
	// ReconnectDelayMax, for at most ReconnectAttempts attempts.
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	ReconnectAttempts int
	Logger            *observability.Logger
}

// Adapter owns one websocket connection to the push endpoint.
type Adapter struct {
	opts   Options
	logger *observability.Logger

	mu           sync.RWMutex
	onFeed       func(models.FeedUpdate)
	onComment    func(models.CommentUpdate)
	onLike       func(models.LikeUpdate)
	onConnect    func()
	onDisconnect func()

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAdapter builds an adapter; Start must be called to connect.
func NewAdapter(opts Options) *Adapter {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.ReconnectDelayMax < opts.ReconnectDelay {
		opts.ReconnectDelayMax = 5 * time.Second
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = 5
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.GlobalLogger
	}
	return &Adapter{
		opts:   opts,
		logger: logger.WithComponent("push"),
	}
}

// OnFeedUpdate registers the feed-update handler, replacing any previous one.
func (a *Adapter) OnFeedUpdate(fn func(models.FeedUpdate)) {
	a.mu.Lock()
	a.onFeed = fn
	a.mu.Unlock()
}

// OnCommentUpdate registers the comment-update handler, replacing any previous one.
func (a *Adapter) OnCommentUpdate(fn func(models.CommentUpdate)) {
	a.mu.Lock()
	a.onComment = fn
	a.mu.Unlock()
}

// OnLikeUpdate registers the like-update handler, replacing any previous one.
func (a *Adapter) OnLikeUpdate(fn func(models.LikeUpdate)) {
	a.mu.Lock()
	a.onLike = fn
	a.mu.Unlock()
}

// OnConnect registers a callback fired after each successful (re)connect.
// Callers typically trigger a full re-fetch here, since deltas missed during
// a disconnect window are otherwise lost.
func (a *Adapter) OnConnect(fn func()) {
	a.mu.Lock()
	a.onConnect = fn
	a.mu.Unlock()
}

// OnDisconnect registers a callback fired when the connection drops.
func (a *Adapter) OnDisconnect(fn func()) {
	a.mu.Lock()
	a.onDisconnect = fn
	a.mu.Unlock()
}

// Start connects and keeps the connection alive in the background until the
// context is cancelled, Close is called, or reconnect attempts run out.
func (a *Adapter) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go func() {
		defer close(done)
		a.run(ctx)
	}()
}

// Close tears the connection down and stops reconnecting.
func (a *Adapter) Close() {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (a *Adapter) run(ctx context.Context) {
	delay := a.opts.ReconnectDelay
	attempts := 0

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.opts.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempts++
			if attempts > a.opts.ReconnectAttempts {
				a.logger.Error("push channel gave up reconnecting", "attempts", attempts-1)
				return
			}
			a.logger.Warn("push channel dial failed", "error", err.Error(), "retry_in", delay.String())
			if !sleepCtx(ctx, delay) {
				return
			}
			delay *= 2
			if delay > a.opts.ReconnectDelayMax {
				delay = a.opts.ReconnectDelayMax
			}
			continue
		}

		// Connected: reset the backoff window
		attempts = 0
		delay = a.opts.ReconnectDelay
		a.logger.Info("push channel connected", "url", a.opts.URL)
		a.mu.RLock()
		onConnect, onDisconnect := a.onConnect, a.onDisconnect
		a.mu.RUnlock()
		if onConnect != nil {
			onConnect()
		}

		a.readPump(ctx, conn)

		if onDisconnect != nil {
			onDisconnect()
		}
		if ctx.Err() != nil {
			return
		}
		a.logger.Warn("push channel disconnected")
	}
}

// readPump pumps messages from the websocket connection to the handlers.
func (a *Adapter) readPump(ctx context.Context, conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go pingLoop(conn, stopPing)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stopPing:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		a.dispatch(message)
	}
}

func pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (a *Adapter) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		a.logger.Warn("push channel dropped malformed frame", "error", err.Error())
		return
	}

	a.mu.RLock()
	onFeed, onComment, onLike := a.onFeed, a.onComment, a.onLike
	a.mu.RUnlock()

	switch env.Event {
	case EventFeedUpdate:
		var update models.FeedUpdate
		if err := json.Unmarshal(env.Data, &update); err != nil {
			a.logger.Warn("bad feed_update payload", "error", err.Error())
			return
		}
		if onFeed != nil {
			onFeed(update)
		}
	case EventCommentUpdate:
		var update models.CommentUpdate
		if err := json.Unmarshal(env.Data, &update); err != nil {
			a.logger.Warn("bad comment_update payload", "error", err.Error())
			return
		}
		if onComment != nil {
			onComment(update)
		}
	case EventLikeUpdate:
		var update models.LikeUpdate
		if err := json.Unmarshal(env.Data, &update); err != nil {
			a.logger.Warn("bad like_update payload", "error", err.Error())
			return
		}
		if onLike != nil {
			onLike(update)
		}
	default:
		// Unknown categories are ignored so the server can add new ones
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
