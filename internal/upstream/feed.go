package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dinepos/kds/internal/kitchen"
)

const (
	// Time allowed to write a control message to the peer
	feedWriteWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	feedPongWait = 60 * time.Second

	// Send pings with this period (must be less than feedPongWait)
	feedPingPeriod = (feedPongWait * 9) / 10

	defaultMaxRetries = 10
	defaultRetryDelay = time.Second
)

// EventHandler receives feed lifecycle callbacks. OnConnected fires on every
// successful (re)connect, before any incremental event, so the handler can
// resync full state. OnConnectionError fires only once the retry budget for
// a disconnect is exhausted.
type EventHandler interface {
	OnConnected(ctx context.Context)
	OnOrderEvent(evt kitchen.OrderEvent)
	OnConnectionError(err error)
}

// FeedClient maintains one logical subscription to the order service's
// websocket event feed, reconnecting with a bounded retry budget after
// transport failures.
type FeedClient struct {
	url     string
	handler EventHandler
	dialer  *websocket.Dialer

	maxRetries int
	retryDelay time.Duration
}

// NewFeedClient creates a feed client for the given websocket URL.
func NewFeedClient(url string, handler EventHandler) *FeedClient {
	return &FeedClient{
		url:        url,
		handler:    handler,
		dialer:     websocket.DefaultDialer,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// Run connects and consumes the feed until ctx is cancelled. Individual
// connect failures are logged and retried; only persistent failure after
// the retry budget is reported through OnConnectionError, ending the run.
func (f *FeedClient) Run(ctx context.Context) {
	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, resp, err := f.dialer.DialContext(ctx, f.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			attempts++
			log.Printf("order feed connect failed (attempt %d/%d): %v", attempts, f.maxRetries, err)
			if attempts >= f.maxRetries {
				f.handler.OnConnectionError(fmt.Errorf("order feed unreachable after %d attempts: %w", attempts, err))
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.retryDelay):
			}
			continue
		}

		attempts = 0
		f.handler.OnConnected(ctx)
		f.consume(ctx, conn)
	}
}

// consume reads events off one connection until it fails or ctx ends.
func (f *FeedClient) consume(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return nil
	})

	// Ping loop; also closes the connection when ctx is cancelled so the
	// read below unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(feedPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("order feed disconnected: %v", err)
			}
			return
		}

		var evt kitchen.OrderEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			log.Printf("order feed: malformed event: %v", err)
			continue
		}
		f.handler.OnOrderEvent(evt)
	}
}
