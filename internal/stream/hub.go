// Package stream fans executed trades out to live subscribers. The hub
// serves a websocket feed for external consumers and channel
// subscriptions for in-process ones. Publishing never blocks the trade
// path: slow subscribers drop events instead of applying backpressure.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"token-launch-lab/internal/domain"
)

// HubConfig configures subscriber buffering and websocket timeouts.
type HubConfig struct {
	// SubscriberBuffer is the per-subscriber event queue depth. Events
	// beyond it are dropped for that subscriber.
	SubscriberBuffer int
	// WriteTimeout is the timeout for writing a frame to a websocket.
	WriteTimeout time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SubscriberBuffer: 64,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// TradeEvent is the wire form of one executed trade. Amounts are
// decimal strings since uint256 values exceed JSON-safe integers.
type TradeEvent struct {
	TradeID        string `json:"trade_id"`
	TokenID        string `json:"token_id"`
	Trader         string `json:"trader"`
	Side           string `json:"side"`
	GrossInput     string `json:"gross_input"`
	Fee            string `json:"fee"`
	Output         string `json:"output"`
	PriceAfter     string `json:"price_after"`
	Timestamp      int64  `json:"timestamp"`
	SequenceNumber uint64 `json:"sequence_number"`
}

func eventFromTrade(t *domain.Trade) TradeEvent {
	return TradeEvent{
		TradeID:        t.ID,
		TokenID:        t.TokenID,
		Trader:         t.Trader,
		Side:           string(t.Side),
		GrossInput:     t.GrossInputAmount.Dec(),
		Fee:            t.FeeAmount.Dec(),
		Output:         t.OutputAmount.Dec(),
		PriceAfter:     t.PriceAfter.Dec(),
		Timestamp:      t.Timestamp,
		SequenceNumber: t.SequenceNumber,
	}
}

type subscriber struct {
	events chan TradeEvent
	// tokenID filters the feed; empty subscribes to every token.
	tokenID string
}

// Hub broadcasts trade events. Safe for concurrent use.
type Hub struct {
	config HubConfig
	logger *log.Logger

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool

	upgrader websocket.Upgrader
}

// NewHub creates a hub.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		config: cfg,
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Publish fans a trade out to matching subscribers. Never blocks.
func (h *Hub) Publish(trade *domain.Trade) {
	event := eventFromTrade(trade)

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.tokenID != "" && sub.tokenID != trade.TokenID {
			continue
		}
		select {
		case sub.events <- event:
		default:
			// Subscriber is not keeping up; drop rather than stall
			// the trade path.
		}
	}
}

// Subscribe registers an in-process consumer. tokenID filters to one
// token; pass "" for the full feed. The returned cancel func must be
// called to release the subscription.
func (h *Hub) Subscribe(tokenID string) (<-chan TradeEvent, func()) {
	sub := &subscriber{
		events:  make(chan TradeEvent, h.config.SubscriberBuffer),
		tokenID: tokenID,
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[sub]; ok {
			delete(h.subs, sub)
			close(sub.events)
		}
		h.mu.Unlock()
	}
	return sub.events, cancel
}

// Close drops all subscribers. Publish becomes a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.events)
	}
}

// ServeWS upgrades the request and streams trade events to the client
// until it disconnects. The optional ?token_id= query filters the feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(r.URL.Query().Get("token_id"))
	defer cancel()

	// Reader goroutine: discard inbound frames, detect disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Printf("Marshal trade event: %v", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
