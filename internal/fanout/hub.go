// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fanout is the dashboard-facing surface of the controller: a
// synchronous JSON API plus a WebSocket hub that pushes container,
// scene, privacy and log updates to every connected subscriber.
package fanout

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/metrics"
)

const (
	// subscriberBuffer is the outbound queue per subscriber. A client
	// that falls this far behind is disconnected rather than allowed
	// to stall the broadcast path.
	subscriberBuffer = 32

	writeTimeout = 5 * time.Second
)

// subscriber is one connected WebSocket client. Its send channel is
// drained by a dedicated writer goroutine; the hub closes the channel
// exactly once when the subscriber is dropped.
type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, subscriberBuffer),
	}
}

// Hub owns the subscriber set and the per-service log subscriptions.
// Broadcasts never block: enqueueing is a non-blocking send and a full
// queue drops the subscriber everywhere.
type Hub struct {
	logger zerolog.Logger

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	logSubs map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		logger:  log.WithComponent("fanout"),
		subs:    make(map[*subscriber]struct{}),
		logSubs: make(map[string]map[*subscriber]struct{}),
	}
}

// register adds the subscriber and enqueues its initial snapshot in the
// same critical section, so no broadcast can be ordered ahead of it.
func (h *Hub) register(sub *subscriber, initial []byte) {
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	// A fresh channel always has room for the snapshot.
	sub.send <- initial
	h.mu.Unlock()

	metrics.IncWSClients()
	metrics.IncWSMessage(msgInitialState)
	go h.writer(sub)

	h.logger.Debug().
		Str(log.FieldSubscriberID, sub.id).
		Str("event", "fanout.subscribed").
		Msg("subscriber registered")
}

// drop removes the subscriber from every set and closes its queue.
// Safe to call from any goroutine, any number of times.
func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	h.dropLocked(sub)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	for svc, set := range h.logSubs {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.logSubs, svc)
		}
	}
	close(sub.send)
	metrics.DecWSClients()

	h.logger.Debug().
		Str(log.FieldSubscriberID, sub.id).
		Str("event", "fanout.unsubscribed").
		Msg("subscriber removed")
}

// writer drains one subscriber's queue onto the wire. It exits when the
// queue is closed or a write fails, and closes the connection either
// way so the read loop unblocks.
func (h *Hub) writer(sub *subscriber) {
	defer func() {
		_ = sub.conn.Close(websocket.StatusNormalClosure, "")
	}()
	for data := range sub.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := sub.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.Debug().
				Str(log.FieldSubscriberID, sub.id).
				Err(err).
				Msg("subscriber write failed")
			metrics.IncWSSendFailure()
			h.drop(sub)
			return
		}
	}
}

func (h *Hub) enqueueLocked(sub *subscriber, data []byte) {
	select {
	case sub.send <- data:
	default:
		h.logger.Warn().
			Str(log.FieldSubscriberID, sub.id).
			Str("event", "fanout.slow_subscriber").
			Msg("subscriber queue full, disconnecting")
		metrics.IncWSSendFailure()
		h.dropLocked(sub)
	}
}

// Broadcast fans a message out to every subscriber.
func (h *Hub) Broadcast(msgType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("marshal broadcast")
		return
	}

	h.mu.Lock()
	for sub := range h.subs {
		h.enqueueLocked(sub, data)
	}
	h.mu.Unlock()

	metrics.IncWSMessage(msgType)
}

// BroadcastLogs fans a message out to the subscribers of one service's
// log stream.
func (h *Hub) BroadcastLogs(service, msgType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("marshal log broadcast")
		return
	}

	h.mu.Lock()
	for sub := range h.logSubs[service] {
		h.enqueueLocked(sub, data)
	}
	h.mu.Unlock()

	metrics.IncWSMessage(msgType)
}

// sendTo enqueues a message for a single subscriber.
func (h *Hub) sendTo(sub *subscriber, msgType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("marshal message")
		return
	}

	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		h.enqueueLocked(sub, data)
	}
	h.mu.Unlock()

	metrics.IncWSMessage(msgType)
}

func (h *Hub) subscribeLogs(sub *subscriber, service string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	set, ok := h.logSubs[service]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.logSubs[service] = set
	}
	set[sub] = struct{}{}
}

func (h *Hub) unsubscribeLogs(sub *subscriber, service string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.logSubs[service]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.logSubs, service)
	}
}

// LogServices lists the services that currently have at least one log
// subscriber, in stable order.
func (h *Hub) LogServices() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.logSubs))
	for svc := range h.logSubs {
		out = append(out, svc)
	}
	sort.Strings(out)
	return out
}

// SubscriberCount reports the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
