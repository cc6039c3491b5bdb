// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package websocket implements the live-session sync channel: a hub holding
// every connected browser session and pushing document change notifications
// to them.
//
// Delivery is fire-and-forget per session. A session whose send buffer is
// full is dropped; its failure never affects delivery to other sessions and
// never reaches the write path.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/planvault/planvault/internal/logging"
	"github.com/planvault/planvault/internal/metrics"
)

// Message types for the sync protocol.
const (
	MessageTypeSessionEstablished = "session_established"
	MessageTypeModuleUpdated      = "module_updated"
	MessageTypeModulesUpdated     = "modules_updated"
	MessageTypeDataReloaded       = "data_reloaded"
	MessageTypeResetComplete      = "reset_complete"
	MessageTypePing               = "ping"
	MessageTypePong               = "pong"
)

// Message is one WebSocket frame payload.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// envelope pairs a message with an optional excluded origin session.
type envelope struct {
	message Message

	// excludeSession is skipped during delivery. The originating session
	// already holds the new value; echoing it back would be redundant.
	excludeSession string
}

// Hub maintains the set of live sessions and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub event loop until the context is canceled.
// On shutdown all session connections are closed and ctx.Err() is returned,
// so a supervisor can restart the hub without leaking connections.
//
// Selection is priority-ordered (shutdown, then lifecycle, then broadcast)
// so session state is always settled before messages are delivered.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.register(client)

		case client := <-h.Unregister:
			h.unregister(client)

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSActiveSessions.Set(float64(total))
	logging.Info().
		Str("session_id", client.SessionID).
		Int("total_sessions", total).
		Msg("Session connected")

	// Tell the session its ID so it can mark its own writes as origin.
	welcome := Message{
		Type: MessageTypeSessionEstablished,
		Data: map[string]any{"sessionId": client.SessionID},
	}
	select {
	case client.send <- welcome:
	default:
	}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSActiveSessions.Set(float64(total))
	logging.Info().
		Str("session_id", client.SessionID).
		Int("total_sessions", total).
		Msg("Session disconnected")
}

// deliver sends an envelope to every session except the excluded one,
// in ascending client-ID order for reproducible delivery.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		if env.excludeSession != "" && client.SessionID == env.excludeSession {
			continue
		}
		select {
		case client.send <- env.message:
		default:
			// Buffer full: the session is too slow or gone.
			metrics.WSDroppedMessages.Inc()
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WSActiveSessions.Set(float64(len(h.clients)))
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WSActiveSessions.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		AnErr("reason", ctx.Err()).
		Int("sessions_closed", len(clients)).
		Msg("Hub stopped")
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) enqueue(env envelope) {
	select {
	case h.broadcast <- env:
		metrics.WSBroadcastsTotal.WithLabelValues(env.message.Type).Inc()
	default:
		logging.Warn().
			Str("message_type", env.message.Type).
			Msg("Broadcast channel full, dropping message")
	}
}

// ModuleUpdated notifies every session except the origin that one module
// changed. Implements the store's Broadcaster contract.
func (h *Hub) ModuleUpdated(name string, data any, updatedBy, originSession string) {
	h.enqueue(envelope{
		message: Message{
			Type: MessageTypeModuleUpdated,
			Data: map[string]any{
				"moduleName": name,
				"data":       data,
				"updatedBy":  updatedBy,
				"timestamp":  time.Now().UTC().Format(time.RFC3339),
			},
		},
		excludeSession: originSession,
	})
}

// BulkUpdated notifies every session except the origin that several modules
// changed in one write. Values are not echoed; sessions refetch the modules
// they render.
func (h *Hub) BulkUpdated(names []string, updatedBy, originSession string) {
	h.enqueue(envelope{
		message: Message{
			Type: MessageTypeModulesUpdated,
			Data: map[string]any{
				"modules":   names,
				"updatedBy": updatedBy,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		},
		excludeSession: originSession,
	})
}

// ReloadRequired tells every session its cached view is stale. No exclusion:
// after an externally-triggered reload no session is the origin.
func (h *Hub) ReloadRequired() {
	h.enqueue(envelope{
		message: Message{
			Type: MessageTypeDataReloaded,
			Data: map[string]any{
				"message":   "Data was updated outside this session, please refresh",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		},
	})
}

// ResetComplete tells every session, including the origin, that the document
// was reset to defaults.
func (h *Hub) ResetComplete(updatedBy string) {
	h.enqueue(envelope{
		message: Message{
			Type: MessageTypeResetComplete,
			Data: map[string]any{
				"updatedBy": updatedBy,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			},
		},
	})
}
