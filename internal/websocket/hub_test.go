// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/planvault/planvault/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// setupHub creates and starts a hub, stopping it on test cleanup.
func setupHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		//nolint:errcheck // returns ctx.Err on shutdown
		hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	time.Sleep(10 * time.Millisecond)
	return hub
}

// createTestClient creates a client without a live connection.
func createTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		id:        clientIDCounter.Add(1),
		hub:       hub,
		send:      make(chan Message, 256),
		SessionID: sessionID,
	}
}

func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

// drainWelcome consumes the session_established message sent on register.
func drainWelcome(t *testing.T, client *Client) {
	t.Helper()
	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeSessionEstablished {
			t.Fatalf("first message type = %q, want %q", msg.Type, MessageTypeSessionEstablished)
		}
	case <-time.After(time.Second):
		t.Fatal("no session_established message received")
	}
}

func collectMessages(client *Client, window time.Duration) []Message {
	var messages []Message
	deadline := time.After(window)
	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				return messages
			}
			messages = append(messages, msg)
		case <-deadline:
			return messages
		}
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil || hub.broadcast == nil || hub.Register == nil || hub.Unregister == nil {
		t.Error("hub channels not initialized")
	}
	if hub.SessionCount() != 0 {
		t.Errorf("SessionCount = %d, want 0", hub.SessionCount())
	}
}

func TestRegisterSendsSessionEstablished(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub, "sess-1")

	registerClient(hub, client)

	if hub.SessionCount() != 1 {
		t.Errorf("SessionCount = %d, want 1", hub.SessionCount())
	}

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeSessionEstablished {
			t.Fatalf("message type = %q", msg.Type)
		}
		data := msg.Data.(map[string]any)
		if data["sessionId"] != "sess-1" {
			t.Errorf("sessionId = %v, want sess-1", data["sessionId"])
		}
	case <-time.After(time.Second):
		t.Fatal("no welcome message")
	}
}

func TestUnregister(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub, "sess-1")
	registerClient(hub, client)

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)

	if hub.SessionCount() != 0 {
		t.Errorf("SessionCount = %d, want 0", hub.SessionCount())
	}
	// The send channel is closed on unregister.
	if _, ok := <-client.send; ok {
		// First receive may be the welcome; drain until close.
		for range client.send {
		}
	}
}

func TestModuleUpdatedExcludesOrigin(t *testing.T) {
	hub := setupHub(t)

	origin := createTestClient(hub, "s1")
	other1 := createTestClient(hub, "s2")
	other2 := createTestClient(hub, "s3")
	for _, c := range []*Client{origin, other1, other2} {
		registerClient(hub, c)
		drainWelcome(t, c)
	}

	hub.ModuleUpdated("settingsData", map[string]any{"x": 1}, "alice", "s1")
	time.Sleep(50 * time.Millisecond)

	for _, c := range []*Client{other1, other2} {
		msgs := collectMessages(c, 100*time.Millisecond)
		if len(msgs) != 1 {
			t.Fatalf("session %s received %d messages, want 1", c.SessionID, len(msgs))
		}
		if msgs[0].Type != MessageTypeModuleUpdated {
			t.Errorf("type = %q", msgs[0].Type)
		}
		data := msgs[0].Data.(map[string]any)
		if data["moduleName"] != "settingsData" || data["updatedBy"] != "alice" {
			t.Errorf("payload = %v", data)
		}
		if data["timestamp"] == "" {
			t.Error("timestamp missing")
		}
	}

	if msgs := collectMessages(origin, 100*time.Millisecond); len(msgs) != 0 {
		t.Errorf("origin received %d messages, want 0", len(msgs))
	}
}

func TestBulkUpdatedExcludesOrigin(t *testing.T) {
	hub := setupHub(t)

	origin := createTestClient(hub, "s1")
	other := createTestClient(hub, "s2")
	for _, c := range []*Client{origin, other} {
		registerClient(hub, c)
		drainWelcome(t, c)
	}

	hub.BulkUpdated([]string{"teamData", "arretData"}, "bob", "s1")
	time.Sleep(50 * time.Millisecond)

	msgs := collectMessages(other, 100*time.Millisecond)
	if len(msgs) != 1 || msgs[0].Type != MessageTypeModulesUpdated {
		t.Fatalf("other messages = %v", msgs)
	}
	if msgs := collectMessages(origin, 100*time.Millisecond); len(msgs) != 0 {
		t.Errorf("origin received %d messages, want 0", len(msgs))
	}
}

func TestReloadRequiredReachesAll(t *testing.T) {
	hub := setupHub(t)

	clients := []*Client{
		createTestClient(hub, "s1"),
		createTestClient(hub, "s2"),
		createTestClient(hub, "s3"),
	}
	for _, c := range clients {
		registerClient(hub, c)
		drainWelcome(t, c)
	}

	hub.ReloadRequired()
	time.Sleep(50 * time.Millisecond)

	for _, c := range clients {
		msgs := collectMessages(c, 100*time.Millisecond)
		if len(msgs) != 1 || msgs[0].Type != MessageTypeDataReloaded {
			t.Errorf("session %s messages = %v", c.SessionID, msgs)
		}
	}
}

func TestResetCompleteReachesAll(t *testing.T) {
	hub := setupHub(t)

	clients := []*Client{
		createTestClient(hub, "s1"),
		createTestClient(hub, "s2"),
	}
	for _, c := range clients {
		registerClient(hub, c)
		drainWelcome(t, c)
	}

	hub.ResetComplete("carol")
	time.Sleep(50 * time.Millisecond)

	for _, c := range clients {
		msgs := collectMessages(c, 100*time.Millisecond)
		if len(msgs) != 1 || msgs[0].Type != MessageTypeResetComplete {
			t.Fatalf("session %s messages = %v", c.SessionID, msgs)
		}
		data := msgs[0].Data.(map[string]any)
		if data["updatedBy"] != "carol" {
			t.Errorf("updatedBy = %v", data["updatedBy"])
		}
	}
}

func TestSlowSessionDropped(t *testing.T) {
	hub := setupHub(t)

	slow := createTestClient(hub, "slow")
	slow.send = make(chan Message, 1) // tiny buffer, never drained
	healthy := createTestClient(hub, "healthy")

	registerClient(hub, slow)
	registerClient(hub, healthy)
	drainWelcome(t, healthy)

	// The slow session's buffer holds only the welcome; the next broadcasts
	// overflow it and the hub drops the session.
	hub.ReloadRequired()
	hub.ReloadRequired()
	time.Sleep(50 * time.Millisecond)

	if hub.SessionCount() != 1 {
		t.Errorf("SessionCount = %d, want 1 after dropping slow session", hub.SessionCount())
	}

	// Delivery to the healthy session was unaffected.
	msgs := collectMessages(healthy, 100*time.Millisecond)
	if len(msgs) != 2 {
		t.Errorf("healthy session received %d messages, want 2", len(msgs))
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	time.Sleep(10 * time.Millisecond)

	client := createTestClient(hub, "s1")
	registerClient(hub, client)

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if hub.SessionCount() != 0 {
		t.Errorf("SessionCount = %d after shutdown", hub.SessionCount())
	}
}
