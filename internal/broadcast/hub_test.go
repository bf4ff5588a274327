package broadcast

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNopHookDiscardsEvents(t *testing.T) {
	var h Hook = NopHook{}
	// Must not panic regardless of how many events are published.
	for i := 0; i < 10; i++ {
		h.Publish(Event{Level: "user", Op: OpPutNode})
	}
}

func TestHubPublishDropsWhenOutboxFull(t *testing.T) {
	hub := NewHub(nil, HubOptions{OutboundBufferSize: 2, RateLimit: rate.Inf, RateBurst: 1})

	cl := &client{outbox: make(chan Event, 2)}
	hub.mu.Lock()
	hub.clients[cl] = struct{}{}
	hub.mu.Unlock()

	for i := 0; i < 5; i++ {
		hub.Publish(Event{Level: "project", Op: OpPutEdge})
	}

	if len(cl.outbox) != 2 {
		t.Errorf("expected outbox capped at buffer size 2, got %d", len(cl.outbox))
	}
}

func TestHubPublishFanOutToMultipleClients(t *testing.T) {
	hub := NewHub(nil, DefaultHubOptions())

	c1 := &client{outbox: make(chan Event, 4)}
	c2 := &client{outbox: make(chan Event, 4)}
	hub.mu.Lock()
	hub.clients[c1] = struct{}{}
	hub.clients[c2] = struct{}{}
	hub.mu.Unlock()

	hub.Publish(Event{Level: "user", Op: OpDeleteNode, NodeID: "n1"})

	select {
	case ev := <-c1.outbox:
		if ev.NodeID != "n1" {
			t.Errorf("c1 got wrong event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("c1 never received the event")
	}

	select {
	case ev := <-c2.outbox:
		if ev.NodeID != "n1" {
			t.Errorf("c2 got wrong event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("c2 never received the event")
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(nil, DefaultHubOptions())
	cl := &client{outbox: make(chan Event, 4)}
	hub.mu.Lock()
	hub.clients[cl] = struct{}{}
	hub.mu.Unlock()

	hub.mu.Lock()
	delete(hub.clients, cl)
	hub.mu.Unlock()

	hub.Publish(Event{Level: "user", Op: OpPutNode})

	select {
	case ev := <-cl.outbox:
		t.Errorf("unregistered client should not receive events, got %+v", ev)
	default:
	}
}
