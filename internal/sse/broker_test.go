package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "step_update", Data: map[string]int{"step_index": 2}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: step_update") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"step_index":2`) {
			t.Errorf("missing data in %q", s)
		}
		if !strings.HasPrefix(s, "id: 1\n") {
			t.Errorf("missing sequence id in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

// drain collects messages until none arrive for a short while.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-time.After(100 * time.Millisecond):
			return out
		}
	}
}

func TestRetainedEventsReplayToLateSubscriber(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	b.Publish(Event{Type: "recipe_plan", Data: map[string]string{"name": "old"}, Retain: "plan", Forget: []string{"cooking"}})
	b.Publish(Event{Type: "cooking_mode.start", Data: struct{}{}, Retain: "cooking"})
	b.Publish(Event{Type: "shopping_list.update", Data: []string{"eggs"}, Retain: "shopping"})
	b.Publish(Event{Type: "timer.start", Data: map[string]int{"minutes": 5}})
	b.Publish(Event{Type: "recipe_plan", Data: map[string]string{"name": "new"}, Retain: "plan", Forget: []string{"cooking"}})
	b.Publish(Event{Type: "shopping_list.clear", Data: struct{}{}, Forget: []string{"shopping"}})

	time.Sleep(50 * time.Millisecond)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	got := drain(ch)
	if len(got) != 1 {
		t.Fatalf("replayed %d events, want 1: %q", len(got), got)
	}
	if !strings.Contains(got[0], `"name":"new"`) {
		t.Errorf("replayed %q, want latest plan", got[0])
	}
}

func TestRetainedOrderFollowsFirstPublish(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	b.Publish(Event{Type: "recipe_plan", Data: 1, Retain: "plan"})
	b.Publish(Event{Type: "cooking_mode.start", Data: 2, Retain: "cooking"})
	b.Publish(Event{Type: "step_update", Data: 3, Retain: "step"})
	b.Publish(Event{Type: "step_update", Data: 4, Retain: "step"})

	time.Sleep(50 * time.Millisecond)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	got := drain(ch)
	want := []string{"recipe_plan", "cooking_mode.start", "step_update"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i, w := range want {
		if !strings.Contains(got[i], "event: "+w) {
			t.Errorf("replay %d = %q, want %s", i, got[i], w)
		}
	}
	if !strings.Contains(got[2], "data: 4") {
		t.Errorf("step replay = %q, want latest", got[2])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(20 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "cooking_mode.complete", Data: map[string]string{}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: cooking_mode.complete") {
		t.Errorf("handler output missing event: %q", body)
	}
	if !strings.Contains(body, ": keepalive") {
		t.Errorf("handler output missing keepalive: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "timer.clear_all", Data: map[string]string{}})
}
