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
	b := NewBroker(100 * time.Millisecond)
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
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "sequence.created", Data: map[string]string{"path": "a.useq.json"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: sequence.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.useq.json"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishLibraryEvent(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	kinds := map[string]string{
		"created": "sequence.created",
		"updated": "sequence.updated",
		"deleted": "sequence.deleted",
	}
	for kind, want := range kinds {
		b.PublishLibraryEvent(kind, "doc.useq.json")
		select {
		case msg := <-ch:
			if !strings.Contains(string(msg), "event: "+want) {
				t.Errorf("kind %q: got %q", kind, msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("kind %q: timeout", kind)
		}
	}
}

func TestRunFrameThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First frame passes, the burst right behind it is dropped.
	for i := 1; i <= 5; i++ {
		b.PublishRunEvent("run.frame", map[string]int{"frame": i})
	}
	// Lifecycle events are never throttled.
	b.PublishRunEvent("run.finished", map[string]int{"frame": 5})

	var got []string
	timeout := time.After(time.Second)
loop:
	for {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
			if strings.Contains(string(msg), "run.finished") {
				break loop
			}
		case <-timeout:
			t.Fatal("timeout")
		}
	}

	frames := 0
	for _, m := range got {
		if strings.Contains(m, "event: run.frame") {
			frames++
		}
	}
	if frames != 1 {
		t.Errorf("frame events = %d, want 1 (throttled)", frames)
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the client to register, then publish and disconnect.
	deadline := time.Now().Add(time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	b.Publish(Event{Type: "run.started", Data: map[string]string{"run_id": "r1"}})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: run.started") {
		t.Errorf("body = %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func TestCloseIdempotent(t *testing.T) {
	b := NewBroker(time.Second)
	b.Close()
	b.Close() // second close must not panic

	if got := b.ClientCount(); got != 0 {
		t.Errorf("count after close = %d", got)
	}
	b.Publish(Event{Type: "x"}) // must not block
}
