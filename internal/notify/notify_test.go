package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/subtensor-tools/regsniper/internal/engine"
)

type webhookRecorder struct {
	mu     sync.Mutex
	events []event
	srv    *httptest.Server
}

func newWebhookRecorder(t *testing.T) *webhookRecorder {
	t.Helper()
	w := &webhookRecorder{}
	w.srv = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var ev event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode webhook payload: %v", err)
		}
		w.mu.Lock()
		w.events = append(w.events, ev)
		w.mu.Unlock()
		rw.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(w.srv.Close)
	return w
}

func (w *webhookRecorder) all() []event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]event(nil), w.events...)
}

func TestSubmissionAttempted(t *testing.T) {
	rec := newWebhookRecorder(t)
	c := New(rec.srv.URL, 18, zap.NewNop())

	c.SubmissionAttempted(context.Background(), 1_500_000_000)

	events := rec.all()
	if len(events) != 1 {
		t.Fatalf("events: got %d want 1", len(events))
	}
	ev := events[0]
	if ev.Event != "submission_attempted" {
		t.Errorf("event: got %q", ev.Event)
	}
	if ev.Netuid != 18 {
		t.Errorf("netuid: got %d", ev.Netuid)
	}
	if ev.PriceRAO != 1_500_000_000 {
		t.Errorf("price: got %d", ev.PriceRAO)
	}
	if ev.Timestamp == 0 {
		t.Error("timestamp not set")
	}
}

func TestOutcomeReached(t *testing.T) {
	rec := newWebhookRecorder(t)
	c := New(rec.srv.URL, 18, zap.NewNop())

	c.OutcomeReached(context.Background(), engine.Outcome{
		Kind:    engine.Registered,
		Receipt: &engine.Receipt{BlockHash: "0xabc"},
	})
	c.OutcomeReached(context.Background(), engine.Outcome{
		Kind:   engine.GaveUp,
		Reason: "HotKeyAlreadyRegisteredInSubNet",
	})

	events := rec.all()
	if len(events) != 2 {
		t.Fatalf("events: got %d want 2", len(events))
	}
	if events[0].Outcome != "registered" || events[0].Block != "0xabc" {
		t.Errorf("registered event: %+v", events[0])
	}
	if events[1].Outcome != "gave_up" || events[1].Reason != "HotKeyAlreadyRegisteredInSubNet" {
		t.Errorf("gave_up event: %+v", events[1])
	}
}

func TestNilClientIsNoop(t *testing.T) {
	c := New("", 18, zap.NewNop())
	if c != nil {
		t.Fatal("New with empty URL should return nil")
	}
	// Must not panic.
	c.SubmissionAttempted(context.Background(), 1)
	c.OutcomeReached(context.Background(), engine.Outcome{Kind: engine.Cancelled})
}

func TestWebhookFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, 18, zap.NewNop())
	// Must not panic or block; failures only get logged.
	c.SubmissionAttempted(context.Background(), 1)
}
