package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDeliver_SignsBody(t *testing.T) {
	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ev := &Event{Type: EventBatchCompleted, JobID: "b1", Timestamp: 1700000000, Data: map[string]int{"total": 3}}
	if err := Deliver(context.Background(), srv.URL, "s3cret", ev); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if want := Sign("s3cret", gotBody); gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}

	var decoded Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if decoded.Type != EventBatchCompleted || decoded.JobID != "b1" {
		t.Errorf("event = %+v", decoded)
	}
}

func TestDeliver_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SignatureHeader) != "" {
			t.Error("unsigned delivery carried a signature")
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := Deliver(context.Background(), srv.URL, "", &Event{Type: "x"}); err == nil {
		t.Error("Deliver() error = nil for 502")
	}
}

func TestDeliverAsync_FirstAttempt(t *testing.T) {
	done := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done <- struct{}{}
	}))
	defer srv.Close()

	DeliverAsync(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL, "", &Event{Type: EventBatchCompleted})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}
