package queue

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/ports"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []ports.AuditEvent
	err    error
	block  chan struct{}
}

func (r *recordingRepo) InsertEvent(_ context.Context, event ports.AuditEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingRepo) snapshot() []ports.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.AuditEvent(nil), r.events...)
}

func TestDispatcher_DeliversInOrderPerUser(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(3, repo, zerolog.Nop())
	d.Start(context.Background())

	for i := 1; i <= 20; i++ {
		d.Publish(ports.AuditEvent{Kind: "deposit", UserID: uint(i%2 + 1), TransactionID: uint(i), Amount: decimal.NewFromInt(int64(i))})
	}
	d.Close()

	events := repo.snapshot()
	if len(events) != 20 {
		t.Fatalf("expected 20 events, got %d", len(events))
	}
	last := map[uint]uint{}
	for _, e := range events {
		if e.TransactionID <= last[e.UserID] {
			t.Fatalf("events for user %d out of order: %d after %d", e.UserID, e.TransactionID, last[e.UserID])
		}
		last[e.UserID] = e.TransactionID
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(5, &recordingRepo{}, zerolog.Nop())

	for _, id := range []uint{0, 1, 42, 99999} {
		a, b := d.shardIndex(id), d.shardIndex(id)
		if a != b || a < 0 || a >= 5 {
			t.Fatalf("unstable or out of range shard for %d: %d, %d", id, a, b)
		}
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	repo := &recordingRepo{block: make(chan struct{})}
	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())

	// One event is held by the blocked worker, channelBuffer more fit the queue.
	for i := 0; i < channelBuffer+10; i++ {
		d.Publish(ports.AuditEvent{Kind: "deposit", UserID: 1, TransactionID: uint(i + 1)})
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected dropped events")
	}

	close(repo.block)
	d.Close()
	if got := int64(len(repo.snapshot())) + d.Dropped(); got != channelBuffer+10 {
		t.Fatalf("every event must be written or counted as dropped, got %d", got)
	}
}

func TestDispatcher_PublishAfterClose(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(2, repo, zerolog.Nop())
	d.Start(context.Background())
	d.Close()
	d.Close()

	d.Publish(ports.AuditEvent{Kind: "refund", UserID: 3})
	if d.Dropped() != 1 || len(repo.snapshot()) != 0 {
		t.Fatalf("publish after close must be dropped")
	}
}

func TestDispatcher_LogsWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	repo := &recordingRepo{err: errors.New("mongo down")}
	d := NewDispatcher(1, repo, zerolog.New(&buf))
	d.Start(context.Background())

	d.Publish(ports.AuditEvent{Kind: "withdraw", UserID: 1, TransactionID: 9})
	d.Close()

	if !strings.Contains(buf.String(), "audit write failed") || !strings.Contains(buf.String(), "mongo down") {
		t.Fatalf("expected error log, got %q", buf.String())
	}
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	rec := NewLogRecorder(zerolog.New(&buf))

	if err := rec.InsertEvent(context.Background(), ports.AuditEvent{Kind: "entry_fee", UserID: 4, Amount: decimal.NewFromInt(1000), Status: "completed"}); err != nil {
		t.Fatalf("InsertEvent returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"kind":"entry_fee"`) || !strings.Contains(out, `"amount":"1000"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}
