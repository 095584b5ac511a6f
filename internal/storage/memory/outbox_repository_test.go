package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

func TestOutboxQueue_EnqueueAssignsIDAndTime(t *testing.T) {
	queue := NewOutboxRepository()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	queue.now = func() time.Time { return fixed }

	payload := []byte(`{"status":"pending"}`)
	saved, err := queue.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "ORD-1",
		EventType:     domain.EventTypeOrderCreated,
		Payload:       payload,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if saved.ID == "" || !saved.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected saved message: %+v", saved)
	}

	payload[0] = 'X'
	pending, _ := queue.PullPending(10)
	if len(pending) != 1 || string(pending[0].Payload) != `{"status":"pending"}` {
		t.Fatalf("payload must be copied on enqueue, got %+v", pending)
	}

	if _, err := queue.Enqueue(domain.OutboxMessage{ID: saved.ID}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestOutboxQueue_PullKeepsEnqueueOrder(t *testing.T) {
	queue := NewOutboxRepository()
	for _, id := range []string{"c", "a", "b"} {
		if _, err := queue.Enqueue(domain.OutboxMessage{ID: id}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{limit: 2, want: []string{"c", "a"}},
		{limit: 10, want: []string{"c", "a", "b"}},
		{limit: 0, want: []string{"c", "a", "b"}},
	}
	for _, tt := range tests {
		pending, err := queue.PullPending(tt.limit)
		if err != nil {
			t.Fatalf("pull %d: %v", tt.limit, err)
		}
		if len(pending) != len(tt.want) {
			t.Fatalf("limit %d: got %d messages, want %d", tt.limit, len(pending), len(tt.want))
		}
		for i, id := range tt.want {
			if pending[i].ID != id {
				t.Fatalf("limit %d: position %d is %s, want %s", tt.limit, i, pending[i].ID, id)
			}
		}
	}
}

func TestOutboxQueue_MarkRemovesFromBacklog(t *testing.T) {
	queue := NewOutboxRepository()
	first, _ := queue.Enqueue(domain.OutboxMessage{ID: "first", CreatedAt: time.Unix(100, 0).UTC()})
	second, _ := queue.Enqueue(domain.OutboxMessage{ID: "second", CreatedAt: time.Unix(200, 0).UTC()})

	stats, _ := queue.Stats()
	if stats.PendingCount != 2 || !stats.OldestPendingAt.Equal(first.CreatedAt) {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := queue.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	stats, _ = queue.Stats()
	if stats.PendingCount != 1 || !stats.OldestPendingAt.Equal(second.CreatedAt) {
		t.Fatalf("oldest must move to the next event, got %+v", stats)
	}

	if err := queue.MarkFailed(second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := queue.MarkFailed("missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish for missing id, got %v", err)
	}

	stats, _ = queue.Stats()
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("expected empty backlog, got %+v", stats)
	}
	if sent, failed := queue.Delivered(); sent != 1 || failed != 1 {
		t.Fatalf("delivered sent=%d failed=%d, want 1/1", sent, failed)
	}
}
