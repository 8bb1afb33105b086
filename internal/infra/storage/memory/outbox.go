package memory

import (
	"context"
	"time"

	appoutbox "rentspace/internal/app/outbox"
	infraoutbox "rentspace/internal/infra/outbox"
)

func (s *Store) appendOutbox(records []appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()
	now := time.Now().UTC()
	for _, rec := range records {
		s.outbox = append(s.outbox, &outboxEntry{record: rec, state: infraoutbox.StateNew, nextAttempt: now})
	}
}

// OutboxSource exposes committed outbox records to the relay worker.
type OutboxSource struct {
	store *Store
}

func NewOutboxSource(store *Store) *OutboxSource {
	return &OutboxSource{store: store}
}

func (o *OutboxSource) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	o.store.outboxMu.Lock()
	defer o.store.outboxMu.Unlock()
	now := time.Now().UTC()
	for _, e := range o.store.outbox {
		if (e.state == infraoutbox.StateNew || e.state == infraoutbox.StateFailed) && !e.nextAttempt.After(now) {
			e.state = infraoutbox.StateClaimed
			return &infraoutbox.Pending{Record: e.record, Attempts: e.attempts}, nil
		}
	}
	return nil, nil
}

func (o *OutboxSource) MarkSent(ctx context.Context, id string) error {
	o.store.outboxMu.Lock()
	defer o.store.outboxMu.Unlock()
	kept := o.store.outbox[:0]
	for _, e := range o.store.outbox {
		if e.record.ID != id {
			kept = append(kept, e)
		}
	}
	o.store.outbox = kept
	return nil
}

func (o *OutboxSource) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.store.outboxMu.Lock()
	defer o.store.outboxMu.Unlock()
	for _, e := range o.store.outbox {
		if e.record.ID == id {
			e.state = infraoutbox.StateFailed
			e.attempts++
			e.nextAttempt = next
			e.lastError = errMsg
		}
	}
	return nil
}

// Pending returns a snapshot of records not yet relayed.
func (o *OutboxSource) Pending() []appoutbox.EventRecord {
	o.store.outboxMu.Lock()
	defer o.store.outboxMu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.store.outbox))
	for _, e := range o.store.outbox {
		out = append(out, e.record)
	}
	return out
}

var _ infraoutbox.Source = (*OutboxSource)(nil)
