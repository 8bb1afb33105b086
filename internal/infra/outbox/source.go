package outbox

import (
	"context"
	"time"

	appoutbox "rentspace/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// Pending is a claimed record together with its delivery attempts so far.
type Pending struct {
	Record   appoutbox.EventRecord
	Attempts int
}

// Source is the storage side of the relay. Claim returns nil when nothing is due.
type Source interface {
	Claim(ctx context.Context, workerID string) (*Pending, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
