package payments

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rentspace/internal/app/policies"
	"rentspace/internal/domain/shared/money"
)

var (
	ErrCardDeclined       = errors.New("payments: card declined")
	ErrUnknownTransaction = errors.New("payments: unknown transaction")
)

// DeclineTokenPrefix makes the fake gateway decline a charge, for demos.
const DeclineTokenPrefix = "decline"

// FakeGateway approves every charge unless the token starts with
// DeclineTokenPrefix. It remembers transactions so refunds can be checked.
type FakeGateway struct {
	mu       sync.Mutex
	charges  map[string]money.Money
	refunded map[string]bool
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{charges: map[string]money.Money{}, refunded: map[string]bool{}}
}

func (g *FakeGateway) Charge(ctx context.Context, amount money.Money, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.HasPrefix(strings.ToLower(token), DeclineTokenPrefix) {
		return "", ErrCardDeclined
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := "txn_" + uuid.NewString()
	g.charges[id] = amount
	return id, nil
}

func (g *FakeGateway) Refund(ctx context.Context, transactionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.charges[transactionID]; !ok {
		return ErrUnknownTransaction
	}
	g.refunded[transactionID] = true
	return nil
}

// Refunded reports whether transactionID was refunded.
func (g *FakeGateway) Refunded(transactionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunded[transactionID]
}

var _ policies.PaymentGateway = (*FakeGateway)(nil)
