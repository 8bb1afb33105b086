package policies

import (
	"context"

	"rentspace/internal/domain/shared/money"
)

// PaymentGateway is the external charge/refund service. Both calls are
// synchronous; any error means the money did not move.
type PaymentGateway interface {
	Charge(ctx context.Context, amount money.Money, token string) (transactionID string, err error)
	Refund(ctx context.Context, transactionID string) error
}
