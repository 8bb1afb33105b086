package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"rentspace/internal/app/policies"
	"rentspace/internal/domain/shared/money"
)

// HTTPGateway talks to a payment provider exposing POST {base}/charges and
// POST {base}/refunds with JSON bodies.
type HTTPGateway struct {
	Client   *http.Client
	Endpoint string
	Logger   *slog.Logger
}

type chargeRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Token    string `json:"token"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
}

func (g *HTTPGateway) Charge(ctx context.Context, amount money.Money, token string) (string, error) {
	req := chargeRequest{Amount: amount.Decimal().StringFixed(2), Currency: amount.Currency, Token: token}
	var resp chargeResponse
	if err := g.post(ctx, "/charges", req, &resp); err != nil {
		g.logError("payment charge failed", err)
		return "", err
	}
	if resp.TransactionID == "" {
		return "", errors.New("payments: provider returned no transaction id")
	}
	if resp.Status != "" && !strings.EqualFold(resp.Status, "succeeded") {
		return "", fmt.Errorf("payments: charge %s", strings.ToLower(resp.Status))
	}
	return resp.TransactionID, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, transactionID string) error {
	if err := g.post(ctx, "/refunds", refundRequest{TransactionID: transactionID}, nil); err != nil {
		g.logError("payment refund failed", err, "transaction_id", transactionID)
		return err
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload, out any) error {
	if g == nil || g.Client == nil {
		return errors.New("payments: http client not configured")
	}
	if g.Endpoint == "" {
		return errors.New("payments: endpoint not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.Endpoint, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payments: provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *HTTPGateway) logError(msg string, err error, attrs ...any) {
	if g.Logger == nil {
		return
	}
	g.Logger.Error(msg, append([]any{"error", err}, attrs...)...)
}

var _ policies.PaymentGateway = (*HTTPGateway)(nil)
