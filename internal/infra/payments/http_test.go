package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentspace/internal/domain/shared/money"
)

func TestHTTPGatewayCharge(t *testing.T) {
	var got chargeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chargeResponse{TransactionID: "txn-1", Status: "succeeded"})
	}))
	defer srv.Close()

	g := &HTTPGateway{Client: srv.Client(), Endpoint: srv.URL + "/"}
	id, err := g.Charge(context.Background(), money.Must(30000, "USD"), "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", id)
	assert.Equal(t, chargeRequest{Amount: "300.00", Currency: "USD", Token: "tok_visa"}, got)
}

func TestHTTPGatewayChargeDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chargeResponse{TransactionID: "txn-2", Status: "DECLINED"})
	}))
	defer srv.Close()

	g := &HTTPGateway{Client: srv.Client(), Endpoint: srv.URL}
	_, err := g.Charge(context.Background(), money.Must(100, "USD"), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declined")
}

func TestHTTPGatewayRefundSurfacesProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refunds", r.URL.Path)
		http.Error(w, "refund window closed", http.StatusConflict)
	}))
	defer srv.Close()

	g := &HTTPGateway{Client: srv.Client(), Endpoint: srv.URL}
	err := g.Refund(context.Background(), "txn-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "refund window closed")
}

func TestFakeGateway(t *testing.T) {
	g := NewFakeGateway()
	ctx := context.Background()

	_, err := g.Charge(ctx, money.Must(100, "USD"), "decline-me")
	require.ErrorIs(t, err, ErrCardDeclined)

	id, err := g.Charge(ctx, money.Must(100, "USD"), "tok")
	require.NoError(t, err)
	require.NoError(t, g.Refund(ctx, id))
	assert.True(t, g.Refunded(id))
	assert.ErrorIs(t, g.Refund(ctx, "missing"), ErrUnknownTransaction)
}
