package facilitator

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startMock(t *testing.T) *Client {
	t.Helper()
	srv := NewServer(nil, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL)
}

func TestListNetworks(t *testing.T) {
	client := startMock(t)

	networks, err := client.ListNetworks(context.Background())
	require.NoError(t, err)
	require.Equal(t, DefaultNetworks, networks)
}

func TestCreatePayment(t *testing.T) {
	client := startMock(t)

	req := PaymentRequest{
		Amount:      0.01,
		Currency:    "USD",
		Metadata:    map[string]any{"memo": "test"},
		FromAddress: "0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1",
	}

	resp, headerID, err := client.CreatePayment(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, "success", resp.Status)
	require.Equal(t, resp.ID, headerID)
	require.True(t, strings.HasPrefix(resp.ID, "tx_"))
	require.Len(t, resp.ID, len("tx_")+12)

	require.Equal(t, req.Amount, resp.Received.Amount)
	require.Equal(t, req.FromAddress, resp.Received.FromAddress)
}

func TestSettle(t *testing.T) {
	client := startMock(t)

	resp, headerID, err := client.Settle(context.Background(), PaymentRequest{Amount: 1, Currency: "USD"})
	require.NoError(t, err)
	require.Equal(t, "settled", resp.Status)
	require.Equal(t, resp.ID, headerID)
}

func TestVerify(t *testing.T) {
	client := startMock(t)

	resp, err := client.Verify(context.Background(), PaymentRequest{Amount: 0.5, Currency: "USD"})
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "verified", resp.Message)
	require.Equal(t, 0.5, resp.Received.Amount)
}

func TestWaitReady(t *testing.T) {
	client := startMock(t)
	require.NoError(t, client.WaitReady(context.Background(), 2*time.Second))
}

func TestWaitReadyUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	err := client.WaitReady(context.Background(), 10*time.Millisecond)
	require.Error(t, err)
}

func TestProbeCollectsAllVariants(t *testing.T) {
	client := startMock(t)

	variants := DefaultProbeVariants("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1", "")
	require.Len(t, variants, 5)

	results := client.Probe(context.Background(), variants)
	require.Len(t, results, 2*len(variants))
	for _, r := range results {
		require.Equal(t, 200, r.StatusCode, r.Variant)
		require.Empty(t, r.Err, r.Variant)
		require.NotNil(t, r.Body, r.Variant)
	}
}
