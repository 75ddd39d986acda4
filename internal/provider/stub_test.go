package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub_Deterministic(t *testing.T) {
	stub := NewStub()
	ctx := context.Background()

	first, err := stub.InitiateTransfer(ctx, TransferRequest{Amount: 10})
	require.NoError(t, err)
	second, err := stub.InitiateTransfer(ctx, TransferRequest{Amount: 20})
	require.NoError(t, err)

	assert.Equal(t, "INT000001", first.TransactionID)
	assert.Equal(t, "INT000002", second.TransactionID)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, 2, stub.Calls())

	st, err := stub.QueryStatus(ctx, first.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st.Status)

	stub.Resolve(first.TransactionID, StatusSuccess, "done")
	st, err = stub.QueryStatus(ctx, first.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, "done", st.Message)
}

func TestStub_Errors(t *testing.T) {
	stub := NewStub()

	_, err := stub.QueryStatus(context.Background(), "INT404")
	assert.ErrorIs(t, err, ErrNotFound)

	stub.InitiateErr = ErrRejected
	_, err = stub.InitiateTransfer(context.Background(), TransferRequest{})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestStub_SettlesAfterDelay(t *testing.T) {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	clock := start
	stub := NewStub()
	stub.SettleAfter = 5 * time.Second
	stub.now = func() time.Time { return clock }
	ctx := context.Background()

	resp, err := stub.InitiateTransfer(ctx, TransferRequest{Amount: 10})
	require.NoError(t, err)

	clock = start.Add(4 * time.Second)
	st, err := stub.QueryStatus(ctx, resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st.Status)

	clock = start.Add(5 * time.Second)
	st, err = stub.QueryStatus(ctx, resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st.Status)

	// an explicit resolution is never overridden
	second, err := stub.InitiateTransfer(ctx, TransferRequest{Amount: 20})
	require.NoError(t, err)
	stub.Resolve(second.TransactionID, StatusFailed, "Insufficient balance")
	clock = start.Add(time.Minute)
	st, err = stub.QueryStatus(ctx, second.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, st.Status)
}
