package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutDeductsStockAndRecordsShift(t *testing.T) {
	env := newTestEnv(t)
	env.load()
	ctx := context.Background()
	panadol := env.addProduct("Panadol", "15.50", 100)
	aspirin := env.addProduct("Aspirin", "12", 75)
	customer := env.addCustomer("Farida")

	order, err := env.ledger.Open(ctx, customer, "alice")
	require.NoError(t, err)
	require.NoError(t, env.ledger.AddLine(ctx, order, panadol.ID, 30))
	require.NoError(t, env.ledger.AddLine(ctx, order, aspirin.ID, 5))

	result, err := env.checkout.Complete(ctx, order)

	require.NoError(t, err)
	assert.Empty(t, result.Problems)
	assert.Equal(t, 70, panadol.Quantity)
	assert.Equal(t, 70, aspirin.Quantity)
	assert.Equal(t, []int64{order.ID}, env.shifts.Current().OrderIDs)
	assert.Equal(t, "ORDER_ID=1\n", env.readFile("shift_Morning_orders.txt"))
}

func TestCheckoutReportsFollowUpProblems(t *testing.T) {
	env := newTestEnv(t)
	env.load()
	ctx := context.Background()
	panadol := env.addProduct("Panadol", "15.50", 100)
	aspirin := env.addProduct("Aspirin", "12", 75)
	customer := env.addCustomer("Farida")

	order, err := env.ledger.Open(ctx, customer, "alice")
	require.NoError(t, err)
	require.NoError(t, env.ledger.AddLine(ctx, order, panadol.ID, 10))
	require.NoError(t, env.ledger.AddLine(ctx, order, aspirin.ID, 5))

	// another sale drains panadol while this order is still open
	_, err = env.catalog.AdjustQuantity(ctx, panadol.ID, -95)
	require.NoError(t, err)
	_, err = env.catalog.Remove(ctx, aspirin.ID)
	require.NoError(t, err)

	result, err := env.checkout.Complete(ctx, order)

	require.NoError(t, err)
	assert.Len(t, result.Problems, 2)
	assert.Equal(t, 5, panadol.Quantity)
	assert.Len(t, env.ledger.History(), 1)
	assert.Equal(t, []int64{order.ID}, env.shifts.Current().OrderIDs)
}

func TestCheckoutFailsWhenLedgerFails(t *testing.T) {
	env := newTestEnv(t)
	env.load()
	ctx := context.Background()
	panadol := env.addProduct("Panadol", "15.50", 100)
	customer := env.addCustomer("Farida")
	order, err := env.ledger.Open(ctx, customer, "alice")
	require.NoError(t, err)
	require.NoError(t, env.ledger.AddLine(ctx, order, panadol.ID, 1))
	env.breakFile("orders.txt")

	_, err = env.checkout.Complete(ctx, order)

	require.Error(t, err)
	assert.Equal(t, 100, panadol.Quantity)
	assert.Empty(t, env.shifts.Current().OrderIDs)
}
