package cdp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateUnsigned_LiquidateAdmittedWhenUnsafeAndNotShutdown(t *testing.T) {
	ctx := context.Background()
	e, ledger, _, oracle, _ := newTestEngine(t)
	account := testAddress(10)
	ledger.set(collateralETH, account, 100, 200)
	oracle.set(collateralETH, e.StableCurrencyID(), NewPrice(1, 1))

	v := e.NewUnsignedValidator(100)
	result, err := v.ValidateUnsigned(ctx, 42, UnsignedCall{Method: CallLiquidate, CollateralID: collateralETH, Account: account})
	require.NoError(t, err)
	require.Equal(t, uint64(100), result.Priority)
	require.Equal(t, uint64(64), result.Longevity)
	require.True(t, result.Propagate)
}

func TestValidateUnsigned_LiquidateStaleWhenSafe(t *testing.T) {
	ctx := context.Background()
	e, ledger, _, oracle, _ := newTestEngine(t)
	account := testAddress(11)
	ledger.set(collateralETH, account, 300, 100)
	oracle.set(collateralETH, e.StableCurrencyID(), NewPrice(1, 1))

	v := e.NewUnsignedValidator(100)
	_, err := v.ValidateUnsigned(ctx, 1, UnsignedCall{Method: CallLiquidate, CollateralID: collateralETH, Account: account})
	require.ErrorIs(t, err, ErrStale)
}

func TestValidateUnsigned_LiquidateStaleAfterShutdown(t *testing.T) {
	ctx := context.Background()
	e, ledger, _, oracle, _ := newTestEngine(t)
	account := testAddress(12)
	ledger.set(collateralETH, account, 100, 200)
	oracle.set(collateralETH, e.StableCurrencyID(), NewPrice(1, 1))
	require.NoError(t, e.OnEmergencyShutdown(ctx))

	v := e.NewUnsignedValidator(100)
	_, err := v.ValidateUnsigned(ctx, 1, UnsignedCall{Method: CallLiquidate, CollateralID: collateralETH, Account: account})
	require.ErrorIs(t, err, ErrStale)
}

func TestValidateUnsigned_SettleAdmittedWhenShutdownAndDebtOutstanding(t *testing.T) {
	ctx := context.Background()
	e, ledger, _, _, _ := newTestEngine(t)
	account := testAddress(13)
	ledger.set(collateralETH, account, 50, 100)
	require.NoError(t, e.OnEmergencyShutdown(ctx))

	v := e.NewUnsignedValidator(100)
	result, err := v.ValidateUnsigned(ctx, 1, UnsignedCall{Method: CallSettle, CollateralID: collateralETH, Account: account})
	require.NoError(t, err)
	require.Len(t, result.Provides, 1)
}

func TestValidateUnsigned_SettleStaleBeforeShutdown(t *testing.T) {
	ctx := context.Background()
	e, ledger, _, _, _ := newTestEngine(t)
	account := testAddress(14)
	ledger.set(collateralETH, account, 50, 100)

	v := e.NewUnsignedValidator(100)
	_, err := v.ValidateUnsigned(ctx, 1, UnsignedCall{Method: CallSettle, CollateralID: collateralETH, Account: account})
	require.ErrorIs(t, err, ErrStale)
}

func TestValidateUnsigned_UnknownCallRejected(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)

	v := e.NewUnsignedValidator(100)
	_, err := v.ValidateUnsigned(ctx, 1, UnsignedCall{Method: "other"})
	require.ErrorIs(t, err, ErrUnknownCall)
}

// The provides-tag for liquidate includes the block number so repeat
// proposals across adjacent blocks do not collide; settle omits it since
// settlement is idempotent per (C,A).
func TestValidateUnsigned_ProvidesTagShapes(t *testing.T) {
	ctx := context.Background()
	e, ledger, _, oracle, _ := newTestEngine(t)
	account := testAddress(15)
	ledger.set(collateralETH, account, 100, 200)
	oracle.set(collateralETH, e.StableCurrencyID(), NewPrice(1, 1))

	v := e.NewUnsignedValidator(100)
	r1, err := v.ValidateUnsigned(ctx, 1, UnsignedCall{Method: CallLiquidate, CollateralID: collateralETH, Account: account})
	require.NoError(t, err)
	r2, err := v.ValidateUnsigned(ctx, 2, UnsignedCall{Method: CallLiquidate, CollateralID: collateralETH, Account: account})
	require.NoError(t, err)
	require.NotEqual(t, r1.Provides[0], r2.Provides[0])
}
