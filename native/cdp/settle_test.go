package cdp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 5 (spec §8): shutdown, collat=50, debit_units=100, exchange_rate
// =1.0, price(S->C)=2.0 -> confiscate = min(200, 50) = 50.
func TestSettleCDPHasDebit_ConfiscatesMinOfPriceAndCollateral(t *testing.T) {
	ctx := context.Background()
	e, ledger, _, oracle, _ := newTestEngine(t)

	account := testAddress(5)
	ledger.set(collateralETH, account, 50, 100)
	require.NoError(t, e.OnEmergencyShutdown(ctx))
	oracle.set(e.StableCurrencyID(), collateralETH, NewPrice(2, 1))

	require.NoError(t, e.SettleCDPHasDebit(ctx, collateralETH, account))

	require.Equal(t, 1, ledger.confiscateCalls)
	gotCollateral := ledger.lastConfiscate[2].(Balance)
	gotDebit := ledger.lastConfiscate[3].(Balance)
	require.Equal(t, "50", gotCollateral.String())
	require.Equal(t, "100", gotDebit.String())
}

func TestSettleCDPHasDebit_RejectsZeroDebit(t *testing.T) {
	ctx := context.Background()
	e, ledger, _, _, _ := newTestEngine(t)

	account := testAddress(6)
	ledger.set(collateralETH, account, 50, 0)
	require.NoError(t, e.OnEmergencyShutdown(ctx))

	err := e.SettleCDPHasDebit(ctx, collateralETH, account)
	require.ErrorIs(t, err, ErrNoDebitValue)
}

func TestOnEmergencyShutdown_IsIdempotentAndMonotone(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)

	shutdown, err := e.IsShutdown(ctx)
	require.NoError(t, err)
	require.False(t, shutdown)

	require.NoError(t, e.OnEmergencyShutdown(ctx))
	require.NoError(t, e.OnEmergencyShutdown(ctx))

	shutdown, err = e.IsShutdown(ctx)
	require.NoError(t, err)
	require.True(t, shutdown)
}
