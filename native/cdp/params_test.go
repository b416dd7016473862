package cdp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cdpengine/core/events"
)

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(e events.Event) { r.events = append(r.events, e) }

func TestSetCollateralParams_RejectsUnknownCollateral(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)

	err := e.SetCollateralParams(ctx, "DOGE",
		NoChangeRate(), NoChangeRatio(), NoChangeRate(), NoChangeRatio(), NoChangeBalance())
	require.ErrorIs(t, err, ErrInvalidCollateralType)
}

func TestSetCollateralParams_EmitsOnlyChangedFields(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)
	rec := &recordingEmitter{}
	e.SetEmitter(rec)

	fee := NewRate(1, 50)
	require.NoError(t, e.SetCollateralParams(ctx, collateralETH,
		SetRate(fee), NoChangeRatio(), NoChangeRate(), NoChangeRatio(), NoChangeBalance()))

	require.Len(t, rec.events, 1)
	require.Equal(t, "cdp.stability_fee_updated", rec.events[0].EventType())
}

// Two consecutive identical set_collateral_params calls each emit the
// field's event: a NewValue equal to the stored value is not detected as
// unchanged. The stored struct equals the input either way.
func TestSetCollateralParams_RepeatedIdenticalUpdateStillEmits(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)
	rec := &recordingEmitter{}
	e.SetEmitter(rec)

	ratio := NewRatio(3, 2)
	require.NoError(t, e.SetCollateralParams(ctx, collateralETH,
		NoChangeRate(), SetRatio(ratio), NoChangeRate(), NoChangeRatio(), NoChangeBalance()))
	require.NoError(t, e.SetCollateralParams(ctx, collateralETH,
		NoChangeRate(), SetRatio(ratio), NoChangeRate(), NoChangeRatio(), NoChangeBalance()))

	// A NewValue(same value) change is still a Change (not NoChange), so it
	// is applied and emitted both times; stored struct equals input.
	require.Len(t, rec.events, 2)
	got, err := e.LiquidationRatio(collateralETH)
	require.NoError(t, err)
	require.Equal(t, 0, got.Cmp(ratio.fixedPoint))
}

func TestSetGlobalParams_EmitsUpdate(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)
	rec := &recordingEmitter{}
	e.SetEmitter(rec)

	require.NoError(t, e.SetGlobalParams(ctx, NewRate(1, 10)))
	require.Len(t, rec.events, 1)
	require.Equal(t, "cdp.global_stability_fee_updated", rec.events[0].EventType())
}

func TestStabilityFee_CombinesLocalAndGlobal(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)

	require.NoError(t, e.SetGlobalParams(ctx, NewRate(1, 100))) // 0.01
	require.NoError(t, e.SetCollateralParams(ctx, collateralETH,
		SetRate(NewRate(1, 100)), NoChangeRatio(), NoChangeRate(), NoChangeRatio(), NoChangeBalance())) // +0.01

	got, err := e.StabilityFee(collateralETH)
	require.NoError(t, err)
	require.Equal(t, 0, got.Cmp(NewRate(1, 50).fixedPoint)) // 0.02
}

// ApplyGenesis seeds CollateralParams/GlobalStabilityFee in list order,
// in one dispatch-equivalent pass (spec §6.4).
func TestApplyGenesis_SeedsParamsAndGlobalFee(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)
	rec := &recordingEmitter{}
	e.SetEmitter(rec)

	liqRatio := NewRatio(3, 2)
	debitCap := NewBalance(5_000)
	require.NoError(t, e.ApplyGenesis(ctx, GenesisConfig{
		GlobalStabilityFee: NewRate(1, 1000),
		CollateralsParams: []GenesisCollateralParams{
			{
				CollateralID:           collateralETH,
				LiquidationRatio:       &liqRatio,
				MaximumTotalDebitValue: debitCap,
			},
		},
	}))

	gotRatio, err := e.LiquidationRatio(collateralETH)
	require.NoError(t, err)
	require.Equal(t, 0, gotRatio.Cmp(liqRatio.fixedPoint))

	gotCap, err := e.MaximumTotalDebitValue(collateralETH)
	require.NoError(t, err)
	require.Equal(t, "5000", gotCap.String())

	require.NotEmpty(t, rec.events)
}

func TestApplyGenesis_RejectsUnknownCollateral(t *testing.T) {
	ctx := context.Background()
	e, _, _, _, _ := newTestEngine(t)

	err := e.ApplyGenesis(ctx, GenesisConfig{
		CollateralsParams: []GenesisCollateralParams{
			{CollateralID: "DOGE", MaximumTotalDebitValue: NewBalance(1)},
		},
	})
	require.ErrorIs(t, err, ErrInvalidCollateralType)
}
