package cdp

import (
	"context"

	"cdpengine/core/events"
	"cdpengine/observability/logging"
)

// decideLiquidationStrategy is the pure predicate from spec §9: choose
// Exchange iff all of supply>0, collat>=supply, maxSlip>0, and slip is
// defined and <= maxSlip; otherwise Auction. Factored standalone so it can
// be property-tested without touching the Ledger/Treasury/DEX collaborators.
func decideLiquidationStrategy(supply Balance, slip Ratio, slipOK bool, collat Balance, maxSlip Ratio) LiquidationStrategy {
	if supply.IsZero() {
		return StrategyAuction
	}
	if collat.Cmp(supply) < 0 {
		return StrategyAuction
	}
	if maxSlip.IsZero() {
		return StrategyAuction
	}
	if !slipOK {
		return StrategyAuction
	}
	if slip.Cmp(maxSlip.fixedPoint) > 0 {
		return StrategyAuction
	}
	return StrategyExchange
}

// Liquidate is the unsigned dispatch entry point for "liquidate" (spec
// §4.7, §6.1): it enforces !is_shutdown before delegating to
// LiquidateUnsafeCDP, mirroring the Acala original's liquidate() call
// wrapping liquidate_unsafe_cdp().
func (e *Engine) Liquidate(ctx context.Context, c CollateralID, a AccountID) error {
	shutdown, err := e.state.GetShutdown()
	if err != nil {
		return err
	}
	if shutdown {
		return ErrAlreadyShutdown
	}
	return e.LiquidateUnsafeCDP(ctx, c, a)
}

// Settle is the unsigned dispatch entry point for "settle" (spec §4.7,
// §6.1): it enforces is_shutdown before delegating to SettleCDPHasDebit,
// mirroring the Acala original's settle() call wrapping
// settle_cdp_has_debit().
func (e *Engine) Settle(ctx context.Context, c CollateralID, a AccountID) error {
	shutdown, err := e.state.GetShutdown()
	if err != nil {
		return err
	}
	if !shutdown {
		return ErrMustAfterShutdown
	}
	return e.SettleCDPHasDebit(ctx, c, a)
}

// LiquidateUnsafeCDP executes spec §4.5.1. The caller is responsible for
// enforcing !is_shutdown before invoking this (spec §6.1's dispatch
// precondition); IsUnsafe is re-checked here and failure is reported as
// ErrMustBeUnsafe.
func (e *Engine) LiquidateUnsafeCDP(ctx context.Context, c CollateralID, a AccountID) error {
	if err := e.guard(); err != nil {
		return err
	}

	unsafe, err := e.IsUnsafe(ctx, c, a)
	if err != nil {
		return err
	}
	if !unsafe {
		return ErrMustBeUnsafe
	}

	debit, err := e.ledger.Debits(ctx, c, a)
	if err != nil {
		return err
	}
	collat, err := e.ledger.Collaterals(ctx, a, c)
	if err != nil {
		return err
	}

	// Confiscate first: this is the single source of truth after which the
	// CDP holds neither asset nor obligation.
	if err := e.ledger.ConfiscateCollateralAndDebit(ctx, a, c, collat, debit); err != nil {
		return err
	}

	badDebt, err := e.GetDebitValue(c, debit)
	if err != nil {
		return err
	}

	penalty, err := e.LiquidationPenalty(c)
	if err != nil {
		return err
	}
	penaltyAmount := Balance{v: rayMulInt(penalty.raw(), badDebt.Int())}
	targetStable := badDebt.Add(penaltyAmount)

	supply, err := e.dex.GetSupplyAmount(ctx, c, e.stableCurrencyID, targetStable)
	if err != nil {
		return err
	}
	slip, slipOK, err := e.dex.GetExchangeSlippage(ctx, c, e.stableCurrencyID, supply)
	if err != nil {
		return err
	}

	strategy := decideLiquidationStrategy(supply, slip, slipOK, collat, e.defaults.MaxSlippageSwapWithDEX)

	switch strategy {
	case StrategyExchange:
		if err := e.treasury.SwapCollateralToStable(ctx, c, supply, targetStable); err == nil {
			refund := collat.Sub(supply)
			if !refund.IsZero() {
				if err := e.treasury.TransferCollateralTo(ctx, c, a, refund); err != nil {
					// Asserted infallible by the design (treasury holds at
					// least collat post-swap); a defensive build logs
					// rather than aborting, per spec §9's open question.
					e.logger.Error("cdp: refund transfer after successful swap failed",
						"collateral_id", string(c), logging.MaskField("account", a.String()), "error", err)
				}
			}
		}
		// A failed swap leaves the treasury holding the seized collateral;
		// the engine does not retry here (spec §4.5.1 step 7).
	default:
		if err := e.treasury.CreateCollateralAuctions(ctx, c, collat, targetStable, a); err != nil {
			return err
		}
	}

	if e.metrics != nil {
		e.metrics.LiquidationsByStrat.WithLabelValues(string(c), strategy.String()).Inc()
	}

	e.emit(events.LiquidateUnsafeCDP{
		CollateralID: string(c),
		Account:      a.String(),
		Collateral:   collat.Int(),
		BadDebt:      badDebt.Int(),
		Strategy:     strategy.String(),
	})

	return nil
}

// SettleCDPHasDebit executes spec §4.5.2. The caller is responsible for
// enforcing is_shutdown before invoking this.
func (e *Engine) SettleCDPHasDebit(ctx context.Context, c CollateralID, a AccountID) error {
	if err := e.guard(); err != nil {
		return err
	}

	debit, err := e.ledger.Debits(ctx, c, a)
	if err != nil {
		return err
	}
	if debit.IsZero() {
		return ErrNoDebitValue
	}
	collat, err := e.ledger.Collaterals(ctx, a, c)
	if err != nil {
		return err
	}

	// Inverted direction from liquidation: stablecoin -> collateral.
	price, ok, err := e.oracle.GetRelativePrice(ctx, e.stableCurrencyID, c)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidFeedPrice
	}

	badDebt, err := e.GetDebitValue(c, debit)
	if err != nil {
		return err
	}
	confiscate := price.MulBalance(badDebt).Min(collat)

	if err := e.ledger.ConfiscateCollateralAndDebit(ctx, a, c, confiscate, debit); err != nil {
		return err
	}

	e.emit(events.SettleCDPInDebit{CollateralID: string(c), Account: a.String()})
	return nil
}
