package cdp

import (
	"context"
	"math/big"
)

// OnFinalize advances the debit exchange rate for every allowed collateral
// by its stability fee, in the fixed declared order, and is a no-op once
// shutdown (spec §4.2). The exchange rate only advances once the matching
// stablecoin surplus has actually been credited to the treasury
// ("surplus-first"): a rejected Treasury.OnSystemSurplus leaves the rate
// unchanged and is not itself an error.
func (e *Engine) OnFinalize(ctx context.Context) error {
	if err := e.guard(); err != nil {
		return err
	}

	shutdown, err := e.state.GetShutdown()
	if err != nil {
		return err
	}
	if shutdown {
		return nil
	}

	for _, c := range e.allowedCollaterals {
		if err := e.accrueOne(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) accrueOne(ctx context.Context, c CollateralID) error {
	er, err := e.DebitExchangeRate(c)
	if err != nil {
		return err
	}
	fee, err := e.StabilityFee(c)
	if err != nil {
		return err
	}
	totalDebits, err := e.ledger.TotalDebits(ctx, c)
	if err != nil {
		return err
	}

	if fee.IsZero() || totalDebits.IsZero() {
		return nil
	}

	deltaER := Rate{er.fixedPoint.Mul(fee.fixedPoint)}
	totalDebitValue, err := e.GetDebitValue(c, totalDebits)
	if err != nil {
		return err
	}
	issue := Balance{v: rayMulInt(deltaER.raw(), totalDebitValue.Int())}

	if err := e.treasury.OnSystemSurplus(ctx, issue); err != nil {
		e.logger.Warn("cdp: treasury rejected system surplus, skipping accrual",
			"collateral_id", string(c), "issue", issue.String(), "error", err)
		return nil
	}

	next := er.Add(Rate{deltaER.fixedPoint})
	if err := e.state.PutDebitExchangeRate(c, next); err != nil {
		return err
	}

	if e.metrics != nil {
		issuedFloat, _ := new(big.Float).SetInt(issue.Int()).Float64()
		e.metrics.AccrualIssued.WithLabelValues(string(c)).Add(issuedFloat)
		rateFloat, _ := new(big.Rat).SetFrac(next.raw(), ray).Float64()
		e.metrics.DebitExchangeRate.WithLabelValues(string(c)).Set(rateFloat)
	}

	return nil
}
