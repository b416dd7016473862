package cdp

import "context"

// CheckPositionValid is the synchronous predicate the Ledger invokes
// whenever a position is adjusted (spec §4.4). A zero debit_value always
// passes; otherwise an oracle price is required and the ratio must clear
// both the configured required_collateral_ratio (if any) and the
// liquidation_ratio, with a minimum-dust floor on the remaining debit
// value.
func (e *Engine) CheckPositionValid(ctx context.Context, c CollateralID, collateralBalance, debitUnits Balance) error {
	debitValue, err := e.GetDebitValue(c, debitUnits)
	if err != nil {
		return err
	}
	if debitValue.IsZero() {
		return nil
	}

	price, ok, err := e.oracle.GetRelativePrice(ctx, c, e.stableCurrencyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidFeedPrice
	}

	ratio, err := e.CalculateCollateralRatio(c, collateralBalance, debitUnits, price)
	if err != nil {
		return err
	}

	required, err := e.RequiredCollateralRatio(c)
	if err != nil {
		return err
	}
	if required != nil && ratio.Less(*required) {
		return ErrBelowRequiredCollateralRatio
	}

	liquidationRatio, err := e.LiquidationRatio(c)
	if err != nil {
		return err
	}
	if ratio.Less(liquidationRatio) {
		return ErrBelowLiquidationRatio
	}

	if debitValue.Cmp(e.defaults.MinimumDebitValue) < 0 {
		return ErrRemainDebitValueTooSmall
	}

	return nil
}

// CheckDebitCap enforces the per-collateral hard cap on total debit value
// (spec §4.4).
func (e *Engine) CheckDebitCap(ctx context.Context, c CollateralID, totalDebitUnits Balance) error {
	totalDebitValue, err := e.GetDebitValue(c, totalDebitUnits)
	if err != nil {
		return err
	}
	cap, err := e.MaximumTotalDebitValue(c)
	if err != nil {
		return err
	}
	if totalDebitValue.Cmp(cap) > 0 {
		return ErrExceedDebitValueHardCap
	}
	return nil
}

// IsUnsafe returns whether (C, A) should be liquidated: false on zero
// debit, false (conservative) when the oracle cannot price the collateral,
// else true iff the collateral ratio is strictly below the liquidation
// ratio (spec §4.4).
func (e *Engine) IsUnsafe(ctx context.Context, c CollateralID, a AccountID) (bool, error) {
	debitUnits, err := e.ledger.Debits(ctx, c, a)
	if err != nil {
		return false, err
	}
	if debitUnits.IsZero() {
		return false, nil
	}

	price, ok, err := e.oracle.GetRelativePrice(ctx, c, e.stableCurrencyID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	collateralBalance, err := e.ledger.Collaterals(ctx, a, c)
	if err != nil {
		return false, err
	}
	ratio, err := e.CalculateCollateralRatio(c, collateralBalance, debitUnits, price)
	if err != nil {
		return false, err
	}
	liquidationRatio, err := e.LiquidationRatio(c)
	if err != nil {
		return false, err
	}
	return ratio.Less(liquidationRatio), nil
}
