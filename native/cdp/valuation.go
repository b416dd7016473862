package cdp

// GetDebitValue converts debit units into stablecoin value using C's
// current debit exchange rate, saturating (spec §4.3).
func (e *Engine) GetDebitValue(c CollateralID, debitUnits Balance) (Balance, error) {
	rate, err := e.DebitExchangeRate(c)
	if err != nil {
		return Balance{}, err
	}
	return rate.MulBalance(debitUnits), nil
}

// CalculateCollateralRatio returns locked_value / debit_value as a Ratio.
// If debit_value is zero, returns the zero Ratio (not MaxRatio); callers
// must treat zero-debit accounts as safe explicitly and never invoke a ratio
// comparison against this return value for such accounts, per spec §4.3.
func (e *Engine) CalculateCollateralRatio(c CollateralID, collateralBalance, debitUnits Balance, price Price) (Ratio, error) {
	debitValue, err := e.GetDebitValue(c, debitUnits)
	if err != nil {
		return Ratio{}, err
	}
	if debitValue.IsZero() {
		return Ratio{}, nil
	}
	lockedValue := price.MulBalance(collateralBalance)
	raw, ok := rayDivInt(lockedValue.Int(), debitValue.Int())
	if !ok {
		return Ratio{}, nil
	}
	return RatioFromRaw(raw), nil
}
