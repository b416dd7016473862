package cdp

import "context"

// Ledger is the external vault ledger holding per-account collateral and
// debit balances. The engine owns no per-account state of its own; every
// read or mutation of a position flows through this interface.
type Ledger interface {
	TotalDebits(ctx context.Context, c CollateralID) (Balance, error)
	Debits(ctx context.Context, c CollateralID, a AccountID) (Balance, error)
	Collaterals(ctx context.Context, a AccountID, c CollateralID) (Balance, error)

	// IterDebitsPrefix visits every (account, debit units) pair recorded
	// for c. visit returning a non-nil error stops iteration and the error
	// propagates to the caller.
	IterDebitsPrefix(ctx context.Context, c CollateralID, visit func(AccountID, Balance) error) error

	AdjustPosition(ctx context.Context, a AccountID, c CollateralID, deltaCollateral, deltaDebitUnits Balance) error
	ConfiscateCollateralAndDebit(ctx context.Context, a AccountID, c CollateralID, collateral, debitUnits Balance) error
}

// Treasury burns/mints stablecoin, runs collateral auctions, and swaps
// seized collateral back to stablecoin on the liquidator's behalf.
type Treasury interface {
	OnSystemSurplus(ctx context.Context, issue Balance) error
	SwapCollateralToStable(ctx context.Context, c CollateralID, supplyCollateral, minStable Balance) error
	TransferCollateralTo(ctx context.Context, c CollateralID, a AccountID, amount Balance) error
	CreateCollateralAuctions(ctx context.Context, c CollateralID, collateral, targetStable Balance, a AccountID) error
}

// Oracle resolves relative prices between two asset kinds. A false ok
// return means "no price available."
type Oracle interface {
	GetRelativePrice(ctx context.Context, from, to CollateralID) (price Price, ok bool, err error)
}

// DEX quotes swap amounts for a prospective liquidation without executing
// anything; execution happens through Treasury.SwapCollateralToStable.
type DEX interface {
	GetSupplyAmount(ctx context.Context, from, to CollateralID, targetOut Balance) (Balance, error)
	// GetExchangeSlippage returns ok=false when no slippage estimate can be
	// produced (e.g. an empty pool), which forces the auction strategy.
	GetExchangeSlippage(ctx context.Context, from, to CollateralID, supply Balance) (slip Ratio, ok bool, err error)
}
