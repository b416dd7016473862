package events

import (
	"math/big"

	"cdpengine/core/types"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatOptionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// LiquidateUnsafeCDP is emitted when an unsafe position has been
// confiscated and liquidated, naming which strategy handled it.
type LiquidateUnsafeCDP struct {
	CollateralID string
	Account      string
	Collateral   *big.Int
	BadDebt      *big.Int
	Strategy     string
}

func (LiquidateUnsafeCDP) EventType() string { return "cdp.liquidate_unsafe_cdp" }

func (e LiquidateUnsafeCDP) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"collateral_id": e.CollateralID,
			"account":       e.Account,
			"collateral":    formatAmount(e.Collateral),
			"bad_debt":      formatAmount(e.BadDebt),
			"strategy":      e.Strategy,
		},
	}
}

// SettleCDPInDebit is emitted when a position is force-settled during
// emergency shutdown.
type SettleCDPInDebit struct {
	CollateralID string
	Account      string
}

func (SettleCDPInDebit) EventType() string { return "cdp.settle_cdp_in_debit" }

func (e SettleCDPInDebit) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"collateral_id": e.CollateralID,
			"account":       e.Account,
		},
	}
}

// StabilityFeeUpdated is emitted by set_collateral_params when the
// per-collateral stability fee override changes.
type StabilityFeeUpdated struct {
	CollateralID string
	StabilityFee *string
}

func (StabilityFeeUpdated) EventType() string { return "cdp.stability_fee_updated" }

func (e StabilityFeeUpdated) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"collateral_id": e.CollateralID,
			"stability_fee": formatOptionalString(e.StabilityFee),
		},
	}
}

// LiquidationRatioUpdated is emitted by set_collateral_params when the
// per-collateral liquidation ratio override changes.
type LiquidationRatioUpdated struct {
	CollateralID     string
	LiquidationRatio *string
}

func (LiquidationRatioUpdated) EventType() string { return "cdp.liquidation_ratio_updated" }

func (e LiquidationRatioUpdated) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"collateral_id":     e.CollateralID,
			"liquidation_ratio": formatOptionalString(e.LiquidationRatio),
		},
	}
}

// LiquidationPenaltyUpdated is emitted by set_collateral_params when the
// per-collateral liquidation penalty override changes.
type LiquidationPenaltyUpdated struct {
	CollateralID       string
	LiquidationPenalty *string
}

func (LiquidationPenaltyUpdated) EventType() string { return "cdp.liquidation_penalty_updated" }

func (e LiquidationPenaltyUpdated) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"collateral_id":       e.CollateralID,
			"liquidation_penalty": formatOptionalString(e.LiquidationPenalty),
		},
	}
}

// RequiredCollateralRatioUpdated is emitted by set_collateral_params when
// the per-collateral required collateral ratio override changes.
type RequiredCollateralRatioUpdated struct {
	CollateralID            string
	RequiredCollateralRatio *string
}

func (RequiredCollateralRatioUpdated) EventType() string {
	return "cdp.required_collateral_ratio_updated"
}

func (e RequiredCollateralRatioUpdated) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"collateral_id":             e.CollateralID,
			"required_collateral_ratio": formatOptionalString(e.RequiredCollateralRatio),
		},
	}
}

// MaximumTotalDebitValueUpdated is emitted by set_collateral_params when
// the per-collateral hard debit cap changes.
type MaximumTotalDebitValueUpdated struct {
	CollateralID           string
	MaximumTotalDebitValue *big.Int
}

func (MaximumTotalDebitValueUpdated) EventType() string {
	return "cdp.maximum_total_debit_value_updated"
}

func (e MaximumTotalDebitValueUpdated) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"collateral_id":             e.CollateralID,
			"maximum_total_debit_value": formatAmount(e.MaximumTotalDebitValue),
		},
	}
}

// GlobalStabilityFeeUpdated is emitted by set_global_params.
type GlobalStabilityFeeUpdated struct {
	GlobalStabilityFee string
}

func (GlobalStabilityFeeUpdated) EventType() string { return "cdp.global_stability_fee_updated" }

func (e GlobalStabilityFeeUpdated) Event() *types.Event {
	return &types.Event{
		Type: e.EventType(),
		Attributes: map[string]string{
			"global_stability_fee": e.GlobalStabilityFee,
		},
	}
}
