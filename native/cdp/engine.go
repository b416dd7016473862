package cdp

import (
	"context"
	"log/slog"

	"cdpengine/core/events"
	nativecommon "cdpengine/native/common"
	"cdpengine/observability/logging"
	"cdpengine/observability/metrics"
)

const moduleName = "cdp"

// Engine is the CDP Engine: Params Store, Rate Engine, Valuation, Risk
// Manager and Liquidator combined behind one configuration surface,
// following the teacher's native/lending.Engine shape (engineState
// injection, SetXxx configuration methods, pause-guard on every mutating
// call).
type Engine struct {
	state    engineState
	pauses   nativecommon.PauseView
	ledger   Ledger
	treasury Treasury
	oracle   Oracle
	dex      DEX
	emitter  events.Emitter
	logger   *slog.Logger
	metrics  *metrics.CDPMetrics

	defaults           Defaults
	allowedCollaterals []CollateralID
	stableCurrencyID   CollateralID
	blockHeight        uint64
}

// NewEngine constructs an Engine from a decoded Config. Collaborators and
// state must be wired in afterwards via the SetXxx methods, mirroring the
// teacher's two-phase construction (cheap NewEngine, then Set* injection
// once dependencies are available).
func NewEngine(cfg Config) *Engine {
	return &Engine{
		emitter:            events.NoopEmitter{},
		logger:             logging.Setup("cdp-engine", ""),
		metrics:            metrics.CDPMetricsSingleton(),
		defaults:           cfg.Defaults(),
		allowedCollaterals: cfg.Collaterals(),
		stableCurrencyID:   CollateralID(cfg.StableCurrencyID),
	}
}

func (e *Engine) SetState(s engineState) *Engine { e.state = s; return e }

func (e *Engine) SetPauses(p nativecommon.PauseView) *Engine   { e.pauses = p; return e }
func (e *Engine) SetLedger(l Ledger) *Engine                   { e.ledger = l; return e }
func (e *Engine) SetTreasury(t Treasury) *Engine               { e.treasury = t; return e }
func (e *Engine) SetOracle(o Oracle) *Engine                   { e.oracle = o; return e }
func (e *Engine) SetDEX(d DEX) *Engine                         { e.dex = d; return e }
func (e *Engine) SetEmitter(em events.Emitter) *Engine         { e.emitter = em; return e }
func (e *Engine) SetLogger(l *slog.Logger) *Engine             { e.logger = l; return e }
func (e *Engine) SetMetrics(m *metrics.CDPMetrics) *Engine     { e.metrics = m; return e }
func (e *Engine) SetBlockHeight(h uint64) *Engine              { e.blockHeight = h; return e }
func (e *Engine) BlockHeight() uint64                          { return e.blockHeight }
func (e *Engine) StableCurrencyID() CollateralID                { return e.stableCurrencyID }
func (e *Engine) AllowedCollaterals() []CollateralID            { return e.allowedCollaterals }

func (e *Engine) isAllowedCollateral(c CollateralID) bool {
	for _, id := range e.allowedCollaterals {
		if id == c {
			return true
		}
	}
	return false
}

func (e *Engine) guard() error {
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) emit(ev events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
}

// --- Global state: is_shutdown ---------------------------------------

func (e *Engine) IsShutdown(ctx context.Context) (bool, error) {
	return e.state.GetShutdown()
}

// OnEmergencyShutdown sets is_shutdown true. Idempotent: calling it again
// after shutdown is a no-op success, matching the Acala original.
func (e *Engine) OnEmergencyShutdown(ctx context.Context) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.state.PutShutdown(true)
}

// --- Params Store ------------------------------------------------------

func (e *Engine) riskParams(c CollateralID) (RiskParams, error) {
	p, ok, err := e.state.GetRiskParams(c)
	if err != nil {
		return RiskParams{}, err
	}
	if !ok {
		return RiskParams{}, nil
	}
	return p, nil
}

// StabilityFee returns params(C).stability_fee.unwrap_or(0) + global,
// saturating (spec §4.1).
func (e *Engine) StabilityFee(c CollateralID) (Rate, error) {
	p, err := e.riskParams(c)
	if err != nil {
		return Rate{}, err
	}
	global, err := e.state.GetGlobalStabilityFee()
	if err != nil {
		return Rate{}, err
	}
	return p.StabilityFeeWithGlobal(global), nil
}

func (e *Engine) LiquidationRatio(c CollateralID) (Ratio, error) {
	p, err := e.riskParams(c)
	if err != nil {
		return Ratio{}, err
	}
	return p.LiquidationRatioOrDefault(e.defaults), nil
}

func (e *Engine) LiquidationPenalty(c CollateralID) (Rate, error) {
	p, err := e.riskParams(c)
	if err != nil {
		return Rate{}, err
	}
	return p.LiquidationPenaltyOrDefault(e.defaults), nil
}

func (e *Engine) RequiredCollateralRatio(c CollateralID) (*Ratio, error) {
	p, err := e.riskParams(c)
	if err != nil {
		return nil, err
	}
	return p.RequiredCollateralRatio, nil
}

func (e *Engine) MaximumTotalDebitValue(c CollateralID) (Balance, error) {
	p, err := e.riskParams(c)
	if err != nil {
		return Balance{}, err
	}
	return p.MaximumTotalDebitValue, nil
}

// DebitExchangeRate returns the stored per-collateral rate, or the engine
// default if none has ever been recorded (spec §4.1).
func (e *Engine) DebitExchangeRate(c CollateralID) (ExchangeRate, error) {
	r, ok, err := e.state.GetDebitExchangeRate(c)
	if err != nil {
		return ExchangeRate{}, err
	}
	if !ok {
		return e.defaults.DefaultDebitExchangeRate, nil
	}
	return r, nil
}

// SetGlobalParams replaces global_stability_fee and emits
// GlobalStabilityFeeUpdated. Privileged: the caller (dispatcher) is
// responsible for origin checks; this method assumes it has already been
// authorized, per spec §6.1.
func (e *Engine) SetGlobalParams(ctx context.Context, fee Rate) error {
	if err := e.guard(); err != nil {
		return err
	}
	if err := e.state.PutGlobalStabilityFee(fee); err != nil {
		return err
	}
	e.emit(events.GlobalStabilityFeeUpdated{GlobalStabilityFee: fee.String()})
	return nil
}

// SetCollateralParams applies the five tri-valued updates to C's
// RiskParams, emitting one event per field given a NewValue before persisting once,
// per spec §4.1. Rejects InvalidCollateralType before any mutation.
func (e *Engine) SetCollateralParams(
	ctx context.Context,
	c CollateralID,
	stabilityFee ChangeRate,
	liquidationRatio ChangeRatio,
	liquidationPenalty ChangeRate,
	requiredCollateralRatio ChangeRatio,
	maximumTotalDebitValue ChangeBalance,
) error {
	if err := e.guard(); err != nil {
		return err
	}
	if !e.isAllowedCollateral(c) {
		return ErrInvalidCollateralType
	}
	existing, err := e.riskParams(c)
	if err != nil {
		return err
	}

	next := applyCollateralParamsChange(
		existing,
		stabilityFee, liquidationRatio, liquidationPenalty, requiredCollateralRatio, maximumTotalDebitValue,
		func(v *Rate) {
			var s *string
			if v != nil {
				str := v.String()
				s = &str
			}
			e.emit(events.StabilityFeeUpdated{CollateralID: string(c), StabilityFee: s})
		},
		func(v *Ratio) {
			var s *string
			if v != nil {
				str := v.String()
				s = &str
			}
			e.emit(events.LiquidationRatioUpdated{CollateralID: string(c), LiquidationRatio: s})
		},
		func(v *Rate) {
			var s *string
			if v != nil {
				str := v.String()
				s = &str
			}
			e.emit(events.LiquidationPenaltyUpdated{CollateralID: string(c), LiquidationPenalty: s})
		},
		func(v *Ratio) {
			var s *string
			if v != nil {
				str := v.String()
				s = &str
			}
			e.emit(events.RequiredCollateralRatioUpdated{CollateralID: string(c), RequiredCollateralRatio: s})
		},
		func(v Balance) {
			e.emit(events.MaximumTotalDebitValueUpdated{CollateralID: string(c), MaximumTotalDebitValue: v.Int()})
		},
	)

	return e.state.PutRiskParams(c, next)
}

// ApplyGenesis seeds CollateralParams and GlobalStabilityFee from a decoded
// GenesisConfig at chain start (spec §6.4), in list order. It goes straight
// through SetGlobalParams/SetCollateralParams so genesis seeding emits the
// same events a later runtime update would.
func (e *Engine) ApplyGenesis(ctx context.Context, g GenesisConfig) error {
	if err := e.SetGlobalParams(ctx, g.GlobalStabilityFee); err != nil {
		return err
	}
	for _, p := range g.CollateralsParams {
		stabilityFee := NoChangeRate()
		if p.StabilityFee != nil {
			stabilityFee = SetRate(*p.StabilityFee)
		}
		liquidationRatio := NoChangeRatio()
		if p.LiquidationRatio != nil {
			liquidationRatio = SetRatio(*p.LiquidationRatio)
		}
		liquidationPenalty := NoChangeRate()
		if p.LiquidationPenalty != nil {
			liquidationPenalty = SetRate(*p.LiquidationPenalty)
		}
		requiredCollateralRatio := NoChangeRatio()
		if p.RequiredCollateralRatio != nil {
			requiredCollateralRatio = SetRatio(*p.RequiredCollateralRatio)
		}

		if err := e.SetCollateralParams(
			ctx, p.CollateralID,
			stabilityFee, liquidationRatio, liquidationPenalty, requiredCollateralRatio,
			SetBalance(p.MaximumTotalDebitValue),
		); err != nil {
			return err
		}
	}
	return nil
}

// AdjustPosition validates C against AllowedCollaterals and delegates to
// the external Ledger. It is not itself part of spec.md's enumerated
// operations, but gives the Risk Manager predicates below a real on-chain
// caller, matching the Acala original's adjust_position passthrough.
func (e *Engine) AdjustPosition(ctx context.Context, a AccountID, c CollateralID, deltaCollateral, deltaDebitUnits Balance) error {
	if err := e.guard(); err != nil {
		return err
	}
	if !e.isAllowedCollateral(c) {
		return ErrInvalidCollateralType
	}
	return e.ledger.AdjustPosition(ctx, a, c, deltaCollateral, deltaDebitUnits)
}
