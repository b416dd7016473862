package cdp

import (
	"context"
	"errors"

	"cdpengine/observability/metrics"
)

// Call names accepted by the Unsigned Validator (spec §4.7).
const (
	CallLiquidate = "liquidate"
	CallSettle    = "settle"
)

// ErrUnknownCall is the validator's rejection for any call other than
// liquidate/settle (spec §7's "Call" rejection kind).
var ErrUnknownCall = errors.New("cdp: unknown unsigned call")

// ErrStale is the validator's rejection when a proposed call no longer
// matches its validity precondition.
var ErrStale = errors.New("cdp: stale unsigned call")

// UnsignedCall is a scanner-submitted liquidate/settle proposal.
type UnsignedCall struct {
	Method       string
	CollateralID CollateralID
	Account      AccountID
}

// ValidityResult mirrors the Acala original's ValidTransaction builder
// (tag-prefix, priority, provides, longevity, propagate), translated into a
// plain struct since this module does not carry a Substrate-style
// transaction-validity framework.
type ValidityResult struct {
	Priority  uint64
	Provides  [][]byte
	Longevity uint64
	Propagate bool
}

// UnsignedValidator is the mempool gate described in spec §4.7: the only
// path by which the engine's unsigned calls are admitted.
type UnsignedValidator struct {
	engine   *Engine
	priority uint64
	metrics  *metrics.CDPMetrics
}

func (e *Engine) NewUnsignedValidator(priority uint64) *UnsignedValidator {
	return &UnsignedValidator{engine: e, priority: priority, metrics: e.metrics}
}

// ValidateUnsigned implements spec §4.7 exactly: liquidate requires
// is_unsafe && !is_shutdown with a block-number-qualified provides-tag;
// settle requires debits>0 && is_shutdown with a provides-tag that omits
// the block number (idempotent per (C,A), so only one needs to land).
func (v *UnsignedValidator) ValidateUnsigned(ctx context.Context, blockNumber uint64, call UnsignedCall) (*ValidityResult, error) {
	switch call.Method {
	case CallLiquidate:
		shutdown, err := v.engine.IsShutdown(ctx)
		if err != nil {
			return nil, err
		}
		unsafe, err := v.engine.IsUnsafe(ctx, call.CollateralID, call.Account)
		if err != nil {
			return nil, err
		}
		if !unsafe || shutdown {
			v.reject(CallLiquidate, "stale")
			return nil, ErrStale
		}
		return &ValidityResult{
			Priority:  v.priority,
			Provides:  [][]byte{provideTagLiquidate(blockNumber, call.CollateralID, call.Account)},
			Longevity: 64,
			Propagate: true,
		}, nil

	case CallSettle:
		shutdown, err := v.engine.IsShutdown(ctx)
		if err != nil {
			return nil, err
		}
		debit, err := v.engine.ledger.Debits(ctx, call.CollateralID, call.Account)
		if err != nil {
			return nil, err
		}
		if debit.IsZero() || !shutdown {
			v.reject(CallSettle, "stale")
			return nil, ErrStale
		}
		return &ValidityResult{
			Priority:  v.priority,
			Provides:  [][]byte{provideTagSettle(call.CollateralID, call.Account)},
			Longevity: 64,
			Propagate: true,
		}, nil

	default:
		v.reject(call.Method, "unknown_call")
		return nil, ErrUnknownCall
	}
}

func (v *UnsignedValidator) reject(call, reason string) {
	if v.metrics != nil {
		v.metrics.ValidatorRejections.WithLabelValues(call, reason).Inc()
	}
}

func provideTagLiquidate(blockNumber uint64, c CollateralID, a AccountID) []byte {
	return []byte("CDPEngineOffchainWorker/liquidate/" +
		uint64ToString(blockNumber) + "/" + string(c) + "/" + a.String())
}

func provideTagSettle(c CollateralID, a AccountID) []byte {
	return []byte("CDPEngineOffchainWorker/settle/" + string(c) + "/" + a.String())
}

func uint64ToString(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
