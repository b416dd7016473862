package cdp

import (
	"math/big"

	"cdpengine/crypto"
)

// CollateralID identifies a kind of collateral accepted by the engine. It is
// a plain string rather than an address: it names a collateral class, not an
// account.
type CollateralID string

// AccountID identifies a position owner. Positions are addressed the same
// way wallets are elsewhere in the stack.
type AccountID = crypto.Address

// Balance is a non-negative, saturating integer count of either collateral
// or stablecoin units.
type Balance struct {
	v *big.Int
}

// NewBalance builds a Balance from a non-negative int64. Negative inputs
// saturate to zero.
func NewBalance(v int64) Balance {
	if v < 0 {
		return Balance{v: big.NewInt(0)}
	}
	return Balance{v: big.NewInt(v)}
}

// BalanceFromBigInt adopts a *big.Int as a Balance, saturating negative
// values to zero and treating a nil input as zero.
func BalanceFromBigInt(v *big.Int) Balance {
	if v == nil {
		return Balance{v: big.NewInt(0)}
	}
	return Balance{v: saturateNonNegative(new(big.Int).Set(v))}
}

// Int returns the underlying big.Int. Callers must not mutate it.
func (b Balance) Int() *big.Int {
	if b.v == nil {
		return big.NewInt(0)
	}
	return b.v
}

func (b Balance) IsZero() bool { return b.Int().Sign() == 0 }

func (b Balance) Cmp(other Balance) int { return b.Int().Cmp(other.Int()) }

func (b Balance) Add(other Balance) Balance {
	return Balance{v: addSaturating(b.Int(), other.Int())}
}

func (b Balance) Sub(other Balance) Balance {
	return Balance{v: subSaturating(b.Int(), other.Int())}
}

func (b Balance) Min(other Balance) Balance {
	return Balance{v: minBig(b.Int(), other.Int())}
}

func (b Balance) String() string { return b.Int().String() }

// fixedPoint is the shared representation for Rate, Ratio and ExchangeRate:
// a non-negative big.Int scaled by ray (1e27).
type fixedPoint struct {
	v *big.Int
}

func fixedFromRaw(v *big.Int) fixedPoint {
	if v == nil {
		return fixedPoint{v: big.NewInt(0)}
	}
	return fixedPoint{v: saturateNonNegative(new(big.Int).Set(v))}
}

// fixedFromRat converts a ratio p/q (as integers) into a ray-scaled fixed
// point, rounding half-up. Used to build constants like "1.5" or "0.1" from
// readable numerator/denominator pairs.
func fixedFromRat(numerator, denominator int64) fixedPoint {
	num := new(big.Int).Mul(big.NewInt(numerator), ray)
	den := big.NewInt(denominator)
	if den.Sign() == 0 {
		return fixedPoint{v: big.NewInt(0)}
	}
	num.Add(num, halfUp(den))
	num.Quo(num, den)
	return fixedPoint{v: saturateNonNegative(num)}
}

func (f fixedPoint) raw() *big.Int {
	if f.v == nil {
		return big.NewInt(0)
	}
	return f.v
}

func (f fixedPoint) IsZero() bool { return f.raw().Sign() == 0 }

func (f fixedPoint) Cmp(other fixedPoint) int { return f.raw().Cmp(other.raw()) }

func (f fixedPoint) Add(other fixedPoint) fixedPoint {
	return fixedPoint{v: addSaturating(f.raw(), other.raw())}
}

func (f fixedPoint) Mul(other fixedPoint) fixedPoint {
	return fixedPoint{v: rayMul(f.raw(), other.raw())}
}

func (f fixedPoint) String() string {
	// Render as a decimal with exactly 18 fractional digits (rounded, not
	// trimmed), e.g. "1.010000000000000000" rather than the raw ray-scaled
	// integer.
	r := new(big.Rat).SetFrac(f.raw(), ray)
	return r.FloatString(18)
}

// Rate is a non-negative fixed-point value, additive and applied per block
// (stability fees, liquidation penalty).
type Rate struct{ fixedPoint }

func NewRate(numerator, denominator int64) Rate { return Rate{fixedFromRat(numerator, denominator)} }
func RateFromRaw(v *big.Int) Rate               { return Rate{fixedFromRaw(v)} }
func ZeroRate() Rate                            { return Rate{fixedFromRaw(big.NewInt(0))} }

func (r Rate) Add(other Rate) Rate { return Rate{r.fixedPoint.Add(other.fixedPoint)} }

// Ratio is a non-negative fixed-point value used for collateral ratios and
// DEX slippage.
type Ratio struct{ fixedPoint }

func NewRatio(numerator, denominator int64) Ratio {
	return Ratio{fixedFromRat(numerator, denominator)}
}
func RatioFromRaw(v *big.Int) Ratio { return Ratio{fixedFromRaw(v)} }

// MaxRatio is a Ratio that compares greater than any realistic
// liquidation_ratio. No computation in this package returns it:
// CalculateCollateralRatio returns the zero Ratio on a zero debit value.
func MaxRatio() Ratio {
	// 2^128 ray-units: far larger than any configured liquidation ratio,
	// without using a literal "infinite" sentinel that could be mishandled
	// by arithmetic.
	maxRaw := new(big.Int).Lsh(big.NewInt(1), 128)
	return Ratio{fixedFromRaw(maxRaw)}
}

func (r Ratio) GreaterOrEqual(other Ratio) bool { return r.Cmp(other.fixedPoint) >= 0 }
func (r Ratio) Less(other Ratio) bool           { return r.Cmp(other.fixedPoint) < 0 }

// ExchangeRate is a strictly positive fixed-point multiplier converting
// debit units into stablecoin value.
type ExchangeRate struct{ fixedPoint }

func NewExchangeRate(numerator, denominator int64) ExchangeRate {
	return ExchangeRate{fixedFromRat(numerator, denominator)}
}
func ExchangeRateFromRaw(v *big.Int) ExchangeRate { return ExchangeRate{fixedFromRaw(v)} }

func (e ExchangeRate) Add(delta Rate) ExchangeRate {
	return ExchangeRate{e.fixedPoint.Add(delta.fixedPoint)}
}

// MulBalance multiplies a debit-unit Balance by this exchange rate,
// rounding half-up, producing a Balance denominated in stablecoin.
func (e ExchangeRate) MulBalance(b Balance) Balance {
	return Balance{v: rayMulInt(e.raw(), b.Int())}
}

// Price is a relative price between two asset kinds (collateral⇄stablecoin),
// represented the same way as Ratio since both are non-negative
// multipliers.
type Price struct{ fixedPoint }

func NewPrice(numerator, denominator int64) Price { return Price{fixedFromRat(numerator, denominator)} }
func PriceFromRaw(v *big.Int) Price               { return Price{fixedFromRaw(v)} }

// MulBalance multiplies a Balance by this price, rounding half-up.
func (p Price) MulBalance(b Balance) Balance {
	return Balance{v: rayMulInt(p.raw(), b.Int())}
}

// LiquidationStrategy is the outcome of the Liquidator's DEX-vs-auction
// decision.
type LiquidationStrategy int

const (
	StrategyAuction LiquidationStrategy = iota
	StrategyExchange
)

func (s LiquidationStrategy) String() string {
	switch s {
	case StrategyExchange:
		return "exchange"
	default:
		return "auction"
	}
}
