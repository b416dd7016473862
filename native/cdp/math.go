package cdp

import "math/big"

// ray is the fixed-point scale shared by Rate, Ratio and ExchangeRate. All
// three domains are plain *big.Int counts of 1/ray units; Balance is a
// counted integer with no implicit scale.
var (
	ray     = mustBigInt("1000000000000000000000000000") // 1e27
	halfRay = new(big.Int).Rsh(ray, 1)
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("cdp: invalid big integer constant")
	}
	return v
}

func halfUp(x *big.Int) *big.Int {
	if x == nil || x.Sign() <= 0 {
		return big.NewInt(0)
	}
	half := new(big.Int).Add(x, big.NewInt(1))
	half.Rsh(half, 1)
	return half
}

// saturateNonNegative clamps a (possibly negative, from intermediate
// subtraction) big.Int into the non-negative domain every fixed-point type
// here lives in. It never panics.
func saturateNonNegative(x *big.Int) *big.Int {
	if x == nil {
		return big.NewInt(0)
	}
	if x.Sign() < 0 {
		return big.NewInt(0)
	}
	return x
}

// rayMulInt multiplies a ray-scaled fixed-point value by a plain integer
// (e.g. a Balance), rounding half-up, and returns a plain integer.
func rayMulInt(scaled, plain *big.Int) *big.Int {
	if scaled == nil || plain == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(scaled, plain)
	product.Add(product, halfRay)
	product.Quo(product, ray)
	return saturateNonNegative(product)
}

// rayMul multiplies two ray-scaled fixed-point values, rounding half-up.
func rayMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfRay)
	product.Quo(product, ray)
	return saturateNonNegative(product)
}

// rayDivInt divides a plain integer numerator by a plain integer
// denominator and returns a ray-scaled fixed-point quotient. Division by
// zero only reports ok=false here; callers apply the domain-specific
// result (e.g. CalculateCollateralRatio's zero Ratio on zero debit) because
// that value differs per caller.
func rayDivInt(numerator, denominator *big.Int) (*big.Int, bool) {
	if numerator == nil || denominator == nil || denominator.Sign() == 0 {
		return nil, false
	}
	scaled := new(big.Int).Mul(numerator, ray)
	scaled.Add(scaled, halfUp(denominator))
	scaled.Quo(scaled, denominator)
	return saturateNonNegative(scaled), true
}

// addSaturating adds two ray-scaled values without overflow panics. Go's
// big.Int never overflows on its own (it grows), so "saturating" here means
// the non-negative clamp rather than a fixed bit-width wrap; this matches
// the teacher's use of big.Int as the saturating-arithmetic substrate.
func addSaturating(a, b *big.Int) *big.Int {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	return saturateNonNegative(new(big.Int).Add(a, b))
}

func subSaturating(a, b *big.Int) *big.Int {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		return new(big.Int).Set(a)
	}
	return saturateNonNegative(new(big.Int).Sub(a, b))
}

func minBig(a, b *big.Int) *big.Int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
