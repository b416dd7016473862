package cdp

import (
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the TOML-decoded runtime configuration for the engine,
// mirroring the teacher's native/lending Config conventions.
type Config struct {
	AllowedCollaterals []string `toml:"allowed_collaterals"`
	StableCurrencyID   string   `toml:"stable_currency_id"`

	DefaultLiquidationRatioBps   uint64 `toml:"default_liquidation_ratio_bps"`
	DefaultLiquidationPenaltyBps uint64 `toml:"default_liquidation_penalty_bps"`
	MinimumDebitValue            string `toml:"minimum_debit_value"`
	MaxSlippageSwapWithDEXBps    uint64 `toml:"max_slippage_swap_with_dex_bps"`

	UnsignedPriority  uint64 `toml:"unsigned_priority"`
	UnsignedLongevity uint64 `toml:"unsigned_longevity"`

	LockKeyPrefix   string `toml:"lock_key_prefix"`
	LockTTLSeconds  uint64 `toml:"lock_ttl_seconds"`
}

// EnsureDefaults fills unset fields with conservative defaults, following
// the teacher's Config.EnsureDefaults pattern.
func (c *Config) EnsureDefaults() {
	if c.StableCurrencyID == "" {
		c.StableCurrencyID = "STABLE"
	}
	if c.DefaultLiquidationRatioBps == 0 {
		c.DefaultLiquidationRatioBps = 15_000 // 1.5x
	}
	if c.DefaultLiquidationPenaltyBps == 0 {
		c.DefaultLiquidationPenaltyBps = 1_000 // 0.1
	}
	if c.MinimumDebitValue == "" {
		c.MinimumDebitValue = "100"
	}
	if c.MaxSlippageSwapWithDEXBps == 0 {
		c.MaxSlippageSwapWithDEXBps = 1_000 // 0.1
	}
	if c.UnsignedLongevity == 0 {
		c.UnsignedLongevity = 64
	}
	if c.LockKeyPrefix == "" {
		c.LockKeyPrefix = "cdp-engine-offchain-worker/"
	}
	if c.LockTTLSeconds == 0 {
		c.LockTTLSeconds = 30
	}
}

// LoadConfig decodes a TOML config file at path and applies defaults.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cdp: read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("cdp: decode config: %w", err)
	}
	cfg.EnsureDefaults()
	return &cfg, nil
}

func bpsToRatio(bps uint64) Ratio {
	return Ratio{fixedFromRat(int64(bps), 10_000)}
}

func bpsToRate(bps uint64) Rate {
	return Rate{fixedFromRat(int64(bps), 10_000)}
}

// Defaults projects the Config's engine-wide numeric constants into the
// Defaults bundle consumed by RiskParams accessors.
func (c Config) Defaults() Defaults {
	minDebit := big.NewInt(0)
	if c.MinimumDebitValue != "" {
		if v, ok := new(big.Int).SetString(c.MinimumDebitValue, 10); ok {
			minDebit = v
		}
	}
	return Defaults{
		DefaultLiquidationRatio:   bpsToRatio(c.DefaultLiquidationRatioBps),
		DefaultLiquidationPenalty: bpsToRate(c.DefaultLiquidationPenaltyBps),
		DefaultDebitExchangeRate:  NewExchangeRate(1, 1),
		MinimumDebitValue:         BalanceFromBigInt(minDebit),
		MaxSlippageSwapWithDEX:    bpsToRatio(c.MaxSlippageSwapWithDEXBps),
	}
}

func (c Config) Collaterals() []CollateralID {
	out := make([]CollateralID, 0, len(c.AllowedCollaterals))
	for _, id := range c.AllowedCollaterals {
		out = append(out, CollateralID(id))
	}
	return out
}

// GenesisCollateralParams mirrors the Acala original's genesis tuple order:
// (currency_id, stability_fee, liquidation_ratio, liquidation_penalty,
// required_collateral_ratio, maximum_total_debit_value).
type GenesisCollateralParams struct {
	CollateralID            CollateralID
	StabilityFee            *Rate
	LiquidationRatio        *Ratio
	LiquidationPenalty      *Rate
	RequiredCollateralRatio *Ratio
	MaximumTotalDebitValue  Balance
}

// GenesisConfig seeds CollateralParams and GlobalStabilityFee at chain
// start, per spec §6.4.
type GenesisConfig struct {
	CollateralsParams  []GenesisCollateralParams
	GlobalStabilityFee Rate
}
