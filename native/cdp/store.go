package cdp

import (
	"encoding/json"
	"fmt"
	"math/big"

	"cdpengine/storage"
)

// engineState persists the engine's own keyed state (params, exchange
// rates, the global fee and the shutdown flag) onto a storage.Database,
// mirroring the teacher's engineState interface in native/lending/engine.go.
type engineState interface {
	GetRiskParams(c CollateralID) (RiskParams, bool, error)
	PutRiskParams(c CollateralID, p RiskParams) error

	GetDebitExchangeRate(c CollateralID) (ExchangeRate, bool, error)
	PutDebitExchangeRate(c CollateralID, r ExchangeRate) error

	GetGlobalStabilityFee() (Rate, error)
	PutGlobalStabilityFee(Rate) error

	GetShutdown() (bool, error)
	PutShutdown(bool) error
}

const (
	keyPrefixParams = "cdp/params/"
	keyPrefixRate   = "cdp/rate/"
	keyGlobalFee    = "cdp/global/fee"
	keyShutdown     = "cdp/global/shutdown"
)

// dbState is the default engineState implementation, backed by any
// storage.Database (MemDB for tests, LevelDB in production).
type dbState struct {
	db storage.Database
}

// NewDBState adapts a storage.Database into the engine's persistence
// interface.
func NewDBState(db storage.Database) engineState {
	return &dbState{db: db}
}

type riskParamsJSON struct {
	MaximumTotalDebitValue  string  `json:"maximum_total_debit_value"`
	StabilityFee            *string `json:"stability_fee,omitempty"`
	LiquidationRatio        *string `json:"liquidation_ratio,omitempty"`
	LiquidationPenalty      *string `json:"liquidation_penalty,omitempty"`
	RequiredCollateralRatio *string `json:"required_collateral_ratio,omitempty"`
}

func encodeRiskParams(p RiskParams) ([]byte, error) {
	doc := riskParamsJSON{MaximumTotalDebitValue: p.MaximumTotalDebitValue.Int().String()}
	if p.StabilityFee != nil {
		s := p.StabilityFee.raw().String()
		doc.StabilityFee = &s
	}
	if p.LiquidationRatio != nil {
		s := p.LiquidationRatio.raw().String()
		doc.LiquidationRatio = &s
	}
	if p.LiquidationPenalty != nil {
		s := p.LiquidationPenalty.raw().String()
		doc.LiquidationPenalty = &s
	}
	if p.RequiredCollateralRatio != nil {
		s := p.RequiredCollateralRatio.raw().String()
		doc.RequiredCollateralRatio = &s
	}
	return json.Marshal(doc)
}

func decodeRiskParams(raw []byte) (RiskParams, error) {
	var doc riskParamsJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return RiskParams{}, err
	}
	mtdv, ok := new(big.Int).SetString(doc.MaximumTotalDebitValue, 10)
	if !ok {
		return RiskParams{}, fmt.Errorf("cdp: corrupt maximum_total_debit_value %q", doc.MaximumTotalDebitValue)
	}
	p := RiskParams{MaximumTotalDebitValue: BalanceFromBigInt(mtdv)}
	if doc.StabilityFee != nil {
		v, ok := new(big.Int).SetString(*doc.StabilityFee, 10)
		if !ok {
			return RiskParams{}, fmt.Errorf("cdp: corrupt stability_fee %q", *doc.StabilityFee)
		}
		r := RateFromRaw(v)
		p.StabilityFee = &r
	}
	if doc.LiquidationRatio != nil {
		v, ok := new(big.Int).SetString(*doc.LiquidationRatio, 10)
		if !ok {
			return RiskParams{}, fmt.Errorf("cdp: corrupt liquidation_ratio %q", *doc.LiquidationRatio)
		}
		r := RatioFromRaw(v)
		p.LiquidationRatio = &r
	}
	if doc.LiquidationPenalty != nil {
		v, ok := new(big.Int).SetString(*doc.LiquidationPenalty, 10)
		if !ok {
			return RiskParams{}, fmt.Errorf("cdp: corrupt liquidation_penalty %q", *doc.LiquidationPenalty)
		}
		r := RateFromRaw(v)
		p.LiquidationPenalty = &r
	}
	if doc.RequiredCollateralRatio != nil {
		v, ok := new(big.Int).SetString(*doc.RequiredCollateralRatio, 10)
		if !ok {
			return RiskParams{}, fmt.Errorf("cdp: corrupt required_collateral_ratio %q", *doc.RequiredCollateralRatio)
		}
		r := RatioFromRaw(v)
		p.RequiredCollateralRatio = &r
	}
	return p, nil
}

func (s *dbState) GetRiskParams(c CollateralID) (RiskParams, bool, error) {
	raw, err := s.db.Get([]byte(keyPrefixParams + string(c)))
	if err != nil {
		return RiskParams{}, false, nil
	}
	p, err := decodeRiskParams(raw)
	if err != nil {
		return RiskParams{}, false, err
	}
	return p, true, nil
}

func (s *dbState) PutRiskParams(c CollateralID, p RiskParams) error {
	raw, err := encodeRiskParams(p)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyPrefixParams+string(c)), raw)
}

func (s *dbState) GetDebitExchangeRate(c CollateralID) (ExchangeRate, bool, error) {
	raw, err := s.db.Get([]byte(keyPrefixRate + string(c)))
	if err != nil {
		return ExchangeRate{}, false, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return ExchangeRate{}, false, err
	}
	v, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return ExchangeRate{}, false, fmt.Errorf("cdp: corrupt debit exchange rate %q", encoded)
	}
	return ExchangeRateFromRaw(v), true, nil
}

func (s *dbState) PutDebitExchangeRate(c CollateralID, r ExchangeRate) error {
	raw, err := json.Marshal(r.raw().String())
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyPrefixRate+string(c)), raw)
}

func (s *dbState) GetGlobalStabilityFee() (Rate, error) {
	raw, err := s.db.Get([]byte(keyGlobalFee))
	if err != nil {
		return ZeroRate(), nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return Rate{}, err
	}
	v, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return Rate{}, fmt.Errorf("cdp: corrupt global stability fee %q", encoded)
	}
	return RateFromRaw(v), nil
}

func (s *dbState) PutGlobalStabilityFee(r Rate) error {
	raw, err := json.Marshal(r.raw().String())
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyGlobalFee), raw)
}

func (s *dbState) GetShutdown() (bool, error) {
	raw, err := s.db.Get([]byte(keyShutdown))
	if err != nil {
		return false, nil
	}
	var shutdown bool
	if err := json.Unmarshal(raw, &shutdown); err != nil {
		return false, err
	}
	return shutdown, nil
}

func (s *dbState) PutShutdown(shutdown bool) error {
	raw, err := json.Marshal(shutdown)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyShutdown), raw)
}
