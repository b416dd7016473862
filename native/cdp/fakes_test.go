package cdp

import (
	"context"
	"errors"
	"math/big"

	"cdpengine/crypto"
)

func testAddress(b byte) AccountID {
	buf := make([]byte, 20)
	buf[19] = b
	return crypto.MustNewAddress(crypto.NHBPrefix, buf)
}

type position struct {
	collateral *big.Int
	debit      *big.Int
}

// fakeLedger is a hand-written in-memory double for the external vault
// ledger, following the teacher's preference for fakes over a mocking
// framework.
type fakeLedger struct {
	positions map[CollateralID]map[string]*position

	adjustCalls      int
	confiscateCalls  int
	lastAdjust       [3]interface{}
	lastConfiscate   [4]interface{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{positions: make(map[CollateralID]map[string]*position)}
}

func (l *fakeLedger) set(c CollateralID, a AccountID, collateral, debit int64) {
	if l.positions[c] == nil {
		l.positions[c] = make(map[string]*position)
	}
	l.positions[c][a.String()] = &position{collateral: big.NewInt(collateral), debit: big.NewInt(debit)}
}

func (l *fakeLedger) get(c CollateralID, a AccountID) *position {
	byAccount := l.positions[c]
	if byAccount == nil {
		return &position{collateral: big.NewInt(0), debit: big.NewInt(0)}
	}
	p, ok := byAccount[a.String()]
	if !ok {
		return &position{collateral: big.NewInt(0), debit: big.NewInt(0)}
	}
	return p
}

func (l *fakeLedger) TotalDebits(ctx context.Context, c CollateralID) (Balance, error) {
	total := big.NewInt(0)
	for _, p := range l.positions[c] {
		total.Add(total, p.debit)
	}
	return BalanceFromBigInt(total), nil
}

func (l *fakeLedger) Debits(ctx context.Context, c CollateralID, a AccountID) (Balance, error) {
	return BalanceFromBigInt(l.get(c, a).debit), nil
}

func (l *fakeLedger) Collaterals(ctx context.Context, a AccountID, c CollateralID) (Balance, error) {
	return BalanceFromBigInt(l.get(c, a).collateral), nil
}

func (l *fakeLedger) IterDebitsPrefix(ctx context.Context, c CollateralID, visit func(AccountID, Balance) error) error {
	for key, p := range l.positions[c] {
		addr, err := crypto.DecodeAddress(key)
		if err != nil {
			return err
		}
		if err := visit(addr, BalanceFromBigInt(p.debit)); err != nil {
			return err
		}
	}
	return nil
}

func (l *fakeLedger) AdjustPosition(ctx context.Context, a AccountID, c CollateralID, deltaCollateral, deltaDebitUnits Balance) error {
	l.adjustCalls++
	l.lastAdjust = [3]interface{}{a, deltaCollateral, deltaDebitUnits}
	p := l.get(c, a)
	if l.positions[c] == nil {
		l.positions[c] = make(map[string]*position)
	}
	l.positions[c][a.String()] = &position{
		collateral: new(big.Int).Add(p.collateral, deltaCollateral.Int()),
		debit:      new(big.Int).Add(p.debit, deltaDebitUnits.Int()),
	}
	return nil
}

func (l *fakeLedger) ConfiscateCollateralAndDebit(ctx context.Context, a AccountID, c CollateralID, collateral, debitUnits Balance) error {
	l.confiscateCalls++
	l.lastConfiscate = [4]interface{}{a, c, collateral, debitUnits}
	p := l.get(c, a)
	p.collateral = new(big.Int).Sub(p.collateral, collateral.Int())
	p.debit = new(big.Int).Sub(p.debit, debitUnits.Int())
	return nil
}

// fakeTreasury is a hand-written double for the external treasury.
type fakeTreasury struct {
	surplusShouldFail bool
	swapShouldFail    bool

	surplusCalls   []*big.Int
	swapCalls      int
	transferCalls  int
	lastTransfer   *big.Int
	auctionCalls   int
	lastAuction    [4]interface{}
}

func (t *fakeTreasury) OnSystemSurplus(ctx context.Context, issue Balance) error {
	t.surplusCalls = append(t.surplusCalls, issue.Int())
	if t.surplusShouldFail {
		return errors.New("surplus rejected")
	}
	return nil
}

func (t *fakeTreasury) SwapCollateralToStable(ctx context.Context, c CollateralID, supplyCollateral, minStable Balance) error {
	t.swapCalls++
	if t.swapShouldFail {
		return errors.New("swap failed")
	}
	return nil
}

func (t *fakeTreasury) TransferCollateralTo(ctx context.Context, c CollateralID, a AccountID, amount Balance) error {
	t.transferCalls++
	t.lastTransfer = amount.Int()
	return nil
}

func (t *fakeTreasury) CreateCollateralAuctions(ctx context.Context, c CollateralID, collateral, targetStable Balance, a AccountID) error {
	t.auctionCalls++
	t.lastAuction = [4]interface{}{c, collateral, targetStable, a}
	return nil
}

// fakeOracle returns a fixed price table keyed by "from->to".
type fakeOracle struct {
	prices map[string]Price
}

func newFakeOracle() *fakeOracle { return &fakeOracle{prices: make(map[string]Price)} }

func (o *fakeOracle) set(from, to CollateralID, p Price) {
	o.prices[string(from)+"->"+string(to)] = p
}

func (o *fakeOracle) GetRelativePrice(ctx context.Context, from, to CollateralID) (Price, bool, error) {
	p, ok := o.prices[string(from)+"->"+string(to)]
	return p, ok, nil
}

// fakeDEX returns canned supply/slippage quotes.
type fakeDEX struct {
	supply   Balance
	slip     Ratio
	slipOK   bool
}

func (d *fakeDEX) GetSupplyAmount(ctx context.Context, from, to CollateralID, targetOut Balance) (Balance, error) {
	return d.supply, nil
}

func (d *fakeDEX) GetExchangeSlippage(ctx context.Context, from, to CollateralID, supply Balance) (Ratio, bool, error) {
	return d.slip, d.slipOK, nil
}

// fakeTxPool records submitted unsigned calls.
type fakeTxPool struct {
	submitted []UnsignedCall
}

func (p *fakeTxPool) SubmitTransaction(ctx context.Context, call UnsignedCall) error {
	p.submitted = append(p.submitted, call)
	return nil
}
