package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"lukechampine.com/blake3"

	"cdpengine/observability/logging"
	"cdpengine/observability/metrics"
	"cdpengine/storage"
)

// ErrNotValidator is returned by Scanner.Run when the host process is not
// running as a validator node (spec §4.6).
var ErrNotValidator = errors.New("cdp: not a validator")

// ErrLockHeld is returned by acquireLock when the single-instance lock is
// currently held by another owner and has not yet expired.
var ErrLockHeld = errors.New("cdp: scanner lock held by another owner")

// offchainLockDomain domain-separates the scanner's cold-start randomness
// from any other blake3 use in the host process.
const offchainLockDomain = "cdp-engine/offchain-scanner/cold-start"

// TxPool accepts unsigned liquidate/settle proposals produced by the
// scanner. It is the same external collaborator spec §6.3 calls "the
// transaction pool."
type TxPool interface {
	SubmitTransaction(ctx context.Context, call UnsignedCall) error
}

// lockState is the persisted payload of the scanner's single-instance
// lock: a fencing token (Owner), a wall-clock Expiry, and the retained
// Position index into AllowedCollaterals.
type lockState struct {
	Owner    string    `json:"owner"`
	Expiry   time.Time `json:"expiry"`
	Position *uint32   `json:"position,omitempty"`
}

// Scanner is the offchain worker described in spec §4.6: a best-effort,
// single-instance loop run between blocks on validator nodes only.
type Scanner struct {
	engine  *Engine
	lockDB  storage.Database
	txPool  TxPool
	logger  *slog.Logger
	metrics *metrics.CDPMetrics

	lockKey        []byte
	ttl            time.Duration
	extendLimiter  *rate.Limiter
}

// NewScanner builds a Scanner bound to engine, persisting its lock under
// lockDB using the configured key prefix.
func NewScanner(engine *Engine, lockDB storage.Database, txPool TxPool, cfg Config) *Scanner {
	return &Scanner{
		engine:        engine,
		lockDB:        lockDB,
		txPool:        txPool,
		logger:        logging.Setup("cdp-engine-scanner", ""),
		metrics:       metrics.CDPMetricsSingleton(),
		lockKey:       []byte(cfg.LockKeyPrefix + "lock"),
		ttl:           time.Duration(cfg.LockTTLSeconds) * time.Second,
		extendLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (s *Scanner) SetLogger(l *slog.Logger) *Scanner { s.logger = l; return s }

func (s *Scanner) readLock() (*lockState, error) {
	raw, err := s.lockDB.Get(s.lockKey)
	if err != nil {
		return nil, nil
	}
	var ls lockState
	if err := json.Unmarshal(raw, &ls); err != nil {
		return nil, err
	}
	return &ls, nil
}

func (s *Scanner) writeLock(ls *lockState) error {
	raw, err := json.Marshal(ls)
	if err != nil {
		return err
	}
	return s.lockDB.Put(s.lockKey, raw)
}

// pickColdStart derives a uniformly random index in [0, n) by hashing
// randomSeed with a fixed domain-separation tag, mirroring the Acala
// original's BlakeTwo256::hash(seed) + RandomNumberGenerator::pick_u32(n-1).
func pickColdStart(randomSeed []byte, n int) uint32 {
	if n <= 0 {
		return 0
	}
	hasher := blake3.New(32, nil)
	hasher.Write([]byte(offchainLockDomain))
	hasher.Write(randomSeed)
	digest := hasher.Sum(nil)

	var acc uint64
	for _, b := range digest[:8] {
		acc = (acc << 8) | uint64(b)
	}
	return uint32(acc % uint64(n))
}

// acquireLock computes the next position to scan (random cold start, or
// rotation of the previous position), and stamps the lock with a fresh
// owner token and expiry. It refuses to take over a lock that is still
// held (a recorded Owner whose Expiry has not yet passed), whoever holds it,
// including an earlier acquisition by the same Scanner; this is the
// single-instance discipline spec.md §4.6/§5 describe: two concurrent Run
// calls must not both scan.
func (s *Scanner) acquireLock(randomSeed []byte, n int) (uint32, error) {
	ls, err := s.readLock()
	if err != nil {
		return 0, err
	}
	if ls != nil && ls.Owner != "" && time.Now().Before(ls.Expiry) {
		return 0, ErrLockHeld
	}

	var position uint32
	if ls != nil && ls.Position != nil {
		position = (*ls.Position + 1) % uint32(n)
	} else {
		position = pickColdStart(randomSeed, n)
	}

	owner := uuid.NewString()
	next := &lockState{
		Owner:    owner,
		Expiry:   time.Now().Add(s.ttl),
		Position: &position,
	}
	if err := s.writeLock(next); err != nil {
		return 0, err
	}
	return position, nil
}

// extendIfNearExpiry refreshes the lock's expiry if it is within a third of
// its TTL from lapsing, throttled by extendLimiter so a long iteration does
// not hammer the lock store on every single account (spec §4.6's
// "bounded-wallclock iteration").
func (s *Scanner) extendIfNearExpiry(owner string) {
	if !s.extendLimiter.Allow() {
		return
	}
	ls, err := s.readLock()
	if err != nil || ls == nil || ls.Owner != owner {
		return
	}
	if time.Until(ls.Expiry) > s.ttl/3 {
		return
	}
	ls.Expiry = time.Now().Add(s.ttl)
	_ = s.writeLock(ls)
}

// release resets the lock's expiry to "now" (so the next run's
// acquireLock always wins the race) while retaining Position, per spec
// §4.6's "release the lock by resetting its expiry; the position index is
// retained for the next run."
func (s *Scanner) release(owner string) {
	ls, err := s.readLock()
	if err != nil || ls == nil || ls.Owner != owner {
		return
	}
	ls.Expiry = time.Now()
	_ = s.writeLock(ls)
}

// Run executes one scanner pass for the current block, per spec §4.6.
// isValidator mirrors the host runtime's sp_io::offchain::is_validator()
// check; randomSeed is only consulted on a cold start (no prior Position
// recorded).
func (s *Scanner) Run(ctx context.Context, randomSeed []byte, isValidator bool) error {
	if !isValidator {
		s.countRun("not_validator")
		return ErrNotValidator
	}

	allowed := s.engine.AllowedCollaterals()
	if len(allowed) == 0 {
		s.countRun("no_collaterals")
		return nil
	}

	position, err := s.acquireLock(randomSeed, len(allowed))
	if errors.Is(err, ErrLockHeld) {
		s.countRun("lock_held")
		return nil
	}
	if err != nil {
		s.countRun("lock_error")
		return err
	}
	ls, err := s.readLock()
	if err != nil || ls == nil {
		s.countRun("lock_error")
		return fmt.Errorf("cdp: scanner lock vanished after acquire")
	}
	owner := ls.Owner
	defer s.release(owner)

	c := allowed[position]

	shutdown, err := s.engine.IsShutdown(ctx)
	if err != nil {
		s.countRun("error")
		s.logger.Error("cdp: scanner failed to read shutdown state", "error", err)
		return nil
	}

	var scanErr error
	if !shutdown {
		scanErr = s.engine.ledger.IterDebitsPrefix(ctx, c, func(a AccountID, debit Balance) error {
			s.extendIfNearExpiry(owner)
			unsafe, err := s.engine.IsUnsafe(ctx, c, a)
			if err != nil {
				s.logger.Error("cdp: scanner failed to evaluate safety", "collateral_id", string(c), "error", err)
				return nil
			}
			if !unsafe {
				return nil
			}
			if err := s.txPool.SubmitTransaction(ctx, UnsignedCall{Method: CallLiquidate, CollateralID: c, Account: a}); err != nil {
				s.logger.Error("cdp: scanner failed to submit liquidate", "collateral_id", string(c), "error", err)
			}
			return nil
		})
	} else {
		scanErr = s.engine.ledger.IterDebitsPrefix(ctx, c, func(a AccountID, debit Balance) error {
			s.extendIfNearExpiry(owner)
			if debit.IsZero() {
				return nil
			}
			if err := s.txPool.SubmitTransaction(ctx, UnsignedCall{Method: CallSettle, CollateralID: c, Account: a}); err != nil {
				s.logger.Error("cdp: scanner failed to submit settle", "collateral_id", string(c), "error", err)
			}
			return nil
		})
	}

	if scanErr != nil {
		s.countRun("error")
		s.logger.Error("cdp: scanner iteration failed", "collateral_id", string(c), "error", scanErr)
		return nil
	}

	s.countRun("ok")
	return nil
}

func (s *Scanner) countRun(outcome string) {
	if s.metrics != nil {
		s.metrics.ScannerRuns.WithLabelValues(outcome).Inc()
	}
}
