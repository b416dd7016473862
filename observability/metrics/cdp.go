package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CDPMetrics exposes Prometheus counters/gauges for the CDP engine as a
// process-wide singleton registered on first use.
type CDPMetrics struct {
	AccrualIssued       *prometheus.CounterVec
	LiquidationsByStrat *prometheus.CounterVec
	ScannerRuns         *prometheus.CounterVec
	ValidatorRejections *prometheus.CounterVec
	DebitExchangeRate   *prometheus.GaugeVec
}

var (
	cdpOnce     sync.Once
	cdpMetrics  *CDPMetrics
	cdpRegistry prometheus.Registerer
)

// SetCDPRegistry overrides the registerer used by CDPMetricsSingleton,
// primarily for tests that want an isolated prometheus.Registry.
func SetCDPRegistry(reg prometheus.Registerer) {
	cdpRegistry = reg
}

// CDPMetricsSingleton returns the process-wide CDPMetrics instance,
// constructing and registering it on first use.
func CDPMetricsSingleton() *CDPMetrics {
	cdpOnce.Do(func() {
		reg := cdpRegistry
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		cdpMetrics = &CDPMetrics{
			AccrualIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cdp_rate_engine_issued_total",
				Help: "Total stablecoin value issued to the surplus pool by stability-fee accrual.",
			}, []string{"collateral_id"}),
			LiquidationsByStrat: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cdp_liquidations_total",
				Help: "Total liquidations executed, by chosen strategy.",
			}, []string{"collateral_id", "strategy"}),
			ScannerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cdp_scanner_runs_total",
				Help: "Total offchain scanner runs, by outcome.",
			}, []string{"outcome"}),
			ValidatorRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "cdp_validator_rejections_total",
				Help: "Total unsigned calls rejected by the validator, by reason.",
			}, []string{"call", "reason"}),
			DebitExchangeRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "cdp_debit_exchange_rate",
				Help: "Current debit exchange rate per collateral, as a plain decimal (1.0 = par).",
			}, []string{"collateral_id"}),
		}
		reg.MustRegister(
			cdpMetrics.AccrualIssued,
			cdpMetrics.LiquidationsByStrat,
			cdpMetrics.ScannerRuns,
			cdpMetrics.ValidatorRejections,
			cdpMetrics.DebitExchangeRate,
		)
	})
	return cdpMetrics
}
