// Package metrics exposes Prometheus counters fed from engine events:
//
//	bsbot_bets_total{game,side,mode}     – bets placed (mode: real|virtual)
//	bsbot_skips_total{game}              – entries recorded without a stake
//	bsbot_results_total{game,result}     – settlements (win|loss|skip_win|skip_loss)
//	bsbot_staked_total{game,mode}        – summed stake
//	bsbot_thresholds_total{threshold}    – target / stop-loss hits
//	bsbot_halts_total{reason}            – session halts
//	bsbot_session_profit{user}           – profit of the user's latest session
//	bsbot_session_balance{user}          – tracked balance of the user's latest session
//	bsbot_sessions_running               – live sessions
package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/web3guy0/bsbot/types"
)

type Metrics struct {
	registry *prometheus.Registry

	bets       *prometheus.CounterVec
	skips      *prometheus.CounterVec
	results    *prometheus.CounterVec
	staked     *prometheus.CounterVec
	thresholds *prometheus.CounterVec
	halts      *prometheus.CounterVec
	profit     *prometheus.GaugeVec
	balance    *prometheus.GaugeVec
}

// New builds the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsbot_bets_total",
			Help: "Bets placed",
		}, []string{"game", "side", "mode"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsbot_skips_total",
			Help: "Entries recorded without a stake",
		}, []string{"game"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsbot_results_total",
			Help: "Settled entries by result",
		}, []string{"game", "result"}),
		staked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsbot_staked_total",
			Help: "Summed stake of placed bets",
		}, []string{"game", "mode"}),
		thresholds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsbot_thresholds_total",
			Help: "Stop conditions reached",
		}, []string{"threshold"}),
		halts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bsbot_halts_total",
			Help: "Session halts by reason",
		}, []string{"reason"}),
		profit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bsbot_session_profit",
			Help: "Profit of the user's latest session",
		}, []string{"user"}),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bsbot_session_balance",
			Help: "Tracked balance of the user's latest session",
		}, []string{"user"}),
	}
	m.registry.MustRegister(
		m.bets, m.skips, m.results, m.staked, m.thresholds, m.halts, m.profit, m.balance,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackSessions registers the live session gauge
func (m *Metrics) TrackSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "bsbot_sessions_running",
		Help: "Live sessions",
	}, func() float64 { return float64(count()) }))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Notify implements types.Notifier
func (m *Metrics) Notify(ev types.Event) {
	game := string(ev.Game)
	mode := "real"
	if ev.Virtual {
		mode = "virtual"
	}

	switch ev.Kind {
	case types.EventBetPlaced:
		m.bets.WithLabelValues(game, string(ev.Side), mode).Inc()
		amount, _ := ev.Amount.Float64()
		m.staked.WithLabelValues(game, mode).Add(amount)
	case types.EventSkipRecorded:
		m.skips.WithLabelValues(game).Inc()
	case types.EventRoundWon, types.EventRoundLost:
		result := "loss"
		if ev.Win {
			result = "win"
		}
		if ev.Skipped {
			result = "skip_" + result
		}
		m.results.WithLabelValues(game, result).Inc()
	case types.EventThresholdReached:
		m.thresholds.WithLabelValues(ev.Threshold).Inc()
	case types.EventSessionHalted:
		m.halts.WithLabelValues(haltLabel(ev)).Inc()
	}

	user := strconv.FormatInt(ev.UserID, 10)
	profit, _ := ev.Profit.Float64()
	balance, _ := ev.Balance.Float64()
	m.profit.WithLabelValues(user).Set(profit)
	m.balance.WithLabelValues(user).Set(balance)
}

// haltLabel keeps the label set bounded: error details after ':' are cut
func haltLabel(ev types.Event) string {
	if ev.Threshold != "" {
		return ev.Threshold
	}
	reason, _, _ := strings.Cut(ev.Reason, ":")
	return strings.ReplaceAll(strings.TrimSpace(reason), " ", "_")
}
