package pollmint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	MetricNameSpace = "pollmint"
)

var (
	operatorBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "operator_balance",
			Help:      "native balance of the coin operator wallet",
		},
		[]string{"chain", "operator"},
	)

	creditsChanged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "credits_changed_total",
			Help:      "credits granted or spent by reason",
		},
		[]string{"reason", "direction"},
	)

	votesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "votes_total",
			Help:      "recorded votes by reward status",
		},
		[]string{"reward"},
	)

	coinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "coins_total",
			Help:      "coin rewards by chain, kind and status",
		},
		[]string{"chain", "kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		operatorBalance,
		creditsChanged,
		votesTotal,
		coinsTotal,
	)
}

func metricOperatorBalance(chain, operator string, bal decimal.Decimal) {
	f, _ := bal.Float64()
	operatorBalance.WithLabelValues(chain, operator).Set(f)
}

func metricCredits(reason string, delta int64) {
	direction := "in"
	if delta < 0 {
		direction = "out"
		delta = -delta
	}
	creditsChanged.WithLabelValues(reason, direction).Add(float64(delta))
}

func metricVote(reward string) {
	votesTotal.WithLabelValues(reward).Inc()
}

func metricCoin(chain, kind, status string) {
	coinsTotal.WithLabelValues(chain, kind, status).Inc()
}
