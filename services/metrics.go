package services

import (
	"inkwellAPI/internal/types/currency"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	checkInsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "streak_check_ins_total",
			Help: "Total number of first-of-day streak check-ins",
		},
	)
	inkDropsCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ink_drops_credited_total",
			Help: "Total Ink Drops credited, by ledger source",
		},
		[]string{"source"},
	)
	inkDropsDebited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ink_drops_debited_total",
			Help: "Total Ink Drops debited, by ledger source",
		},
		[]string{"source"},
	)
	achievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total achievements unlocked, by type",
		},
		[]string{"type"},
	)
)

// InitMetrics registers the economy metrics. Call this from main.go.
func InitMetrics() {
	prometheus.MustRegister(checkInsTotal)
	prometheus.MustRegister(inkDropsCredited)
	prometheus.MustRegister(inkDropsDebited)
	prometheus.MustRegister(achievementsUnlocked)
}

func recordInkDrops(amount int, source currency.TransactionSource) {
	if amount >= 0 {
		inkDropsCredited.WithLabelValues(string(source)).Add(float64(amount))
	} else {
		inkDropsDebited.WithLabelValues(string(source)).Add(float64(-amount))
	}
}
