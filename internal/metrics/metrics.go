// Package metrics exposes Prometheus instrumentation for the settlement
// engine. Counters are registered on the default registry and served by
// the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementsTotal counts accepted metrics reports.
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reachpay",
		Name:      "settlements_total",
		Help:      "Accepted metrics reports.",
	})

	// PayoutUnitsTotal counts base units credited to creator earnings.
	PayoutUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reachpay",
		Name:      "payout_units_total",
		Help:      "Base units credited to creator earnings by settlement.",
	})

	// WithdrawalsTotal counts withdrawal attempts by outcome.
	WithdrawalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reachpay",
		Name:      "withdrawals_total",
		Help:      "Withdrawal attempts by outcome.",
	}, []string{"outcome"})

	// WithdrawnUnitsTotal counts base units debited by committed
	// withdrawals.
	WithdrawnUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reachpay",
		Name:      "withdrawn_units_total",
		Help:      "Base units debited from creator earnings.",
	})
)
