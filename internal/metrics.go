package internal

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epaybg_notifications_total",
			Help: "IPN callback records by reconciliation outcome",
		},
		[]string{"outcome"},
	)
	issuanceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epaybg_easypay_issuance_total",
			Help: "EasyPay code registration attempts by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(notificationsTotal, issuanceTotal)
}
