package market

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	ops    *prometheus.CounterVec
	staked *prometheus.CounterVec
	payout prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_ops_total",
			Help: "operações do engine por resultado",
		}, []string{"op", "result"}),
		staked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_staked_units_total",
			Help: "unidades apostadas por lado",
		}, []string{"side"}),
		payout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "market_payout_units",
			Help:    "payout pago por claim",
			Buckets: prometheus.ExponentialBuckets(1, 10, 10),
		}),
	}
	reg.MustRegister(m.ops, m.staked, m.payout)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, Code(err)).Inc()
}

func (m *Metrics) stake(sideYes bool, amount uint64) {
	if m == nil {
		return
	}
	side := "no"
	if sideYes {
		side = "yes"
	}
	m.staked.WithLabelValues(side).Add(float64(amount))
}

func (m *Metrics) paid(amount uint64) {
	if m == nil {
		return
	}
	m.payout.Observe(float64(amount))
}
