package intake

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_admitted_total",
	}, []string{"coin"})
	duplicates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_duplicates_total",
	}, []string{"coin"})
)
