package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_ingest_runs_total",
		Help: "Ingestion runs started.",
	})
	runFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_ingest_run_failures_total",
		Help: "Ingestion runs aborted by a core feed failure.",
	})
	auxFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_ingest_aux_failures_total",
		Help: "Auxiliary feed failures absorbed during ingestion.",
	})
	parseDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_ingest_records_dropped_total",
		Help: "Malformed upstream records dropped during parsing.",
	})
)
