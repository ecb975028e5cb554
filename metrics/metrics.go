package metrics

import (
	"net/http"

	"github.com/paolobietolini/atac-realtime/pipelines"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Cycles        *prometheus.CounterVec // labels: feed_kind, result
	Records       *prometheus.CounterVec
	CycleDuration *prometheus.HistogramVec
	FeedTimestamp *prometheus.GaugeVec
	Ticks         prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atac_ingest_cycles_total",
			Help: "Ingest cycles by feed kind and result.",
		}, []string{"feed_kind", "result"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atac_ingest_records_total",
			Help: "Rows appended to partitions.",
		}, []string{"feed_kind"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atac_ingest_cycle_duration_seconds",
			Help:    "Duration of one fetch, decode and write cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"feed_kind"}),
		FeedTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "atac_ingest_feed_timestamp_seconds",
			Help: "Header timestamp of the last decoded snapshot.",
		}, []string{"feed_kind"}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atac_ingest_ticks_total",
			Help: "Poll ticks started.",
		}),
	}

	reg.MustRegister(c.Cycles, c.Records, c.CycleDuration, c.FeedTimestamp, c.Ticks)
	return c
}

func (c *Collector) ObserveTick() {
	c.Ticks.Inc()
}

func (c *Collector) ObserveOutcome(o pipelines.Outcome) {
	kind := string(o.Kind)
	c.Cycles.WithLabelValues(kind, o.Result()).Inc()
	c.CycleDuration.WithLabelValues(kind).Observe(o.Duration.Seconds())
	if o.FeedTimestamp > 0 {
		c.FeedTimestamp.WithLabelValues(kind).Set(float64(o.FeedTimestamp))
	}
	if o.Err == nil && !o.Skipped {
		c.Records.WithLabelValues(kind).Add(float64(o.Records))
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
