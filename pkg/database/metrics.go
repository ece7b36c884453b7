package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStatsCollector exports pgxpool connection statistics as Prometheus
// gauges and counters on every scrape.
type poolStatsCollector struct {
	pool *pgxpool.Pool

	acquired     *prometheus.Desc
	idle         *prometheus.Desc
	total        *prometheus.Desc
	max          *prometheus.Desc
	acquireCount *prometheus.Desc
	emptyAcquire *prometheus.Desc
	newConns     *prometheus.Desc
}

// RegisterPoolMetrics registers a collector for the given pool with the
// default Prometheus registry. The service label distinguishes pools when
// several are registered.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) {
	labels := prometheus.Labels{"service": service}
	prometheus.MustRegister(&poolStatsCollector{
		pool: pool,
		acquired: prometheus.NewDesc(
			"db_pool_acquired_connections",
			"Connections currently checked out of the pool", nil, labels),
		idle: prometheus.NewDesc(
			"db_pool_idle_connections",
			"Connections currently idle in the pool", nil, labels),
		total: prometheus.NewDesc(
			"db_pool_total_connections",
			"Total connections held by the pool", nil, labels),
		max: prometheus.NewDesc(
			"db_pool_max_connections",
			"Configured pool connection limit", nil, labels),
		acquireCount: prometheus.NewDesc(
			"db_pool_acquire_count_total",
			"Cumulative successful connection acquires", nil, labels),
		emptyAcquire: prometheus.NewDesc(
			"db_pool_empty_acquire_total",
			"Acquires that had to wait for a free connection", nil, labels),
		newConns: prometheus.NewDesc(
			"db_pool_new_connections_total",
			"Connections opened since startup", nil, labels),
	})
}

func (c *poolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.emptyAcquire
	ch <- c.newConns
}

func (c *poolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.newConns, prometheus.CounterValue, float64(s.NewConnsCount()))
}
