package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector exports connection pool statistics
type PoolCollector struct {
	stat func() *pgxpool.Stat

	acquired     *prometheus.Desc
	idle         *prometheus.Desc
	total        *prometheus.Desc
	max          *prometheus.Desc
	acquireCount *prometheus.Desc
	acquireWait  *prometheus.Desc
	emptyAcquire *prometheus.Desc
}

// NewPoolCollector creates a collector over pool.Stat
func NewPoolCollector(pool *pgxpool.Pool) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("intake_db_pool_"+name, help, nil, nil)
	}
	return &PoolCollector{
		stat:         pool.Stat,
		acquired:     desc("acquired_connections", "Connections currently in use"),
		idle:         desc("idle_connections", "Idle connections"),
		total:        desc("total_connections", "Open connections"),
		max:          desc("max_connections", "Configured maximum connections"),
		acquireCount: desc("acquires_total", "Successful connection acquires"),
		acquireWait:  desc("acquire_wait_seconds_total", "Time spent waiting for a connection"),
		emptyAcquire: desc("empty_acquires_total", "Acquires that had to wait for a connection"),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.acquireWait
	ch <- c.emptyAcquire
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireWait, prometheus.CounterValue, s.AcquireDuration().Seconds())
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
}
