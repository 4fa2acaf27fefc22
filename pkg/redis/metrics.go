package redis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// RegisterPoolMetrics exports connection pool stats under loupes_redis_pool_*.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) error {
	if c == nil || c.raw == nil || reg == nil {
		return nil
	}
	stats := c.raw.PoolStats
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "loupes", Subsystem: "redis_pool", Name: name, Help: help}
	}
	gauge := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts(name, help)), func() float64 { return float64(read(stats())) })
	}
	counter := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts(opts(name, help)), func() float64 { return float64(read(stats())) })
	}

	for _, col := range []prometheus.Collector{
		gauge("total_conns", "Open connections in the pool.", func(s *redis.PoolStats) uint32 { return s.TotalConns }),
		gauge("idle_conns", "Idle connections in the pool.", func(s *redis.PoolStats) uint32 { return s.IdleConns }),
		counter("hits_total", "Times a free connection was found in the pool.", func(s *redis.PoolStats) uint32 { return s.Hits }),
		counter("misses_total", "Times a new connection had to be dialed.", func(s *redis.PoolStats) uint32 { return s.Misses }),
		counter("timeouts_total", "Times waiting for a connection timed out.", func(s *redis.PoolStats) uint32 { return s.Timeouts }),
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
