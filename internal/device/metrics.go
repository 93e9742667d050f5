package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hostPoolHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_host_pool_hits_total",
		Help: "Total number of successful host buffer pool retrievals",
	})

	hostPoolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_host_pool_misses_total",
		Help: "Total number of host buffer pool misses (fresh allocations)",
	})

	hostBytesInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_host_bytes_in_use",
		Help: "Host bytes currently handed out by the host allocator",
	})

	deviceAllocs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_device_allocations_total",
		Help: "Total number of device buffer allocations",
	})

	deviceBytesInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_device_bytes_in_use",
		Help: "Device bytes currently allocated",
	})

	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_transfers_total",
		Help: "Total number of residency transfers by direction",
	}, []string{"direction"})
)

// ObserveTransfer records one completed residency transfer. Direction is
// "host_to_device" or "device_to_host".
func ObserveTransfer(direction string) {
	transfersTotal.WithLabelValues(direction).Inc()
}
