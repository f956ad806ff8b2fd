package stats

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	BYTE = 1 << (10 * iota)
	KILOBYTE
	MEGABYTE
	GIGABYTE
)

var (
	// ExplorerRequests counts indexer calls by endpoint and outcome.
	ExplorerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "palid",
		Name:      "explorer_requests_total",
		Help:      "Number of requests made to the indexer.",
	}, []string{"endpoint", "outcome"})

	// FlowTransitions counts transaction flow state changes by kind and state.
	FlowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "palid",
		Name:      "flow_transitions_total",
		Help:      "Number of transaction flow state transitions.",
	}, []string{"kind", "status"})

	// ObservedItems is the number of items currently polled by the crawler.
	ObservedItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "palid",
		Name:      "crawler_observed_items",
		Help:      "Number of transactions and accounts currently polled.",
	}, []string{"type"})

	// FiatPrice is the latest price of SYS by fiat currency.
	FiatPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "palid",
		Name:      "fiat_price",
		Help:      "Latest price of SYS in fiat currency.",
	}, []string{"currency"})

	// ConnectedPages is the number of open message bus connections.
	ConnectedPages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "palid",
		Name:      "bus_connected_pages",
		Help:      "Number of pages connected to the message bus.",
	})
)

// EnableMemoryStatistics enables go routine that periodically prints memory
// usage of the go process. When ctx is done the default prometheus metrics
// are dumped into a stats file in dumpDir, if not empty.
func EnableMemoryStatistics(ctx context.Context, interval time.Duration, dumpDir string) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				PrintMemoryStatistics()
				PrintNumOfRoutines()
			case <-ctx.Done():
				if len(dumpDir) <= 0 {
					return
				}
				if err := DumpPrometheusDefaults(filepath.Join(dumpDir, "stats")); err != nil {
					log.WithError(err).Warn("failed to dump prometheus metrics")
				}
				return
			}
		}
	}()
}

// PrintMemoryStatistics prints memory statistics using go runtime library.
func PrintMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.Infof(
		"Total allocated: %.3fGB, Heap allocated: %.3fGB, "+
			"Allocated objects count: %v, Freed objects count: %v",
		toGigabytes(memStats.TotalAlloc),
		toGigabytes(memStats.HeapAlloc),
		memStats.Mallocs,
		memStats.Frees,
	)
}

// DumpPrometheusDefaults appends the gathered prometheus metrics to a file.
func DumpPrometheusDefaults(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	metricFamily, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, v := range metricFamily {
		if _, err := writer.WriteString(v.String() + "\n"); err != nil {
			return err
		}
	}

	return writer.Flush()
}

// PrintNumOfRoutines prints number of go routines currently running
func PrintNumOfRoutines() {
	log.Infof("Num of go routines: %v", runtime.NumGoroutine())
}

func toGigabytes(bytes uint64) float64 {
	return float64(bytes) / GIGABYTE
}
