package olog

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// counters are the logger's internal tallies. Producers touch only the two
// rejection counters: drops on the rare non-blocking reservation failure,
// mismatches when a call's argument count cannot satisfy its descriptor.
type counters struct {
	recordsWritten    atomic.Uint64
	recordsDropped    atomic.Uint64
	recordsMismatched atomic.Uint64
	bytesSubmitted    atomic.Uint64
	bufferSwaps       atomic.Uint64
	writeErrors       atomic.Uint64
}

// Stats is a point-in-time snapshot of the logger's counters.
type Stats struct {
	RecordsWritten    uint64
	RecordsDropped    uint64
	RecordsMismatched uint64
	BytesSubmitted    uint64
	BufferSwaps       uint64
	WriteErrors       uint64
}

// Stats snapshots the counters.
func (l *Logger) Stats() Stats {
	return Stats{
		RecordsWritten:    l.stats.recordsWritten.Load(),
		RecordsDropped:    l.stats.recordsDropped.Load(),
		RecordsMismatched: l.stats.recordsMismatched.Load(),
		BytesSubmitted:    l.stats.bytesSubmitted.Load(),
		BufferSwaps:       l.stats.bufferSwaps.Load(),
		WriteErrors:       l.stats.writeErrors.Load(),
	}
}

// Collector exposes the counters as prometheus metrics. Register it with
// any prometheus registry; collection reads the atomics, nothing more.
func (l *Logger) Collector() prometheus.Collector {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "olog",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v.Load()) })
	}
	return &statsCollector{collectors: []prometheus.Collector{
		counter("records_written_total", "Records formatted and handed to the writer.", &l.stats.recordsWritten),
		counter("records_dropped_total", "Records dropped on non-blocking reservation failure.", &l.stats.recordsDropped),
		counter("records_mismatched_total", "Records rejected because the argument count did not match the callsite descriptor.", &l.stats.recordsMismatched),
		counter("bytes_submitted_total", "Output bytes submitted to the async writer.", &l.stats.bytesSubmitted),
		counter("buffer_swaps_total", "Double-buffer swaps performed by the consumer.", &l.stats.bufferSwaps),
		counter("write_errors_total", "Asynchronous write failures.", &l.stats.writeErrors),
	}}
}

type statsCollector struct {
	collectors []prometheus.Collector
}

func (s *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range s.collectors {
		c.Describe(ch)
	}
}

func (s *statsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, c := range s.collectors {
		c.Collect(ch)
	}
}
