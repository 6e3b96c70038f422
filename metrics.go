package trajstore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// metrics/prometheus for a Prometheus adapter.
type MetricsCollector interface {
	// RecordFrame is called after each UpdateAndSaveFrame call, including
	// the time spent on a rollover it triggered.
	RecordFrame(duration time.Duration, err error)

	// RecordRollover is called after a segment has been sealed.
	RecordRollover(ordinal uint64, frames int, duration time.Duration, err error)

	// RecordSlice is called after each GetSlice call.
	RecordSlice(frames, dropped int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFrame(time.Duration, error)                 {}
func (NoopMetricsCollector) RecordRollover(uint64, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSlice(int, int, time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	FrameCount      atomic.Int64
	FrameErrors     atomic.Int64
	FrameTotalNanos atomic.Int64
	RolloverCount   atomic.Int64
	RolloverErrors  atomic.Int64
	SliceCount      atomic.Int64
	SliceErrors     atomic.Int64
	SliceFrames     atomic.Int64
	SliceDropped    atomic.Int64
	SliceTotalNanos atomic.Int64
}

// RecordFrame implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFrame(duration time.Duration, err error) {
	b.FrameCount.Add(1)
	b.FrameTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FrameErrors.Add(1)
	}
}

// RecordRollover implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRollover(_ uint64, _ int, _ time.Duration, err error) {
	b.RolloverCount.Add(1)
	if err != nil {
		b.RolloverErrors.Add(1)
	}
}

// RecordSlice implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlice(frames, dropped int, duration time.Duration, err error) {
	b.SliceCount.Add(1)
	b.SliceTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SliceErrors.Add(1)
		return
	}
	b.SliceFrames.Add(int64(frames))
	b.SliceDropped.Add(int64(dropped))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FrameCount:     b.FrameCount.Load(),
		FrameErrors:    b.FrameErrors.Load(),
		FrameAvgNanos:  avg(b.FrameTotalNanos.Load(), b.FrameCount.Load()),
		RolloverCount:  b.RolloverCount.Load(),
		RolloverErrors: b.RolloverErrors.Load(),
		SliceCount:     b.SliceCount.Load(),
		SliceErrors:    b.SliceErrors.Load(),
		SliceFrames:    b.SliceFrames.Load(),
		SliceDropped:   b.SliceDropped.Load(),
		SliceAvgNanos:  avg(b.SliceTotalNanos.Load(), b.SliceCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FrameCount     int64
	FrameErrors    int64
	FrameAvgNanos  int64
	RolloverCount  int64
	RolloverErrors int64
	SliceCount     int64
	SliceErrors    int64
	SliceFrames    int64
	SliceDropped   int64
	SliceAvgNanos  int64
}
