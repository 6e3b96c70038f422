package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/trajstore"
	promcollector "github.com/hupe1980/trajstore/metrics/prometheus"
)

// fanout forwards every observation to all collectors.
type fanout []trajstore.MetricsCollector

func (f fanout) RecordFrame(d time.Duration, err error) {
	for _, c := range f {
		c.RecordFrame(d, err)
	}
}

func (f fanout) RecordRollover(ordinal uint64, frames int, d time.Duration, err error) {
	for _, c := range f {
		c.RecordRollover(ordinal, frames, d, err)
	}
}

func (f fanout) RecordSlice(frames, dropped int, d time.Duration, err error) {
	for _, c := range f {
		c.RecordSlice(frames, dropped, d, err)
	}
}

type metricsServer struct {
	server *http.Server
	addr   string
	done   chan error
}

// startMetricsServer registers the store collector on a private registry
// and serves it on /metrics.
func startMetricsServer(listen string, collector *promcollector.Collector) (*metricsServer, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	collector.MustRegister(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	ms := &metricsServer{
		server: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		addr:   ln.Addr().String(),
		done:   make(chan error, 1),
	}
	go func() {
		err := ms.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		ms.done <- err
	}()
	return ms, nil
}

func (m *metricsServer) Shutdown(ctx context.Context) error {
	if err := m.server.Shutdown(ctx); err != nil {
		return err
	}
	return <-m.done
}
