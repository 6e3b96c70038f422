package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/trajstore"
	"github.com/hupe1980/trajstore/internal/config"
	"github.com/hupe1980/trajstore/internal/grid"
	promcollector "github.com/hupe1980/trajstore/metrics/prometheus"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var steps int
	var seed int64
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record synthetic trajectories into the output folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("steps") {
				cfg.Simulation.Steps = steps
			}
			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed = seed
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Storage.Overwrite = overwrite
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runRecord(cmd, cfg, logger)
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "Override simulation.steps")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Override simulation.seed")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace segments of an earlier run")
	return cmd
}

func runRecord(cmd *cobra.Command, cfg *config.Config, logger *trajstore.Logger) error {
	opts, err := cfg.StoreOptions()
	if err != nil {
		return err
	}
	layout, err := grid.ParseLayout(cfg.Video.ChannelLayout)
	if err != nil {
		return fmt.Errorf("video.channel_layout: %w", err)
	}

	stats := &trajstore.BasicMetricsCollector{}
	collectors := fanout{stats}
	if cfg.Metrics.Enabled {
		pc := promcollector.NewCollector("trajstore")
		srv, err := startMetricsServer(cfg.Metrics.Listen, pc)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "Serving metrics on http://%s/metrics\n", srv.addr)
		collectors = append(collectors, pc)
	}
	opts = append(opts, trajstore.WithLogger(logger), trajstore.WithMetricsCollector(collectors))

	store, err := trajstore.New(cfg.StoreConfig(), opts...)
	if err != nil {
		return err
	}

	sim := newSimulator(cfg, layout)
	recorded := 0
	for recorded < cfg.Simulation.Steps {
		if err := cmd.Context().Err(); err != nil {
			break
		}
		obs, dones := sim.step()
		if err := store.UpdateAndSaveFrame(obs, dones); err != nil {
			_ = store.Close()
			return err
		}
		recorded++
	}

	if err := store.Close(); err != nil {
		return err
	}
	segments := store.Segments()
	counters := store.Counters()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, segmentTable(segments))
	snapshot := stats.GetStats()
	fmt.Fprintf(out, "Recorded %d frames in %d segments (%d rollovers, avg %s per frame)\n",
		recorded, len(segments), snapshot.RolloverCount, time.Duration(snapshot.FrameAvgNanos))
	total := 0
	for _, c := range counters {
		total += c
	}
	fmt.Fprintf(out, "Completed episodes: %d across %d environments\n", total, len(counters))
	return cmd.Context().Err()
}

// simulator produces observations with a per-environment color and a
// vertical bar that moves with the step inside the current episode.
type simulator struct {
	rng      *rand.Rand
	layout   grid.Layout
	height   int
	width    int
	doneProb float64
	steps    []int
	episodes []int
}

func newSimulator(cfg *config.Config, layout grid.Layout) *simulator {
	n := cfg.Video.NumEnvs
	return &simulator{
		rng:      rand.New(rand.NewPCG(uint64(cfg.Simulation.Seed), 0x7472616a)),
		layout:   layout,
		height:   cfg.Video.FrameHeight,
		width:    cfg.Video.FrameWidth,
		doneProb: cfg.Simulation.DoneProbability,
		steps:    make([]int, n),
		episodes: make([]int, n),
	}
}

func (s *simulator) step() ([][]byte, []bool) {
	n := len(s.steps)
	obs := make([][]byte, n)
	dones := make([]bool, n)
	for env := range n {
		obs[env] = s.render(env)
		dones[env] = s.rng.Float64() < s.doneProb
		if dones[env] {
			s.steps[env] = 0
			s.episodes[env]++
		} else {
			s.steps[env]++
		}
	}
	return obs, dones
}

func (s *simulator) render(env int) []byte {
	plane := s.height * s.width
	buf := make([]byte, plane*grid.Channels)
	color := [grid.Channels]byte{
		byte(env * 37),
		byte(s.episodes[env] * 53),
		byte(96 + env*11),
	}
	bar := s.steps[env] % s.width
	for y := range s.height {
		for x := range s.width {
			px := color
			if x == bar {
				px = [grid.Channels]byte{255, 255, 255}
			}
			for c := range grid.Channels {
				if s.layout == grid.LayoutCHW {
					buf[c*plane+y*s.width+x] = px[c]
				} else {
					buf[(y*s.width+x)*grid.Channels+c] = px[c]
				}
			}
		}
	}
	return buf
}
