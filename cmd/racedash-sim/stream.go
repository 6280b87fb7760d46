package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"racedash-sim/internal/admin"
	"racedash-sim/internal/config"
	"racedash-sim/internal/irsdk"
	"racedash-sim/internal/logging"
	"racedash-sim/internal/sim"
	"racedash-sim/internal/telemetry"
)

var (
	streamSource   string
	streamOutput   string
	streamDuration time.Duration
	streamAdmin    string
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream telemetry from the simulator or the mock engine",
	Long:  "stream subscribes to telemetry, session and running state and records every delivery to the configured sinks until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if streamSource != "" {
			cfg.Source = streamSource
		}
		if streamOutput != "" {
			cfg.Sinks.Output = streamOutput
		}
		if streamAdmin != "" {
			cfg.Admin.Addr = streamAdmin
		}
		if err := cfg.Check(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if streamDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, streamDuration)
			defer cancel()
		}
		return runStream(ctx, cfg)
	},
}

func runStream(ctx context.Context, cfg *config.Config) error {
	opts, err := bridgeOptions(cfg)
	if err != nil {
		return err
	}
	interactive := stdoutIsTerminal()
	ctx, closeLogs, err := tuiLogs(ctx, cfg, interactive)
	if err != nil {
		return err
	}
	defer closeLogs()
	log := logging.FromContext(ctx)

	writer, err := newWriter(ctx, cfg.Sinks, interactive)
	if err != nil {
		return err
	}
	defer writer.Close()

	var (
		bridge sim.Bridge
		sdk    irsdk.SDK
	)
	switch cfg.Source {
	case config.SourceSDK:
		sdk = irsdk.Open(ctx, nil, sdkLoader(cfg), irsdk.WithRand(opts.Rand))
		bridge = sim.NewSDKBridge(ctx, sdk, opts)
	default:
		bridge = sim.NewMockBridge(ctx, opts)
	}
	rec := sim.NewRecorder(writer, cfg.Sinks.BatchSize)
	log.Info("streaming", "source", cfg.Source, "telemetry_hz", cfg.TelemetryHz, "output", cfg.Sinks.Output)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec.Run(gctx, bridge)
		return nil
	})
	if cfg.Admin.Addr != "" {
		var bc admin.Broadcaster
		if sdk != nil {
			bc = sdk
		}
		srv := admin.NewServer(rec, bc)
		srv.OnStatus = writer.SetAdminStatus
		g.Go(func() error {
			if err := srv.Start(gctx, cfg.Admin.Addr); err != nil {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
	}
	err = g.Wait()
	log.Info("stream stopped", "run_id", rec.RunID(), "frames", rec.Status().Frames)
	return err
}

// bridgeOptions derives the stream periods, randomness and dataset from
// the configuration.
func bridgeOptions(cfg *config.Config) (sim.Options, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts := sim.Options{
		TelemetryInterval: cfg.TelemetryInterval(),
		SessionInterval:   cfg.SessionInterval,
		RunningInterval:   cfg.RunningInterval,
		Rand:              rand.New(rand.NewSource(seed)),
	}
	if cfg.DatasetDir != "" && cfg.Source == config.SourceMock {
		ds, err := telemetry.LoadDataset(cfg.DatasetDir)
		if err != nil {
			return sim.Options{}, err
		}
		opts.Dataset = ds
	}
	return opts, nil
}

func sdkLoader(cfg *config.Config) irsdk.Loader {
	if cfg.DatasetDir != "" {
		return irsdk.DirLoader{Dir: cfg.DatasetDir}
	}
	return irsdk.BaselineLoader{}
}

func init() {
	streamCmd.Flags().StringVar(&streamSource, "source", "", "Telemetry source: mock or sdk (overrides config)")
	streamCmd.Flags().StringVar(&streamOutput, "output", "", "Console output: json, color, tui or none (overrides config)")
	streamCmd.Flags().DurationVar(&streamDuration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	streamCmd.Flags().StringVar(&streamAdmin, "admin", "", "Admin HTTP listen address, e.g. :8080 (overrides config)")
}
