package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"racedash-sim/internal/logging"
	"racedash-sim/internal/sim"
)

var (
	replayInput  string
	replayRunID  string
	replaySpeed  float64
	replayOutput string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded telemetry log",
	Long:  "replay feeds recorded frames from a JSONL log or a SQLite recording back to the configured sinks at the recorded pace.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		if replayOutput != "" {
			cfg.Sinks.Output = replayOutput
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		interactive := stdoutIsTerminal()
		ctx, closeLogs, err := tuiLogs(ctx, cfg, interactive)
		if err != nil {
			return err
		}
		defer closeLogs()
		log := logging.FromContext(ctx)

		sinks := cfg.Sinks
		if sinks.SQLite == replayInput {
			sinks.SQLite = ""
		}
		writer, err := newWriter(ctx, sinks, interactive)
		if err != nil {
			return err
		}
		defer writer.Close()

		switch filepath.Ext(replayInput) {
		case ".db", ".sqlite", ".sqlite3":
			db, err := sim.NewSQLiteWriter(replayInput)
			if err != nil {
				return err
			}
			defer db.Close()
			frames, err := db.Frames(replayRunID)
			if err != nil {
				return err
			}
			log.Info("replaying recording", "input", replayInput, "frames", len(frames), "speed", replaySpeed)
			return ignoreCanceled(ctx, sim.ReplayFrames(ctx, frames, writer, replaySpeed))
		default:
			log.Info("replaying log", "input", replayInput, "speed", replaySpeed)
			return ignoreCanceled(ctx, sim.ReplayLogFile(ctx, replayInput, writer, replaySpeed))
		}
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a telemetry JSONL log or SQLite recording (.db)")
	replayCmd.Flags().StringVar(&replayRunID, "run-id", "", "Run to replay from a SQLite recording (latest when empty)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delays)")
	replayCmd.Flags().StringVar(&replayOutput, "output", "", "Console output: json, color, tui or none (overrides config)")
	replayCmd.MarkFlagRequired("input")
}
