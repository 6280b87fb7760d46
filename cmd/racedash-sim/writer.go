package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"racedash-sim/internal/config"
	"racedash-sim/internal/logging"
	"racedash-sim/internal/sim"
)

// stdoutIsTerminal reports whether the TUI can take over stdout.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// tuiLogs moves logging off the terminal when the TUI will own it. Logs
// go to <log_file>.log when a log file is configured and are discarded
// otherwise. The returned func closes the log file.
func tuiLogs(ctx context.Context, c *config.Config, interactive bool) (context.Context, func() error, error) {
	noop := func() error { return nil }
	if c.Sinks.Output != "tui" || !interactive {
		return ctx, noop, nil
	}
	if c.Sinks.LogFile == "" {
		return logging.NewContext(ctx, logging.Discard()), noop, nil
	}
	f, err := os.OpenFile(c.Sinks.LogFile+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open tui log: %w", err)
	}
	log, err := logging.New(f, c.LogLevel, c.LogFormat)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logging.NewContext(ctx, log), f.Close, nil
}

// newWriter builds the sink fan-out described by s. The console output
// comes first so it sees frames before the slower stores. A "tui" output
// falls back to "color" when stdout is not a terminal. The caller must
// Close the returned writer.
func newWriter(ctx context.Context, s config.Sinks, interactive bool) (*sim.MultiWriter, error) {
	log := logging.FromContext(ctx)
	var ws []sim.TelemetryWriter
	closeAll := func() { sim.NewMultiWriter(ws...).Close() }

	switch s.Output {
	case "", "json":
		ws = append(ws, sim.NewJSONStdoutWriter())
	case "color":
		ws = append(ws, sim.NewColorStdoutWriter())
	case "tui":
		if interactive {
			ws = append(ws, sim.NewTUIWriter())
		} else {
			log.Warn("stdout is not a terminal, using color output instead of tui")
			ws = append(ws, sim.NewColorStdoutWriter())
		}
	case "none":
	default:
		return nil, fmt.Errorf("unknown output %q", s.Output)
	}

	if s.LogFile != "" {
		fw, err := sim.NewFileWriter(s.LogFile, s.LogFile+".session")
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("create log file: %w", err)
		}
		ws = append(ws, fw)
	}
	if s.SQLite != "" {
		sw, err := sim.NewSQLiteWriter(s.SQLite)
		if err != nil {
			closeAll()
			return nil, err
		}
		ws = append(ws, sw)
	}
	if s.Greptime.Endpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(s.Greptime.Endpoint, s.Greptime.Database, s.Greptime.Table)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init GreptimeDB writer: %w", err)
		}
		log.Info("writing telemetry to GreptimeDB", "endpoint", s.Greptime.Endpoint, "table", s.Greptime.Table)
		ws = append(ws, gw)
	}
	return sim.NewMultiWriter(ws...), nil
}

// ignoreCanceled treats an interrupt as a clean exit.
func ignoreCanceled(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
