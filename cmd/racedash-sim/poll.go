package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"racedash-sim/internal/irsdk"
	"racedash-sim/internal/logging"
)

var (
	pollInterval  time.Duration
	pollCount     int
	pollChannels  []string
	pollBroadcast string
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the SDK the way a native client would",
	Long:  "poll drives the pull-style SDK (the mock when the simulator is unavailable) and prints selected channels on every poll.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var bc *irsdk.Command
		if pollBroadcast != "" {
			c, err := parseCommand(pollBroadcast)
			if err != nil {
				return err
			}
			bc = &c
		}
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		sdk := irsdk.Open(ctx, nil, sdkLoader(cfg), irsdk.WithRand(rand.New(rand.NewSource(seed))))
		return runPoll(ctx, sdk, os.Stdout, pollOptions{
			Interval:  pollInterval,
			Count:     pollCount,
			Channels:  pollChannels,
			Broadcast: bc,
		})
	},
}

type pollOptions struct {
	Interval  time.Duration
	Count     int
	Channels  []string
	Broadcast *irsdk.Command
}

// runPoll prints one line of channel values per poll while the SDK is
// running. A Count <= 0 polls until ctx is done.
func runPoll(ctx context.Context, sdk irsdk.SDK, out io.Writer, o pollOptions) error {
	if o.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", o.Interval)
	}
	log := logging.FromContext(ctx)
	sdk.StartSDK()
	defer sdk.StopSDK()

	if o.Broadcast != nil {
		sdk.Broadcast(*o.Broadcast)
	}

	ticker := time.NewTicker(o.Interval)
	defer ticker.Stop()
	printed := 0
	for o.Count <= 0 || printed < o.Count {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if !sdk.WaitForData(o.Interval) || !sdk.IsRunning() {
			log.Debug("sdk not running yet")
			continue
		}
		var parts []string
		for _, name := range o.Channels {
			ch, ok := sdk.TelemetryVariable(name)
			if !ok {
				parts = append(parts, name+"=?")
				continue
			}
			vals := make([]string, len(ch.Values))
			for i, v := range ch.Values {
				vals[i] = strconv.FormatFloat(v, 'g', 4, 64)
			}
			parts = append(parts, name+"="+strings.Join(vals, ","))
		}
		if _, err := fmt.Fprintln(out, strings.Join(parts, " ")); err != nil {
			return err
		}
		printed++
	}
	return nil
}

// parseCommand reads "Msg[,var1[,var2[,var3]]]", e.g. "PitCommand,2,40".
func parseCommand(s string) (irsdk.Command, error) {
	fields := strings.Split(s, ",")
	if len(fields) > 4 {
		return irsdk.Command{}, fmt.Errorf("broadcast %q: at most three arguments", s)
	}
	msg, err := irsdk.ParseBroadcastMsg(strings.TrimSpace(fields[0]))
	if err != nil {
		return irsdk.Command{}, err
	}
	cmd := irsdk.Command{Msg: msg}
	vars := []*int{&cmd.Var1, &cmd.Var2, &cmd.Var3}
	for i, f := range fields[1:] {
		if *vars[i], err = strconv.Atoi(strings.TrimSpace(f)); err != nil {
			return irsdk.Command{}, fmt.Errorf("broadcast %q: argument %d: %w", s, i+1, err)
		}
	}
	return cmd, nil
}

func init() {
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 250*time.Millisecond, "Time between polls")
	pollCmd.Flags().IntVar(&pollCount, "count", 0, "Stop after this many samples (0 polls until interrupted)")
	pollCmd.Flags().StringSliceVar(&pollChannels, "channels", []string{"Brake", "Throttle", "BrakeABSactive", "dcTractionControlToggle", "dcABS", "dcTractionControl"}, "Channels to print")
	pollCmd.Flags().StringVar(&pollBroadcast, "broadcast", "", "Send a broadcast command first, e.g. PitCommand,2,40")
}
