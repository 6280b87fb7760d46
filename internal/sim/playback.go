package sim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"racedash-sim/internal/telemetry"
)

// ReplayLog replays telemetry frames from r to writer. A speed >0 scales the
// recorded spacing (2 plays twice as fast); speed <= 0 inserts no delay.
// It stops early with ctx's error when ctx is done.
func ReplayLog(ctx context.Context, r io.Reader, writer TelemetryWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var frames []telemetry.Frame
	for {
		var f telemetry.Frame
		if err := dec.Decode(&f); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		frames = append(frames, f)
	}
	return ReplayFrames(ctx, frames, writer, speed)
}

// ReplayFrames writes frames in order, sleeping for the recorded gaps
// scaled by speed.
func ReplayFrames(ctx context.Context, frames []telemetry.Frame, writer TelemetryWriter, speed float64) error {
	var prev time.Time
	for _, f := range frames {
		if !prev.IsZero() && speed > 0 {
			diff := time.Duration(float64(f.Timestamp.Sub(prev)) / speed)
			if diff > 0 {
				t := time.NewTimer(diff)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(f); err != nil {
			return err
		}
		prev = f.Timestamp
	}
	return nil
}

// ReplayLogFile opens a file and replays its telemetry frames.
func ReplayLogFile(ctx context.Context, path string, writer TelemetryWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
