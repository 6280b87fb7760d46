package irsdk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"racedash-sim/internal/telemetry"
)

// Loader supplies the data a MockSDK serves: the raw session YAML and the
// baseline telemetry snapshot.
type Loader interface {
	LoadSession(ctx context.Context) (string, error)
	LoadTelemetry(ctx context.Context) (telemetry.Snapshot, error)
}

// BaselineLoader serves the embedded canonical session and telemetry.
type BaselineLoader struct{}

func (BaselineLoader) LoadSession(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return telemetry.DefaultSessionYAML(), nil
}

func (BaselineLoader) LoadTelemetry(ctx context.Context) (telemetry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return telemetry.Snapshot{}, err
	}
	return telemetry.Baseline(), nil
}

// DirLoader reads session.yaml and telemetry.json from a dataset
// directory. Both files must exist. When telemetry.json holds an array the
// first snapshot is the baseline.
type DirLoader struct {
	Dir string
}

func (l DirLoader) LoadSession(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(filepath.Join(l.Dir, telemetry.SessionFile))
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if _, err := telemetry.ParseSession(raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func (l DirLoader) LoadTelemetry(ctx context.Context) (telemetry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return telemetry.Snapshot{}, err
	}
	raw, err := os.ReadFile(filepath.Join(l.Dir, telemetry.TelemetryFile))
	if err != nil {
		return telemetry.Snapshot{}, fmt.Errorf("read telemetry: %w", err)
	}
	snaps, err := telemetry.ParseTelemetry(raw)
	if err != nil {
		return telemetry.Snapshot{}, err
	}
	if len(snaps) == 0 || snaps[0].IsZero() {
		return telemetry.Snapshot{}, fmt.Errorf("telemetry dataset %s is empty", l.Dir)
	}
	return snaps[0], nil
}
