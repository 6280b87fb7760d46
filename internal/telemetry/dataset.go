package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dataset file names inside a dataset directory.
const (
	TelemetryFile = "telemetry.json"
	SessionFile   = "session.yaml"
)

// Dataset is a fixed telemetry and/or session playback source. A single
// element repeats forever; longer sequences are cycled by index.
type Dataset struct {
	Telemetry []Snapshot
	Sessions  []*Session
}

// LoadDataset reads telemetry.json and session.yaml from dir. Either file
// may be missing, which leaves that half of the dataset empty.
func LoadDataset(dir string) (Dataset, error) {
	var ds Dataset

	raw, err := os.ReadFile(filepath.Join(dir, TelemetryFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Dataset{}, fmt.Errorf("read telemetry dataset: %w", err)
	default:
		if ds.Telemetry, err = ParseTelemetry(raw); err != nil {
			return Dataset{}, err
		}
	}

	raw, err = os.ReadFile(filepath.Join(dir, SessionFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Dataset{}, fmt.Errorf("read session dataset: %w", err)
	default:
		if ds.Sessions, err = ParseSessions(raw); err != nil {
			return Dataset{}, err
		}
	}
	return ds, nil
}

// ParseTelemetry decodes either a single snapshot object or an array of
// snapshots.
func ParseTelemetry(data []byte) ([]Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var snaps []Snapshot
		if err := json.Unmarshal(trimmed, &snaps); err != nil {
			return nil, fmt.Errorf("parse telemetry dataset: %w", err)
		}
		return snaps, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, fmt.Errorf("parse telemetry dataset: %w", err)
	}
	return []Snapshot{snap}, nil
}
