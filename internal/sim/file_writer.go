package sim

import (
	"encoding/json"
	"os"

	"racedash-sim/internal/telemetry"
)

// FileWriter records telemetry and session frames to JSONL files.
type FileWriter struct {
	teleFile *os.File
	sessFile *os.File
	teleEnc  *json.Encoder
	sessEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. sessionPath may be empty to skip the
// session log.
func NewFileWriter(telemetryPath, sessionPath string) (*FileWriter, error) {
	tf, err := os.Create(telemetryPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{teleFile: tf, teleEnc: json.NewEncoder(tf)}
	if sessionPath != "" {
		sf, err := os.Create(sessionPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.sessFile = sf
		fw.sessEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// Write logs a single telemetry frame.
func (f *FileWriter) Write(frame telemetry.Frame) error {
	return f.teleEnc.Encode(frame)
}

// WriteBatch logs multiple telemetry frames.
func (f *FileWriter) WriteBatch(frames []telemetry.Frame) error {
	for _, fr := range frames {
		if err := f.Write(fr); err != nil {
			return err
		}
	}
	return nil
}

// WriteSession logs a session frame, if enabled.
func (f *FileWriter) WriteSession(frame telemetry.SessionFrame) error {
	if f.sessEnc == nil {
		return nil
	}
	return f.sessEnc.Encode(frame)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.teleFile != nil {
		err = f.teleFile.Close()
	}
	if f.sessFile != nil {
		if e := f.sessFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
