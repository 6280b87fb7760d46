package sim

import (
	"encoding/json"
	"io"
	"os"

	"racedash-sim/internal/telemetry"
)

// JSONStdoutWriter prints telemetry and session frames as JSON lines.
type JSONStdoutWriter struct {
	enc *json.Encoder
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return NewJSONWriter(os.Stdout)
}

// NewJSONWriter creates a JSONStdoutWriter writing to out.
func NewJSONWriter(out io.Writer) *JSONStdoutWriter {
	return &JSONStdoutWriter{enc: json.NewEncoder(out)}
}

// Write outputs a telemetry frame in JSON format.
func (w *JSONStdoutWriter) Write(f telemetry.Frame) error {
	return w.enc.Encode(f)
}

// WriteBatch outputs multiple telemetry frames in JSON format.
func (w *JSONStdoutWriter) WriteBatch(frames []telemetry.Frame) error {
	for _, f := range frames {
		if err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// WriteSession outputs a session frame in JSON format.
func (w *JSONStdoutWriter) WriteSession(f telemetry.SessionFrame) error {
	return w.enc.Encode(f)
}
