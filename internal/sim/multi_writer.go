package sim

import (
	"errors"
	"io"

	"racedash-sim/internal/telemetry"
)

// MultiWriter fans telemetry and session frames out to multiple writers.
// Every writer is tried; the errors are joined.
type MultiWriter struct {
	writers []TelemetryWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...TelemetryWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a telemetry frame to all writers.
func (mw *MultiWriter) Write(f telemetry.Frame) error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, w.Write(f))
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple frames to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(frames []telemetry.Frame) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			errs = append(errs, bw.WriteBatch(frames))
			continue
		}
		for _, f := range frames {
			if err := w.Write(f); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WriteSession sends a session frame to the writers that accept sessions.
func (mw *MultiWriter) WriteSession(f telemetry.SessionFrame) error {
	var errs []error
	for _, w := range mw.writers {
		if sw, ok := w.(SessionWriter); ok {
			errs = append(errs, sw.WriteSession(f))
		}
	}
	return errors.Join(errs...)
}

// SetRunning forwards the running flag to writers that support it.
func (mw *MultiWriter) SetRunning(running bool) {
	for _, w := range mw.writers {
		if rw, ok := w.(RunningWriter); ok {
			rw.SetRunning(running)
		}
	}
}

// SetAdminStatus forwards admin endpoint status to writers that support it.
func (mw *MultiWriter) SetAdminStatus(addr string, listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(addr, listening)
		}
	}
}

// Close closes every writer that implements io.Closer.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
