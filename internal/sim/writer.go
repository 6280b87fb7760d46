package sim

import "racedash-sim/internal/telemetry"

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.Frame) error
}

// Optional: writers can also support batch mode.
type batchWriter interface {
	WriteBatch([]telemetry.Frame) error
}

// SessionWriter receives session documents.
type SessionWriter interface {
	WriteSession(telemetry.SessionFrame) error
}

// RunningWriter receives changes of the simulator running flag.
type RunningWriter interface {
	SetRunning(running bool)
}

// AdminStatusWriter allows writers to receive admin endpoint status updates.
type AdminStatusWriter interface {
	SetAdminStatus(addr string, listening bool)
}
