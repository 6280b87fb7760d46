// Package irsdk exposes the pull-style simulator SDK surface and a mock of
// it for platforms where the native bindings are unavailable.
package irsdk

import (
	"time"

	"racedash-sim/internal/telemetry"
)

// SDK is the call shape of the native simulator bindings. Readiness is a
// boolean gate; none of the methods return errors.
type SDK interface {
	StartSDK() bool
	StopSDK()
	IsRunning() bool
	WaitForData(timeout time.Duration) bool
	SessionData() string
	TelemetryData() telemetry.Snapshot
	TelemetryVariable(name string) (telemetry.Channel, bool)
	TelemetryVariableAt(index int) (telemetry.Channel, bool)
	Broadcast(cmd Command)
}
