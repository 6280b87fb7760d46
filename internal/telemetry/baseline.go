package telemetry

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed baseline/telemetry.json baseline/session.yaml
var baselineFS embed.FS

var loadBaseline = sync.OnceValues(func() (Snapshot, *Session) {
	raw, err := baselineFS.ReadFile("baseline/telemetry.json")
	if err != nil {
		panic(fmt.Sprintf("baseline telemetry: %v", err))
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		panic(fmt.Sprintf("baseline telemetry: %v", err))
	}
	sess, err := ParseSession([]byte(DefaultSessionYAML()))
	if err != nil {
		panic(fmt.Sprintf("baseline session: %v", err))
	}
	return snap, sess
})

// Baseline returns the canonical telemetry snapshot used as the starting
// point for synthetic variation.
func Baseline() Snapshot {
	snap, _ := loadBaseline()
	return snap
}

// DefaultSession returns the canonical session document. The returned
// value is shared and must not be modified.
func DefaultSession() *Session {
	_, sess := loadBaseline()
	return sess
}

// DefaultSessionYAML returns the canonical session document as the raw
// YAML text the native SDK would hand out.
func DefaultSessionYAML() string {
	raw, err := baselineFS.ReadFile("baseline/session.yaml")
	if err != nil {
		panic(fmt.Sprintf("baseline session: %v", err))
	}
	return string(raw)
}
