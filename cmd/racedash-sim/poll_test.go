package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"racedash-sim/internal/irsdk"
	"racedash-sim/internal/logging"
)

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

func TestRunPollPrintsChannels(t *testing.T) {
	ctx := testContext()
	m := irsdk.NewMockSDK(ctx, irsdk.BaselineLoader{}, irsdk.WithLogger(logging.Discard()), irsdk.WithRand(fixedRand(0.99)))
	<-m.Ready()

	var out bytes.Buffer
	err := runPoll(ctx, m, &out, pollOptions{
		Interval: time.Millisecond,
		Count:    2,
		Channels: []string{"Brake", "BrakeABSactive", "NoSuchVar"},
	})
	if err != nil {
		t.Fatalf("runPoll: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	if lines[0] != "Brake=0.78 BrakeABSactive=1 NoSuchVar=?" {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if m.IsRunning() {
		t.Fatal("poll should stop the SDK on exit")
	}
}

func TestRunPollStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(testContext(), 20*time.Millisecond)
	defer cancel()
	// Never loads, so never running.
	m := irsdk.NewMockSDK(ctx, irsdk.DirLoader{Dir: t.TempDir()}, irsdk.WithLogger(logging.Discard()))
	var out bytes.Buffer
	if err := runPoll(ctx, m, &out, pollOptions{Interval: time.Millisecond, Count: 1}); err != nil {
		t.Fatalf("runPoll: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should be printed before data loads: %q", out.String())
	}
}

func TestParseCommand(t *testing.T) {
	cmd, err := parseCommand("PitCommand, 2, 40")
	if err != nil {
		t.Fatalf("parseCommand: %v", err)
	}
	if cmd != irsdk.Pit(irsdk.PitFuel, 40) {
		t.Fatalf("unexpected command %v", cmd)
	}
	for _, bad := range []string{"Teleport", "PitCommand,x", "PitCommand,1,2,3,4"} {
		if _, err := parseCommand(bad); err == nil {
			t.Errorf("parseCommand(%q) should fail", bad)
		}
	}
}
