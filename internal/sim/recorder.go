// Recorder subscribing to a bridge and fanning frames out to writers
package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"racedash-sim/internal/logging"
	"racedash-sim/internal/telemetry"
)

// DefaultBatchSize is the number of telemetry frames buffered before a
// flush.
const DefaultBatchSize = 30

// Status summarizes what a recorder has seen so far.
type Status struct {
	RunID       string    `json:"run_id"`
	Running     bool      `json:"running"`
	Frames      uint64    `json:"frames"`
	Sessions    uint64    `json:"sessions"`
	LastFrameAt time.Time `json:"last_frame_at,omitzero"`
	Track       string    `json:"track,omitempty"`
}

// Recorder stamps bridge deliveries with a run id and sequence numbers,
// writes them out in batches and keeps the latest state for readers.
type Recorder struct {
	runID     string
	writer    TelemetryWriter
	batchSize int
	now       func() time.Time

	writeMu sync.Mutex
	batch   []telemetry.Frame

	mu        sync.RWMutex
	seq       uint64
	sessSeq   uint64
	latest    telemetry.Snapshot
	lastAt    time.Time
	session   *telemetry.Session
	running   bool
	runningOK bool
}

// NewRecorder creates a recorder writing to w. batchSize <= 0 uses
// DefaultBatchSize.
func NewRecorder(w TelemetryWriter, batchSize int) *Recorder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Recorder{
		runID:     uuid.NewString(),
		writer:    w,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// RunID identifies this recording.
func (r *Recorder) RunID() string { return r.runID }

// Attach subscribes the recorder to all three streams of b.
func (r *Recorder) Attach(ctx context.Context, b Bridge) {
	log := logging.FromContext(ctx).With("run_id", r.runID)
	b.OnTelemetry(func(s telemetry.Snapshot) { r.recordTelemetry(log, s) })
	b.OnSessionData(func(s *telemetry.Session) { r.recordSession(log, s) })
	b.OnRunningState(func(v bool) { r.recordRunning(log, v) })
}

// Run attaches to b and blocks until ctx is done, then stops the bridge
// and flushes what is buffered.
func (r *Recorder) Run(ctx context.Context, b Bridge) {
	log := logging.FromContext(ctx)
	log.Info("starting recorder", "run_id", r.runID, "batch_size", r.batchSize)
	r.Attach(ctx, b)
	<-ctx.Done()
	b.Stop()
	r.Flush(ctx)
	log.Info("stopping recorder", "run_id", r.runID, "frames", r.Status().Frames)
}

func (r *Recorder) recordTelemetry(log *slog.Logger, s telemetry.Snapshot) {
	now := r.now().UTC()
	r.mu.Lock()
	r.seq++
	frame := telemetry.Frame{RunID: r.runID, Seq: r.seq, Telemetry: s, Timestamp: now}
	r.latest = s
	r.lastAt = now
	r.mu.Unlock()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.batch = append(r.batch, frame)
	if len(r.batch) >= r.batchSize {
		r.flushLocked(log)
	}
}

func (r *Recorder) recordSession(log *slog.Logger, s *telemetry.Session) {
	r.mu.Lock()
	r.sessSeq++
	frame := telemetry.SessionFrame{RunID: r.runID, Seq: r.sessSeq, Session: s, Timestamp: r.now().UTC()}
	r.session = s
	r.mu.Unlock()

	sw, ok := r.writer.(SessionWriter)
	if !ok {
		return
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := sw.WriteSession(frame); err != nil {
		log.Error("session write failed", "seq", frame.Seq, "err", err)
	}
}

func (r *Recorder) recordRunning(log *slog.Logger, v bool) {
	r.mu.Lock()
	changed := !r.runningOK || r.running != v
	r.running, r.runningOK = v, true
	r.mu.Unlock()
	if !changed {
		return
	}
	log.Info("simulator running state changed", "running", v)
	if rw, ok := r.writer.(RunningWriter); ok {
		r.writeMu.Lock()
		rw.SetRunning(v)
		r.writeMu.Unlock()
	}
}

// Flush writes any buffered telemetry frames.
func (r *Recorder) Flush(ctx context.Context) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.flushLocked(logging.FromContext(ctx).With("run_id", r.runID))
}

func (r *Recorder) flushLocked(log *slog.Logger) {
	if len(r.batch) == 0 {
		return
	}
	batch := r.batch
	r.batch = nil

	// Batch support if writer implements WriteBatch
	if bw, ok := r.writer.(batchWriter); ok {
		if err := bw.WriteBatch(batch); err != nil {
			log.Error("batch write failed", "frames", len(batch), "err", err)
		}
		return
	}
	for _, f := range batch {
		if err := r.writer.Write(f); err != nil {
			log.Error("write failed", "seq", f.Seq, "err", err)
		}
	}
}

// Telemetry returns the latest snapshot and when it arrived.
func (r *Recorder) Telemetry() (telemetry.Snapshot, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.lastAt
}

// Session returns the latest session document, or nil.
func (r *Recorder) Session() *telemetry.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// Running returns the last reported running flag.
func (r *Recorder) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Status returns counters and the latest running flag.
func (r *Recorder) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Status{
		RunID:       r.runID,
		Running:     r.running,
		Frames:      r.seq,
		Sessions:    r.sessSeq,
		LastFrameAt: r.lastAt,
	}
	if r.session != nil {
		st.Track = r.session.WeekendInfo.TrackDisplayName
	}
	return st
}
