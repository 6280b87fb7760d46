package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"racedash-sim/internal/irsdk"
	"racedash-sim/internal/logging"
	"racedash-sim/internal/sim"
	"racedash-sim/internal/telemetry"
)

type fakeSource struct {
	snap    telemetry.Snapshot
	session *telemetry.Session
}

func (f fakeSource) Telemetry() (telemetry.Snapshot, time.Time) {
	return f.snap, time.Unix(100, 0).UTC()
}

func (f fakeSource) Session() *telemetry.Session { return f.session }

func (f fakeSource) Status() sim.Status {
	return sim.Status{RunID: "run-1", Running: true, Frames: 42}
}

type fakeSDK struct{ cmds []irsdk.Command }

func (f *fakeSDK) Broadcast(c irsdk.Command) { f.cmds = append(f.cmds, c) }

func liveSource() fakeSource {
	return fakeSource{snap: telemetry.Baseline(), session: telemetry.DefaultSession()}
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandleTelemetry(t *testing.T) {
	s := NewServer(liveSource(), nil)
	w := get(t, s, "/telemetry")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body telemetryResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Telemetry.Equal(telemetry.Baseline()) {
		t.Fatal("snapshot mismatch")
	}
	if !body.Timestamp.Equal(time.Unix(100, 0)) {
		t.Fatalf("timestamp %v", body.Timestamp)
	}
}

func TestHandleChannel(t *testing.T) {
	s := NewServer(liveSource(), nil)
	w := get(t, s, "/telemetry/Gear")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var ch telemetry.Channel
	if err := json.NewDecoder(w.Body).Decode(&ch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := ch.Int(0); ch.Name != "Gear" || v != 3 {
		t.Fatalf("unexpected channel %+v", ch)
	}
	if w := get(t, s, "/telemetry/0"); w.Code != http.StatusOK {
		t.Fatalf("index lookup status %d", w.Code)
	}
	if w := get(t, s, "/telemetry/NoSuchVar"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandlersBeforeData(t *testing.T) {
	s := NewServer(fakeSource{}, nil)
	for _, path := range []string{"/telemetry", "/inputs", "/session", "/standings"} {
		if w := get(t, s, path); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, w.Code)
		}
	}
	if w := get(t, s, "/"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "No session") {
		t.Fatalf("index should render without data: %d", w.Code)
	}
}

func TestHandleStandingsAndStatus(t *testing.T) {
	s := NewServer(liveSource(), nil)
	w := get(t, s, "/standings")
	var rows []telemetry.Standing
	if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) == 0 || rows[0].Position != 1 {
		t.Fatalf("unexpected standings %+v", rows)
	}

	w = get(t, s, "/status")
	var st sim.Status
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.RunID != "run-1" || st.Frames != 42 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestHandleIndex(t *testing.T) {
	s := NewServer(liveSource(), nil)
	w := get(t, s, "/")
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, "Brake") || !strings.Contains(body, "class=\"player\"") {
		t.Fatalf("index missing inputs or standings: %d\n%s", w.Code, body)
	}
}

func TestHandleBroadcast(t *testing.T) {
	sdk := &fakeSDK{}
	s := NewServer(liveSource(), sdk)

	form := url.Values{"msg": {"PitCommand"}, "var1": {"2"}, "var2": {"40"}}
	req := httptest.NewRequest(http.MethodPost, "/broadcast", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if len(sdk.cmds) != 1 || sdk.cmds[0] != irsdk.Pit(irsdk.PitFuel, 40) {
		t.Fatalf("unexpected commands %+v", sdk.cmds)
	}

	req = httptest.NewRequest(http.MethodPost, "/broadcast?msg=Teleport", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleBroadcastDisabled(t *testing.T) {
	s := NewServer(liveSource(), nil)
	req := httptest.NewRequest(http.MethodPost, "/broadcast?msg=PitCommand", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
}

func TestServeShutsDownWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := NewServer(liveSource(), nil)
	statuses := make(chan bool, 2)
	s.OnStatus = func(_ string, listening bool) { statuses <- listening }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	if !<-statuses {
		t.Fatal("expected listening status first")
	}
	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
	if <-statuses {
		t.Fatal("expected not-listening status after shutdown")
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.NewContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	r := httptest.NewRequest(http.MethodGet, "/status", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	writeJSON(w, r, http.StatusOK, map[string]any{"bad": make(chan int)})
	if !strings.Contains(buf.String(), "write response") || !strings.Contains(buf.String(), "/status") {
		t.Fatalf("encode failure not logged: %q", buf.String())
	}
}
