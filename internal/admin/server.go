package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"racedash-sim/internal/irsdk"
	"racedash-sim/internal/logging"
	"racedash-sim/internal/sim"
	"racedash-sim/internal/telemetry"
)

// Source is the live state the server exposes. *sim.Recorder implements it.
type Source interface {
	Telemetry() (telemetry.Snapshot, time.Time)
	Session() *telemetry.Session
	Status() sim.Status
}

// Broadcaster sends remote-control commands to the simulator.
type Broadcaster interface {
	Broadcast(irsdk.Command)
}

type Server struct {
	src Source
	sdk Broadcaster
	tpl *template.Template
	mux *http.ServeMux

	// OnStatus, when set, is told when the server starts and stops
	// listening.
	OnStatus func(addr string, listening bool)
}

//go:embed templates/index.html
var content embed.FS

const shutdownTimeout = 5 * time.Second

// NewServer creates a server over src. sdk may be nil, which disables
// POST /broadcast.
func NewServer(src Source, sdk Broadcaster) *Server {
	funcs := template.FuncMap{
		"percent": func(v float64) float64 { return v * 100 },
		"kmh":     func(v float64) float64 { return v * 3.6 },
		"deref":   func(b *bool) bool { return b != nil && *b },
	}
	tpl := template.Must(template.New("index.html").Funcs(funcs).ParseFS(content, "templates/index.html"))
	s := &Server{src: src, sdk: sdk, tpl: tpl, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /telemetry", s.handleTelemetry)
	s.mux.HandleFunc("GET /telemetry/{name}", s.handleChannel)
	s.mux.HandleFunc("GET /inputs", s.handleInputs)
	s.mux.HandleFunc("GET /session", s.handleSession)
	s.mux.HandleFunc("GET /standings", s.handleStandings)
	s.mux.HandleFunc("POST /broadcast", s.handleBroadcast)
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on addr and serves until ctx is done, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logging.FromContext(ctx)
	addr := ln.Addr().String()
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("admin server shutdown", "err", err)
		}
	}()

	log.Info("admin server listening", "addr", addr)
	if s.OnStatus != nil {
		s.OnStatus(addr, true)
	}
	err := srv.Serve(ln)
	if s.OnStatus != nil {
		s.OnStatus(addr, false)
	}
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}

type indexData struct {
	Status    sim.Status
	Inputs    *telemetry.Inputs
	Standings []telemetry.Standing
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Status:    s.src.Status(),
		Standings: s.src.Session().Standings(),
	}
	if snap, _ := s.src.Telemetry(); !snap.IsZero() {
		in := telemetry.InputsOf(snap)
		data.Inputs = &in
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.src.Status())
}

type telemetryResponse struct {
	Timestamp time.Time          `json:"ts"`
	Telemetry telemetry.Snapshot `json:"telemetry"`
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	snap, at, ok := s.latest(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, telemetryResponse{Timestamp: at, Telemetry: snap})
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := s.latest(w, r)
	if !ok {
		return
	}
	name := r.PathValue("name")
	var (
		ch    telemetry.Channel
		found bool
	)
	if i, err := strconv.Atoi(name); err == nil {
		ch, found = snap.At(i)
	} else {
		ch, found = snap.Get(name)
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "unknown channel "+strconv.Quote(name))
		return
	}
	writeJSON(w, r, http.StatusOK, ch)
}

func (s *Server) handleInputs(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := s.latest(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, telemetry.InputsOf(snap))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.src.Session()
	if sess == nil {
		writeError(w, r, http.StatusServiceUnavailable, "no session yet")
		return
	}
	writeJSON(w, r, http.StatusOK, sess)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	sess := s.src.Session()
	if sess == nil {
		writeError(w, r, http.StatusServiceUnavailable, "no session yet")
		return
	}
	writeJSON(w, r, http.StatusOK, sess.Standings())
}

// handleBroadcast accepts msg (name or number) and var1..var3 as form
// values.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if s.sdk == nil {
		writeError(w, r, http.StatusNotImplemented, "broadcast not available")
		return
	}
	msg, err := irsdk.ParseBroadcastMsg(r.FormValue("msg"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cmd := irsdk.Command{Msg: msg}
	for i, dst := range []*int{&cmd.Var1, &cmd.Var2, &cmd.Var3} {
		key := "var" + strconv.Itoa(i+1)
		v := r.FormValue(key)
		if v == "" {
			continue
		}
		if *dst, err = strconv.Atoi(v); err != nil {
			writeError(w, r, http.StatusBadRequest, key+" must be an integer")
			return
		}
	}
	s.sdk.Broadcast(cmd)
	writeJSON(w, r, http.StatusAccepted, map[string]string{"command": cmd.String()})
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) (telemetry.Snapshot, time.Time, bool) {
	snap, at := s.src.Telemetry()
	if snap.IsZero() {
		writeError(w, r, http.StatusServiceUnavailable, "no telemetry yet")
		return snap, at, false
	}
	return snap, at, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Warn("write response", "path", r.URL.Path, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, r, code, map[string]string{"error": msg})
}
