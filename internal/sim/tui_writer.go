package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"racedash-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// frameMsg carries the latest telemetry frame for the gauges.
type frameMsg struct{ telemetry.Frame }

// sessionMsg replaces the standings.
type sessionMsg struct{ session *telemetry.Session }

// runningMsg reports simulator availability.
type runningMsg struct{ running bool }

// adminMsg reports admin server status.
type adminMsg struct {
	addr      string
	listening bool
}

const (
	maxLogLines  = 1000
	traceLength  = 40
	gaugeWidth   = 24
	standingsMax = 8
)

var (
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
	throttleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	brakeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	clutchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	absOnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9")).Padding(0, 1)
	tcOnStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")).Padding(0, 1)
	lampOffStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
	gearStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// TUIWriter renders telemetry using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. When the
// user quits the TUI the process receives an interrupt so the stream shuts
// down with it.
func NewTUIWriter() *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(f telemetry.Frame) error {
	w.program.Send(logMsg{line: formatFrame(f)})
	w.program.Send(frameMsg{f})
	return nil
}

// WriteBatch implements batchWriter.
func (w *TUIWriter) WriteBatch(frames []telemetry.Frame) error {
	for _, f := range frames {
		if err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// WriteSession implements SessionWriter.
func (w *TUIWriter) WriteSession(f telemetry.SessionFrame) error {
	w.program.Send(sessionMsg{session: f.Session})
	return nil
}

// SetRunning implements RunningWriter.
func (w *TUIWriter) SetRunning(running bool) {
	w.program.Send(runningMsg{running: running})
}

// SetAdminStatus implements AdminStatusWriter.
func (w *TUIWriter) SetAdminStatus(addr string, listening bool) {
	w.program.Send(adminMsg{addr: addr, listening: listening})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	table         table.Model
	vp            viewport.Model
	logs          []string
	session       *telemetry.Session
	inputs        telemetry.Inputs
	frames        uint64
	haveFrame     bool
	throttleTrace []float64
	brakeTrace    []float64
	running       bool
	runningKnown  bool
	adminAddr     string
	admin         bool
	wrap          bool
	autoscroll    bool
	help          bool
	showStandings bool
	header        string
	headerHeight  int
	height        int
}

func newTUIModel() tuiModel {
	cols := []table.Column{
		{Title: "Pos", Width: 3},
		{Title: "#", Width: 3},
		{Title: "Driver", Width: 18},
		{Title: "Class", Width: 10},
		{Title: "iR", Width: 5},
		{Title: "Fastest", Width: 8},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(2))
	m := tuiModel{
		table:         t,
		vp:            viewport.New(0, 0),
		autoscroll:    true,
		showStandings: true,
	}
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.refreshHeader()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			case "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.updateViewportHeight()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "p":
			m.showStandings = !m.showStandings
			m.refreshHeader()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case frameMsg:
		m.inputs = telemetry.InputsOf(msg.Telemetry)
		m.frames++
		m.haveFrame = true
		m.throttleTrace = pushTrace(m.throttleTrace, m.inputs.Throttle)
		m.brakeTrace = pushTrace(m.brakeTrace, m.inputs.Brake)
		m.refreshHeader()
	case sessionMsg:
		m.session = msg.session
		rows := standingRows(msg.session)
		m.table.SetRows(rows)
		m.table.SetHeight(min(len(rows), standingsMax) + 1)
		m.refreshHeader()
	case runningMsg:
		m.running = msg.running
		m.runningKnown = true
	case adminMsg:
		m.adminAddr = msg.addr
		m.admin = msg.listening
	}
	return m, nil
}

func pushTrace(trace []float64, v float64) []float64 {
	trace = append(trace, v)
	if len(trace) > traceLength {
		trace = trace[len(trace)-traceLength:]
	}
	return trace
}

func standingRows(s *telemetry.Session) []table.Row {
	var rows []table.Row
	for _, st := range s.Standings() {
		name := st.Driver
		if st.IsPlayer {
			name = "▶ " + name
		}
		rows = append(rows, table.Row{
			strconv.Itoa(st.Position),
			st.CarNumber,
			name,
			st.CarClass,
			strconv.Itoa(st.IRating),
			fmt.Sprintf("%.3f", st.FastestTime),
		})
	}
	return rows
}

func (m *tuiModel) refreshHeader() {
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
	m.updateViewportHeight()
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	h := m.height - m.headerHeight - bottomHeight - 2
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	dash := m.renderDash()
	if !m.showStandings || m.session == nil {
		return dash
	}
	sep := dimStyle.Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, dash, sep, m.renderStandings())
}

func (m tuiModel) renderDash() string {
	if !m.haveFrame {
		return dimStyle.Render("waiting for telemetry…")
	}
	in := m.inputs
	gear := "N"
	switch {
	case in.Gear < 0:
		gear = "R"
	case in.Gear > 0:
		gear = strconv.Itoa(in.Gear)
	}
	abs := lampOffStyle.Render("ABS")
	if in.ABSActive {
		abs = absOnStyle.Render("ABS")
	}
	lamps := []string{abs}
	if in.TCActive != nil {
		tc := lampOffStyle.Render("TC")
		if *in.TCActive {
			tc = tcOnStyle.Render("TC")
		}
		lamps = append(lamps, tc)
	}
	var levels []string
	if in.ABSSetting != nil {
		levels = append(levels, fmt.Sprintf("abs %d", *in.ABSSetting))
	}
	if in.TCSetting != nil {
		levels = append(levels, fmt.Sprintf("tc %d", *in.TCSetting))
	}

	gauges := strings.Join([]string{
		labelStyle.Render("THR ") + throttleStyle.Render(gauge(in.Throttle)),
		labelStyle.Render("BRK ") + brakeStyle.Render(gauge(in.Brake)),
		labelStyle.Render("CLU ") + clutchStyle.Render(gauge(in.Clutch)),
		labelStyle.Render("    ") + throttleStyle.Render(sparkline(m.throttleTrace)),
		labelStyle.Render("    ") + brakeStyle.Render(sparkline(m.brakeTrace)),
	}, "\n")
	side := strings.Join([]string{
		gearStyle.Render(gear),
		fmt.Sprintf("%.0f km/h", in.Speed*3.6),
		lipgloss.JoinHorizontal(lipgloss.Top, lamps...),
		dimStyle.Render(strings.Join(levels, " ")),
	}, "\n")
	return lipgloss.JoinHorizontal(lipgloss.Top, gauges, "  ", side)
}

func (m tuiModel) renderStandings() string {
	wi := m.session.WeekendInfo
	title := labelStyle.Render(wi.TrackDisplayName)
	if wi.TrackConfigName != "" {
		title += dimStyle.Render(" " + wi.TrackConfigName)
	}
	return title + "\n" + m.table.View()
}

func gauge(v float64) string {
	n := int(v*gaugeWidth + 0.5)
	n = max(0, min(gaugeWidth, n))
	return strings.Repeat("█", n) + strings.Repeat("░", gaugeWidth-n) + fmt.Sprintf(" %3.0f%%", v*100)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

func sparkline(trace []float64) string {
	var b strings.Builder
	for _, v := range trace {
		i := int(v * float64(len(sparkRunes)-1))
		i = max(0, min(len(sparkRunes)-1, i))
		b.WriteRune(sparkRunes[i])
	}
	return b.String()
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	sim := "SIM ?"
	if m.runningKnown {
		sim = "SIM " + indicator(m.running)
	}
	admin := "Admin " + indicator(m.admin)
	if m.admin && m.adminAddr != "" {
		admin += " " + dimStyle.Render(m.adminAddr)
	}
	return fmt.Sprintf("%s | frames=%d | %s | Wrap %s | Scroll %s | Standings %s | Help %s",
		sim, m.frames, admin, indicator(m.wrap), indicator(m.autoscroll), indicator(m.showStandings), indicator(m.help))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for the frame log",
		" s  toggle auto-scroll",
		" p  toggle standings",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
