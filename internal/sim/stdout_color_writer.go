// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"racedash-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

const pedalBarWidth = 10

// ColorStdoutWriter prints one ANSI-colored input line per frame and a
// standings overview whenever the session changes track.
type ColorStdoutWriter struct {
	out   io.Writer
	track string
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter() *ColorStdoutWriter {
	return &ColorStdoutWriter{out: os.Stdout}
}

// pedalBar renders v in [0,1] as a fixed-width bar.
func pedalBar(v float64) string {
	n := int(v*pedalBarWidth + 0.5)
	n = max(0, min(pedalBarWidth, n))
	return strings.Repeat("█", n) + strings.Repeat("·", pedalBarWidth-n)
}

func lamp(label string, on bool, onColor string) string {
	if on {
		return onColor + label + colorReset
	}
	return colorGray + strings.ToLower(label) + colorReset
}

// Write outputs a single telemetry frame in colorized format.
func (w *ColorStdoutWriter) Write(f telemetry.Frame) error {
	_, err := fmt.Fprintln(w.out, formatFrame(f))
	return err
}

func formatFrame(f telemetry.Frame) string {
	in := telemetry.InputsOf(f.Telemetry)

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]%s ", colorGray, f.Timestamp.Format(time.RFC3339Nano), colorReset)
	fmt.Fprintf(&b, "%sseq=%d%s ", colorBlue, f.Seq, colorReset)
	fmt.Fprintf(&b, "%sgear=%d%s ", colorMagenta, in.Gear, colorReset)
	fmt.Fprintf(&b, "%sspd=%.0fkm/h%s ", colorCyan, in.Speed*3.6, colorReset)
	fmt.Fprintf(&b, "%sthr %s%s ", colorGreen, pedalBar(in.Throttle), colorReset)
	fmt.Fprintf(&b, "%sbrk %s%s ", colorRed, pedalBar(in.Brake), colorReset)
	b.WriteString(lamp("ABS", in.ABSActive, colorRed))
	if in.TCActive != nil {
		b.WriteString(" " + lamp("TC", *in.TCActive, colorYellow))
	}
	if in.ABSSetting != nil {
		fmt.Fprintf(&b, " %sabs=%d%s", colorGray, *in.ABSSetting, colorReset)
	}
	if in.TCSetting != nil {
		fmt.Fprintf(&b, " %stc=%d%s", colorGray, *in.TCSetting, colorReset)
	}
	return b.String()
}

// WriteBatch outputs multiple telemetry frames.
func (w *ColorStdoutWriter) WriteBatch(frames []telemetry.Frame) error {
	for _, f := range frames {
		if err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// WriteSession prints the event overview and standings when the track
// changes.
func (w *ColorStdoutWriter) WriteSession(f telemetry.SessionFrame) error {
	if f.Session == nil {
		return nil
	}
	wi := f.Session.WeekendInfo
	if wi.TrackName == w.track {
		return nil
	}
	w.track = wi.TrackName

	fmt.Fprintf(w.out, "%sSession:%s %s (%s, %s) %s\n",
		colorCyan, colorReset, wi.TrackDisplayName, wi.TrackCity, wi.TrackCountry, wi.EventType)
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Pos\t#\tDriver\tClass\tiR\tFastest\n")
	for _, st := range f.Session.Standings() {
		name := st.Driver
		if st.IsPlayer {
			name = colorYellow + name + colorReset
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.3f\n", st.Position, st.CarNumber, name, st.CarClass, st.IRating, st.FastestTime)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

// SetRunning prints a line when the simulator starts or stops.
func (w *ColorStdoutWriter) SetRunning(running bool) {
	if running {
		fmt.Fprintf(w.out, "%ssimulator running%s\n", colorGreen, colorReset)
		return
	}
	fmt.Fprintf(w.out, "%ssimulator not running%s\n", colorRed, colorReset)
}
