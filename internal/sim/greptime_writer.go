package sim

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"racedash-sim/internal/telemetry"
)

const (
	greptimeDefaultPort  = 4001
	greptimeWriteTimeout = 5 * time.Second
)

// greptimeClient is the part of the ingester client the writer uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes the driver-input view of each frame to a
// GreptimeDB time-series table, tagged by run id.
type GreptimeDBWriter struct {
	client greptimeClient
	table  string
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{client: client, table: tableName}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, greptimeDefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

// Write inserts a single telemetry frame.
func (w *GreptimeDBWriter) Write(f telemetry.Frame) error {
	return w.WriteBatch([]telemetry.Frame{f})
}

// WriteBatch inserts multiple telemetry frames. Driver-aid columns are
// only included when every frame in the batch carries them.
func (w *GreptimeDBWriter) WriteBatch(frames []telemetry.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	inputs := make([]telemetry.Inputs, len(frames))
	hasTC, hasABSLevel, hasTCLevel := true, true, true
	for i, f := range frames {
		in := telemetry.InputsOf(f.Telemetry)
		inputs[i] = in
		hasTC = hasTC && in.TCActive != nil
		hasABSLevel = hasABSLevel && in.ABSSetting != nil
		hasTCLevel = hasTCLevel && in.TCSetting != nil
	}

	tbl, err := w.newTable(hasTC, hasABSLevel, hasTCLevel)
	if err != nil {
		return err
	}
	for i, f := range frames {
		in := inputs[i]
		vals := []any{f.RunID, in.Brake, in.Throttle, in.Clutch, in.Speed, int64(in.Gear), in.ABSActive}
		if hasTC {
			vals = append(vals, *in.TCActive)
		}
		if hasABSLevel {
			vals = append(vals, int64(*in.ABSSetting))
		}
		if hasTCLevel {
			vals = append(vals, int64(*in.TCSetting))
		}
		vals = append(vals, f.Timestamp)
		if err := tbl.AddRow(vals...); err != nil {
			return fmt.Errorf("greptime row %d: %w", f.Seq, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), greptimeWriteTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	return nil
}

func (w *GreptimeDBWriter) newTable(hasTC, hasABSLevel, hasTCLevel bool) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, fmt.Errorf("greptime table: %w", err)
	}
	cols := []func() error{
		func() error { return tbl.AddTagColumn("run_id", types.STRING) },
		func() error { return tbl.AddFieldColumn("brake", types.FLOAT64) },
		func() error { return tbl.AddFieldColumn("throttle", types.FLOAT64) },
		func() error { return tbl.AddFieldColumn("clutch", types.FLOAT64) },
		func() error { return tbl.AddFieldColumn("speed", types.FLOAT64) },
		func() error { return tbl.AddFieldColumn("gear", types.INT64) },
		func() error { return tbl.AddFieldColumn("abs_active", types.BOOLEAN) },
	}
	if hasTC {
		cols = append(cols, func() error { return tbl.AddFieldColumn("tc_active", types.BOOLEAN) })
	}
	if hasABSLevel {
		cols = append(cols, func() error { return tbl.AddFieldColumn("abs_setting", types.INT64) })
	}
	if hasTCLevel {
		cols = append(cols, func() error { return tbl.AddFieldColumn("tc_setting", types.INT64) })
	}
	cols = append(cols, func() error { return tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND) })
	for _, add := range cols {
		if err := add(); err != nil {
			return nil, fmt.Errorf("greptime schema: %w", err)
		}
	}
	return tbl, nil
}
