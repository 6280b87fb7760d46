package main

import (
	"github.com/spf13/cobra"

	"racedash-sim/internal/dashboard"
	"racedash-sim/internal/logging"
)

var (
	dashboardOut  string
	dashboardNoTC bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB table",
	Long:  "dashboard renders Grafana dashboard JSON for the configured GreptimeDB database and table. GREPTIMEDB_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := cfg.Sinks.Greptime
		if err := dashboard.Render(dashboardOut, dashboard.Params{Database: g.Database, Table: g.Table, WithTC: !dashboardNoTC}); err != nil {
			return err
		}
		logging.FromContext(cmd.Context()).Info("dashboards rendered", "dir", dashboardOut, "table", g.Table)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
	dashboardCmd.Flags().BoolVar(&dashboardNoTC, "no-tc", false, "Omit traction control panels")
}
