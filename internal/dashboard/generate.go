// Package dashboard renders Grafana dashboards for the GreptimeDB telemetry
// table.
package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Params selects the table a dashboard queries.
type Params struct {
	Database string
	Table    string
	// WithTC adds the traction control series, which only exist when the
	// recorded cars report them.
	WithTC bool
}

// Render writes every dashboard template to outDir. Datasource UIDs come
// from the environment; a missing one is an error.
func Render(outDir string, p Params) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}
	tpl, err := template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.json.tmpl")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, t := range tpl.Templates() {
		if !strings.HasSuffix(t.Name(), ".tmpl") {
			continue
		}
		var b strings.Builder
		if err := t.Execute(&b, p); err != nil {
			return err
		}
		if !json.Valid([]byte(b.String())) {
			return fmt.Errorf("%s: rendered dashboard is not valid JSON", t.Name())
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(t.Name(), ".tmpl"))
		if err := os.WriteFile(outPath, []byte(b.String()), 0o644); err != nil {
			return err
		}
	}
	return nil
}
