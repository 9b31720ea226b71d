package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/morezero/lvc-bridge/pkg/db"
)

const httpLogPrefix = "server:http"

// Health is the /health response.
type Health struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	Checks    HealthChecks `json:"checks"`
}

// HealthChecks lists the individual checks; Database is omitted when no
// database is configured.
type HealthChecks struct {
	Comms    bool  `json:"comms"`
	Database *bool `json:"database,omitempty"`
	Topology bool  `json:"topology"`
}

// DatabaseStatus is "" without a database, otherwise "OK" or "Failed".
func (h *Health) DatabaseStatus() string {
	switch {
	case h.Checks.Database == nil:
		return ""
	case *h.Checks.Database:
		return "OK"
	default:
		return "Failed"
	}
}

func (s *Server) health(ctx context.Context) *Health {
	h := &Health{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	h.Checks.Comms = s.nc != nil && s.nc.IsConnected()
	h.Checks.Topology = s.current() != nil
	healthy := h.Checks.Comms && h.Checks.Topology
	if s.pool != nil {
		ok := s.pool.Ping(ctx) == nil
		h.Checks.Database = &ok
		healthy = healthy && ok
	}
	h.Status = "unhealthy"
	if healthy {
		h.Status = "healthy"
	}
	return h
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", s.handleReady())
	mux.HandleFunc("/topology", s.handleTopology())
	mux.HandleFunc("/topology/history", s.handleTopologyHistory())
	mux.HandleFunc("/engine-config", s.handleEngineConfig())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", httpLogPrefix, err))
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.health(ctx)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if s.current() == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "resolving"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleTopology() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		t := s.current()
		if t == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "topology not resolved"})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// topologyHistory lists stored snapshots, newest first.
type topologyHistory interface {
	ListTopologies(ctx context.Context, limit int) ([]db.TopologyRecord, error)
}

func (s *Server) handleTopologyHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no database configured"})
			return
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		records, err := s.history.ListTopologies(ctx, limit)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - topology history: %v", httpLogPrefix, err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list topologies"})
			return
		}
		if records == nil {
			records = []db.TopologyRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) handleEngineConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		t := s.current()
		if t == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "topology not resolved"})
			return
		}
		writeJSON(w, http.StatusOK, t.Engine)
	}
}

type homePageData struct {
	Health   *Health
	Topology *Topology
}

var homePage = template.Must(template.New("home").Parse(homePageTemplate))

func (s *Server) handleHome() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := homePage.Execute(w, homePageData{Health: s.health(ctx), Topology: s.current()}); err != nil {
			slog.Error(fmt.Sprintf("%s - home page render: %v", httpLogPrefix, err))
		}
	}
}

// homePageTemplate is the HTML for the bridge home page.
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>LVC Bridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>LVC Bridge</h1>
  <p class="meta">Resolved IPC topology and bridge health. Raw data: <a href="/topology">/topology</a>, <a href="/topology/history">/topology/history</a>, <a href="/engine-config">/engine-config</a>.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>COMMS: {{if .Health.Checks.Comms}}OK{{else}}<span class="error">Disconnected</span>{{end}}</p>
    {{with .Health.DatabaseStatus}}<p>Database: {{if eq . "OK"}}OK{{else}}<span class="error">{{.}}</span>{{end}}</p>{{end}}
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Endpoints</h2>
    {{if not .Topology}}
    <p class="error">Topology not resolved.</p>
    {{else}}
    <p>Source: {{.Topology.Source}}{{if .Topology.Revision}} (revision {{.Topology.Revision}}){{end}}, resolved {{.Topology.ResolvedAt.Format "2006-01-02T15:04:05Z07:00"}}</p>
    <table>
      <thead>
        <tr><th>Subsystem</th><th>Path</th><th>Kind</th><th>Permission</th><th>Mode</th><th>Auxiliary</th></tr>
      </thead>
      <tbody>
        {{range .Topology.Endpoints.Specs}}
        <tr>
          <td>{{.Name}}</td>
          <td>{{.Path}}</td>
          <td>{{.Kind}}</td>
          <td>{{.Permission}}</td>
          <td>{{.Mode}}</td>
          <td>{{range .Aux}}{{.Role}}: {{.Path}}<br>{{end}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`
