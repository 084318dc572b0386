// Package web implements the dashboard HTTP surface (§4.M): a thin
// read-model over the content store plus approve/reject POSTs. It never
// drives the orchestrator directly — approval is recorded as a folder
// move, and the next scheduler cycle (or an immediate call, in
// dashboard-only mode) executes it.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/digitalfte/fte/internal/logsink"
	"github.com/digitalfte/fte/internal/priority"
	"github.com/digitalfte/fte/internal/vault"
	"github.com/digitalfte/fte/internal/zone"
)

var countedFolders = []string{
	vault.NeedsAction, vault.PendingApproval, vault.Approved,
	vault.Rejected, vault.Done, vault.Quarantine,
}

// Server serves the dashboard's HTML pages and JSON endpoints.
type Server struct {
	Store *vault.Store
	Logs  *logsink.Sink
	Zone  *zone.Policy
}

// New returns a Server over the given store, log sink, and zone policy.
func New(store *vault.Store, logs *logsink.Sink, z *zone.Policy) *Server {
	return &Server{Store: store, Logs: logs, Zone: z}
}

// Router builds the chi route tree described by §4.M.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/api/status", s.handleAPIStatus)
	r.Get("/api/pending", s.handleAPIPending)
	r.Get("/api/activity", s.handleAPIActivity)
	r.Get("/tasks", s.handleTasks)
	r.Post("/approve/*", s.handleApprove)
	r.Post("/reject/*", s.handleReject)
	r.Get("/view/{folder}/{name}", s.handleView)
	return r
}

func (s *Server) folderCounts() (map[string]int, int, error) {
	counts := make(map[string]int, len(countedFolders))
	total := 0
	for _, f := range countedFolders {
		handles, err := s.Store.List(f)
		if err != nil {
			return nil, 0, err
		}
		counts[f] = len(handles)
		if f == vault.NeedsAction || f == vault.PendingApproval {
			total += len(handles)
		}
	}
	return counts, total, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := os.Stat(s.Store.Root)
	resp := map[string]any{
		"status":       "ok",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"vault_exists": err == nil,
		"work_zone":    string(s.Zone.Zone),
		"capabilities": capabilityList(s.Zone),
	}
	writeJSON(w, http.StatusOK, resp)
}

func capabilityList(p *zone.Policy) []string {
	all := []zone.Capability{
		zone.ReadExternalEvents, zone.DraftPlan, zone.ExecuteSideEffect,
		zone.AutoApprove, zone.ApproveReject, zone.WriteDashboard,
	}
	var out []string
	for _, c := range all {
		if p.Allows(c) {
			out = append(out, string(c))
		}
	}
	return out
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	counts, total, err := s.folderCounts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	status := "idle"
	if total > 0 {
		status = "active"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"items_to_process": total,
		"folders":          counts,
		"work_zone":        string(s.Zone.Zone),
	})
}

type pendingPlan struct {
	Name       string  `json:"name"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	Action     string  `json:"action,omitempty"`
	Created    string  `json:"created,omitempty"`
}

func (s *Server) handleAPIPending(w http.ResponseWriter, r *http.Request) {
	handles, err := s.Store.List(vault.PendingApproval)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	plans := make([]pendingPlan, 0, len(handles))
	for _, h := range handles {
		header, _, err := s.Store.Read(h)
		if err != nil {
			continue
		}
		source, _ := header.Get("source")
		action, _ := header.Get("action")
		created, _ := header.Get("created")
		confidence, _ := header.Confidence()
		plans = append(plans, pendingPlan{
			Name: h.Name, Source: source, Confidence: confidence,
			Action: action, Created: created,
		})
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleAPIActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Logs.Recent(50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type taskSummary struct {
	Folder   string `json:"folder"`
	Name     string `json:"name"`
	Priority string `json:"priority,omitempty"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []taskSummary
	for _, folder := range []string{vault.NeedsAction, vault.PendingApproval} {
		handles, err := s.Store.List(folder)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		for _, h := range handles {
			p := ""
			if header, _, err := s.Store.Read(h); err == nil {
				if v, ok := header.Get("priority"); ok {
					p = string(priority.Normalize(v))
				}
			}
			tasks = append(tasks, taskSummary{Folder: folder, Name: h.Name, Priority: p})
		}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.moveFromPending(w, r, vault.Approved, "approved")
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.moveFromPending(w, r, vault.Rejected, "rejected")
}

func (s *Server) moveFromPending(w http.ResponseWriter, r *http.Request, dest, action string) {
	if !s.Zone.Allows(zone.ApproveReject) {
		writeError(w, http.StatusForbidden, fmt.Errorf("this zone cannot approve or reject"))
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/approve/")
	name = strings.TrimPrefix(name, "/reject/")
	if name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing artifact path"))
		return
	}

	h := vault.Handle{Folder: vault.PendingApproval, Name: name}
	if _, err := s.Store.Move(h, dest); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if s.Logs != nil {
		_ = s.Logs.Append(logsink.Entry{
			Timestamp: time.Now().UTC(), Actor: "dashboard", Action: action, Source: name, Result: "ok",
		})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	name := chi.URLParam(r, "name")
	header, body, err := s.Store.Read(vault.Handle{Folder: folder, Name: name})
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var rendered strings.Builder
	if err := goldmark.Convert([]byte(body), &rendered); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h1>%s</h1><pre>%s</pre><hr>%s</body></html>",
		path.Join(folder, name), headerLines(header), rendered.String())
}

func headerLines(h *vault.Header) string {
	var b strings.Builder
	for _, k := range h.Keys() {
		v, _ := h.Get(k)
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	return b.String()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	counts, total, err := s.folderCounts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	pending, _ := s.Store.List(vault.PendingApproval)
	needsAction, _ := s.Store.List(vault.NeedsAction)
	recent, _ := s.Logs.Recent(20)
	doneTail, _ := s.Store.List(vault.Done)

	var b strings.Builder
	b.WriteString("<html><head><title>fte dashboard</title></head><body>")
	fmt.Fprintf(&b, "<h1>fte — %d items to process</h1>", total)

	b.WriteString("<h2>Counts</h2><ul>")
	for _, f := range countedFolders {
		fmt.Fprintf(&b, "<li>%s: %d</li>", f, counts[f])
	}
	b.WriteString("</ul>")

	b.WriteString("<h2>Pending Approval</h2><ul>")
	for _, h := range pending {
		fmt.Fprintf(&b, `<li><a href="/view/%s/%s">%s</a> `+
			`<form style="display:inline" method="post" action="/approve/%s"><button>Approve</button></form> `+
			`<form style="display:inline" method="post" action="/reject/%s"><button>Reject</button></form></li>`,
			h.Folder, h.Name, h.Name, h.Name, h.Name)
	}
	b.WriteString("</ul>")

	b.WriteString("<h2>Needs Action</h2><ul>")
	for _, h := range needsAction {
		fmt.Fprintf(&b, `<li><a href="/view/%s/%s">%s</a></li>`, h.Folder, h.Name, h.Name)
	}
	b.WriteString("</ul>")

	b.WriteString("<h2>Recent Log</h2><ul>")
	for _, e := range recent {
		fmt.Fprintf(&b, "<li>%s %s %s %s — %s</li>", e.Timestamp.Format(time.RFC3339), e.Actor, e.Action, e.Source, e.Result)
	}
	b.WriteString("</ul>")

	b.WriteString("<h2>Done (tail)</h2><ul>")
	tail := doneTail
	if len(tail) > 20 {
		tail = tail[len(tail)-20:]
	}
	for _, h := range tail {
		fmt.Fprintf(&b, `<li><a href="/view/%s/%s">%s</a></li>`, h.Folder, h.Name, h.Name)
	}
	b.WriteString("</ul></body></html>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(b.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
