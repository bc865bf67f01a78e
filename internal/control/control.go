// Package control is the small local HTTP surface cmd/scanctl uses to
// reach a running cmd/latticed process. Spec §1 names "operator demand"
// as an explicit scan trigger and §4.D/§4.E expose request_scan_now,
// request_audit_now and progress as public operations of the scheduler,
// but nothing in §6's External Interfaces covers operator-to-daemon
// control — those are all daemon-to-backend. This package is the
// plumbing that gives an operator CLI something to call, the same way
// the teacher's cli/commands package calls a running AIStore daemon's
// own HTTP API rather than embedding cluster logic itself; grounded on
// internal/sink.HTTPSink's plain net/http request/response shape, since
// no pack library wraps a single-purpose local control API more
// idiomatically than the standard library's own client and ServeMux.
package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/monitor"
)

// StatusResponse is the payload GET /status returns: both tasks' most
// recently published Progress Record (spec §4.E: each task exposes its
// own task-status projection).
type StatusResponse struct {
	Scan  model.ProgressRecord `json:"scan"`
	Audit model.ProgressRecord `json:"audit"`
}

// forceResponse is the payload POST /force-scan and /force-audit return.
type forceResponse struct {
	Accepted bool `json:"accepted"`
}

// Server adapts a monitor.Scheduler onto three routes an operator CLI
// can reach over loopback.
type Server struct {
	Scheduler *monitor.Scheduler
}

func NewServer(scheduler *monitor.Scheduler) *Server {
	return &Server{Scheduler: scheduler}
}

// Handler builds the request multiplexer. Kept as a plain stdlib
// http.ServeMux rather than a router library: three fixed routes need no
// path-parameter matching or middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/force-scan", s.handleForceScan)
	mux.HandleFunc("/force-audit", s.handleForceAudit)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *Server) handleForceScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, forceResponse{Accepted: s.Scheduler.RequestScanNow()})
}

func (s *Server) handleForceAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, forceResponse{Accepted: s.Scheduler.RequestAuditNow()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatusResponse{
		Scan:  s.Scheduler.ScanProgress(),
		Audit: s.Scheduler.AuditProgress(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Client is the scanctl-side counterpart: a thin wrapper over net/http
// with no retry or backoff logic of its own, matching the one-shot
// nature of an interactively-run operator command.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) ForceScan(ctx context.Context) (bool, error) {
	var resp forceResponse
	err := c.post(ctx, "/force-scan", &resp)
	return resp.Accepted, err
}

func (c *Client) ForceAudit(ctx context.Context) (bool, error) {
	var resp forceResponse
	err := c.post(ctx, "/force-audit", &resp)
	return resp.Accepted, err
}

func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := c.get(ctx, "/status", &resp)
	return resp, err
}

func (c *Client) post(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(nil))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("control: %s rejected with status %d", req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
