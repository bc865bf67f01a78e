// Package progress is the Progress Reporter (spec §4.F): it translates
// Monitor Scheduler / Storage Scanner state into the versioned payload
// posted to /ops/task-progress. Errors from the transport are swallowed —
// this is an observability channel, never a control path — and the
// reporter never retains a reference to the record it was handed; it
// copies the value (ProgressRecord is already a plain value type) before
// the POST body is built, so a caller is free to keep mutating its own
// live copy the instant Report returns.
package progress

import (
	"bytes"
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/nlog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TaskKind distinguishes the two task-status projections spec §4.E
// requires the Monitor Scheduler to expose.
type TaskKind string

const (
	TaskScan  TaskKind = "scan"
	TaskAudit TaskKind = "audit"
)

// payload is the wire shape POSTed to /ops/task-progress. The spec's data
// model leaves the wrapping envelope unspecified beyond "the Progress
// Record described in §3"; since the endpoint serves both the audit and
// scan task-status projections from one scheduler, each report is tagged
// with which task it describes.
type payload struct {
	ServerID string              `json:"server_id"`
	Task     TaskKind            `json:"task"`
	Record   model.ProgressRecord `json:"record"`
}

const defaultTimeout = 10 * time.Second

// Reporter posts Progress Records as a best-effort, fire-and-forget POST,
// grounded on the same request shape internal/sink.HTTPSink uses for
// Snapshot Events (both descend from the base repo's bench/soaktest
// stats push).
type Reporter struct {
	URL    string
	Client *http.Client
}

func NewReporter(url string) *Reporter {
	return &Reporter{URL: url, Client: &http.Client{Timeout: defaultTimeout}}
}

// Report snapshots and posts one task's Progress Record. Called on the
// scheduler thread; never blocks it for longer than the client timeout,
// and never returns an error the caller must handle.
func (r *Reporter) Report(ctx context.Context, serverID string, task TaskKind, rec model.ProgressRecord) {
	body, err := json.Marshal(payload{ServerID: serverID, Task: task, Record: rec})
	if err != nil {
		nlog.Warningf("progress: marshal %s record: %v", task, err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		nlog.Warningf("progress: build request for %s record: %v", task, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		nlog.Warningf("progress: post %s record: %v", task, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		nlog.Warningf("progress: %s record rejected with status %d", task, resp.StatusCode)
	}
}
