// Package sink is the opaque event sink spec §1 names as an external
// collaborator ("the event queue transport ... an opaque sink
// enqueue(event)"). The scanner only ever depends on the EventSink
// interface below; HTTPSink is the one best-effort transport this
// module ships, grounded on the base repo's own fire-and-forget stats
// push in bench/soaktest (a POST whose failure is logged, never
// propagated to the caller).
package sink

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/nlog"
)

// EventSink publishes one Snapshot Event. Implementations MUST NOT block
// the scheduler thread for longer than their own configured timeout, and
// MUST swallow their own errors (spec §7: "Event emission never throws").
type EventSink interface {
	Enqueue(ctx context.Context, event model.SnapshotEvent)
}

const defaultTimeout = 10 * time.Second

// HTTPSink posts each event as a JSON body to a configured URL. Failures
// are logged and discarded; the scanner never sees them.
type HTTPSink struct {
	URL    string
	Client *http.Client
}

func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{URL: url, Client: &http.Client{Timeout: defaultTimeout}}
}

func (s *HTTPSink) Enqueue(ctx context.Context, event model.SnapshotEvent) {
	body, err := event.ToJSON()
	if err != nil {
		nlog.Warningf("sink: marshal event %s: %v", event.EventID, err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		nlog.Warningf("sink: build request for event %s: %v", event.EventID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		nlog.Warningf("sink: post event %s: %v", event.EventID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		nlog.Warningf("sink: event %s rejected with status %d", event.EventID, resp.StatusCode)
	}
}
