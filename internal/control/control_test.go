package control

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/monitor"
	"github.com/loopwic/lattice-scan/internal/sink"
	"github.com/stretchr/testify/require"
)

type noopSink struct{}

func (noopSink) Enqueue(ctx context.Context, event model.SnapshotEvent) {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := cmn.NewConfigOwner(cmn.DefaultConfig())
	bridge := &hostbridge.Static{}
	scheduler := monitor.NewScheduler("server-1", cfg, bridge, sink.EventSink(noopSink{}), nil, nil)
	srv := NewServer(scheduler)
	return httptest.NewServer(srv.Handler())
}

func TestForceScanAndAuditAcceptRequests(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := NewClient(srv.URL)
	accepted, err := client.ForceScan(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = client.ForceAudit(context.Background())
	require.NoError(t, err)
	require.True(t, accepted)
}

func TestStatusReturnsBothTaskProgress(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := NewClient(srv.URL)
	status, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StateIdle, status.Scan.State)
	require.Equal(t, model.StateIdle, status.Audit.State)
}
