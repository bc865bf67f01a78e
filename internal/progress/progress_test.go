package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/stretchr/testify/require"
)

func TestReportPostsTaggedPayload(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewReporter(srv.URL)
	rec := model.NewIdleProgress()
	rec.State = model.StateRunning
	r.Report(context.Background(), "server-1", TaskScan, rec)

	require.Equal(t, "server-1", got.ServerID)
	require.Equal(t, TaskScan, got.Task)
	require.Equal(t, model.StateRunning, got.Record.State)
}

func TestReportSwallowsTransportErrors(t *testing.T) {
	r := NewReporter("http://127.0.0.1:0")
	require.NotPanics(t, func() {
		r.Report(context.Background(), "server-1", TaskAudit, model.NewIdleProgress())
	})
}
