package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/stretchr/testify/require"
)

// recordingSink hands every enqueued event to a buffered channel.
// Scanner.publishSnapshot dispatches Enqueue on its own goroutine (so the
// scheduler tick never blocks on transport), so tests must synchronize
// on the channel rather than reading a plain slice immediately after Tick.
type recordingSink struct {
	events chan model.SnapshotEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(chan model.SnapshotEvent, 64)}
}

func (r *recordingSink) Enqueue(_ context.Context, event model.SnapshotEvent) {
	r.events <- event
}

func (r *recordingSink) awaitEvent(t *testing.T) model.SnapshotEvent {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return model.SnapshotEvent{}
	}
}

type oneStackContainer struct {
	itemID string
	count  int64
}

func (c oneStackContainer) SlotCount() int { return 1 }

func (c oneStackContainer) Stack(i int) (aggregate.Stack, bool) {
	if i != 0 {
		return aggregate.Stack{}, false
	}
	return aggregate.Stack{ItemID: c.itemID, Count: c.count}, true
}

func allSourcesDisabledConfig() *cmn.Config {
	cfg := cmn.DefaultConfig()
	cfg.ScanIncludeContainers = false
	cfg.ScanSBOfflineEnabled = false
	cfg.ScanRS2OfflineEnabled = false
	cfg.ScanIncludeOnlineRuntime = false
	return cfg
}

func TestScannerDegradesWhenNoTargetsDiscovered(t *testing.T) {
	cfg := allSourcesDisabledConfig()
	owner := cmn.NewConfigOwner(cfg)
	bridge := &hostbridge.Static{}
	s := NewScanner("server-1", owner, bridge, newRecordingSink(), NewCooldownStore())

	s.Tick(1000)

	p := s.Progress()
	require.Equal(t, model.StateDegraded, p.State)
	require.NotNil(t, p.Failure)
	require.Equal(t, cmn.FailureNoTargets, p.Failure.Code)
}

func TestScannerCompletesRuntimeOnlySession(t *testing.T) {
	cfg := allSourcesDisabledConfig()
	cfg.ScanIncludeOnlineRuntime = true
	owner := cmn.NewConfigOwner(cfg)

	bridge := &hostbridge.Static{
		Containers: []hostbridge.LoadedContainer{
			{
				Container:  oneStackContainer{itemID: "minecraft:emerald", count: 9},
				Dimension:  "minecraft:overworld",
				Position:   model.Position{X: 1, Y: 2, Z: 3},
				StorageMod: "minecraft",
				StorageID:  "chest-1",
			},
		},
	}
	evSink := newRecordingSink()
	s := NewScanner("server-1", owner, bridge, evSink, NewCooldownStore())

	s.Tick(1000)

	p := s.Progress()
	require.Equal(t, model.StateRunning, p.State)

	s.Tick(1001)

	p = s.Progress()
	require.Equal(t, model.StateCompleted, p.State)
	require.Nil(t, p.Failure)
	require.EqualValues(t, 1, p.Counters.Done)
	require.EqualValues(t, 1, p.Counters.DoneBySource[model.SourceOnlineRuntime])

	event := evSink.awaitEvent(t)
	require.Equal(t, "minecraft:emerald", event.ItemID)
	require.EqualValues(t, 9, event.Count)
}

func TestScannerHealthGuardBlocksSession(t *testing.T) {
	cfg := allSourcesDisabledConfig()
	cfg.ScanIncludeOnlineRuntime = true
	cfg.ScanMaxOnlinePlayers = 0
	owner := cmn.NewConfigOwner(cfg)

	bridge := &hostbridge.Static{
		HealthData: hostbridge.HealthSnapshot{OnlinePlayers: 5},
	}
	s := NewScanner("server-1", owner, bridge, newRecordingSink(), NewCooldownStore())

	s.Tick(1000)

	p := s.Progress()
	require.Equal(t, model.StateDegraded, p.State)
	require.Equal(t, cmn.FailureHealthGuardBlocked, p.Failure.Code)
}

// TestScannerHealthGuardRetriesNextTick covers spec §8: the health gate
// is re-checked at the start of every session, not deferred by a full
// scan_interval_minutes after a guard-blocked session. A host that drops
// below threshold one tick after being blocked must be allowed to start
// on the very next tick.
func TestScannerHealthGuardRetriesNextTick(t *testing.T) {
	cfg := allSourcesDisabledConfig()
	cfg.ScanIncludeOnlineRuntime = true
	cfg.ScanMaxOnlinePlayers = 0
	owner := cmn.NewConfigOwner(cfg)

	bridge := &hostbridge.Static{
		HealthData: hostbridge.HealthSnapshot{OnlinePlayers: 5},
		Containers: []hostbridge.LoadedContainer{
			{
				Container:  oneStackContainer{itemID: "minecraft:emerald", count: 1},
				StorageMod: "minecraft",
				StorageID:  "chest-1",
			},
		},
	}
	s := NewScanner("server-1", owner, bridge, newRecordingSink(), NewCooldownStore())

	s.Tick(1000)
	require.Equal(t, model.StateDegraded, s.Progress().State)
	require.Equal(t, cmn.FailureHealthGuardBlocked, s.Progress().Failure.Code)

	bridge.HealthData = hostbridge.HealthSnapshot{OnlinePlayers: 0}
	s.Tick(1001)
	require.Equal(t, model.StateRunning, s.Progress().State)
}

// TestDrainRegionResultsCountsPerContainerNotPerJob covers spec §8
// scenario 2: a single region-file job that yields two block-entity
// containers must report done==total==2 for world_containers, not 1 (one
// per job). Each admitted container also gets its own trace-id, matching
// spec §3/§5/§8's "one trace-id per container" invariant.
func TestDrainRegionResultsCountsPerContainerNotPerJob(t *testing.T) {
	cfg := allSourcesDisabledConfig()
	owner := cmn.NewConfigOwner(cfg)
	bridge := &hostbridge.Static{}
	evSink := newRecordingSink()
	s := NewScanner("server-1", owner, bridge, evSink, NewCooldownStore())

	s.state = model.StateRunning
	s.counters = model.NewCounters()
	s.pool = NewWorkerPool(1)
	s.outstandingRegion = 1

	s.pool.regionResults <- RegionJobResult{
		Target: model.RegionFile{FilePath: "r.0.0.mca"},
		Snapshots: []model.WorldSnapshot{
			{ItemCounts: map[string]int64{"minecraft:diamond": 4}, StorageID_: "chest-1"},
			{ItemCounts: map[string]int64{"minecraft:gold_ingot": 2}, StorageID_: "chest-2"},
		},
	}

	s.drainRegionResults(1000)
	s.publishQueue(1000)

	require.EqualValues(t, 2, s.counters.Done)
	require.EqualValues(t, 2, s.counters.DoneBySource[model.SourceWorldContainers])
	require.EqualValues(t, 2, s.counters.TargetsTotalBySource[model.SourceWorldContainers])

	event1 := evSink.awaitEvent(t)
	event2 := evSink.awaitEvent(t)
	require.NotEqual(t, event1.TraceID, event2.TraceID)
}

func TestRequestScanNowStartsSessionOutsideInterval(t *testing.T) {
	cfg := allSourcesDisabledConfig()
	cfg.ScanEnabled = false
	owner := cmn.NewConfigOwner(cfg)
	bridge := &hostbridge.Static{}
	s := NewScanner("server-1", owner, bridge, newRecordingSink(), NewCooldownStore())

	require.Equal(t, model.StateIdle, s.Progress().State)

	require.True(t, s.RequestScanNow())
	require.False(t, s.RequestScanNow())

	s.Tick(1000)
	require.Equal(t, model.StateDegraded, s.Progress().State)
}
