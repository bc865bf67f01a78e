package monitor

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

// recordingSink hands every enqueued event to a buffered channel, since
// the audit task dispatches Enqueue on its own goroutine just as the
// scan task does (spec §7: event emission never blocks the scheduler).
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

// noScanConfig disables every scan source so a test can drive the audit
// task in isolation; the scan task still ticks alongside it but, with
// scanning disabled and no forced request, never starts a session.
func noScanConfig() *cmn.Config {
	cfg := cmn.DefaultConfig()
	cfg.ScanEnabled = false
	cfg.ScanIncludeContainers = false
	cfg.ScanSBOfflineEnabled = false
	cfg.ScanRS2OfflineEnabled = false
	cfg.ScanIncludeOnlineRuntime = false
	return cfg
}

func TestAuditDegradesWhenNoPlayersOnline(t *testing.T) {
	cfg := noScanConfig()
	owner := cmn.NewConfigOwner(cfg)
	bridge := &hostbridge.Static{}
	m := NewScheduler("server-1", owner, bridge, newRecordingSink(), nil, nil)

	m.Tick(1000)

	p := m.AuditProgress()
	require.Equal(t, model.StateDegraded, p.State)
	require.NotNil(t, p.Failure)
	require.Equal(t, cmn.FailureNoTargets, p.Failure.Code)
}

func TestAuditCompletesSinglePlayerSession(t *testing.T) {
	cfg := noScanConfig()
	owner := cmn.NewConfigOwner(cfg)

	bridge := &hostbridge.Static{
		OnlinePlayersData: []hostbridge.Player{{UUID: "uuid-1", Name: "Steve"}},
		Inventories: map[string]aggregate.Container{
			"uuid-1": oneStackContainer{itemID: "minecraft:diamond", count: 3},
		},
	}
	evSink := newRecordingSink()
	m := NewScheduler("server-1", owner, bridge, evSink, nil, nil)

	m.Tick(1000)
	require.Equal(t, model.StateRunning, m.AuditProgress().State)

	m.Tick(1001)

	p := m.AuditProgress()
	require.Equal(t, model.StateCompleted, p.State)
	require.Nil(t, p.Failure)
	require.EqualValues(t, 1, p.Counters.Done)

	event := evSink.awaitEvent(t)
	require.Equal(t, "minecraft:diamond", event.ItemID)
	require.EqualValues(t, 3, event.Count)
	require.Equal(t, "uuid-1", event.PlayerUUID)
	require.Equal(t, model.ActorPlayer, event.ActorType)
}

// TestAuditMintsDistinctTraceIDsPerPlayer covers spec §8's distinct-
// trace-id assertion for two different containers in one session: two
// online players audited in the same tick must each get their own
// trace-id, while a single player's inventory and ender chest rows (two
// events from the same container group) share one.
func TestAuditMintsDistinctTraceIDsPerPlayer(t *testing.T) {
	cfg := noScanConfig()
	cfg.AuditPlayersPerTick = 2
	owner := cmn.NewConfigOwner(cfg)

	bridge := &hostbridge.Static{
		OnlinePlayersData: []hostbridge.Player{
			{UUID: "uuid-1", Name: "Steve"},
			{UUID: "uuid-2", Name: "Alex"},
		},
		Inventories: map[string]aggregate.Container{
			"uuid-1": oneStackContainer{itemID: "minecraft:diamond", count: 3},
			"uuid-2": oneStackContainer{itemID: "minecraft:iron_ingot", count: 5},
		},
		EnderChests: map[string]aggregate.Container{
			"uuid-1": oneStackContainer{itemID: "minecraft:emerald", count: 1},
		},
	}
	evSink := newRecordingSink()
	m := NewScheduler("server-1", owner, bridge, evSink, nil, nil)

	m.Tick(1000)
	require.Equal(t, model.StateRunning, m.AuditProgress().State)
	m.Tick(1001)
	require.Equal(t, model.StateCompleted, m.AuditProgress().State)

	byItem := map[string]model.SnapshotEvent{}
	for i := 0; i < 3; i++ {
		e := evSink.awaitEvent(t)
		byItem[e.ItemID] = e
	}

	diamond, emerald, iron := byItem["minecraft:diamond"], byItem["minecraft:emerald"], byItem["minecraft:iron_ingot"]
	require.Equal(t, diamond.TraceID, emerald.TraceID, "inventory and ender chest rows for the same player share a trace-id")
	require.NotEqual(t, diamond.TraceID, iron.TraceID, "rows from two different players must not share a trace-id")
}

func TestRequestAuditNowStartsSessionOutsideInterval(t *testing.T) {
	cfg := noScanConfig()
	cfg.AuditEnabled = false
	owner := cmn.NewConfigOwner(cfg)
	bridge := &hostbridge.Static{}
	m := NewScheduler("server-1", owner, bridge, newRecordingSink(), nil, nil)

	require.Equal(t, model.StateIdle, m.AuditProgress().State)

	require.True(t, m.RequestAuditNow())
	require.False(t, m.RequestAuditNow())

	m.Tick(1000)
	require.Equal(t, model.StateDegraded, m.AuditProgress().State)
}
