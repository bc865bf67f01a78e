// Package monitor implements the Monitor Scheduler (spec §4.E): the
// component that owns two independent logical tasks sharing one tick —
// the audit task (per-player online scan) and the scan task (full
// storage sweep, delegated wholesale to internal/scanner's Storage
// Scanner). Each task exposes its own force-start, progress and
// task-status projection; starting one never blocks or gates the other.
//
// The audit task's own state machine is grounded on the same pattern
// internal/scanner's Scanner uses for the scan task (itself grounded on
// the base repo's reb.Manager), simplified because audit work never
// needs a worker pool: aggregating one online player's inventory and
// ender chest is in-process and synchronous, with no file I/O to hand
// off.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/nlog"
	"github.com/loopwic/lattice-scan/internal/scanner"
	"github.com/loopwic/lattice-scan/internal/sink"
)

const (
	auditReportIntervalMs = 2000
	auditReportEveryDone  = 20
)

// Scheduler is the Monitor Scheduler. Tick is the only entry point
// called from the host's own tick loop; RequestScanNow, RequestAuditNow,
// ScanProgress, AuditProgress and ApplyConfig may be called from any
// goroutine.
type Scheduler struct {
	serverID string
	cfg      *cmn.ConfigOwner
	bridge   hostbridge.Bridge
	sink     sink.EventSink
	cooldown *scanner.CooldownStore

	scan *scanner.Scanner

	requestAuditNow chan struct{}

	progressMu     sync.Mutex
	publishedAudit model.ProgressRecord

	// Everything below is touched only from Tick.
	auditState   model.State
	auditPhase   model.Phase
	auditTraceID string
	auditFailure *cmn.Failure
	auditFilter  *model.ItemFilter

	auditCounters            model.Counters
	auditQueue               []hostbridge.Player
	auditIdx                 int
	auditStartedAtMs         int64
	auditNextRunAtMs         int64
	auditLastReportMs        int64
	auditDoneSinceLastReport int
}

// NewScheduler builds an idle scheduler, wrapping a freshly-built Storage
// Scanner for the scan task. scanCooldown/auditCooldown may be nil, in
// which case each task gets its own fresh, empty cooldown store — they
// are kept separate because the two tasks key their rescan cooldown by
// different storage-id namespaces (container/offline ids for scan,
// "player:<uuid>" for audit) and are governed by distinct config knobs
// (scan_rescan_cooldown_minutes vs audit_rescan_cooldown_minutes).
func NewScheduler(serverID string, cfg *cmn.ConfigOwner, bridge hostbridge.Bridge, evSink sink.EventSink, scanCooldown, auditCooldown *scanner.CooldownStore) *Scheduler {
	if auditCooldown == nil {
		auditCooldown = scanner.NewCooldownStore()
	}
	m := &Scheduler{
		serverID:        serverID,
		cfg:             cfg,
		bridge:          bridge,
		sink:            evSink,
		cooldown:        auditCooldown,
		scan:            scanner.NewScanner(serverID, cfg, bridge, evSink, scanCooldown),
		requestAuditNow: make(chan struct{}, 1),
		auditState:      model.StateIdle,
	}
	m.setAuditProgress(model.NewIdleProgress())
	return m
}

// Tick advances both tasks by one step. now_ms is supplied by the caller
// so both tasks' cooldown checks, trace-id minting and progress
// timestamps share one session clock (spec §4.D, §4.E).
func (m *Scheduler) Tick(nowMs int64) {
	m.scan.Tick(nowMs)

	cfg := m.cfg.Get()
	switch m.auditState {
	case model.StateRunning:
		m.driveAudit(cfg, nowMs)
	default:
		m.maybeStartAudit(cfg, nowMs)
	}
}

// RequestScanNow forwards to the wrapped Storage Scanner.
func (m *Scheduler) RequestScanNow() bool { return m.scan.RequestScanNow() }

// RequestAuditNow asks the scheduler to start an audit session on its
// next Tick even if the configured interval hasn't elapsed. It is a
// single-shot flag that resets once the session actually starts (spec
// §4.E); returns false if a request is already pending.
func (m *Scheduler) RequestAuditNow() bool {
	select {
	case m.requestAuditNow <- struct{}{}:
		return true
	default:
		return false
	}
}

// ScanProgress returns the scan task's most recently published Progress
// Record.
func (m *Scheduler) ScanProgress() model.ProgressRecord { return m.scan.Progress() }

// AuditProgress returns the audit task's most recently published
// Progress Record. Both tasks expose their own record per spec §3.
func (m *Scheduler) AuditProgress() model.ProgressRecord {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()
	return m.publishedAudit
}

func (m *Scheduler) setAuditProgress(p model.ProgressRecord) {
	m.progressMu.Lock()
	m.publishedAudit = p
	m.progressMu.Unlock()
}

// ApplyConfig installs next as the live configuration shared by both
// tasks; since scan and audit read the same ConfigOwner, one swap here
// is enough to reach both (spec §5: Config Sync is the sole writer, the
// scheduler and the audit task snapshot once per tick).
func (m *Scheduler) ApplyConfig(next *cmn.Config) {
	m.cfg.Put(next)
}

// Shutdown stops both tasks. The audit cooldown map, like the scan
// cooldown map, is left intact (spec §4.D's shutdown contract applied
// symmetrically to the audit task).
func (m *Scheduler) Shutdown() {
	m.scan.Shutdown()
	m.auditState = model.StateIdle
}

// maybeStartAudit begins an audit session when either the periodic
// interval has elapsed (gated on AuditEnabled, and only when
// AuditIntervalMinutes is positive — spec §4.E: "interval_minutes ≤ 0
// disables periodic triggering but allows force-start") or an operator
// forced one through RequestAuditNow.
func (m *Scheduler) maybeStartAudit(cfg *cmn.Config, nowMs int64) {
	forced := false
	select {
	case <-m.requestAuditNow:
		forced = true
	default:
	}
	periodicDue := cfg.AuditEnabled && cfg.AuditIntervalMinutes > 0 && nowMs >= m.auditNextRunAtMs
	if !forced && !periodicDue {
		return
	}
	m.startAudit(cfg, nowMs)
}

func (m *Scheduler) startAudit(cfg *cmn.Config, nowMs int64) {
	m.auditTraceID = model.NewTraceID("audit", nowMs)
	m.auditFailure = nil
	m.auditFilter = model.NewItemFilter(cfg.AuditItemFilter)
	m.auditCounters = model.NewCounters()
	m.auditStartedAtMs = nowMs
	m.auditLastReportMs = nowMs
	m.auditDoneSinceLastReport = 0

	players := m.bridge.OnlinePlayers()
	m.auditQueue = players
	m.auditIdx = 0
	m.auditCounters.TargetsTotalBySource[model.SourceOnlineRuntime] = int64(len(players))

	if len(players) == 0 {
		m.auditFailure = &cmn.Failure{Code: cmn.FailureNoTargets, Message: "no online players to audit"}
		m.finishAudit(model.StateDegraded, cfg, nowMs)
		return
	}

	m.auditState = model.StateRunning
	m.auditPhase = model.PhaseRuntime
	m.maybeReportAudit(nowMs, true)
}

// driveAudit drains audit_players_per_tick player UUIDs, aggregating and
// publishing each one's inventory and ender chest (spec §4.E). A
// player's own nested storage (a backpack-like item carried in their
// inventory) is already folded into the same aggregate by
// aggregate.AggregateContainer's recursive descent into each stack's
// sub-structure (spec §4.A.1) — there is no separate NestedStorageRoot
// resolution step for online players the way there is for the offline
// per-mod data blob (§4.C seed_nested_storage), since the live container
// interface hands back slots, not a raw tag tree to re-walk for UUID
// references.
func (m *Scheduler) driveAudit(cfg *cmn.Config, nowMs int64) {
	budget := auditPerTickBudget(cfg.AuditPlayersPerTick)
	for i := 0; i < budget && m.auditIdx < len(m.auditQueue); i++ {
		player := m.auditQueue[m.auditIdx]
		m.auditIdx++
		m.auditOnePlayer(player, nowMs)
		m.auditCounters.DoneBySource[model.SourceOnlineRuntime]++
		m.auditCounters.Done++
		m.auditDoneSinceLastReport++
	}

	if m.auditIdx >= len(m.auditQueue) {
		finalState := model.StateCompleted
		if m.auditFailure != nil {
			finalState = model.StateDegraded
		}
		m.finishAudit(finalState, cfg, nowMs)
		return
	}
	m.maybeReportAudit(nowMs, false)
}

// auditOnePlayer mints one trace-id for this player's whole audit group
// (spec §3, §5, §8: all rows from one container share a trace-id, and
// model.NewTraceID's own per-player-audit-group contract) so a player's
// inventory and ender chest rows share it, while a different player in
// the same session gets a distinct one. m.auditTraceID stays reserved
// for the session-level Progress Record only.
func (m *Scheduler) auditOnePlayer(player hostbridge.Player, nowMs int64) {
	cfg := m.cfg.Get()
	storageID := "player:" + player.UUID
	cooldownMs := int64(cfg.AuditRescanCooldownMinutes) * 60000
	if m.cooldown.ShouldSkip(storageID, nowMs, cooldownMs) {
		return
	}

	traceID := model.NewTraceID("audit", nowMs)
	published := false
	if inv, ok := m.bridge.PlayerInventory(player.UUID); ok {
		if m.publishPlayerContainer(inv, player, "player_inventory", traceID, nowMs) {
			published = true
		}
	}
	if ec, ok := m.bridge.PlayerEnderChest(player.UUID); ok {
		if m.publishPlayerContainer(ec, player, "player_ender_chest", traceID, nowMs) {
			published = true
		}
	}
	if published {
		m.cooldown.MarkScanned(storageID, nowMs)
	}
}

func (m *Scheduler) publishPlayerContainer(c aggregate.Container, player hostbridge.Player, origin, traceID string, nowMs int64) bool {
	counts, outcome := aggregate.AggregateContainer(c, m.auditFilter)
	if outcome.Truncated {
		m.recordAuditFailure(cmn.FailurePartialCompleted, fmt.Sprintf("%s for %s", origin, player.UUID), fmt.Errorf("traversal truncated"))
	}
	if len(counts) == 0 {
		return false
	}
	for itemID, count := range counts {
		evt := model.NewSnapshotEvent(model.NewSnapshotEventParams{
			ServerID:   m.serverID,
			EventType:  model.EventInventorySnapshot,
			PlayerUUID: player.UUID,
			PlayerName: player.Name,
			ItemID:     itemID,
			Count:      count,
			OriginType: origin,
			StorageMod: "minecraft",
			StorageID:  "player:" + player.UUID,
			ActorType:  model.ActorPlayer,
			TraceID:    traceID,
			NowMs:      nowMs,
		})
		go m.sink.Enqueue(context.Background(), evt)
	}
	return true
}

func (m *Scheduler) recordAuditFailure(code cmn.FailureCode, what string, err error) {
	nlog.Warningf("monitor: %s failed: %v", what, err)
	if m.auditFailure == nil {
		m.auditFailure = &cmn.Failure{Code: code, Message: fmt.Sprintf("%s: %v", what, err)}
	}
}

func (m *Scheduler) finishAudit(finalState model.State, cfg *cmn.Config, nowMs int64) {
	m.auditState = finalState
	if finalState == model.StateCompleted {
		m.auditPhase = model.PhaseCompleted
	} else {
		m.auditPhase = model.PhaseDegraded
	}
	m.auditNextRunAtMs = nowMs + int64(cfg.AuditIntervalMinutes)*60000
	m.maybeReportAudit(nowMs, true)
}

// maybeReportAudit republishes the audit Progress Record at the same
// cadence the Storage Scanner uses for the scan task (spec §4.F): every
// 2000ms, every 20 completed targets, or unconditionally on a state
// transition.
func (m *Scheduler) maybeReportAudit(nowMs int64, force bool) {
	if !force && nowMs-m.auditLastReportMs < auditReportIntervalMs && m.auditDoneSinceLastReport < auditReportEveryDone {
		return
	}
	m.auditLastReportMs = nowMs
	m.auditDoneSinceLastReport = 0

	var total int64
	for _, n := range m.auditCounters.TargetsTotalBySource {
		total += n
	}
	m.auditCounters.Total = total

	var throughput float64
	if elapsedMs := nowMs - m.auditStartedAtMs; elapsedMs > 0 {
		throughput = float64(m.auditCounters.Done) / (float64(elapsedMs) / 1000.0)
	}

	m.setAuditProgress(model.ProgressRecord{
		State:            m.auditState,
		Phase:            m.auditPhase,
		Counters:         m.auditCounters,
		UpdatedAt:        time.UnixMilli(nowMs),
		Failure:          m.auditFailure,
		TraceID:          m.auditTraceID,
		ThroughputPerSec: throughput,
	})
}

func auditPerTickBudget(configured int) int {
	if configured < 1 {
		return 1
	}
	return configured
}
