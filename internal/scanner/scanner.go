// Package scanner implements the Storage Scanner (spec §4.D): the
// single state machine that seeds scan targets at session start, drains
// them under a per-tick budget through the worker pool, and reports
// progress. It is the scheduler-thread-owned counterpart to the
// Monitor Scheduler's independent audit task, grounded on the base
// repo's reb.Manager tick-driven state machine (reb/global.go) which
// the same way moves through an explicit set of named phases under a
// single caller-driven Tick rather than its own goroutine loop.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/loopwic/lattice-scan/internal/index"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/nlog"
	"github.com/loopwic/lattice-scan/internal/sink"
)

const (
	reportIntervalMs = 2000
	reportEveryDone  = 20
	slowTickWarnMs   = 200
)

// Scanner is the Storage Scanner. Tick is the only entry point called
// from the host's own tick loop; RequestScanNow, Progress and
// ApplyConfig may be called from any goroutine.
type Scanner struct {
	serverID string
	cfg      *cmn.ConfigOwner
	bridge   hostbridge.Bridge
	sink     sink.EventSink
	cooldown *CooldownStore

	requestNow chan struct{}

	progressMu sync.Mutex
	published  model.ProgressRecord

	// Everything below is touched only from Tick; the scheduler never
	// calls Tick concurrently with itself (spec §5).
	state   model.State
	phase   model.Phase
	traceID string
	failure *cmn.Failure
	filter  *model.ItemFilter

	counters            model.Counters
	startedAtMs         int64
	nextRunAtMs         int64
	lastReportMs        int64
	doneSinceLastReport int

	pool *WorkerPool

	regionDirs   []model.RegionDirectory
	regionDirIdx int
	regionFiles  []model.RegionFile

	outstandingRegion int

	nestedRoots []model.NestedStorageRoot
	nestedIdx   int

	offlineTargets    []model.OfflineData
	offlineIdx        int
	outstandingOffline int

	runtimeContainers    []model.RuntimeContainer
	runtimeContainerByID map[string]aggregate.Container
	runtimeIdx           int
	runtimeNetworks      []model.RuntimeNetwork
	runtimeNetIdx        int

	queue snapshotQueue
}

// NewScanner builds an idle scanner. cooldown may be nil, in which case
// the scanner uses a fresh, empty in-memory cooldown store.
func NewScanner(serverID string, cfg *cmn.ConfigOwner, bridge hostbridge.Bridge, evSink sink.EventSink, cooldown *CooldownStore) *Scanner {
	if cooldown == nil {
		cooldown = NewCooldownStore()
	}
	s := &Scanner{
		serverID:   serverID,
		cfg:        cfg,
		bridge:     bridge,
		sink:       evSink,
		cooldown:   cooldown,
		requestNow: make(chan struct{}, 1),
		state:      model.StateIdle,
	}
	s.setProgress(model.NewIdleProgress())
	return s
}

// RequestScanNow asks the scheduler to start a session on its next Tick
// even if the configured interval hasn't elapsed. Returns false while the
// published progress shows a running session or if a request is already
// pending (spec §4.D: request_scan_now is idempotent while a request or
// session is outstanding).
func (s *Scanner) RequestScanNow() bool {
	if s.Progress().State == model.StateRunning {
		return false
	}
	select {
	case s.requestNow <- struct{}{}:
		return true
	default:
		return false
	}
}

// Progress returns the most recently published Progress Record. Safe
// from any goroutine.
func (s *Scanner) Progress() model.ProgressRecord {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	return s.published
}

func (s *Scanner) setProgress(p model.ProgressRecord) {
	s.progressMu.Lock()
	s.published = p
	s.progressMu.Unlock()
}

// ApplyConfig installs next as the live configuration. The Storage
// Scanner only ever reads cfg.Get() once per Tick (spec §5); a config
// swap mid-session takes effect starting the following tick.
func (s *Scanner) ApplyConfig(next *cmn.Config) {
	s.cfg.Put(next)
}

// Shutdown marks the scanner idle and releases session-scoped state. Any
// worker goroutines already in flight finish on their own; their results
// are simply never polled.
func (s *Scanner) Shutdown() {
	s.pool = nil
	s.state = model.StateIdle
}

// Tick advances the state machine by one step. now_ms is supplied by the
// caller rather than read internally so the same session clock drives
// cooldown checks, trace-id minting and progress timestamps (spec §4.D).
func (s *Scanner) Tick(nowMs int64) {
	start := time.Now()
	cfg := s.cfg.Get()

	switch s.state {
	case model.StateRunning:
		s.driveSession(cfg, nowMs)
	default:
		s.maybeStartSession(cfg, nowMs)
	}

	if elapsed := time.Since(start); elapsed > slowTickWarnMs*time.Millisecond {
		nlog.Warningf("scanner: slow tick took %s", elapsed)
	}
}

// maybeStartSession begins a session when either the periodic interval
// has elapsed (gated on ScanEnabled, and only when ScanIntervalMinutes is
// positive — a non-positive interval disables periodic triggering
// outright per spec §4.E) or an operator forced one through
// RequestScanNow (which always takes effect, even with scanning disabled
// by configuration — a forced scan is an explicit override, not a
// schedule).
func (s *Scanner) maybeStartSession(cfg *cmn.Config, nowMs int64) {
	forced := false
	select {
	case <-s.requestNow:
		forced = true
	default:
	}
	periodicDue := cfg.ScanEnabled && cfg.ScanIntervalMinutes > 0 && nowMs >= s.nextRunAtMs
	if !forced && !periodicDue {
		return
	}
	s.startSession(cfg, nowMs)
}

func (s *Scanner) startSession(cfg *cmn.Config, nowMs int64) {
	s.traceID = model.NewTraceID("scan", nowMs)
	s.failure = nil
	s.filter = model.NewItemFilter(cfg.ScanItemFilter)
	s.counters = model.NewCounters()
	s.startedAtMs = nowMs
	s.lastReportMs = nowMs
	s.doneSinceLastReport = 0
	s.queue = snapshotQueue{}

	s.regionDirs, s.regionFiles, s.regionDirIdx = nil, nil, 0
	s.nestedRoots, s.nestedIdx = nil, 0
	s.offlineTargets, s.offlineIdx = nil, 0
	s.runtimeContainers, s.runtimeContainerByID, s.runtimeIdx = nil, nil, 0
	s.runtimeNetworks, s.runtimeNetIdx = nil, 0
	s.outstandingRegion, s.outstandingOffline = 0, 0

	health := s.bridge.Health()
	blocked := (cfg.ScanMaxOnlinePlayers >= 0 && health.OnlinePlayers > cfg.ScanMaxOnlinePlayers) ||
		(cfg.ScanMaxAvgTickMs > 0 && health.AvgTickMs > cfg.ScanMaxAvgTickMs)
	if blocked {
		s.failure = &cmn.Failure{Code: cmn.FailureHealthGuardBlocked, Message: "host health outside configured scan bounds"}
		s.finishSession(model.StateDegraded, cfg, nowMs)
		return
	}

	anyTargets := s.seedTargets(cfg)
	if !anyTargets {
		if s.failure == nil {
			s.failure = &cmn.Failure{Code: cmn.FailureNoTargets, Message: "no scan targets discovered for this session"}
		}
		s.finishSession(model.StateDegraded, cfg, nowMs)
		return
	}

	s.state = model.StateRunning
	s.phase = model.PhaseIndexing
	s.pool = NewWorkerPool(cfg.ScanOfflineWorkers)
	s.maybeReport(nowMs, true)
}

// seedTargets runs the four Target Indexer routines and reports whether
// any source yielded at least one target. A source that fails to seed
// records the session's first failure but never aborts the others
// (spec §4.C: a failed source degrades the session, it doesn't end it).
func (s *Scanner) seedTargets(cfg *cmn.Config) bool {
	anyTargets := false

	if cfg.ScanIncludeContainers {
		dirs, err := index.SeedWorld(s.bridge)
		if err != nil {
			s.recordSourceFailure(cmn.FailureWorldIndexFailed, "world index", err)
		} else {
			s.regionDirs = dirs
			anyTargets = anyTargets || len(dirs) > 0
		}
	}

	if cfg.ScanSBOfflineEnabled {
		roots, err := index.SeedNestedStorage(s.bridge.WorldRoot(), s.filter)
		if err != nil {
			s.recordSourceFailure(cmn.FailureNestedDataUnavailable, "nested storage index", err)
		} else {
			s.nestedRoots = roots
			s.counters.TargetsTotalBySource[model.SourceNestedOffline] = int64(len(roots))
			anyTargets = anyTargets || len(roots) > 0
		}
	}

	if cfg.ScanRS2OfflineEnabled {
		targets, err := index.SeedNetworkOffline(s.bridge.WorldRoot())
		if err != nil {
			s.recordSourceFailure(cmn.FailureNetworkDataUnavail, "network offline index", err)
		} else {
			s.offlineTargets = targets
			s.counters.TargetsTotalBySource[model.SourceNetworkOffline] = int64(len(targets))
			anyTargets = anyTargets || len(targets) > 0
		}
	}

	if cfg.ScanIncludeOnlineRuntime {
		rt := index.SeedRuntime(s.bridge)
		s.runtimeContainers = rt.Containers
		s.runtimeContainerByID = rt.ContainerByID
		s.runtimeNetworks = rt.Networks
		s.counters.TargetsTotalBySource[model.SourceOnlineRuntime] = int64(len(rt.Containers) + len(rt.Networks))
		anyTargets = anyTargets || len(rt.Containers) > 0 || len(rt.Networks) > 0
	}

	return anyTargets
}

func (s *Scanner) recordSourceFailure(code cmn.FailureCode, what string, err error) {
	nlog.Warningf("scanner: %s failed: %v", what, err)
	if s.failure == nil {
		s.failure = &cmn.Failure{Code: code, Message: fmt.Sprintf("%s: %v", what, err)}
	}
}

// driveSession performs one tick's worth of budget-bounded work across
// every source, then publishes whatever the worker pool has finished
// since the last tick, and finally checks whether the session is fully
// drained (spec §4.D: "the scheduler never blocks on background jobs").
func (s *Scanner) driveSession(cfg *cmn.Config, nowMs int64) {
	s.dispatchRegionFiles(cfg)
	s.drainRegionResults(nowMs)

	s.publishNestedRoots(cfg, nowMs)

	s.dispatchOfflineTargets(cfg)
	s.drainOfflineResults(nowMs)

	s.dispatchRuntimeContainers(cfg, nowMs)
	s.dispatchRuntimeNetworks(cfg)

	s.publishQueue(nowMs)

	if s.sessionDrained() {
		finalState := model.StateCompleted
		if s.failure != nil {
			finalState = model.StateDegraded
		}
		s.finishSession(finalState, cfg, nowMs)
		return
	}
	s.maybeReport(nowMs, false)
}

func (s *Scanner) sessionDrained() bool {
	return s.regionDirIdx >= len(s.regionDirs) &&
		len(s.regionFiles) == 0 &&
		s.outstandingRegion == 0 &&
		s.nestedIdx >= len(s.nestedRoots) &&
		s.offlineIdx >= len(s.offlineTargets) &&
		s.outstandingOffline == 0 &&
		s.runtimeIdx >= len(s.runtimeContainers) &&
		s.runtimeNetIdx >= len(s.runtimeNetworks) &&
		s.queue.Len() == 0
}

func (s *Scanner) expandRegionDirectories() {
	for len(s.regionFiles) == 0 && s.regionDirIdx < len(s.regionDirs) {
		dir := s.regionDirs[s.regionDirIdx]
		s.regionDirIdx++
		files, err := index.ListRegionFiles(dir)
		if err != nil {
			s.recordSourceFailure(cmn.FailurePartialCompleted, "list region files for "+dir.DirectoryPath, err)
			continue
		}
		s.regionFiles = files
	}
}

func (s *Scanner) dispatchRegionFiles(cfg *cmn.Config) {
	budget := perTickBudget(cfg.ScanContainersPerTick)
	filter := s.filter
	for i := 0; i < budget; i++ {
		if len(s.regionFiles) == 0 {
			s.expandRegionDirectories()
			if len(s.regionFiles) == 0 {
				return
			}
		}
		target := s.regionFiles[0]
		ok := s.pool.TrySubmitRegion(func() RegionJobResult { return decodeRegionJob(target, filter) })
		if !ok {
			return
		}
		s.regionFiles = s.regionFiles[1:]
		s.outstandingRegion++
	}
}

func (s *Scanner) drainRegionResults(nowMs int64) {
	for {
		res, ok := s.pool.PollRegion()
		if !ok {
			return
		}
		s.outstandingRegion--
		if res.Err != nil {
			s.recordSourceFailure(cmn.FailurePartialCompleted, "decode region file "+res.Target.FilePath, res.Err)
		} else if res.Truncated || res.SkippedN > 0 {
			s.recordSourceFailure(cmn.FailurePartialCompleted, "region file "+res.Target.FilePath, fmt.Errorf("truncated or skipped %d chunks", res.SkippedN))
		}
		// A region file yields zero to many containers; done/total for
		// this source are counted per admitted container inside
		// admitSnapshots, not once per file here (spec §8 scenario 2).
		s.admitSnapshots(model.SourceWorldContainers, nowMs, res.Snapshots)
	}
}

func (s *Scanner) publishNestedRoots(cfg *cmn.Config, nowMs int64) {
	budget := perTickBudget(cfg.ScanOfflineChunksPerTick)
	for i := 0; i < budget && s.nestedIdx < len(s.nestedRoots); i++ {
		root := s.nestedRoots[s.nestedIdx]
		s.nestedIdx++
		s.admitSnapshots(model.SourceNestedOffline, nowMs, []model.WorldSnapshot{{
			ItemCounts: root.ItemCounts,
			StorageID_: root.StorageID_,
		}})
		s.counters.DoneBySource[model.SourceNestedOffline]++
		s.counters.Done++
		s.doneSinceLastReport++
	}
}

func (s *Scanner) dispatchOfflineTargets(cfg *cmn.Config) {
	budget := perTickBudget(cfg.ScanOfflineSourcesPerTick)
	filter := s.filter
	for i := 0; i < budget && s.offlineIdx < len(s.offlineTargets); i++ {
		target := s.offlineTargets[s.offlineIdx]
		ok := s.pool.TrySubmitOffline(func() OfflineJobResult { return decodeOfflineJob(target, filter) })
		if !ok {
			return
		}
		s.offlineIdx++
		s.outstandingOffline++
	}
}

func (s *Scanner) drainOfflineResults(nowMs int64) {
	for {
		res, ok := s.pool.PollOffline()
		if !ok {
			return
		}
		s.outstandingOffline--
		if res.Err != nil {
			s.recordSourceFailure(cmn.FailurePartialCompleted, "decode offline data "+res.Target.Path, res.Err)
		} else if res.Truncated {
			s.recordSourceFailure(cmn.FailurePartialCompleted, "offline data "+res.Target.Path, fmt.Errorf("traversal truncated"))
		}
		if res.Err == nil {
			s.admitSnapshots(model.SourceNetworkOffline, nowMs, []model.WorldSnapshot{res.Snapshot})
		}
		s.counters.DoneBySource[model.SourceNetworkOffline]++
		s.counters.Done++
		s.doneSinceLastReport++
	}
}

func (s *Scanner) dispatchRuntimeContainers(cfg *cmn.Config, nowMs int64) {
	budget := perTickBudget(cfg.ScanContainersPerTick)
	for i := 0; i < budget && s.runtimeIdx < len(s.runtimeContainers); i++ {
		rc := s.runtimeContainers[s.runtimeIdx]
		s.runtimeIdx++
		if container, ok := s.runtimeContainerByID[rc.StorageID_]; ok {
			counts, outcome := aggregate.AggregateContainer(container, s.filter)
			if outcome.Truncated {
				s.recordSourceFailure(cmn.FailurePartialCompleted, "runtime container "+rc.StorageID_, fmt.Errorf("traversal truncated"))
			}
			s.admitSnapshots(model.SourceOnlineRuntime, nowMs, []model.WorldSnapshot{{
				ItemCounts: counts,
				StorageMod: rc.StorageMod,
				StorageID_: rc.StorageID_,
				Dimension:  rc.Dimension,
				Position:   rc.Position,
			}})
		}
		s.counters.DoneBySource[model.SourceOnlineRuntime]++
		s.counters.Done++
		s.doneSinceLastReport++
	}
}

// dispatchRuntimeNetworks counts discovered runtime network handles as
// processed. A RuntimeNetwork's contents live behind a mod-specific API
// this bridge surface has no accessor for (spec leaves network-handle
// content extraction to the host integration); the handle's presence
// still counts toward source totals so progress reporting stays honest
// about what was discovered versus what could be read.
func (s *Scanner) dispatchRuntimeNetworks(cfg *cmn.Config) {
	budget := perTickBudget(cfg.ScanRS2NetworksPerTick)
	for i := 0; i < budget && s.runtimeNetIdx < len(s.runtimeNetworks); i++ {
		s.runtimeNetIdx++
		s.counters.DoneBySource[model.SourceOnlineRuntime]++
		s.counters.Done++
		s.doneSinceLastReport++
	}
}

// admitSnapshots filters snapshots down to the ones due for publish
// (non-empty, off cooldown) and offers them to the queue, each tagged
// with its own fresh trace-id — one UUID per container/offline-root
// group, never reused across the snapshots a single job or seed routine
// produced (spec §3, §5, §8: all rows from one container share a
// trace-id; two different containers never do).
//
// For the region-file source a single job can yield anywhere from zero
// to many containers, so done/total for SourceWorldContainers are
// counted here, once per snapshot actually admitted to the queue, rather
// than once per region-file job (spec §8 scenario 2: a region file with
// one chunk and two block-entity containers reports done==total==2).
// Backpressure-dropped snapshots count toward neither (scenario 4: a job
// yielding 60,000 snapshots against a 50,000 remaining cap reports
// done_by_source.world_containers==50000). The other three sources keep
// their existing one-increment-per-job counting at their own call sites,
// since a job there always yields at most one snapshot.
func (s *Scanner) admitSnapshots(source model.SourceKind, nowMs int64, snapshots []model.WorldSnapshot) {
	var due []queuedSnapshot
	for _, snap := range snapshots {
		if snap.ItemCounts == nil || len(snap.ItemCounts) == 0 {
			continue
		}
		if snap.StorageID_ != "" && s.cooldown.ShouldSkip(snap.StorageID_, nowMs, cooldownMsFor(s.cfg.Get())) {
			continue
		}
		due = append(due, queuedSnapshot{
			Source:  source,
			TraceID: model.NewTraceID("scan", nowMs),
			Snap:    snap,
		})
	}
	if len(due) == 0 {
		return
	}
	admitted, dropped := s.queue.Offer(due)
	if source == model.SourceWorldContainers && admitted > 0 {
		s.counters.TargetsTotalBySource[model.SourceWorldContainers] += int64(admitted)
		s.counters.DoneBySource[model.SourceWorldContainers] += int64(admitted)
		s.counters.Done += int64(admitted)
		s.doneSinceLastReport += admitted
	}
	if dropped {
		s.recordSourceFailure(cmn.FailurePartialCompleted, "world snapshot queue", fmt.Errorf("queue at capacity %d", worldQueueLimit))
	}
}

func cooldownMsFor(cfg *cmn.Config) int64 {
	return int64(cfg.ScanRescanCooldownMinutes) * 60000
}

// publishQueue drains the snapshot queue into Snapshot Events. Event
// emission happens on its own goroutine per spec §7 ("event emission
// never throws" and never blocks the scheduler thread); the cooldown
// mark is recorded immediately since the event was already handed off.
func (s *Scanner) publishQueue(nowMs int64) {
	for {
		qs, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.publishSnapshot(qs, nowMs)
	}
}

func (s *Scanner) publishSnapshot(qs queuedSnapshot, nowMs int64) {
	snap := qs.Snap
	var pos *model.Position
	if snap.Dimension != "" {
		p := snap.Position
		pos = &p
	}
	for itemID, count := range snap.ItemCounts {
		evt := model.NewSnapshotEvent(model.NewSnapshotEventParams{
			ServerID:   s.serverID,
			EventType:  model.EventStorageSnapshot,
			ItemID:     itemID,
			Count:      count,
			OriginType: string(qs.Source),
			StorageMod: snap.StorageMod,
			StorageID:  snap.StorageID_,
			ActorType:  model.ActorSystem,
			TraceID:    qs.TraceID,
			Dimension:  snap.Dimension,
			Position:   pos,
			NowMs:      nowMs,
		})
		go s.sink.Enqueue(context.Background(), evt)
	}
	if snap.StorageID_ != "" {
		s.cooldown.MarkScanned(snap.StorageID_, nowMs)
	}
}

func (s *Scanner) finishSession(finalState model.State, cfg *cmn.Config, nowMs int64) {
	s.state = finalState
	if finalState == model.StateCompleted {
		s.phase = model.PhaseCompleted
	} else {
		s.phase = model.PhaseDegraded
	}
	s.pool = nil
	// The health gate is evaluated fresh at the start of every session,
	// not just at the scheduled interval boundary (spec §4.D); deferring
	// the next attempt by a full interval after a guard-blocked session
	// would leave a host that recovers seconds later unscanned for as
	// long as scan_interval_minutes. Leave nextRunAtMs untouched so the
	// very next tick re-checks health immediately.
	if !(finalState == model.StateDegraded && s.failure != nil && s.failure.Code == cmn.FailureHealthGuardBlocked) {
		s.nextRunAtMs = nowMs + int64(cfg.ScanIntervalMinutes)*60000
	}
	s.maybeReport(nowMs, true)
}

// maybeReport republishes the Progress Record at the cadence spec §4.F
// requires: every 2000ms, every 20 completed targets, or unconditionally
// on a state transition (force=true).
func (s *Scanner) maybeReport(nowMs int64, force bool) {
	if !force && nowMs-s.lastReportMs < reportIntervalMs && s.doneSinceLastReport < reportEveryDone {
		return
	}
	s.lastReportMs = nowMs
	s.doneSinceLastReport = 0

	var total int64
	for _, n := range s.counters.TargetsTotalBySource {
		total += n
	}
	s.counters.Total = total

	var throughput float64
	if elapsedMs := nowMs - s.startedAtMs; elapsedMs > 0 {
		throughput = float64(s.counters.Done) / (float64(elapsedMs) / 1000.0)
	}

	s.setProgress(model.ProgressRecord{
		State:            s.state,
		Phase:            s.phase,
		Counters:         s.counters,
		UpdatedAt:        time.UnixMilli(nowMs),
		Failure:          s.failure,
		TraceID:          s.traceID,
		ThroughputPerSec: throughput,
	})
}

func perTickBudget(configured int) int {
	if configured < 1 {
		return 1
	}
	return configured
}
