package model

import (
	"time"

	"github.com/loopwic/lattice-scan/internal/cmn"
)

// State is the scan-session state machine of spec §4.D. The teacher
// tracks the analogous running/aborted/finished projection ad hoc per
// xaction (stats/xaction_stats.go: Running/Finished/Aborted derived from
// a start/end timestamp pair); spec's open question asks us to prefer the
// richer state/phase model and keep "running" only as a derived
// projection, which ProgressRecord.Running below does.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateDegraded  State = "DEGRADED"
)

type Phase string

const (
	PhaseIndexing      Phase = "INDEXING"
	PhaseOfflineWorld  Phase = "OFFLINE_WORLD"
	PhaseOfflineNested Phase = "OFFLINE_NESTED"
	PhaseOfflineNet    Phase = "OFFLINE_NETWORK"
	PhaseRuntime       Phase = "RUNTIME"
	PhaseCompleted     Phase = "COMPLETED"
	PhaseDegraded      Phase = "DEGRADED"
)

// SourceKind enumerates the per-source counters spec §3 requires.
type SourceKind string

const (
	SourceWorldContainers SourceKind = "world_containers"
	SourceNestedOffline   SourceKind = "nested_offline"
	SourceNetworkOffline  SourceKind = "network_offline"
	SourceOnlineRuntime   SourceKind = "online_runtime"
)

var AllSources = []SourceKind{
	SourceWorldContainers, SourceNestedOffline, SourceNetworkOffline, SourceOnlineRuntime,
}

// Counters is the nested totals block of a Progress Record.
type Counters struct {
	Total               int64                `json:"total"`
	Done                int64                `json:"done"`
	TargetsTotalBySource map[SourceKind]int64 `json:"targets_total_by_source"`
	DoneBySource         map[SourceKind]int64 `json:"done_by_source"`
}

// NewCounters returns a zeroed Counters with every known source present,
// so callers never have to nil-check a map entry.
func NewCounters() Counters {
	c := Counters{
		TargetsTotalBySource: make(map[SourceKind]int64, len(AllSources)),
		DoneBySource:         make(map[SourceKind]int64, len(AllSources)),
	}
	for _, s := range AllSources {
		c.TargetsTotalBySource[s] = 0
		c.DoneBySource[s] = 0
	}
	return c
}

// ProgressRecord is the versioned payload pushed to the backend, built by
// the Progress Reporter from Storage Scanner / Monitor Scheduler state
// (spec §3, §4.F).
type ProgressRecord struct {
	State            State         `json:"state"`
	Phase            Phase         `json:"phase"`
	Counters         Counters      `json:"counters"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Failure          *cmn.Failure  `json:"failure,omitempty"`
	TraceID          string        `json:"trace_id"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// Running projects the boolean the spec's open question says legacy call
// sites still expect: running := state == RUNNING.
func (p ProgressRecord) Running() bool { return p.State == StateRunning }

func NewIdleProgress() ProgressRecord {
	return ProgressRecord{
		State:    StateIdle,
		Phase:    PhaseCompleted,
		Counters: NewCounters(),
	}
}
