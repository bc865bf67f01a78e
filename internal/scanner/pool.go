package scanner

import (
	"golang.org/x/sync/semaphore"

	"github.com/loopwic/lattice-scan/internal/model"
)

// RegionJobResult is what a background region-decode job hands back to
// the scheduler thread: every WorldSnapshot it produced (one per
// block-entity container found in the region file), or a non-fatal
// error that degrades the session without aborting it.
type RegionJobResult struct {
	Target     model.RegionFile
	Snapshots  []model.WorldSnapshot
	SkippedN   int
	Truncated  bool
	Err        error
}

// OfflineJobResult is the equivalent result for a network-offline data
// blob job: a single already-aggregated snapshot, or an error.
type OfflineJobResult struct {
	Target    model.OfflineData
	Snapshot  model.WorldSnapshot
	Truncated bool
	Err       error
}

// WorkerPool is the fixed-size bounded pool spec §4.D describes: "a
// fixed-size pool ... two logical job classes share it ... each job
// class has its own completion channel". Submission is non-blocking —
// TrySubmit* returns false when the pool is already at max_in_flight,
// which the scheduler treats the same as a budget exhausted for this
// tick. Grounded on the base repo's cmn.DynSemaphore usage in
// reb/global.go for bounding concurrent rebalance streams, generalized
// to golang.org/x/sync/semaphore so the bound is a real weighted
// semaphore rather than a hand-rolled channel-of-tokens.
type WorkerPool struct {
	sem            *semaphore.Weighted
	regionResults  chan RegionJobResult
	offlineResults chan OfflineJobResult
}

// NewWorkerPool builds a pool sized max(1, size) (spec §4.D:
// "scan_offline_workers = 0 is treated as 1").
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		sem:            semaphore.NewWeighted(int64(size)),
		regionResults:  make(chan RegionJobResult, 256),
		offlineResults: make(chan OfflineJobResult, 256),
	}
}

// TrySubmitRegion runs fn on a pool goroutine if a slot is free,
// returning false without running fn otherwise.
func (p *WorkerPool) TrySubmitRegion(fn func() RegionJobResult) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	go func() {
		defer p.sem.Release(1)
		p.regionResults <- fn()
	}()
	return true
}

// TrySubmitOffline is TrySubmitRegion's counterpart for offline-data jobs.
func (p *WorkerPool) TrySubmitOffline(fn func() OfflineJobResult) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	go func() {
		defer p.sem.Release(1)
		p.offlineResults <- fn()
	}()
	return true
}

// PollRegion drains at most one completed region job result without
// blocking; the scheduler thread calls this in a loop until it reports
// nothing ready, so the number of results collected per tick has no
// budget cap (spec §4.D: "the scheduler polls both non-blockingly per
// tick and never blocks").
func (p *WorkerPool) PollRegion() (RegionJobResult, bool) {
	select {
	case r := <-p.regionResults:
		return r, true
	default:
		return RegionJobResult{}, false
	}
}

// PollOffline is PollRegion's counterpart for offline-data job results.
func (p *WorkerPool) PollOffline() (OfflineJobResult, bool) {
	select {
	case r := <-p.offlineResults:
		return r, true
	default:
		return OfflineJobResult{}, false
	}
}
