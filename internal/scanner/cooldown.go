package scanner

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sdomino/scribble"

	"github.com/loopwic/lattice-scan/internal/nlog"
)

var cooldownJSON = jsoniter.ConfigCompatibleWithStandardLibrary

const cooldownCollection = "cooldowns"

// cooldownRecord is the on-disk shape of one storage-id's last successful
// scan timestamp, written through scribble the way the base repo's
// downloaderDB persists task/error records (downloader/db.go).
type cooldownRecord struct {
	StorageID  string `json:"storage_id"`
	LastScanMs int64  `json:"last_scan_ms"`
}

// CooldownStore is the scheduler-thread-owned rescan cooldown map (spec
// §3 "Rescan Cooldown Map"). It lives entirely in memory; an optional
// scribble driver mirrors updates to disk so cooldowns survive a
// process restart, matching the base repo's own downloader job store
// (sdomino/scribble), which is attested across the sibling manifests.
type CooldownStore struct {
	mu     sync.Mutex
	last   map[string]int64
	driver *scribble.Driver
}

// NewCooldownStore builds an in-memory-only store. NewCooldownStoreAt
// additionally mirrors writes to baseDir.
func NewCooldownStore() *CooldownStore {
	return &CooldownStore{last: make(map[string]int64)}
}

func NewCooldownStoreAt(baseDir string) (*CooldownStore, error) {
	driver, err := scribble.New(baseDir, nil)
	if err != nil {
		return nil, err
	}
	cs := &CooldownStore{last: make(map[string]int64), driver: driver}
	cs.loadAll()
	return cs, nil
}

func (cs *CooldownStore) loadAll() {
	ids, err := cs.driver.ReadAll(cooldownCollection)
	if err != nil {
		return
	}
	for _, raw := range ids {
		var rec cooldownRecord
		if err := cooldownJSON.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		cs.last[rec.StorageID] = rec.LastScanMs
	}
}

// ShouldSkip reports whether storageID is still within its cooldown
// window, per spec §3: `cooldown_ms > 0 && (now - last) < cooldown_ms`.
func (cs *CooldownStore) ShouldSkip(storageID string, nowMs int64, cooldownMs int64) bool {
	if cooldownMs <= 0 {
		return false
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	last, ok := cs.last[storageID]
	if !ok {
		return false
	}
	return nowMs-last < cooldownMs
}

// MarkScanned records a successful publish for storageID (spec §4.D:
// "Successful publish ... updates last[storage_id] = now").
func (cs *CooldownStore) MarkScanned(storageID string, nowMs int64) {
	cs.mu.Lock()
	cs.last[storageID] = nowMs
	cs.mu.Unlock()

	if cs.driver == nil {
		return
	}
	rec := cooldownRecord{StorageID: storageID, LastScanMs: nowMs}
	if err := cs.driver.Write(cooldownCollection, storageID, rec); err != nil {
		nlog.Warningf("scanner: persist cooldown for %s: %v", storageID, err)
	}
}
