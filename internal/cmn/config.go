// Package cmn provides the low-level types and utilities shared by every
// scanner package: the live configuration cell, the closed failure-code
// taxonomy, and small assertion helpers. It plays the role the teacher's
// own cmn package plays for AIStore (cmn.GCO, cmn.Assert, cmn.Bck): a
// single place other packages reach into rather than importing each other.
package cmn

import (
	"sync/atomic"
	"time"
)

// Config is the live scanner configuration, sourced from defaults, the
// local persisted config file, and the Dynamic Configuration Synchroniser
// (spec §6's recognised key set, plus the audit twins named there).
type Config struct {
	Revision  int64
	UpdatedAt time.Time
	UpdatedBy string

	ScanEnabled               bool
	ScanIntervalMinutes       int
	ScanRescanCooldownMinutes int
	ScanContainersPerTick     int
	ScanRS2NetworksPerTick    int
	ScanIncludeContainers     bool
	ScanIncludeRS2            bool
	ScanMaxAvgTickMs          float64
	ScanMaxOnlinePlayers      int

	ScanWorldOfflineEnabled    bool
	ScanSBOfflineEnabled       bool
	ScanRS2OfflineEnabled      bool
	ScanOfflineChunksPerTick   int
	ScanOfflineSourcesPerTick  int
	ScanOfflineWorkers         int
	ScanOfflineChunkIntervalMs int
	ScanIncludeOnlineRuntime   bool
	ScanItemFilter             []string

	AuditEnabled               bool
	AuditIntervalMinutes       int
	AuditPlayersPerTick        int
	AuditRescanCooldownMinutes int
	AuditItemFilter            []string

	// Unknown keys delivered by a Config Envelope that this build does not
	// recognise are preserved verbatim so they round-trip on republish
	// (spec §3, §4.G).
	Unknown map[string]interface{}
}

// DefaultConfig mirrors the default values enumerated in spec §6.
func DefaultConfig() *Config {
	return &Config{
		ScanEnabled:                true,
		ScanIntervalMinutes:        1440,
		ScanRescanCooldownMinutes:  1440,
		ScanContainersPerTick:      1,
		ScanRS2NetworksPerTick:     1,
		ScanIncludeContainers:      true,
		ScanIncludeRS2:             true,
		ScanMaxAvgTickMs:           25,
		ScanMaxOnlinePlayers:       -1,
		ScanWorldOfflineEnabled:    true,
		ScanSBOfflineEnabled:       true,
		ScanRS2OfflineEnabled:      true,
		ScanOfflineChunksPerTick:   1,
		ScanOfflineSourcesPerTick:  1,
		ScanOfflineWorkers:         1,
		ScanOfflineChunkIntervalMs: 1000,
		ScanIncludeOnlineRuntime:   false,
		ScanItemFilter:             []string{},

		AuditEnabled:               true,
		AuditIntervalMinutes:       1440,
		AuditPlayersPerTick:        1,
		AuditRescanCooldownMinutes: 1440,
		AuditItemFilter:            []string{},

		Unknown: map[string]interface{}{},
	}
}

// Clone returns a deep-enough copy for safe concurrent reads: primitive
// fields are copied by value, slices/maps get fresh backing storage so a
// reader can never observe a torn write from a subsequent Store.
func (c *Config) Clone() *Config {
	cp := *c
	cp.ScanItemFilter = append([]string(nil), c.ScanItemFilter...)
	cp.AuditItemFilter = append([]string(nil), c.AuditItemFilter...)
	cp.Unknown = make(map[string]interface{}, len(c.Unknown))
	for k, v := range c.Unknown {
		cp.Unknown[k] = v
	}
	return &cp
}

// ConfigOwner is the single-writer/many-reader atomic cell that holds the
// live configuration. The teacher calls the equivalent type GCO (Global
// Config Owner) and reaches it via cmn.GCO.Get() from any goroutine
// (reb/global.go:221, downloader/db.go:45). Spec §5 requires exactly this
// shape for the scanner: Config Sync is the sole writer, the scheduler,
// the audit task and the progress reporter snapshot once per tick.
type ConfigOwner struct {
	v atomic.Value // holds *Config
}

// NewConfigOwner seeds the cell with the given configuration (or defaults).
func NewConfigOwner(initial *Config) *ConfigOwner {
	if initial == nil {
		initial = DefaultConfig()
	}
	co := &ConfigOwner{}
	co.v.Store(initial)
	return co
}

// Get returns the current live configuration. Safe from any goroutine.
func (co *ConfigOwner) Get() *Config {
	return co.v.Load().(*Config)
}

// Put atomically swaps in a new configuration. Old references already
// handed out by Get remain valid (spec §3's configuration lifecycle).
func (co *ConfigOwner) Put(next *Config) {
	co.v.Store(next)
}
