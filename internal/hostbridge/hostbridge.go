// Package hostbridge is the scanner's two-layer capability interface onto
// the running voxel-world host (spec Design Note 1): a stable, well-typed
// Bridge plus a feature-detection shim for hosts that don't expose a
// method directly. Modeled on the base repo's SysInfoStat/ClusterSysInfo
// split in bench/soaktest/stats/sysinfo.go — a typed struct for the
// common case, with call sites tolerating partially-populated data from
// older or differently-built daemons.
package hostbridge

import (
	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/model"
)

// HealthSnapshot is the subset of live host metrics the health gate reads
// at session start (spec §4.D "Host health gate").
type HealthSnapshot struct {
	OnlinePlayers int
	AvgTickMs     float64
}

// Dimension describes one loaded world dimension as the bridge sees it.
type Dimension struct {
	ID       string // e.g. "minecraft:overworld", "minecraft:the_nether"
	Namespace string
	Path      string // namespaced path component used for DIM-style folder resolution
}

// Player is an online player the audit task can enumerate.
type Player struct {
	UUID string
	Name string
}

// NetworkHandle identifies a third-party network-storage endpoint by
// process address only; it is never persisted (spec §3 RuntimeNetwork).
type NetworkHandle interface {
	Addr() uintptr
	StorageID() string
}

// LoadedContainer pairs a live block-entity container with the identity
// metadata the Target Indexer needs to turn it into a RuntimeContainer
// target: dimension, position, and owning mod namespace.
type LoadedContainer struct {
	Container  aggregate.Container
	Dimension  string
	Position   model.Position
	StorageMod string
	StorageID  string
}

// Bridge is the stable capability surface the scanner programs against.
// A concrete implementation adapts a specific host API version; callers
// never reach past this interface into host internals.
type Bridge interface {
	Health() HealthSnapshot
	Dimensions() []Dimension
	WorldRoot() string
	OnlinePlayers() []Player

	// LoadedContainers returns every currently loaded block-entity
	// container, preferring a direct host collection and falling back to
	// a DynamicLookup-mediated chunk-holder walk when the direct
	// collection isn't exposed by this host build (spec Design Note 1).
	LoadedContainers() []LoadedContainer
	// LoadedNetworks returns every currently loaded third-party network
	// storage handle, identity-hashed by the caller.
	LoadedNetworks() []NetworkHandle

	// PlayerInventory and PlayerEnderChest return the aggregator-facing
	// container for one online player; used by the audit task.
	PlayerInventory(uuid string) (aggregate.Container, bool)
	PlayerEnderChest(uuid string) (aggregate.Container, bool)
}

// DynamicLookup is the feature-detection fallback a Bridge implementation
// may use internally when a direct typed accessor isn't available on the
// running host version: a single dynamic-property read keyed by name,
// resolved once and cached for the life of the scanner (spec Design
// Note 1, "with the resolved field cached for the life of the scanner").
type DynamicLookup interface {
	Lookup(owner interface{}, field string) (interface{}, bool)
}
