package index

import (
	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/loopwic/lattice-scan/internal/model"
)

// RuntimeTargets is the output of SeedRuntime: the loaded containers and
// networks, wrapped as the corresponding ScanTarget variant, plus a
// storage-id-keyed lookup back to the live container the scanner will
// aggregate once the target's turn comes up in a drain tick.
type RuntimeTargets struct {
	Containers    []model.RuntimeContainer
	ContainerByID map[string]aggregate.Container
	Networks      []model.RuntimeNetwork
}

// SeedRuntime enumerates the host's currently loaded block-entity
// containers and network-storage handles (spec §4.C). Containers and
// networks are deduplicated within the call — containers by storage-id,
// networks by handle identity (process address) — since the same handle
// must never be enqueued twice in one session.
func SeedRuntime(bridge hostbridge.Bridge) RuntimeTargets {
	targets := RuntimeTargets{ContainerByID: make(map[string]aggregate.Container)}

	for _, lc := range bridge.LoadedContainers() {
		if _, dup := targets.ContainerByID[lc.StorageID]; dup {
			continue
		}
		targets.ContainerByID[lc.StorageID] = lc.Container
		targets.Containers = append(targets.Containers, model.RuntimeContainer{
			Dimension:  lc.Dimension,
			Position:   lc.Position,
			StorageMod: lc.StorageMod,
			StorageID_: lc.StorageID,
		})
	}

	seenNetworks := make(map[uintptr]struct{})
	for _, n := range bridge.LoadedNetworks() {
		addr := n.Addr()
		if _, dup := seenNetworks[addr]; dup {
			continue
		}
		seenNetworks[addr] = struct{}{}
		targets.Networks = append(targets.Networks, model.RuntimeNetwork{
			Handle:     n,
			StorageID_: n.StorageID(),
		})
	}
	return targets
}
