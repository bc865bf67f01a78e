package index

import (
	"testing"

	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeContainer struct{}

func (fakeContainer) SlotCount() int                        { return 0 }
func (fakeContainer) Stack(i int) (aggregate.Stack, bool)    { return aggregate.Stack{}, false }

type fakeNetworkHandle struct {
	addr uintptr
	id   string
}

func (h fakeNetworkHandle) Addr() uintptr      { return h.addr }
func (h fakeNetworkHandle) StorageID() string  { return h.id }

func TestSeedRuntimeDedupesContainersAndNetworks(t *testing.T) {
	bridge := &hostbridge.Static{
		Containers: []hostbridge.LoadedContainer{
			{Container: fakeContainer{}, Dimension: "minecraft:overworld", Position: model.Position{X: 1}, StorageMod: "minecraft", StorageID: "chest-1"},
			{Container: fakeContainer{}, Dimension: "minecraft:overworld", Position: model.Position{X: 1}, StorageMod: "minecraft", StorageID: "chest-1"}, // duplicate storage id
		},
		Networks: []hostbridge.NetworkHandle{
			fakeNetworkHandle{addr: 0x1000, id: "net-a"},
			fakeNetworkHandle{addr: 0x1000, id: "net-a"}, // duplicate address
			fakeNetworkHandle{addr: 0x2000, id: "net-b"},
		},
	}

	targets := SeedRuntime(bridge)
	require.Len(t, targets.Containers, 1)
	require.Contains(t, targets.ContainerByID, "chest-1")
	require.Len(t, targets.Networks, 2)
}
