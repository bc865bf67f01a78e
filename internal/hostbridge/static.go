package hostbridge

import "github.com/loopwic/lattice-scan/internal/aggregate"

var _ Bridge = (*Static)(nil)

// Static is an in-memory Bridge backed by fixed data, standing in for the
// live host adapter during tests and for any embedding that already has
// its container/network data in hand (e.g. replaying a recorded tick).
// It never needs the DynamicLookup fallback because its fields are always
// populated directly.
type Static struct {
	HealthData        HealthSnapshot
	DimensionsData     []Dimension
	WorldRootPath      string
	OnlinePlayersData  []Player
	Containers         []LoadedContainer
	Networks           []NetworkHandle
	Inventories        map[string]aggregate.Container
	EnderChests        map[string]aggregate.Container
}

func (s *Static) Health() HealthSnapshot               { return s.HealthData }
func (s *Static) Dimensions() []Dimension              { return s.DimensionsData }
func (s *Static) WorldRoot() string                    { return s.WorldRootPath }
func (s *Static) OnlinePlayers() []Player              { return s.OnlinePlayersData }
func (s *Static) LoadedContainers() []LoadedContainer  { return s.Containers }
func (s *Static) LoadedNetworks() []NetworkHandle      { return s.Networks }

func (s *Static) PlayerInventory(uuid string) (aggregate.Container, bool) {
	c, ok := s.Inventories[uuid]
	return c, ok
}

func (s *Static) PlayerEnderChest(uuid string) (aggregate.Container, bool) {
	c, ok := s.EnderChests[uuid]
	return c, ok
}
