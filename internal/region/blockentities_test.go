package region

import (
	"testing"

	"github.com/loopwic/lattice-scan/internal/tagtree"
	"github.com/stretchr/testify/require"
)

func stack(id string, count int64) *tagtree.Value {
	return tagtree.Compound(map[string]*tagtree.Value{
		"id":    tagtree.Str(id),
		"Count": tagtree.Int(count),
	})
}

func blockEntity(id string, x, y, z int64, items *tagtree.Value) *tagtree.Value {
	return tagtree.Compound(map[string]*tagtree.Value{
		"id":    tagtree.Str(id),
		"x":     tagtree.Int(x),
		"y":     tagtree.Int(y),
		"z":     tagtree.Int(z),
		"Items": items,
	})
}

func TestExtractBlockEntitiesCurrentFormat(t *testing.T) {
	chunk := tagtree.Compound(map[string]*tagtree.Value{
		"block_entities": tagtree.List(
			blockEntity("minecraft:chest", 10, 64, -5, tagtree.List(stack("minecraft:diamond", 4))),
		),
	})
	invs := ExtractBlockEntities(chunk, nil)
	require.Len(t, invs, 1)
	require.Equal(t, 10, invs[0].X)
	require.Equal(t, 64, invs[0].Y)
	require.Equal(t, -5, invs[0].Z)
	require.Equal(t, "minecraft", invs[0].StorageMod)
	require.EqualValues(t, 4, invs[0].Counts["minecraft:diamond"])
}

func TestExtractBlockEntitiesLegacyLevelWrapper(t *testing.T) {
	chunk := tagtree.Compound(map[string]*tagtree.Value{
		"Level": tagtree.Compound(map[string]*tagtree.Value{
			"TileEntities": tagtree.List(
				blockEntity("modded:crate", 1, 2, 3, tagtree.List(stack("modded:gear", 9))),
			),
		}),
	})
	invs := ExtractBlockEntities(chunk, nil)
	require.Len(t, invs, 1)
	require.Equal(t, "modded", invs[0].StorageMod)
	require.EqualValues(t, 9, invs[0].Counts["modded:gear"])
}

func TestExtractBlockEntitiesSkipsMissingCoordsOrItems(t *testing.T) {
	chunk := tagtree.Compound(map[string]*tagtree.Value{
		"block_entities": tagtree.List(
			tagtree.Compound(map[string]*tagtree.Value{"id": tagtree.Str("minecraft:chest")}), // no coords
			blockEntity("minecraft:barrel", 0, 0, 0, nil),                                     // Items omitted below
		),
	})
	// second element above passes nil items, which Compound() stores as a
	// literal nil *Value under "Items"; ExtractBlockEntities must treat that
	// the same as an absent key.
	invs := ExtractBlockEntities(chunk, nil)
	require.Empty(t, invs)
}

func TestExtractBlockEntitiesNoListReturnsNil(t *testing.T) {
	chunk := tagtree.Compound(map[string]*tagtree.Value{})
	require.Nil(t, ExtractBlockEntities(chunk, nil))
}
