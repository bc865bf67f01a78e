package region

import (
	"strings"

	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/tagtree"
)

// BlockEntityInventory is one container-bearing block entity found inside a
// decoded chunk, with its slot contents already aggregated.
type BlockEntityInventory struct {
	X, Y, Z    int
	StorageMod string
	Counts     map[string]int64
	Truncated  bool
}

// ExtractBlockEntities walks a decoded chunk tree for its block-entity list
// (spec §4.B step 7) under either the current "block_entities" key or the
// legacy "TileEntities" name, optionally nested inside a "Level" wrapper
// tag the way older chunk formats carry it. Each element with an "Items"
// list and integer x/y/z coordinates is aggregated through the same
// traversal used for runtime containers, so inventories found in region
// files and inventories found live in the running world share one set of
// counting rules.
func ExtractBlockEntities(chunk *tagtree.Value, filter *model.ItemFilter) []BlockEntityInventory {
	root := chunk
	if level := chunk.Get("Level"); level != nil && level.Kind == tagtree.KindCompound {
		root = level
	}

	list := root.Get("block_entities")
	if list == nil {
		list = root.Get("TileEntities")
	}
	if list == nil || list.Kind != tagtree.KindList {
		return nil
	}

	var out []BlockEntityInventory
	for _, be := range list.List {
		if be.Kind != tagtree.KindCompound {
			continue
		}
		x, xok := intField(be, "x")
		y, yok := intField(be, "y")
		z, zok := intField(be, "z")
		if !xok || !yok || !zok {
			continue
		}
		items := be.Get("Items")
		if items == nil {
			items = be.Get("items")
		}
		if items == nil {
			continue
		}
		counts, outcome := aggregate.AggregateNested(items, filter)
		if len(counts) == 0 {
			continue
		}
		out = append(out, BlockEntityInventory{
			X: x, Y: y, Z: z,
			StorageMod: storageModOf(be),
			Counts:     counts,
			Truncated:  outcome.Truncated,
		})
	}
	return out
}

func intField(v *tagtree.Value, key string) (int, bool) {
	n, ok := v.Get(key).AsInt64()
	if !ok {
		return 0, false
	}
	return int(n), true
}

// storageModOf derives the owning mod namespace from the block entity's
// own "id" tag (e.g. "minecraft:chest" -> "minecraft"), falling back to
// "unknown" when the id is absent or carries no namespace separator.
func storageModOf(be *tagtree.Value) string {
	id, ok := be.Get("id").AsString()
	if !ok {
		return "unknown"
	}
	idx := strings.IndexByte(id, ':')
	if idx <= 0 {
		return "unknown"
	}
	return strings.ToLower(id[:idx])
}
