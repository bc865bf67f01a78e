package scanner

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/region"
	"github.com/loopwic/lattice-scan/internal/tagtree"
)

// decodeRegionJob runs entirely off the scheduler thread: it opens and
// decodes a region file, extracts every block entity's inventory, and
// returns one WorldSnapshot per inventory. Per spec §4.B a corrupt
// region file still yields whatever chunks it could decode; only a
// filename that doesn't parse as a region filename, or a failure to open
// the file or read its header, is reported as Err.
func decodeRegionJob(target model.RegionFile, filter *model.ItemFilter) RegionJobResult {
	rx, rz, ok := region.ParseRegionFilename(filepath.Base(target.FilePath))
	if !ok {
		return RegionJobResult{Target: target, Err: fmt.Errorf("scanner: %s is not a region filename", target.FilePath)}
	}
	res, err := region.ReadRegion(target.FilePath, rx, rz)
	if err != nil {
		return RegionJobResult{Target: target, Err: err}
	}

	result := RegionJobResult{Target: target, SkippedN: res.Skipped}
	for _, chunk := range res.Chunks {
		for _, inv := range region.ExtractBlockEntities(chunk.Tree, filter) {
			if inv.Truncated {
				result.Truncated = true
			}
			storageID := fmt.Sprintf("%s:%d:%d:%d", target.FilePath, inv.X, inv.Y, inv.Z)
			result.Snapshots = append(result.Snapshots, model.WorldSnapshot{
				ItemCounts: inv.Counts,
				StorageMod: inv.StorageMod,
				StorageID_: storageID,
				Dimension:  target.DimensionID,
				Position:   model.Position{X: inv.X, Y: inv.Y, Z: inv.Z},
			})
		}
	}
	return result
}

// decodeOfflineJob reads a keyword-matched network-storage data file
// (spec §4.C's OfflineData targets), decodes it as a tagged tree, and
// aggregates its contents into a single WorldSnapshot. Offline network
// blobs are conventionally gzip-wrapped NBT the way region chunks and
// nested-storage files are; a file that isn't gzip is retried as a raw
// tagged-tree stream before being treated as corrupt.
func decodeOfflineJob(target model.OfflineData, filter *model.ItemFilter) OfflineJobResult {
	raw, err := os.ReadFile(target.Path)
	if err != nil {
		return OfflineJobResult{Target: target, Err: err}
	}

	tree, err := decodeOfflineBytes(raw)
	if err != nil {
		return OfflineJobResult{Target: target, Err: err}
	}

	counts, outcome := aggregate.AggregateNested(tree, filter)
	return OfflineJobResult{
		Target: target,
		Snapshot: model.WorldSnapshot{
			ItemCounts: counts,
			StorageMod: target.StorageMod,
			StorageID_: target.StorageID_,
		},
		Truncated: outcome.Truncated,
	}
}

func decodeOfflineBytes(raw []byte) (*tagtree.Value, error) {
	if gr, err := gzip.NewReader(bytes.NewReader(raw)); err == nil {
		defer gr.Close()
		decompressed, err := io.ReadAll(gr)
		if err == nil {
			return tagtree.Decode(bytes.NewReader(decompressed))
		}
	}
	return tagtree.Decode(bytes.NewReader(raw))
}
