// Package index implements the Target Indexer (spec §4.C): the four
// seeding routines invoked once at session start to enumerate scan
// targets from the world's loaded dimensions, its nested per-mod storage
// blobs, its offline network-storage files, and its currently loaded
// runtime containers/networks.
//
// The base repo has no direct analogue (AIStore has no concept of a
// "world" or "dimension"), so each routine is grounded on the relevant
// section of the functional description; the bounded-walk and
// failure-wrapping idioms follow the base repo's fs.Walk and cmn error
// helpers respectively.
package index

import (
	"os"
	"path/filepath"

	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/loopwic/lattice-scan/internal/model"
)

// DimensionPath resolves a loaded dimension to its on-disk root relative
// to the world root, per spec §4.C: the overworld lives at the world
// root itself; the nether and the end have fixed legacy folder names;
// any other (typically modded) dimension lives under
// dimensions/<namespace>/<path>.
func DimensionPath(worldRoot string, d hostbridge.Dimension) string {
	switch d.ID {
	case "minecraft:overworld":
		return worldRoot
	case "minecraft:the_nether":
		return filepath.Join(worldRoot, "DIM-1")
	case "minecraft:the_end":
		return filepath.Join(worldRoot, "DIM1")
	default:
		return filepath.Join(worldRoot, "dimensions", d.Namespace, d.Path)
	}
}

// SeedWorld enumerates a RegionDirectory for every loaded dimension whose
// resolved path has a region/ subdirectory. A dimension without a
// region/ folder (not yet generated, or a dimension type with no region
// storage) is silently skipped, not an error — only a failure to read
// the world root itself is WORLD_INDEX_FAILED.
func SeedWorld(bridge hostbridge.Bridge) ([]model.RegionDirectory, error) {
	worldRoot := bridge.WorldRoot()
	if _, err := os.Stat(worldRoot); err != nil {
		return nil, cmn.NewCodedError(cmn.FailureWorldIndexFailed, "world root unavailable", err)
	}

	var out []model.RegionDirectory
	for _, d := range bridge.Dimensions() {
		dimPath := DimensionPath(worldRoot, d)
		regionPath := filepath.Join(dimPath, "region")
		fi, err := os.Stat(regionPath)
		if err != nil || !fi.IsDir() {
			continue
		}
		out = append(out, model.RegionDirectory{
			DimensionID:   d.ID,
			DirectoryPath: regionPath,
		})
	}
	return out, nil
}
