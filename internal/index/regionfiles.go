package index

import (
	"os"
	"path/filepath"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/region"
)

// ListRegionFiles enumerates every well-formed region file directly
// inside dir.DirectoryPath. It is the second half of world seeding: the
// scheduler expands each RegionDirectory target lazily, one directory at
// a time, rather than SeedWorld walking every .mca file up front, so a
// world with many dimensions doesn't pay for file stats it may never
// reach within a session's budget.
func ListRegionFiles(dir model.RegionDirectory) ([]model.RegionFile, error) {
	entries, err := os.ReadDir(dir.DirectoryPath)
	if err != nil {
		return nil, err
	}
	var out []model.RegionFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, _, ok := region.ParseRegionFilename(e.Name()); !ok {
			continue
		}
		out = append(out, model.RegionFile{
			DimensionID: dir.DimensionID,
			FilePath:    filepath.Join(dir.DirectoryPath, e.Name()),
		})
	}
	return out, nil
}
