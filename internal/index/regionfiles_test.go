package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/stretchr/testify/require"
)

func TestListRegionFilesFiltersNonRegionEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.0.0.mca"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.-1.2.mca"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.lock"), []byte{}, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "r.3.3.mca"), 0o755)) // directory, not a file

	files, err := ListRegionFiles(model.RegionDirectory{DimensionID: "minecraft:overworld", DirectoryPath: dir})
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		require.Equal(t, "minecraft:overworld", f.DimensionID)
	}
}

func TestListRegionFilesMissingDirErrors(t *testing.T) {
	_, err := ListRegionFiles(model.RegionDirectory{DirectoryPath: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}
