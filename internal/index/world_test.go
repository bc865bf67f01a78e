package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loopwic/lattice-scan/internal/hostbridge"
	"github.com/stretchr/testify/require"
)

func TestDimensionPath(t *testing.T) {
	root := "/srv/world"
	require.Equal(t, root, DimensionPath(root, hostbridge.Dimension{ID: "minecraft:overworld"}))
	require.Equal(t, filepath.Join(root, "DIM-1"), DimensionPath(root, hostbridge.Dimension{ID: "minecraft:the_nether"}))
	require.Equal(t, filepath.Join(root, "DIM1"), DimensionPath(root, hostbridge.Dimension{ID: "minecraft:the_end"}))
	custom := hostbridge.Dimension{ID: "modid:custom", Namespace: "modid", Path: "custom"}
	require.Equal(t, filepath.Join(root, "dimensions", "modid", "custom"), DimensionPath(root, custom))
}

func TestSeedWorldSkipsDimensionsWithoutRegionFolder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "region"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "DIM-1"), 0o755)) // no region/ subfolder

	bridge := &hostbridge.Static{
		WorldRootPath: root,
		DimensionsData: []hostbridge.Dimension{
			{ID: "minecraft:overworld"},
			{ID: "minecraft:the_nether"},
		},
	}
	dirs, err := SeedWorld(bridge)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	require.Equal(t, "minecraft:overworld", dirs[0].DimensionID)
}

func TestSeedWorldMissingRootFails(t *testing.T) {
	bridge := &hostbridge.Static{WorldRootPath: filepath.Join(t.TempDir(), "missing")}
	_, err := SeedWorld(bridge)
	require.Error(t, err)
}
