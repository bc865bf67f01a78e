package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDecodeRegionJobRejectsNonRegionFilename(t *testing.T) {
	res := decodeRegionJob(model.RegionFile{FilePath: filepath.Join(t.TempDir(), "not-a-region-file.dat")}, nil)
	require.Error(t, res.Err)
}

func TestDecodeRegionJobMissingFileReportsErr(t *testing.T) {
	res := decodeRegionJob(model.RegionFile{FilePath: filepath.Join(t.TempDir(), "r.0.0.mca")}, nil)
	require.Error(t, res.Err)
}

func TestDecodeOfflineJobMissingFileReportsErr(t *testing.T) {
	res := decodeOfflineJob(model.OfflineData{Path: filepath.Join(t.TempDir(), "missing.dat")}, nil)
	require.Error(t, res.Err)
}

func TestDecodeOfflineJobRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.dat")
	require.NoError(t, os.WriteFile(path, []byte("not nbt, not gzip"), 0o644))

	res := decodeOfflineJob(model.OfflineData{Path: path, StorageID_: "garbage"}, nil)
	require.Error(t, res.Err)
}
