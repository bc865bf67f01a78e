package index

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/loopwic/lattice-scan/internal/model"
)

const (
	maxNetworkWalkDepth = 6
	maxNetworkFileCap   = 10000
)

// networkKeywords is the candidate-path keyword list spec §4.C names
// without enumerating: the common third-party network-storage mod data
// folder names under data/ and playerdata/.
var networkKeywords = []string{"rs2", "refinedstorage", "storagenetwork", "ae2", "appliedenergistics"}

// SeedNetworkOffline walks data/ and playerdata/ under the world root for
// keyword-matched .dat/.nbt files (spec §4.C), bounded to 6 directory
// levels and a 10000-file cap so a pathological tree can't stall
// indexing.
func SeedNetworkOffline(worldRoot string) ([]model.OfflineData, error) {
	var out []model.OfflineData
	for _, sub := range []string{"data", "playerdata"} {
		root := filepath.Join(worldRoot, sub)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		walkDir(root, 0, &out)
		if len(out) >= maxNetworkFileCap {
			out = out[:maxNetworkFileCap]
			break
		}
	}
	return out, nil
}

func walkDir(dir string, depth int, out *[]model.OfflineData) {
	if depth > maxNetworkWalkDepth || len(*out) >= maxNetworkFileCap {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if len(*out) >= maxNetworkFileCap {
			return
		}
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			walkDir(full, depth+1, out)
			continue
		}
		if isCandidateFile(full) {
			*out = append(*out, model.OfflineData{
				Path:       full,
				StorageMod: storageModFromPath(full),
				StorageID_: full,
			})
		}
	}
}

func isCandidateFile(path string) bool {
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, ".dat") && !strings.HasSuffix(lower, ".nbt") {
		return false
	}
	for _, kw := range networkKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func storageModFromPath(path string) string {
	lower := strings.ToLower(path)
	for _, kw := range networkKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return "unknown"
}
