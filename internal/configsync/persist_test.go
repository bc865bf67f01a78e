package configsync

import (
	"path/filepath"
	"testing"

	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner.conf")
	store := NewStore(path)

	cfg := cmn.DefaultConfig()
	cfg.ScanEnabled = false
	cfg.ScanMaxAvgTickMs = 42.5
	cfg.ScanItemFilter = []string{"minecraft:diamond", "minecraft:netherite_ingot"}
	cfg.Unknown = map[string]interface{}{"future_key": "future_value"}

	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.False(t, loaded.ScanEnabled)
	require.Equal(t, 42.5, loaded.ScanMaxAvgTickMs)
	require.Equal(t, cfg.ScanItemFilter, loaded.ScanItemFilter)
	require.Equal(t, "future_value", loaded.Unknown["future_key"])
}

func TestStoreLoadMissingFileErrors(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.conf"))
	_, err := store.Load()
	require.Error(t, err)
}
