package configsync

import (
	"testing"

	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/stretchr/testify/require"
)

func TestApplyMapOverridesKnownKeysAndPreservesUnknown(t *testing.T) {
	base := cmn.DefaultConfig()
	raw := map[string]interface{}{
		"scan_enabled":           false,
		"scan_interval_minutes":  float64(60),
		"scan_item_filter":       []interface{}{"minecraft:diamond", "minecraft:netherite_ingot"},
		"some_future_mod_option": "keep-me",
	}

	next := applyMap(base, raw)

	require.False(t, next.ScanEnabled)
	require.Equal(t, 60, next.ScanIntervalMinutes)
	require.Equal(t, []string{"minecraft:diamond", "minecraft:netherite_ingot"}, next.ScanItemFilter)
	require.Equal(t, "keep-me", next.Unknown["some_future_mod_option"])
}

func TestDiffKeysOnlyReportsChangedValues(t *testing.T) {
	old := map[string]interface{}{"a": 1, "b": "x", "c": true}
	next := map[string]interface{}{"a": 1, "b": "y", "d": 5}

	changed := diffKeys(old, next)
	require.Equal(t, []string{"b", "c", "d"}, changed)
}

func TestConfigToMapRoundTripsThroughApplyMap(t *testing.T) {
	base := cmn.DefaultConfig()
	base.ScanItemFilter = []string{"minecraft:emerald"}
	m := configToMap(base)

	restored := applyMap(cmn.DefaultConfig(), m)
	require.Equal(t, base.ScanItemFilter, restored.ScanItemFilter)
	require.Equal(t, base.ScanEnabled, restored.ScanEnabled)
	require.Equal(t, base.ScanMaxAvgTickMs, restored.ScanMaxAvgTickMs)
}
