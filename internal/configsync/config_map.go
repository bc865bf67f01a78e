package configsync

import (
	"reflect"
	"sort"

	"github.com/loopwic/lattice-scan/internal/cmn"
)

// configToMap renders the full set of recognised config keys (spec §6)
// plus every preserved unknown key as a plain map, the shape both the
// local persisted file and a republished Config Envelope share.
func configToMap(cfg *cmn.Config) map[string]interface{} {
	m := map[string]interface{}{
		"scan_enabled":                   cfg.ScanEnabled,
		"scan_interval_minutes":          cfg.ScanIntervalMinutes,
		"scan_rescan_cooldown_minutes":   cfg.ScanRescanCooldownMinutes,
		"scan_containers_per_tick":       cfg.ScanContainersPerTick,
		"scan_rs2_networks_per_tick":     cfg.ScanRS2NetworksPerTick,
		"scan_include_containers":        cfg.ScanIncludeContainers,
		"scan_include_rs2":               cfg.ScanIncludeRS2,
		"scan_max_avg_tick_ms":           cfg.ScanMaxAvgTickMs,
		"scan_max_online_players":        cfg.ScanMaxOnlinePlayers,
		"scan_world_offline_enabled":     cfg.ScanWorldOfflineEnabled,
		"scan_sb_offline_enabled":        cfg.ScanSBOfflineEnabled,
		"scan_rs2_offline_enabled":       cfg.ScanRS2OfflineEnabled,
		"scan_offline_chunks_per_tick":   cfg.ScanOfflineChunksPerTick,
		"scan_offline_sources_per_tick":  cfg.ScanOfflineSourcesPerTick,
		"scan_offline_workers":           cfg.ScanOfflineWorkers,
		"scan_offline_chunk_interval_ms": cfg.ScanOfflineChunkIntervalMs,
		"scan_include_online_runtime":    cfg.ScanIncludeOnlineRuntime,
		"scan_item_filter":               stringSliceToAny(cfg.ScanItemFilter),
		"audit_enabled":                  cfg.AuditEnabled,
		"audit_interval_minutes":         cfg.AuditIntervalMinutes,
		"audit_players_per_tick":         cfg.AuditPlayersPerTick,
		"audit_rescan_cooldown_minutes":  cfg.AuditRescanCooldownMinutes,
		"audit_item_filter":              stringSliceToAny(cfg.AuditItemFilter),
	}
	for k, v := range cfg.Unknown {
		m[k] = v
	}
	return m
}

// applyMap builds a new Config from base, overriding every recognised
// key found in raw and preserving everything else as Unknown so it
// round-trips on the next republish (spec §3, §4.G).
func applyMap(base *cmn.Config, raw map[string]interface{}) *cmn.Config {
	next := base.Clone()
	unknown := make(map[string]interface{}, len(raw))

	for k, v := range raw {
		switch k {
		case "scan_enabled":
			setBool(&next.ScanEnabled, v)
		case "scan_interval_minutes":
			setInt(&next.ScanIntervalMinutes, v)
		case "scan_rescan_cooldown_minutes":
			setInt(&next.ScanRescanCooldownMinutes, v)
		case "scan_containers_per_tick":
			setInt(&next.ScanContainersPerTick, v)
		case "scan_rs2_networks_per_tick":
			setInt(&next.ScanRS2NetworksPerTick, v)
		case "scan_include_containers":
			setBool(&next.ScanIncludeContainers, v)
		case "scan_include_rs2":
			setBool(&next.ScanIncludeRS2, v)
		case "scan_max_avg_tick_ms":
			setFloat(&next.ScanMaxAvgTickMs, v)
		case "scan_max_online_players":
			setInt(&next.ScanMaxOnlinePlayers, v)
		case "scan_world_offline_enabled":
			setBool(&next.ScanWorldOfflineEnabled, v)
		case "scan_sb_offline_enabled":
			setBool(&next.ScanSBOfflineEnabled, v)
		case "scan_rs2_offline_enabled":
			setBool(&next.ScanRS2OfflineEnabled, v)
		case "scan_offline_chunks_per_tick":
			setInt(&next.ScanOfflineChunksPerTick, v)
		case "scan_offline_sources_per_tick":
			setInt(&next.ScanOfflineSourcesPerTick, v)
		case "scan_offline_workers":
			setInt(&next.ScanOfflineWorkers, v)
		case "scan_offline_chunk_interval_ms":
			setInt(&next.ScanOfflineChunkIntervalMs, v)
		case "scan_include_online_runtime":
			setBool(&next.ScanIncludeOnlineRuntime, v)
		case "scan_item_filter":
			next.ScanItemFilter = asStringSlice(v)
		case "audit_enabled":
			setBool(&next.AuditEnabled, v)
		case "audit_interval_minutes":
			setInt(&next.AuditIntervalMinutes, v)
		case "audit_players_per_tick":
			setInt(&next.AuditPlayersPerTick, v)
		case "audit_rescan_cooldown_minutes":
			setInt(&next.AuditRescanCooldownMinutes, v)
		case "audit_item_filter":
			next.AuditItemFilter = asStringSlice(v)
		default:
			unknown[k] = v
		}
	}
	next.Unknown = unknown
	return next
}

// diffKeys returns the sorted symmetric-diff of top-level keys whose
// value differs between old and next (spec §4.G step 4:
// "changed_keys := symmetric-diff of sorted top-level keys where old ≠
// new").
func diffKeys(old, next map[string]interface{}) []string {
	seen := make(map[string]struct{}, len(old)+len(next))
	for k := range old {
		seen[k] = struct{}{}
	}
	for k := range next {
		seen[k] = struct{}{}
	}
	var changed []string
	for k := range seen {
		if !reflect.DeepEqual(old[k], next[k]) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func setBool(dst *bool, v interface{}) {
	if b, ok := v.(bool); ok {
		*dst = b
	}
}

func setInt(dst *int, v interface{}) {
	if n, ok := asFloat64Val(v); ok {
		*dst = int(n)
	}
}

func setFloat(dst *float64, v interface{}) {
	if n, ok := asFloat64Val(v); ok {
		*dst = n
	}
}

func asFloat64Val(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asStringSlice(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringSliceToAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
