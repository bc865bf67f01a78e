// Package model holds the value objects exchanged between scanner
// components and published to the external sink/backend: Snapshot
// Events, Scan Targets, Progress Records and Config Envelopes (spec §3).
// These are deliberately thin, JSON-tagged structs in the spirit of the
// teacher's cmn.ActionMsg / cmn.Bck value objects (cmn/api.go) rather
// than behaviour-carrying classes.
package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventType distinguishes an online per-player row from an offline
// storage row.
type EventType string

const (
	EventInventorySnapshot EventType = "INVENTORY_SNAPSHOT"
	EventStorageSnapshot   EventType = "STORAGE_SNAPSHOT"
)

// ActorType records whether a row was produced by a player-triggered
// audit or by the background system scan.
type ActorType string

const (
	ActorPlayer ActorType = "player"
	ActorSystem ActorType = "system"
)

// Position is an optional world coordinate attached to a snapshot row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// SnapshotEvent is one (container, item-id, count) tuple with provenance
// metadata, immutable once built (spec §3).
type SnapshotEvent struct {
	EventID         string    `json:"event_id"`
	TimestampMs     int64     `json:"timestamp_ms"`
	ServerID        string    `json:"server_id"`
	EventType       EventType `json:"event_type"`
	PlayerUUID      string    `json:"player_uuid,omitempty"`
	PlayerName      string    `json:"player_name,omitempty"`
	ItemID          string    `json:"item_id"`
	Count           int32     `json:"count"`
	OriginType      string    `json:"origin_type"`
	StorageMod      string    `json:"storage_mod"`
	StorageID       string    `json:"storage_id"`
	ActorType       ActorType `json:"actor_type"`
	TraceID         string    `json:"trace_id"`
	ItemFingerprint string    `json:"item_fingerprint"`
	Dimension       string    `json:"dimension,omitempty"`
	Position        *Position `json:"position,omitempty"`
}

// NewSnapshotEventParams carries the fields a caller supplies; EventID,
// TimestampMs and ItemFingerprint are always derived, never accepted from
// the caller, so that every row built through this constructor satisfies
// spec §3's immutability and fingerprint-derivation rules.
type NewSnapshotEventParams struct {
	ServerID   string
	EventType  EventType
	PlayerUUID string
	PlayerName string
	ItemID     string
	Count      int64
	OriginType string
	StorageMod string
	StorageID  string
	ActorType  ActorType
	TraceID    string
	Dimension  string
	Position   *Position
	NowMs      int64
}

// NewSnapshotEvent builds an immutable Snapshot Event, clamping count to a
// positive 32-bit value and deriving the item fingerprint
// "item-id:snapshot:trace-id" (spec §3).
func NewSnapshotEvent(p NewSnapshotEventParams) SnapshotEvent {
	count := p.Count
	if count < 0 {
		count = 0
	}
	if count > (1<<31 - 1) {
		count = 1<<31 - 1
	}
	itemID := strings.ToLower(strings.TrimSpace(p.ItemID))
	fingerprint := fmt.Sprintf("%s:snapshot:%s", itemID, p.TraceID)
	return SnapshotEvent{
		EventID:         uuid.NewString(),
		TimestampMs:     p.NowMs,
		ServerID:        p.ServerID,
		EventType:       p.EventType,
		PlayerUUID:      p.PlayerUUID,
		PlayerName:      p.PlayerName,
		ItemID:          itemID,
		Count:           int32(count),
		OriginType:      p.OriginType,
		StorageMod:      p.StorageMod,
		StorageID:       p.StorageID,
		ActorType:       p.ActorType,
		TraceID:         p.TraceID,
		ItemFingerprint: fingerprint,
		Dimension:       p.Dimension,
		Position:        p.Position,
	}
}

// ToJSON and SnapshotEventFromJSON delegate to jsoniter for parity with the
// wire format every other component in this module uses.
func (e SnapshotEvent) ToJSON() ([]byte, error) { return json.Marshal(e) }

func SnapshotEventFromJSON(b []byte) (SnapshotEvent, error) {
	var e SnapshotEvent
	err := json.Unmarshal(b, &e)
	return e, err
}

// NewTraceID mints a session/group trace-id in the "<prefix>-<now_ms>-<uuid>"
// shape; with prefix "scan" this is the scan-session shape spec §4.D.2
// requires, and the same shape serves per-container snapshot groups and
// per-player audit groups.
func NewTraceID(prefix string, nowMs int64) string {
	return fmt.Sprintf("%s-%d-%s", prefix, nowMs, uuid.NewString())
}
