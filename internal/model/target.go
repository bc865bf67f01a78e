package model

// TargetKind discriminates the seven Scan Target variants of spec §3.
type TargetKind string

const (
	KindRuntimeContainer  TargetKind = "runtime_container"
	KindRuntimeNetwork    TargetKind = "runtime_network"
	KindRegionDirectory   TargetKind = "region_directory"
	KindRegionFile        TargetKind = "region_file"
	KindWorldSnapshot     TargetKind = "world_snapshot"
	KindNestedStorageRoot TargetKind = "nested_storage_root"
	KindOfflineData       TargetKind = "offline_data"
)

// ScanTarget is the tagged-sum-type interface spec §3 describes. Each
// variant below is a small immutable struct; callers type-switch on Kind()
// the way the teacher type-switches on cmn.Bck.Provider.
type ScanTarget interface {
	Kind() TargetKind
	// StorageID identifies the target for cooldown/dedup bookkeeping.
	// RuntimeNetwork's StorageID is still present for reporting, but its
	// true identity for dedup purposes is the handle's process address
	// (spec §3: "network identity is the handle's process-address;
	// never persisted").
	StorageID() string
}

// NetworkHandle is the opaque third-party network-storage handle. Its
// Addr is used purely as an in-process identity for dedup/visited-set
// purposes and must never be serialised or persisted.
type NetworkHandle interface {
	Addr() uintptr
}

type RuntimeContainer struct {
	Dimension  string
	Position   Position
	StorageMod string
	StorageID_ string
}

func (t RuntimeContainer) Kind() TargetKind { return KindRuntimeContainer }
func (t RuntimeContainer) StorageID() string { return t.StorageID_ }

type RuntimeNetwork struct {
	Handle     NetworkHandle
	StorageID_ string
}

func (t RuntimeNetwork) Kind() TargetKind  { return KindRuntimeNetwork }
func (t RuntimeNetwork) StorageID() string { return t.StorageID_ }

type RegionDirectory struct {
	DimensionID   string
	DirectoryPath string
}

func (t RegionDirectory) Kind() TargetKind  { return KindRegionDirectory }
func (t RegionDirectory) StorageID() string { return t.DirectoryPath }

type RegionFile struct {
	DimensionID string
	FilePath    string
}

func (t RegionFile) Kind() TargetKind  { return KindRegionFile }
func (t RegionFile) StorageID() string { return t.FilePath }

type WorldSnapshot struct {
	ItemCounts map[string]int64
	StorageMod string
	StorageID_ string
	Dimension  string
	Position   Position
}

func (t WorldSnapshot) Kind() TargetKind  { return KindWorldSnapshot }
func (t WorldSnapshot) StorageID() string { return t.StorageID_ }

type NestedStorageRoot struct {
	StorageID_ string
	ItemCounts map[string]int64
}

func (t NestedStorageRoot) Kind() TargetKind  { return KindNestedStorageRoot }
func (t NestedStorageRoot) StorageID() string { return t.StorageID_ }

type OfflineData struct {
	Path       string
	StorageMod string
	StorageID_ string
}

func (t OfflineData) Kind() TargetKind  { return KindOfflineData }
func (t OfflineData) StorageID() string { return t.StorageID_ }
