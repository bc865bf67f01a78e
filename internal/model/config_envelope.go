package model

// ConfigEnvelope is the payload delivered by the Dynamic Configuration
// Synchroniser, either over the WebSocket stream or the polling pull
// fallback (spec §3, §4.G). Config is a generic map so that unknown keys
// survive a decode/apply/re-encode round-trip untouched.
type ConfigEnvelope struct {
	ServerID       string                 `json:"server_id"`
	Revision       int64                  `json:"revision"`
	UpdatedAtMs    int64                  `json:"updated_at_ms"`
	UpdatedBy      string                 `json:"updated_by"`
	ChecksumSHA256 string                 `json:"checksum_sha256"`
	Config         map[string]interface{} `json:"config"`
}

// AckStatus is the outcome reported back on POST /ops/mod-config/ack.
type AckStatus string

const (
	AckApplied  AckStatus = "APPLIED"
	AckRejected AckStatus = "REJECTED"
)

// ConfigAck is the acknowledgement envelope spec §4.G step 4 describes.
type ConfigAck struct {
	ServerID    string    `json:"server_id"`
	Revision    int64     `json:"revision"`
	Status      AckStatus `json:"status"`
	AppliedAtMs int64     `json:"applied_at_ms"`
	Message     string    `json:"message,omitempty"`
	ChangedKeys []string  `json:"changed_keys"`
}
