package models

// Mode is what the dashboard tells the user about where its data comes from.
type Mode string

const (
	ModeLive    Mode = "LIVE"
	ModeDemo    Mode = "DEMO"
	ModeOffline Mode = "OFFLINE"
)

// SyncState is a read-only snapshot of the synchronization controller.
type SyncState struct {
	Current  *Sample  `json:"current,omitempty"`
	History  []Sample `json:"history"`
	Mode     Mode     `json:"mode"`
	Loading  bool     `json:"loading"`
	DemoData bool     `json:"demo_data"` // true when synthetic data is displayed
}
