package models

// SystemStatus mirrors the backend's /api/battery/status payload.
type SystemStatus struct {
	MQTT struct {
		Connected bool   `json:"connected"`
		Broker    string `json:"broker"`
		Topic     string `json:"topic"`
	} `json:"mqtt"`
	Firebase struct {
		Connected bool   `json:"connected"`
		Database  string `json:"database"`
	} `json:"firebase"`
	WebSocket struct {
		Active  bool `json:"active"`
		Clients int  `json:"clients"`
	} `json:"websocket"`
}
