package channel

import "encoding/json"

// State is the connection state of the push channel.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting // entered from CONNECTED on transport loss
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "DISCONNECTED"
	}
}

// Kind identifies a connection-state notification.
type Kind string

const (
	KindConnected    Kind = "connected"
	KindDisconnected Kind = "disconnected"
	KindError        Kind = "error"
	KindExhausted    Kind = "exhausted" // reconnect attempts used up; channel stays down
)

// Notification is delivered to state observers.
type Notification struct {
	Kind    Kind
	Session string
	Attempt int
	Err     error
}

// Handler receives the raw payload of one inbound event.
type Handler func(data json.RawMessage)

// Observer receives connection-state notifications.
type Observer func(Notification)

// EventBatteryData is the inbound telemetry event name.
const EventBatteryData = "battery-data"

// envelope is the frame format on the wire: {"type": "...", "data": ...}.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
