package domain

import "encoding/json"

// Push message types broadcast on /ws.
const (
	MsgSensorData   = "sensor_data"
	MsgAlert        = "alert"
	MsgSystemStatus = "system_status"
	MsgConnection   = "connection"
	MsgPing         = "ping"
)

type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp Time            `json:"timestamp,omitempty"`
	Greeting  string          `json:"message,omitempty"`
	ClientID  string          `json:"client_id,omitempty"`
}

// RefetchTrigger reports whether the message should cause the client to
// pull fresh state. Payloads are never applied directly; the REST flow
// stays the single source of truth.
func (m Message) RefetchTrigger() bool {
	return m.Type == MsgSensorData || m.Type == MsgAlert
}
