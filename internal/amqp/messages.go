package amqp

import (
	"encoding/json"
	"time"

	"finsight/internal/core"
)

// AlertMessage wraps an analysis alert for the queue. Consumers get the
// full alert payload; no database round-trip is needed on delivery.
type AlertMessage struct {
	Alert     core.Alert `json:"alert"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewAlertMessage(alert core.Alert) *AlertMessage {
	return &AlertMessage{
		Alert:     alert,
		Timestamp: time.Now(),
	}
}

func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
