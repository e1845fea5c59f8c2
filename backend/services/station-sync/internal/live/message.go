package live

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types pushed by the backend.
const (
	TypeStationStatus     = "STATION_STATUS"
	TypeReliabilityUpdate = "RELIABILITY_UPDATE"
	TypeAnomalyDetected   = "ANOMALY_DETECTED"
	TypeMetricsUpdate     = "METRICS_UPDATE"
)

// Message is the live channel envelope.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	StationID string          `json:"stationId"`
}

// ParseMessage decodes a frame into a Message. Frames without a type are rejected.
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("live: decode envelope: %w", err)
	}
	if msg.Type == "" {
		return Message{}, errors.New("live: message without type")
	}
	return msg, nil
}

// Decode convenience helper for payloads.
func Decode[T any](payload json.RawMessage) (T, error) {
	var target T
	if len(payload) == 0 {
		return target, errors.New("live: empty payload")
	}
	if err := json.Unmarshal(payload, &target); err != nil {
		var zero T
		return zero, err
	}
	return target, nil
}
