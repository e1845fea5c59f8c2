package models

// ConnectorType enumerates plug standards.
type ConnectorType string

const (
	ConnectorCCS     ConnectorType = "CCS"
	ConnectorCHAdeMO ConnectorType = "CHADEMO"
	ConnectorType2   ConnectorType = "TYPE_2"
	ConnectorType1   ConnectorType = "TYPE_1"
	ConnectorSchuko  ConnectorType = "SCHUKO"
	ConnectorTesla   ConnectorType = "TESLA"
)

// CurrentType is AC or DC.
type CurrentType string

const (
	CurrentAC CurrentType = "AC"
	CurrentDC CurrentType = "DC"
)

// ConnectorStatus values reported by the backend.
type ConnectorStatus string

const (
	StatusAvailable ConnectorStatus = "AVAILABLE"
	StatusOccupied  ConnectorStatus = "OCCUPIED"
	StatusOffline   ConnectorStatus = "OFFLINE"
	StatusUnknown   ConnectorStatus = "UNKNOWN"
)

// Valid reports whether t is a known connector type.
func (t ConnectorType) Valid() bool {
	switch t {
	case ConnectorCCS, ConnectorCHAdeMO, ConnectorType2, ConnectorType1, ConnectorSchuko, ConnectorTesla:
		return true
	}
	return false
}

// Normalize maps unrecognised statuses to UNKNOWN.
func (s ConnectorStatus) Normalize() ConnectorStatus {
	switch s {
	case StatusAvailable, StatusOccupied, StatusOffline:
		return s
	}
	return StatusUnknown
}

// Connector belongs to a station by StationID.
type Connector struct {
	ID               string          `json:"id"`
	StationID        string          `json:"stationId"`
	Type             ConnectorType   `json:"type"`
	PowerKW          float64         `json:"powerKw"`
	CurrentType      CurrentType     `json:"currentType"`
	Status           ConnectorStatus `json:"status"`
	LastStatusUpdate string          `json:"lastStatusUpdate,omitempty"`
}

// ConnectorStatusUpdate carries a single connector change inside a STATION_STATUS event.
type ConnectorStatusUpdate struct {
	ID               string          `json:"id"`
	Status           ConnectorStatus `json:"status"`
	LastStatusUpdate string          `json:"lastStatusUpdate,omitempty"`
}
