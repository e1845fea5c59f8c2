package models

import "time"

// Station is a charging location as served by the stations API.
type Station struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	NetworkID           string      `json:"networkId,omitempty"`
	NetworkName         string      `json:"networkName,omitempty"`
	OperatorID          string      `json:"operatorId,omitempty"`
	OperatorName        string      `json:"operatorName,omitempty"`
	Latitude            float64     `json:"latitude"`
	Longitude           float64     `json:"longitude"`
	Address             string      `json:"address,omitempty"`
	City                string      `json:"city,omitempty"`
	PostalCode          string      `json:"postalCode,omitempty"`
	Country             string      `json:"country,omitempty"`
	ReliabilityScore    float64     `json:"reliabilityScore"`
	AvailableConnectors int         `json:"availableConnectors"`
	TotalConnectors     int         `json:"totalConnectors"`
	LastStatusUpdate    string      `json:"lastStatusUpdate,omitempty"`
	Connectors          []Connector `json:"connectors,omitempty"`
}

// Clone returns a deep copy so callers can't mutate shared state.
func (s Station) Clone() Station {
	if s.Connectors != nil {
		connectors := make([]Connector, len(s.Connectors))
		copy(connectors, s.Connectors)
		s.Connectors = connectors
	}
	return s
}

// StationFilter narrows the station list on the backend.
type StationFilter struct {
	NetworkID      string
	ConnectorType  ConnectorType
	MinPowerKW     float64
	MinReliability float64
	AvailableOnly  bool
	City           string
}

// StationReliability holds backend-computed reliability metrics for one station.
type StationReliability struct {
	StationID          string    `json:"stationId"`
	StationName        string    `json:"stationName,omitempty"`
	ReliabilityScore   float64   `json:"reliabilityScore"`
	UptimePercentage   float64   `json:"uptimePercentage"`
	TotalReports       int       `json:"totalReports"`
	SuccessfulSessions int       `json:"successfulSessions"`
	FailedSessions     int       `json:"failedSessions"`
	AvgDowntimeMinutes float64   `json:"averageDowntimeMinutes"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// StationStatusUpdate is the payload of a STATION_STATUS live event.
// Nil counters mean "unchanged".
type StationStatusUpdate struct {
	AvailableConnectors *int                    `json:"availableConnectors,omitempty"`
	TotalConnectors     *int                    `json:"totalConnectors,omitempty"`
	Connectors          []ConnectorStatusUpdate `json:"connectors,omitempty"`
	LastStatusUpdate    string                  `json:"lastStatusUpdate,omitempty"`
}

// ReliabilityUpdate is the payload of a RELIABILITY_UPDATE live event.
type ReliabilityUpdate struct {
	ReliabilityScore float64 `json:"reliabilityScore"`
}
