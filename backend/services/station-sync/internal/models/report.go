package models

import "time"

// ReportType is what the user observed at the station.
type ReportType string

const (
	ReportWorking      ReportType = "WORKING"
	ReportNotWorking   ReportType = "NOT_WORKING"
	ReportOccupied     ReportType = "OCCUPIED"
	ReportSlowCharging ReportType = "SLOW_CHARGING"
)

// ReportRequest is submitted to the reports endpoint.
type ReportRequest struct {
	StationID   string     `json:"stationId"`
	ConnectorID string     `json:"connectorId,omitempty"`
	ReportType  ReportType `json:"reportType"`
	Comment     string     `json:"comment,omitempty"`
}

// Report as stored by the backend.
type Report struct {
	ID          string     `json:"id"`
	StationID   string     `json:"stationId"`
	ConnectorID string     `json:"connectorId,omitempty"`
	DeviceID    string     `json:"deviceId,omitempty"`
	ReportType  ReportType `json:"reportType"`
	Comment     string     `json:"comment,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ReportCount summarises reports for a station.
type ReportCount struct {
	StationID string `json:"stationId"`
	Count     int    `json:"count"`
}

// Preferences are stored server-side per device.
type Preferences struct {
	DeviceID       string         `json:"deviceId,omitempty"`
	Language       string         `json:"language,omitempty"`
	Theme          string         `json:"theme,omitempty"`
	Favorites      []string       `json:"favoriteStations"`
	FilterSettings FilterSettings `json:"filterSettings"`
}

// FilterSettings is the persisted map filter state.
type FilterSettings struct {
	ConnectorTypes []ConnectorType `json:"connectorTypes,omitempty"`
	MinPowerKW     float64         `json:"minPowerKw,omitempty"`
	MinReliability float64         `json:"minReliability,omitempty"`
	AvailableOnly  bool            `json:"availableOnly,omitempty"`
	NetworkIDs     []string        `json:"networkIds,omitempty"`
}
