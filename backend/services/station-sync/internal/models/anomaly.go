package models

import "time"

// AnomalyType values produced by backend detection.
type AnomalyType string

const (
	AnomalyStatusFlapping    AnomalyType = "STATUS_FLAPPING"
	AnomalyExtendedDowntime  AnomalyType = "EXTENDED_DOWNTIME"
	AnomalyConnectorMismatch AnomalyType = "CONNECTOR_MISMATCH"
	AnomalyPatternDeviation  AnomalyType = "PATTERN_DEVIATION"
	AnomalyReportSpike       AnomalyType = "REPORT_SPIKE"
)

// Severity of an anomaly.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Anomaly is only consumed here, never created locally.
type Anomaly struct {
	ID            string      `json:"id"`
	StationID     string      `json:"stationId"`
	StationName   string      `json:"stationName,omitempty"`
	Type          AnomalyType `json:"anomalyType"`
	Description   string      `json:"description,omitempty"`
	Severity      Severity    `json:"severity"`
	SeverityScore float64     `json:"severityScore"`
	Resolved      bool        `json:"isResolved"`
	DetectedAt    time.Time   `json:"detectedAt"`
	ResolvedAt    *time.Time  `json:"resolvedAt,omitempty"`
}
