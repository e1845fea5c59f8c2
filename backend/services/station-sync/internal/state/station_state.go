package state

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"chargemap/backend/services/station-sync/internal/models"
)

const maxAnomalies = 200

// StationState keeps the in-memory station view shared by the live channel and snapshot refreshes.
type StationState struct {
	mu        sync.RWMutex
	order     []string
	stations  map[string]*models.Station
	anomalies []models.Anomaly
	updatedAt time.Time
	clock     clockwork.Clock
}

// NewStationState returns state store.
func NewStationState(clock clockwork.Clock) *StationState {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StationState{
		stations: make(map[string]*models.Station),
		clock:    clock,
	}
}

// ReplaceStations swaps in a full snapshot, keeping input order.
func (s *StationState) ReplaceStations(stations []models.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(stations))
	s.stations = make(map[string]*models.Station, len(stations))
	for _, st := range stations {
		if _, dup := s.stations[st.ID]; dup {
			continue
		}
		copied := st.Clone()
		s.stations[st.ID] = &copied
		s.order = append(s.order, st.ID)
	}
	s.updatedAt = s.clock.Now()
}

// ApplyStationStatus merges a live status change. Unknown stations are ignored
// until the next snapshot brings them in.
func (s *StationState) ApplyStationStatus(stationID string, update models.StationStatusUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[stationID]
	if !ok {
		return false
	}
	if update.AvailableConnectors != nil {
		st.AvailableConnectors = *update.AvailableConnectors
	}
	if update.TotalConnectors != nil {
		st.TotalConnectors = *update.TotalConnectors
	}
	for _, cu := range update.Connectors {
		for i := range st.Connectors {
			if st.Connectors[i].ID != cu.ID {
				continue
			}
			st.Connectors[i].Status = cu.Status.Normalize()
			if cu.LastStatusUpdate != "" {
				st.Connectors[i].LastStatusUpdate = cu.LastStatusUpdate
			}
		}
	}
	if update.AvailableConnectors == nil && len(update.Connectors) > 0 && len(st.Connectors) > 0 {
		st.AvailableConnectors = countAvailable(st.Connectors)
	}
	if update.LastStatusUpdate != "" {
		st.LastStatusUpdate = update.LastStatusUpdate
	}
	s.updatedAt = s.clock.Now()
	return true
}

// ApplyReliability sets a station's reliability score, clamped to 0..100.
func (s *StationState) ApplyReliability(stationID string, update models.ReliabilityUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[stationID]
	if !ok {
		return false
	}
	score := update.ReliabilityScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	st.ReliabilityScore = score
	s.updatedAt = s.clock.Now()
	return true
}

// AddAnomaly records a detected anomaly, replacing an earlier one with the same id.
// Only the most recent anomalies are kept.
func (s *StationState) AddAnomaly(anomaly models.Anomaly) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.anomalies {
		if anomaly.ID != "" && s.anomalies[i].ID == anomaly.ID {
			s.anomalies[i] = anomaly
			s.updatedAt = s.clock.Now()
			return
		}
	}
	s.anomalies = append([]models.Anomaly{anomaly}, s.anomalies...)
	if len(s.anomalies) > maxAnomalies {
		s.anomalies = s.anomalies[:maxAnomalies]
	}
	s.updatedAt = s.clock.Now()
}

// Stations returns a copy of all stations in snapshot order.
func (s *StationState) Stations() []models.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Station, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.stations[id].Clone())
	}
	return result
}

// Station returns a copy of one station.
func (s *StationState) Station(id string) (models.Station, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[id]
	if !ok {
		return models.Station{}, false
	}
	return st.Clone(), true
}

// Anomalies returns recorded anomalies, newest first. With unresolvedOnly resolved ones are skipped.
func (s *StationState) Anomalies(unresolvedOnly bool) []models.Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Anomaly, 0, len(s.anomalies))
	for _, a := range s.anomalies {
		if unresolvedOnly && a.Resolved {
			continue
		}
		result = append(result, a)
	}
	return result
}

// UpdatedAt returns the time of the last mutation.
func (s *StationState) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Len returns the number of stations held.
func (s *StationState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func countAvailable(connectors []models.Connector) int {
	n := 0
	for _, c := range connectors {
		if c.Status == models.StatusAvailable {
			n++
		}
	}
	return n
}
