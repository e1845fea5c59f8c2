package state

import (
	"testing"

	"github.com/jonboulle/clockwork"

	"chargemap/backend/services/station-sync/internal/models"
)

func intPtr(v int) *int { return &v }

func seeded() *StationState {
	s := NewStationState(clockwork.NewFakeClock())
	s.ReplaceStations([]models.Station{
		{
			ID: "st-1", Name: "Harbour", AvailableConnectors: 2, TotalConnectors: 2, ReliabilityScore: 90,
			Connectors: []models.Connector{
				{ID: "c-1", StationID: "st-1", Status: models.StatusAvailable},
				{ID: "c-2", StationID: "st-1", Status: models.StatusAvailable},
			},
		},
		{ID: "st-2", Name: "Old Town", AvailableConnectors: 1, TotalConnectors: 1},
	})
	return s
}

func TestReplaceStationsKeepsOrderAndDropsDuplicates(t *testing.T) {
	s := NewStationState(nil)
	s.ReplaceStations([]models.Station{{ID: "b"}, {ID: "a"}, {ID: "b", Name: "dup"}})

	got := s.Stations()
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" || got[0].Name != "" {
		t.Fatalf("unexpected stations %+v", got)
	}
}

func TestApplyStationStatusUpdatesCountsAndConnectors(t *testing.T) {
	s := seeded()

	ok := s.ApplyStationStatus("st-1", models.StationStatusUpdate{
		Connectors:       []models.ConnectorStatusUpdate{{ID: "c-2", Status: models.StatusOccupied}},
		LastStatusUpdate: "2024-05-01T10:00:00Z",
	})
	if !ok {
		t.Fatalf("expected update to apply")
	}

	st, _ := s.Station("st-1")
	if st.AvailableConnectors != 1 {
		t.Fatalf("expected derived available count 1, got %d", st.AvailableConnectors)
	}
	if st.Connectors[1].Status != models.StatusOccupied {
		t.Fatalf("expected connector c-2 occupied, got %s", st.Connectors[1].Status)
	}
	if st.LastStatusUpdate != "2024-05-01T10:00:00Z" {
		t.Fatalf("expected timestamp to update, got %q", st.LastStatusUpdate)
	}

	s.ApplyStationStatus("st-2", models.StationStatusUpdate{AvailableConnectors: intPtr(0)})
	st2, _ := s.Station("st-2")
	if st2.AvailableConnectors != 0 || st2.TotalConnectors != 1 {
		t.Fatalf("unexpected counts %+v", st2)
	}
}

func TestApplyStationStatusNormalizesUnknownStatus(t *testing.T) {
	s := seeded()
	s.ApplyStationStatus("st-1", models.StationStatusUpdate{
		Connectors: []models.ConnectorStatusUpdate{{ID: "c-1", Status: "EXPLODED"}},
	})
	st, _ := s.Station("st-1")
	if st.Connectors[0].Status != models.StatusUnknown {
		t.Fatalf("expected UNKNOWN, got %s", st.Connectors[0].Status)
	}
}

func TestApplyToUnknownStationIsIgnored(t *testing.T) {
	s := seeded()
	if s.ApplyStationStatus("missing", models.StationStatusUpdate{AvailableConnectors: intPtr(3)}) {
		t.Fatalf("unknown station must not be created by a live event")
	}
	if s.ApplyReliability("missing", models.ReliabilityUpdate{ReliabilityScore: 10}) {
		t.Fatalf("unknown station must not be created by a live event")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 stations, got %d", s.Len())
	}
}

func TestApplyReliabilityClamps(t *testing.T) {
	s := seeded()
	s.ApplyReliability("st-1", models.ReliabilityUpdate{ReliabilityScore: 140})
	st, _ := s.Station("st-1")
	if st.ReliabilityScore != 100 {
		t.Fatalf("expected clamp to 100, got %v", st.ReliabilityScore)
	}
}

func TestReadersReturnCopies(t *testing.T) {
	s := seeded()
	st, _ := s.Station("st-1")
	st.Connectors[0].Status = models.StatusOffline
	st.Name = "changed"

	again, _ := s.Station("st-1")
	if again.Name != "Harbour" || again.Connectors[0].Status != models.StatusAvailable {
		t.Fatalf("state mutated through returned copy: %+v", again)
	}
}

func TestAddAnomalyDeduplicatesAndFilters(t *testing.T) {
	s := seeded()
	s.AddAnomaly(models.Anomaly{ID: "an-1", StationID: "st-1", Type: models.AnomalyStatusFlapping})
	s.AddAnomaly(models.Anomaly{ID: "an-2", StationID: "st-2", Type: models.AnomalyReportSpike})
	s.AddAnomaly(models.Anomaly{ID: "an-1", StationID: "st-1", Type: models.AnomalyStatusFlapping, Resolved: true})

	all := s.Anomalies(false)
	if len(all) != 2 || all[0].ID != "an-2" {
		t.Fatalf("unexpected anomalies %+v", all)
	}
	open := s.Anomalies(true)
	if len(open) != 1 || open[0].ID != "an-2" {
		t.Fatalf("expected only unresolved an-2, got %+v", open)
	}
}
