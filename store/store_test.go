package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dk-butsuri/keihan-tracker/tracker"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return s
}

func TestSaveSnapshotAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 10, 3, 0, 0, 0, 0, time.Local)

	dest := &tracker.Station{Number: 42}
	active := &tracker.Train{
		BlockNo:     5001,
		Date:        day,
		State:       tracker.StateActive,
		Number:      "A1001Z",
		Destination: dest,
		Formation:   8,
		Active:      &tracker.ActiveInfo{Col: 3, Row: 1, DelayMinutes: 4},
	}
	shell := &tracker.Train{
		BlockNo:       6001,
		Date:          day,
		State:         tracker.StateScheduled,
		HasPremiumCar: true,
	}

	first := time.Date(2025, 10, 3, 9, 0, 0, 0, time.UTC)
	id1, err := s.SaveSnapshot(ctx, first, day, []*tracker.Train{active, shell})
	if err != nil {
		t.Fatalf("save first snapshot: %v", err)
	}
	if id1 == "" {
		t.Fatal("snapshot id should not be empty")
	}

	active.State = tracker.StateCompleted
	active.Active = nil
	id2, err := s.SaveSnapshot(ctx, first.Add(30*time.Second), day, []*tracker.Train{active, shell})
	if err != nil {
		t.Fatalf("save second snapshot: %v", err)
	}
	if id2 == id1 {
		t.Error("snapshot ids should be unique")
	}

	history, err := s.TrainHistory(ctx, 5001, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d rows, want 2", len(history))
	}

	// Newest first: the completed row, then the active one.
	latest, earlier := history[0], history[1]
	if latest.State != "completed" || earlier.State != "active" {
		t.Errorf("history order wrong: %s then %s", latest.State, earlier.State)
	}
	if latest.SnapshotID != id2 || earlier.SnapshotID != id1 {
		t.Errorf("snapshot ids wrong: %s / %s", latest.SnapshotID, earlier.SnapshotID)
	}
	if earlier.DelayMinutes != 4 || latest.DelayMinutes != 0 {
		t.Errorf("delay columns wrong: %d / %d", earlier.DelayMinutes, latest.DelayMinutes)
	}
	if earlier.LocationCol == nil || *earlier.LocationCol != 3 {
		t.Errorf("active row should carry a location, got %+v", earlier)
	}
	if latest.LocationCol != nil {
		t.Errorf("completed row should not carry a location, got %+v", latest)
	}
	if earlier.Destination == nil || *earlier.Destination != 42 {
		t.Errorf("destination not archived: %+v", earlier)
	}
	if !earlier.PolledAt.Equal(first) {
		t.Errorf("polled at = %v, want %v", earlier.PolledAt, first)
	}
}

func TestTrainHistoryLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 10, 3, 0, 0, 0, 0, time.Local)
	train := &tracker.Train{BlockNo: 7001, Date: day, State: tracker.StateScheduled}

	base := time.Date(2025, 10, 3, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := s.SaveSnapshot(ctx, base.Add(time.Duration(i)*time.Minute), day, []*tracker.Train{train}); err != nil {
			t.Fatalf("save snapshot %d: %v", i, err)
		}
	}

	history, err := s.TrainHistory(ctx, 7001, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("history has %d rows, want 3", len(history))
	}
}

func TestTrainHistoryUnknownBlock(t *testing.T) {
	s := newTestStore(t)

	history, err := s.TrainHistory(context.Background(), 1234, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("unknown block should have no history, got %d rows", len(history))
	}
}
