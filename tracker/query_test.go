package tracker

import (
	"testing"
	"time"

	"github.com/dk-butsuri/keihan-tracker/position"
)

// newQueryTracker builds a tracker with a hand-assembled train table: an
// active limited express, a scheduled local and a completed train.
func newQueryTracker(t *testing.T) (*Tracker, time.Time) {
	t.Helper()
	now := time.Date(2025, 10, 3, 9, 0, 0, 0, time.Local)
	day := time.Date(2025, 10, 3, 0, 0, 0, 0, time.Local)

	trk := New(nil)
	trk.now = func() time.Time { return now }
	trk.registry = newTestRegistry(1, 2, 4, 21, 40, 41, 42)
	trk.serviceDate = day

	active := &Train{
		BlockNo:       100,
		Date:          day,
		State:         StateActive,
		Number:        "A1001Z",
		Destination:   trk.registry.Station(42),
		HasPremiumCar: true,
		category:      CategoryLimitedExpress,
		direction:     position.DirectionUp,
		Active:        &ActiveInfo{Col: 3, Row: 4, DelayMinutes: 5},
	}
	scheduled := &Train{
		BlockNo:     200,
		Date:        day,
		State:       StateScheduled,
		Destination: trk.registry.Station(1),
		category:    CategoryLocal,
		direction:   position.DirectionDown,
		inferred:    true,
		Route: []StopEvent{
			{Station: trk.registry.Station(42), IsStart: true, IsStop: true},
			{Station: trk.registry.Station(1), Time: now.Add(time.Hour), IsStop: true, IsFinal: true},
		},
	}
	completed := &Train{
		BlockNo:     300,
		Date:        day,
		State:       StateCompleted,
		Destination: trk.registry.Station(1),
		category:    CategoryExpress,
		direction:   position.DirectionDown,
	}
	trk.trains = map[int]*Train{100: active, 200: scheduled, 300: completed}
	return trk, now
}

func TestFindTrains(t *testing.T) {
	trk, _ := newQueryTracker(t)

	blockNos := func(trains []*Train) []int {
		out := make([]int, 0, len(trains))
		for _, tr := range trains {
			out = append(out, tr.BlockNo)
		}
		return out
	}
	equal := func(a, b []int) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	tests := []struct {
		name    string
		filters []TrainFilter
		want    []int
	}{
		{
			name: "no filters returns everything in block order",
			want: []int{100, 200, 300},
		},
		{
			name:    "by status active",
			filters: []TrainFilter{WithStatus(StateActive)},
			want:    []int{100},
		},
		{
			name:    "by status scheduled",
			filters: []TrainFilter{WithStatus(StateScheduled)},
			want:    []int{200},
		},
		{
			name:    "by status completed",
			filters: []TrainFilter{WithStatus(StateCompleted)},
			want:    []int{300},
		},
		{
			name:    "by category",
			filters: []TrainFilter{WithCategory(CategoryLimitedExpress)},
			want:    []int{100},
		},
		{
			name:    "by destination",
			filters: []TrainFilter{WithDestination(1)},
			want:    []int{200, 300},
		},
		{
			name:    "direction only constrains active trains",
			filters: []TrainFilter{WithDirection(position.DirectionUp)},
			want:    []int{100, 200, 300},
		},
		{
			name:    "direction excludes active trains heading the other way",
			filters: []TrainFilter{WithDirection(position.DirectionDown)},
			want:    []int{200, 300},
		},
		{
			name:    "by block number",
			filters: []TrainFilter{WithBlockNo(200)},
			want:    []int{200},
		},
		{
			name:    "by train number",
			filters: []TrainFilter{WithNumber("A1001Z")},
			want:    []int{100},
		},
		{
			name:    "by premium car",
			filters: []TrainFilter{WithPremiumCar(true)},
			want:    []int{100},
		},
		{
			name:    "by minimum delay",
			filters: []TrainFilter{WithMinDelay(3)},
			want:    []int{100},
		},
		{
			name:    "by maximum delay counts idle trains as on time",
			filters: []TrainFilter{WithMaxDelay(0)},
			want:    []int{200, 300},
		},
		{
			name:    "filters are a conjunction",
			filters: []TrainFilter{WithStatus(StateActive), WithMinDelay(3), WithCategory(CategoryLimitedExpress)},
			want:    []int{100},
		},
		{
			name:    "conjunction with no survivors",
			filters: []TrainFilter{WithStatus(StateActive), WithCategory(CategoryLocal)},
			want:    []int{},
		},
		{
			name:    "stopping only constrains active trains",
			filters: []TrainFilter{WithStopping(true)},
			want:    []int{100, 200, 300},
		},
		{
			name:    "special flag passes non-active trains through",
			filters: []TrainFilter{WithSpecial(true)},
			want:    []int{200, 300},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := blockNos(trk.FindTrains(tt.filters...))
			if !equal(got, tt.want) {
				t.Errorf("FindTrains = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMostDelayed(t *testing.T) {
	trk, _ := newQueryTracker(t)
	best := trk.MostDelayed()
	if best == nil || best.BlockNo != 100 {
		t.Fatalf("MostDelayed = %+v, want block 100", best)
	}
	if got := trk.MaxDelayMinutes(); got != 5 {
		t.Errorf("MaxDelayMinutes = %d, want 5", got)
	}

	empty := New(nil)
	if empty.MostDelayed() != nil {
		t.Error("MostDelayed on an empty table should be nil")
	}
	if empty.MaxDelayMinutes() != 0 {
		t.Error("MaxDelayMinutes on an empty table should be 0")
	}
}
