package tracker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dk-butsuri/keihan-tracker/feed"
	"github.com/dk-butsuri/keihan-tracker/position"
)

// fakeSource serves canned feed payloads and counts fetches.
type fakeSource struct {
	stations  feed.StationList
	guide     feed.TransferGuide
	positions *feed.TrainPositionList
	schedule  *feed.StartTimeList

	positionsErr error
	scheduleErr  error

	scheduleFetches int
}

func (f *fakeSource) Stations(ctx context.Context) (feed.StationList, error) {
	return f.stations, nil
}

func (f *fakeSource) TransferGuide(ctx context.Context) (feed.TransferGuide, error) {
	return f.guide, nil
}

func (f *fakeSource) Positions(ctx context.Context) (*feed.TrainPositionList, error) {
	if f.positionsErr != nil {
		return nil, f.positionsErr
	}
	return f.positions, nil
}

func (f *fakeSource) Schedule(ctx context.Context) (*feed.StartTimeList, error) {
	f.scheduleFetches++
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	return f.schedule, nil
}

// networkStations covers the whole numbering: trunk, nakanoshima, katano
// and uji.
func networkStations() feed.StationList {
	add := func(dst map[string]feed.MultiLang, from, to int) {
		for n := from; n <= to; n++ {
			dst[fmt.Sprintf("KH%02d", n)] = feed.MultiLang{JA: fmt.Sprintf("駅%02d", n)}
		}
	}
	main := map[string]feed.MultiLang{}
	add(main, 1, 42)
	naka := map[string]feed.MultiLang{}
	add(naka, 51, 54)
	katano := map[string]feed.MultiLang{}
	add(katano, 61, 67)
	uji := map[string]feed.MultiLang{}
	add(uji, 71, 77)
	return feed.StationList{
		string(position.LineMain):        {Stations: main},
		string(position.LineNakanoshima): {Stations: naka},
		string(position.LineKatano):      {Stations: katano},
		string(position.LineUji):         {Stations: uji},
	}
}

func stamp(t time.Time) feed.Timestamp { return feed.Timestamp{Time: t} }

func expressStops() []feed.DiaStation {
	return []feed.DiaStation{
		{StationNumber: "011", StationDepTime: "-"},
		{StationNumber: "041", StationDepTime: "09:05"},
		{StationNumber: "211", StationDepTime: "09:30"},
		{StationNumber: "281", StationDepTime: "09:40"},
		{StationNumber: "421", StationDepTime: "10:00"},
	}
}

func newTestSource(at time.Time) *fakeSource {
	return &fakeSource{
		stations: networkStations(),
		guide:    feed.TransferGuide{},
		positions: &feed.TrainPositionList{
			FileCreatedTime: stamp(at),
			LocationObjects: []feed.LocationObject{
				{
					LocationCol: 3, LocationRow: 1, TrainDirection: 0,
					TrainInfoObjects: []feed.TrainInfo{{
						WdfBlockNo:        5001,
						CarsOfTrain:       8,
						DelayMinutes:      "約10分",
						DestStationNumber: 42,
						LastPassStation:   41,
						TrainNumber:       "A1001Z",
						TrainTypeJp:       "特急",
					}},
				},
			},
		},
		schedule: &feed.StartTimeList{
			FileCreatedTime: stamp(at),
			TrainInfo: []feed.ScheduleTrain{
				{WdfBlockNo: 5001, TrainCar: "8", PremiumCar: 1, DiaStationInfoObjects: expressStops()},
				{WdfBlockNo: 6001, TrainCar: "7", DiaStationInfoObjects: expressStops()},
			},
		},
	}
}

func newTestTracker(src *fakeSource, now time.Time) *Tracker {
	tr := New(src)
	tr.now = func() time.Time { return now }
	return tr
}

func TestPollMergesLiveAndSchedule(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	trk := newTestTracker(src, at)

	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}

	if got := trk.TrainCount(); got != 2 {
		t.Fatalf("TrainCount = %d, want 2", got)
	}
	if !trk.ServiceDay().Equal(time.Date(2025, 10, 3, 0, 0, 0, 0, time.Local)) {
		t.Errorf("ServiceDay = %v", trk.ServiceDay())
	}

	live := trk.Train(5001)
	if live == nil || live.State != StateActive {
		t.Fatalf("train 5001 should be active, got %+v", live)
	}
	if live.Category() != CategoryLimitedExpress {
		t.Errorf("category = %s, want %s", live.Category(), CategoryLimitedExpress)
	}
	if live.Direction() != position.DirectionUp {
		t.Errorf("direction = %s, want up", live.Direction())
	}
	if live.Number != "A1001Z" || live.Formation != 8 || !live.HasPremiumCar {
		t.Errorf("identity fields wrong: %+v", live)
	}
	if live.Destination == nil || live.Destination.Number != 42 {
		t.Errorf("destination wrong: %+v", live.Destination)
	}
	if live.DelayMinutes() != 10 {
		t.Errorf("delay = %d, want 10", live.DelayMinutes())
	}
	if live.Active.LastPassed == nil || live.Active.LastPassed.Number != 41 {
		t.Errorf("last passed wrong: %+v", live.Active.LastPassed)
	}
	if len(live.Route) != 5 {
		t.Errorf("route has %d events, want 5", len(live.Route))
	}

	shell := trk.Train(6001)
	if shell == nil || shell.State != StateScheduled {
		t.Fatalf("train 6001 should be scheduled, got %+v", shell)
	}
	if shell.Status(at) != StateScheduled {
		t.Errorf("status = %s, want scheduled", shell.Status(at))
	}
	// Inferred from the stop set: skips everything between the hub and
	// the boundary, so rapid express, running up.
	if shell.Category() != CategoryRapidExpress {
		t.Errorf("inferred category = %s, want %s", shell.Category(), CategoryRapidExpress)
	}
	if shell.Direction() != position.DirectionUp {
		t.Errorf("inferred direction = %s, want up", shell.Direction())
	}
	if shell.Destination == nil || shell.Destination.Number != 42 {
		t.Errorf("destination should come from the route, got %+v", shell.Destination)
	}
}

func TestPollCompletesVanishedTrains(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	trk := newTestTracker(src, at)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}

	src.positions.LocationObjects = nil
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	done := trk.Train(5001)
	if done == nil || done.State != StateCompleted {
		t.Fatalf("train 5001 should be completed, got %+v", done)
	}
	if done.Active != nil {
		t.Error("realtime fields should be stripped on completion")
	}
	// The feed-supplied category and direction survive completion.
	if done.Category() != CategoryLimitedExpress {
		t.Errorf("category after completion = %s, want %s", done.Category(), CategoryLimitedExpress)
	}
	if done.Direction() != position.DirectionUp {
		t.Errorf("direction after completion = %s, want up", done.Direction())
	}
	if done.DelayMinutes() != 0 {
		t.Errorf("delay after completion = %d, want 0", done.DelayMinutes())
	}

	// A later cycle must not resurrect it.
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("third poll: %v", err)
	}
	if trk.Train(5001).State != StateCompleted {
		t.Error("completed train flipped state on a later cycle")
	}
}

func TestPollPurgesPreviousServiceDay(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	trk := newTestTracker(src, at)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}

	next := at.AddDate(0, 0, 1)
	src.positions.FileCreatedTime = stamp(next)
	src.positions.LocationObjects = nil
	src.schedule = &feed.StartTimeList{
		FileCreatedTime: stamp(next),
		TrainInfo: []feed.ScheduleTrain{
			{WdfBlockNo: 7001, TrainCar: "6", DiaStationInfoObjects: expressStops()},
		},
	}
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if trk.Train(5001) != nil || trk.Train(6001) != nil {
		t.Error("previous day's trains should be purged")
	}
	fresh := trk.Train(7001)
	if fresh == nil || !fresh.Date.Equal(time.Date(2025, 10, 4, 0, 0, 0, 0, time.Local)) {
		t.Errorf("new day's train wrong: %+v", fresh)
	}
}

func TestPollSkipsUndecodableRecords(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	src.positions.LocationObjects = append(src.positions.LocationObjects, feed.LocationObject{
		LocationCol: 3, LocationRow: 200,
		TrainInfoObjects: []feed.TrainInfo{{WdfBlockNo: 9999, DestStationNumber: 1}},
	})
	trk := newTestTracker(src, at)

	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if tr := trk.Train(9999); tr != nil {
		t.Errorf("undecodable record created train %+v", tr)
	}
	if trk.Train(5001) == nil {
		t.Error("valid records should still merge")
	}
}

func TestPollFetchFailureLeavesTableUntouched(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	trk := newTestTracker(src, at)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	polled := trk.LastPolled()

	src.positionsErr = errors.New("boom")
	if err := trk.Poll(context.Background()); err == nil {
		t.Fatal("Poll should surface the fetch error")
	}

	if trk.Train(5001) == nil || trk.Train(5001).State != StateActive {
		t.Error("failed cycle mutated the train table")
	}
	if !trk.LastPolled().Equal(polled) {
		t.Error("failed cycle advanced the poll time")
	}
}

func TestScheduleCacheFreshness(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	now := at
	trk := New(src)
	trk.now = func() time.Time { return now }

	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if src.scheduleFetches != 1 {
		t.Fatalf("schedule fetches = %d, want 1", src.scheduleFetches)
	}

	// Within the freshness window the cached copy is reused.
	now = at.Add(30 * time.Minute)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if src.scheduleFetches != 1 {
		t.Errorf("schedule fetches = %d, want still 1", src.scheduleFetches)
	}

	// Past the window it is fetched again.
	now = at.Add(2 * time.Hour)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("third poll: %v", err)
	}
	if src.scheduleFetches != 2 {
		t.Errorf("schedule fetches = %d, want 2", src.scheduleFetches)
	}
}

func TestScheduleRefetchOnServiceDayRollover(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	trk := newTestTracker(src, at)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if src.scheduleFetches != 1 {
		t.Fatalf("schedule fetches = %d, want 1", src.scheduleFetches)
	}

	// The cached copy is still fresh by age, but the position feed has
	// rolled over to the next service day.
	next := at.AddDate(0, 0, 1)
	src.positions.FileCreatedTime = stamp(next)
	src.schedule = &feed.StartTimeList{
		FileCreatedTime: stamp(next),
		TrainInfo: []feed.ScheduleTrain{
			{WdfBlockNo: 7001, TrainCar: "6", DiaStationInfoObjects: expressStops()},
		},
	}
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if src.scheduleFetches != 2 {
		t.Errorf("schedule fetches = %d, want 2 after rollover", src.scheduleFetches)
	}
	if trk.Train(7001) == nil {
		t.Error("new day's schedule should be applied")
	}
}

func TestReadersKeepCycleSnapshots(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	trk := newTestTracker(src, at)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}

	held := trk.Train(5001)
	heldDelay := held.DelayMinutes()

	// The next cycle changes the delay and then removes the train from
	// the live feed entirely.
	src.positions.LocationObjects[0].TrainInfoObjects[0].DelayMinutes = "約3分"
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	src.positions.LocationObjects = nil
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("third poll: %v", err)
	}

	// The pointer handed out after the first cycle still shows that
	// cycle, untouched by the later merges.
	if held.State != StateActive || held.Active == nil {
		t.Errorf("held snapshot mutated: %+v", held)
	}
	if held.DelayMinutes() != heldDelay {
		t.Errorf("held snapshot delay = %d, want %d", held.DelayMinutes(), heldDelay)
	}

	current := trk.Train(5001)
	if current == held {
		t.Fatal("later cycles should hand out fresh snapshots")
	}
	if current.State != StateCompleted || current.Active != nil {
		t.Errorf("current snapshot wrong: %+v", current)
	}
}

func TestConcurrentReadsDuringPolls(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	trk := newTestTracker(src, at)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if err := trk.Poll(context.Background()); err != nil {
				t.Errorf("poll %d: %v", i, err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		for _, tr := range trk.FindTrains() {
			// Route, realtime fields and the cached category are what
			// handlers read after releasing the lock.
			_ = len(tr.Route)
			_ = tr.Category()
			_ = tr.Direction()
			if tr.Active != nil {
				_ = tr.Active.DelayMinutes
			}
			_ = trk.NextStopStation(tr)
		}
	}
}

func TestPollKeepsRouteWhenRebuildFails(t *testing.T) {
	at := time.Date(2025, 10, 3, 9, 15, 0, 0, time.Local)
	src := newTestSource(at)
	trk := newTestTracker(src, at)
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if len(trk.Train(5001).Route) != 5 {
		t.Fatalf("precondition: route not built")
	}

	// Drop the origin marker so the rebuild fails the integrity check.
	src.schedule.TrainInfo[0].DiaStationInfoObjects = []feed.DiaStation{
		{StationNumber: "011", StationDepTime: "09:00"},
		{StationNumber: "421", StationDepTime: "10:00"},
	}
	now := at.Add(2 * time.Hour)
	trk.now = func() time.Time { return now }
	if err := trk.Poll(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if got := len(trk.Train(5001).Route); got != 5 {
		t.Errorf("route after failed rebuild has %d events, want the previous 5", got)
	}
}
