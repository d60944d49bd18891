package tracker

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/dk-butsuri/keihan-tracker/feed"
	"github.com/dk-butsuri/keihan-tracker/position"
)

// Source supplies the four Keihan feeds for one poll cycle. The HTTP
// client in package feed implements it; tests substitute fakes.
type Source interface {
	Stations(ctx context.Context) (feed.StationList, error)
	TransferGuide(ctx context.Context) (feed.TransferGuide, error)
	Positions(ctx context.Context) (*feed.TrainPositionList, error)
	Schedule(ctx context.Context) (*feed.StartTimeList, error)
}

// scheduleMaxAge is the freshness window for the schedule feed: within it
// the cached copy is reused for the cycle.
const scheduleMaxAge = time.Hour

// Tracker owns the train table and the station registry. One poll cycle
// runs to completion before the next begins. A cycle mutates fresh
// clones of the table's trains and swaps the table as its last step, so
// every *Train a reader obtains is a frozen snapshot of one fully
// merged cycle and stays valid after the lock is released.
type Tracker struct {
	mu       sync.RWMutex
	source   Source
	registry *Registry
	trains   map[int]*Train

	serviceDate     time.Time
	schedule        *feed.StartTimeList
	scheduleFetched time.Time
	lastPolled      time.Time

	now func() time.Time
}

func New(source Source) *Tracker {
	return &Tracker{
		source:   source,
		registry: NewRegistry(),
		trains:   map[int]*Train{},
		now:      time.Now,
	}
}

// Poll runs one cycle: fetch, purge, complete, merge. Fetch failures
// abort the cycle before any mutation, leaving the previous table
// visible; the next cycle retries from scratch.
func (t *Tracker) Poll(ctx context.Context) error {
	var stations feed.StationList
	var guide feed.TransferGuide
	if t.registry.Len() == 0 {
		var err error
		if stations, err = t.source.Stations(ctx); err != nil {
			return fmt.Errorf("station feed: %w", err)
		}
		if guide, err = t.source.TransferGuide(ctx); err != nil {
			return fmt.Errorf("transfer feed: %w", err)
		}
	}

	positions, err := t.source.Positions(ctx)
	if err != nil {
		return fmt.Errorf("position feed: %w", err)
	}
	date := ServiceDate(positions.FileCreatedTime.Time)

	schedule := t.schedule
	refreshed := schedule == nil ||
		!ServiceDate(schedule.FileCreatedTime.Time).Equal(date) ||
		t.now().Sub(t.scheduleFetched) > scheduleMaxAge
	if refreshed {
		if schedule, err = t.source.Schedule(ctx); err != nil {
			return fmt.Errorf("schedule feed: %w", err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if stations != nil {
		t.registry.populate(stations)
		t.registry.enrichTransfers(guide)
	}
	t.serviceDate = date

	// The cycle works on clones and publishes them in one swap below.
	// Trains handed out by earlier cycles are never touched again, so
	// readers holding them cannot observe a half-merged cycle. Trains
	// created for an earlier service day are dropped here.
	next := make(map[int]*Train, len(t.trains))
	for block, tr := range t.trains {
		if tr.Date.Equal(date) {
			next[block] = tr.clone()
		}
	}

	live := map[int]bool{}
	for _, loc := range positions.LocationObjects {
		for _, ti := range loc.TrainInfoObjects {
			live[ti.WdfBlockNo] = true
		}
	}
	for _, tr := range next {
		if tr.State == StateActive && !live[tr.BlockNo] {
			tr.complete()
		}
	}

	for i := range positions.LocationObjects {
		loc := &positions.LocationObjects[i]
		dir := position.DirectionDown
		if loc.TrainDirection == 0 {
			dir = position.DirectionUp
		}
		for j := range loc.TrainInfoObjects {
			if err := t.mergeLive(next, date, loc, &loc.TrainInfoObjects[j], dir); err != nil {
				log.Printf("skipping live record for train %d: %v", loc.TrainInfoObjects[j].WdfBlockNo, err)
			}
		}
	}

	if refreshed {
		t.schedule = schedule
		t.scheduleFetched = t.now()
	}
	t.applySchedule(next, schedule, date)
	t.trains = next
	t.lastPolled = t.now()
	return nil
}

var nonDigit = regexp.MustCompile(`\D`)

// mergeLive creates or refreshes one Active train from a live record.
// Identity is preserved across cycles; only mutable fields change. A
// record with an undecodable grid position is skipped without aborting
// the cycle.
func (t *Tracker) mergeLive(table map[int]*Train, date time.Time, loc *feed.LocationObject, ti *feed.TrainInfo, dir position.Direction) error {
	if _, err := position.Decode(loc.LocationCol, loc.LocationRow); err != nil {
		return err
	}

	tr := table[ti.WdfBlockNo]
	if tr == nil {
		tr = &Train{BlockNo: ti.WdfBlockNo, Date: date}
		table[ti.WdfBlockNo] = tr
	}
	if tr.Active == nil {
		tr.Active = &ActiveInfo{}
	}
	tr.State = StateActive

	typeName, special := ti.TrainType()
	tr.Number = ti.TrainNumber
	tr.Destination = t.registry.Station(ti.DestStationNumber)
	tr.category = Category(typeName)
	tr.direction = dir
	tr.inferred = false

	a := tr.Active
	a.Col = loc.LocationCol
	a.Row = loc.LocationRow
	a.Cars = ti.CarsOfTrain
	a.IsSpecial = special
	a.DelayText = ti.DelayText()
	a.DelayMinutes = 0
	if ti.DelayMinutes != "" {
		if v, err := strconv.Atoi(nonDigit.ReplaceAllString(ti.DelayMinutes, "")); err == nil {
			a.DelayMinutes = v
		}
	}
	if ti.LastPassStation != feed.LastPassUnknown && ti.LastPassStation != 0 {
		a.LastPassed = t.registry.Station(ti.LastPassStation)
	}
	return nil
}

// applySchedule merges schedule records by block number. Unknown blocks
// get a bare Scheduled shell; formation, premium-car flag and the route
// are (re)populated regardless of the train's current variant. A rebuild
// that fails the route integrity check leaves the previous sequence in
// place.
func (t *Tracker) applySchedule(table map[int]*Train, schedule *feed.StartTimeList, date time.Time) {
	for i := range schedule.TrainInfo {
		rec := &schedule.TrainInfo[i]
		tr := table[rec.WdfBlockNo]
		if tr == nil {
			tr = &Train{BlockNo: rec.WdfBlockNo, Date: date, State: StateScheduled}
			table[rec.WdfBlockNo] = tr
		}
		if f, err := strconv.Atoi(rec.TrainCar); err == nil {
			tr.Formation = f
		}
		tr.HasPremiumCar = rec.PremiumCar != 0

		route, err := BuildRoute(t.registry, date, rec.WdfBlockNo, rec.DiaStationInfoObjects)
		if err != nil {
			log.Printf("keeping previous route: %v", err)
			continue
		}
		tr.Route = route
		if tr.Destination == nil {
			if fin, ok := tr.FinalStop(); ok {
				tr.Destination = fin.Station
			}
		}
		// Recompute cached inference against the new route; frozen
		// feed-supplied values stay untouched.
		if tr.State != StateActive && (tr.category == "" || tr.inferred) {
			tr.category = InferCategory(tr.Route, tr.Number)
			tr.direction = InferDirection(tr.Route)
			tr.inferred = true
		}
	}
}

// ServiceDay returns the operating date of the last merged cycle.
func (t *Tracker) ServiceDay() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.serviceDate
}

// LastPolled returns when the last cycle finished merging, zero before
// the first successful cycle.
func (t *Tracker) LastPolled() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastPolled
}

// TrainCount returns the number of trains in the table.
func (t *Tracker) TrainCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.trains)
}

// Train returns the train with the given block number, nil if unknown.
func (t *Tracker) Train(blockNo int) *Train {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trains[blockNo]
}

// Stations returns the station registry's contents ordered by number.
func (t *Tracker) Stations() []*Station {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.All()
}

// Station returns one station by number, nil if unknown.
func (t *Tracker) Station(number int) *Station {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.Station(number)
}
