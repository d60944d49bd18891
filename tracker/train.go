package tracker

import (
	"sort"
	"time"

	"github.com/dk-butsuri/keihan-tracker/feed"
	"github.com/dk-butsuri/keihan-tracker/position"
)

// State tags the operational facet of a train. A train is exactly one
// variant at a time; only Active trains carry realtime fields.
type State int

const (
	StateActive State = iota
	StateScheduled
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return "scheduled"
	}
}

// Category is a service tier. Values match the Japanese type names the
// live feed publishes.
type Category string

const (
	CategoryLocal                Category = "普通"
	CategorySemiExpress          Category = "区間急行"
	CategorySubExpress           Category = "準急"
	CategoryCommuterSubExpress   Category = "通勤準急"
	CategoryExpress              Category = "急行"
	CategoryCommuterExpress      Category = "通勤急行"
	CategoryMidnightExpress      Category = "深夜急行"
	CategoryRapidExpress         Category = "快速急行"
	CategoryCommuterRapidExpress Category = "通勤快急"
	CategoryLimitedExpress       Category = "特急"
	CategoryLiner                Category = "ライナー"
	CategoryRapidLimitedExpress  Category = "快速特急 洛楽"
	CategoryExtra                Category = "臨時列車"
)

// StopEvent is one entry in a train's route. A zero Time means the time
// is unknown: the origin stop and pass-throughs carry none. IsStop false
// means the train passes the station without stopping.
type StopEvent struct {
	Station *Station
	Time    time.Time
	IsStart bool
	IsFinal bool
	IsStop  bool
}

// ActiveInfo carries the realtime-only fields of an Active train. It is
// discarded when the train completes.
type ActiveInfo struct {
	Col          int
	Row          int
	Cars         int
	IsSpecial    bool
	DelayMinutes int
	DelayText    feed.MultiLang
	LastPassed   *Station
}

// Train is one train of the current service day, identified by the block
// number the network assigns. Active is non-nil exactly while State is
// StateActive.
//
// Instances obtained from a Tracker belong to one merged cycle and are
// never mutated afterwards; the next cycle works on clones.
type Train struct {
	BlockNo       int
	Date          time.Time // service date at creation; never changes
	State         State
	Number        string // from the live feed; empty for schedule-only trains
	Destination   *Station
	Formation     int
	HasPremiumCar bool
	Route         []StopEvent
	Active        *ActiveInfo

	// category/direction are authoritative from the live feed while the
	// train is Active and stay frozen after completion. For trains the
	// live feed never saw they hold cached inference results; inferred
	// marks them for recomputation when the route is rebuilt.
	category  Category
	direction position.Direction
	inferred  bool
}

// Category returns the train's service tier. Falls back to the lowest
// tier for bare shells whose route has not arrived yet.
func (t *Train) Category() Category {
	if t.category == "" {
		return CategoryLocal
	}
	return t.category
}

// Direction returns the train's direction of travel, down (toward Osaka
// and the branch termini) when nothing better is known.
func (t *Train) Direction() position.Direction {
	if t.direction == "" {
		return position.DirectionDown
	}
	return t.direction
}

// Status derives the externally visible status: Active while the live
// feed reports the train, Completed once it left the live feed or its
// final scheduled time has passed, Scheduled otherwise.
func (t *Train) Status(now time.Time) State {
	switch t.State {
	case StateActive:
		return StateActive
	case StateCompleted:
		return StateCompleted
	}
	if fin, ok := t.FinalStop(); ok && !fin.Time.IsZero() && fin.Time.Before(now) {
		return StateCompleted
	}
	return StateScheduled
}

// DelayMinutes is zero for trains without realtime data.
func (t *Train) DelayMinutes() int {
	if t.Active == nil {
		return 0
	}
	return t.Active.DelayMinutes
}

// IsSpecial reports whether the live feed marked the train as an extra
// service. Unknown (false) for trains the live feed never saw.
func (t *Train) IsSpecial() bool {
	return t.Active != nil && t.Active.IsSpecial
}

// StopStations returns the stops of the route (pass-throughs excluded)
// ordered by time, unknown times first.
func (t *Train) StopStations() []StopEvent {
	stops := make([]StopEvent, 0, len(t.Route))
	for _, ev := range t.Route {
		if ev.IsStop {
			stops = append(stops, ev)
		}
	}
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].Time.Before(stops[j].Time)
	})
	return stops
}

// StartStation returns the origin stop's station, nil when no route is
// known.
func (t *Train) StartStation() *Station {
	for _, ev := range t.Route {
		if ev.IsStart {
			return ev.Station
		}
	}
	return nil
}

// FinalStop returns the stop event marked as the route's last.
func (t *Train) FinalStop() (StopEvent, bool) {
	for _, ev := range t.Route {
		if ev.IsFinal {
			return ev, true
		}
	}
	return StopEvent{}, false
}

// StopTime returns the scheduled time at a station the train stops at.
func (t *Train) StopTime(station int) (time.Time, bool) {
	ev, ok := t.stopAt(station)
	if !ok || ev.Time.IsZero() {
		return time.Time{}, false
	}
	return ev.Time, true
}

// StopsAt reports whether the train stops (rather than passes) at the
// station.
func (t *Train) StopsAt(station int) bool {
	_, ok := t.stopAt(station)
	return ok
}

func (t *Train) stopAt(station int) (StopEvent, bool) {
	for _, ev := range t.Route {
		if ev.IsStop && ev.Station.Number == station {
			return ev, true
		}
	}
	return StopEvent{}, false
}

// clone copies the train for the next cycle's mutations. The route
// slice is shared: rebuilds replace it wholesale and never write into an
// installed sequence.
func (t *Train) clone() *Train {
	c := *t
	if t.Active != nil {
		a := *t.Active
		c.Active = &a
	}
	return &c
}

// complete transitions an Active train to Completed, stripping the
// realtime-only fields. Category and direction are already authoritative
// and stay frozen as they were the cycle before removal.
func (t *Train) complete() {
	t.Active = nil
	t.State = StateCompleted
}
