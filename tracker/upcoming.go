package tracker

import (
	"sort"

	"github.com/dk-butsuri/keihan-tracker/position"
)

// Arrival pairs a train with its stop event at a particular station.
type Arrival struct {
	Train *Train
	Stop  StopEvent
}

// NextStation returns the station an Active train is stopped at or
// headed toward (which may be a pass-through). Nil for non-Active
// trains.
func (t *Tracker) NextStation(tr *Train) *Station {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextStation(tr)
}

func (t *Tracker) nextStation(tr *Train) *Station {
	if tr.Active == nil {
		return nil
	}
	pos, err := position.Decode(tr.Active.Col, tr.Active.Row)
	if err != nil {
		return nil
	}
	return t.registry.Station(position.Ahead(pos, tr.Direction()))
}

// NextStopStation returns the next station an Active train actually
// stops at: the current station when stopped there, otherwise the first
// stop of the train's own stop set reached by walking the line order in
// the direction of travel. Nil when the walk runs off the end of the
// line (undefined, not an error) or for non-Active trains.
func (t *Tracker) NextStopStation(tr *Train) *Station {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextStopStation(tr)
}

func (t *Tracker) nextStopStation(tr *Train) *Station {
	if tr.Active == nil {
		return nil
	}
	pos, err := position.Decode(tr.Active.Col, tr.Active.Row)
	if err != nil {
		return nil
	}
	ahead := position.Ahead(pos, tr.Direction())
	if tr.StopsAt(ahead) {
		return t.registry.Station(ahead)
	}
	order := position.Order(pos.Line, tr.Direction())
	idx := -1
	for i, n := range order {
		if n == ahead {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, n := range order[idx+1:] {
		if tr.StopsAt(n) {
			return t.registry.Station(n)
		}
	}
	return nil
}

// IsStopping reports whether an Active train is stopped at a station.
func (t *Tracker) IsStopping(tr *Train) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isStopping(tr)
}

func (t *Tracker) isStopping(tr *Train) bool {
	if tr.Active == nil {
		return false
	}
	pos, err := position.Decode(tr.Active.Col, tr.Active.Row)
	if err != nil {
		return false
	}
	return pos.Stopped()
}

// ArrivingTrains returns the trains whose computed next stop is the
// station (stopped there or approaching it).
func (t *Tracker) ArrivingTrains(station int) []*Train {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Train
	for _, tr := range t.trains {
		if next := t.nextStopStation(tr); next != nil && next.Number == station {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockNo < out[j].BlockNo })
	return out
}

// StationTrains returns every train that stops at the station today,
// past or future, with its stop event.
func (t *Tracker) StationTrains(station int) []Arrival {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Arrival
	for _, tr := range t.trains {
		if ev, ok := tr.stopAt(station); ok {
			out = append(out, Arrival{Train: tr, Stop: ev})
		}
	}
	sortArrivals(out)
	return out
}

// UpcomingTrains returns the trains still due to call at the station: an
// Active train whose next stop is this station, an Active train whose
// scheduled time here is not earlier than at its next stop, or a
// Scheduled train that has not completed yet. Ordered by scheduled time
// ascending, unknown times last.
func (t *Tracker) UpcomingTrains(station int) []Arrival {
	t.mu.RLock()
	defer t.mu.RUnlock()
	now := t.now()
	var out []Arrival
	for _, tr := range t.trains {
		ev, ok := tr.stopAt(station)
		if !ok {
			continue
		}
		if tr.State != StateActive {
			if tr.Status(now) == StateScheduled {
				out = append(out, Arrival{Train: tr, Stop: ev})
			}
			continue
		}
		next := t.nextStopStation(tr)
		if next == nil {
			continue
		}
		if next.Number == station {
			out = append(out, Arrival{Train: tr, Stop: ev})
			continue
		}
		nextTime, ok := tr.StopTime(next.Number)
		if !ok || ev.Time.IsZero() {
			continue
		}
		if !ev.Time.Before(nextTime) {
			out = append(out, Arrival{Train: tr, Stop: ev})
		}
	}
	sortArrivals(out)
	return out
}

// BusiestStation returns the station with the most upcoming trains and
// that count. Nil when nothing is upcoming anywhere.
func (t *Tracker) BusiestStation() (*Station, int) {
	t.mu.RLock()
	stations := t.registry.All()
	t.mu.RUnlock()
	var best *Station
	bestCount := 0
	for _, st := range stations {
		if n := len(t.UpcomingTrains(st.Number)); n > bestCount {
			best, bestCount = st, n
		}
	}
	return best, bestCount
}

// sortArrivals orders by scheduled time ascending with unknown times
// last, block number as the tie-break.
func sortArrivals(arrivals []Arrival) {
	sort.SliceStable(arrivals, func(i, j int) bool {
		ti, tj := arrivals[i].Stop.Time, arrivals[j].Stop.Time
		switch {
		case ti.IsZero() && tj.IsZero():
			return arrivals[i].Train.BlockNo < arrivals[j].Train.BlockNo
		case ti.IsZero():
			return false
		case tj.IsZero():
			return true
		case ti.Equal(tj):
			return arrivals[i].Train.BlockNo < arrivals[j].Train.BlockNo
		}
		return ti.Before(tj)
	})
}
