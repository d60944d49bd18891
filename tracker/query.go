package tracker

import (
	"sort"

	"github.com/dk-butsuri/keihan-tracker/position"
)

// TrainFilter is one predicate of a FindTrains conjunction. Filters that
// only make sense for Active trains (direction, special service,
// stopping, next stop) pass non-Active trains through rather than
// excluding them.
type TrainFilter func(t *Tracker, tr *Train) bool

// WithStatus matches the derived status: Active, Scheduled or Completed.
func WithStatus(s State) TrainFilter {
	return func(t *Tracker, tr *Train) bool { return tr.Status(t.now()) == s }
}

// WithCategory matches the authoritative or inferred service tier.
func WithCategory(c Category) TrainFilter {
	return func(t *Tracker, tr *Train) bool { return tr.Category() == c }
}

// WithDestination matches trains bound for the station.
func WithDestination(station int) TrainFilter {
	return func(t *Tracker, tr *Train) bool {
		return tr.Destination != nil && tr.Destination.Number == station
	}
}

// WithDirection matches the direction of travel of Active trains.
func WithDirection(d position.Direction) TrainFilter {
	return func(t *Tracker, tr *Train) bool {
		return tr.State != StateActive || tr.Direction() == d
	}
}

// WithBlockNo matches one train by identity.
func WithBlockNo(blockNo int) TrainFilter {
	return func(t *Tracker, tr *Train) bool { return tr.BlockNo == blockNo }
}

// WithNumber matches the train number the live feed assigned.
func WithNumber(number string) TrainFilter {
	return func(t *Tracker, tr *Train) bool { return tr.Number == number }
}

// WithSpecial matches the extra-service flag of Active trains.
func WithSpecial(v bool) TrainFilter {
	return func(t *Tracker, tr *Train) bool {
		return tr.State != StateActive || tr.IsSpecial() == v
	}
}

// WithPremiumCar matches trains with (or without) a premium car.
func WithPremiumCar(v bool) TrainFilter {
	return func(t *Tracker, tr *Train) bool { return tr.HasPremiumCar == v }
}

// WithMinDelay matches trains delayed at least min minutes. Trains
// without realtime data count as on time.
func WithMinDelay(min int) TrainFilter {
	return func(t *Tracker, tr *Train) bool { return tr.DelayMinutes() >= min }
}

// WithMaxDelay matches trains delayed at most max minutes.
func WithMaxDelay(max int) TrainFilter {
	return func(t *Tracker, tr *Train) bool { return tr.DelayMinutes() <= max }
}

// WithStopping matches Active trains currently stopped at a station.
func WithStopping(v bool) TrainFilter {
	return func(t *Tracker, tr *Train) bool {
		if tr.State != StateActive {
			return true
		}
		return t.isStopping(tr) == v
	}
}

// WithNextStop matches Active trains whose next stop is the station.
func WithNextStop(station int) TrainFilter {
	return func(t *Tracker, tr *Train) bool {
		if tr.State != StateActive {
			return true
		}
		next := t.nextStopStation(tr)
		return next != nil && next.Number == station
	}
}

// FindTrains returns every train matching the conjunction of the given
// filters, ordered by block number. Results are frozen snapshots of the
// last merged cycle and stay consistent while later cycles run.
func (t *Tracker) FindTrains(filters ...TrainFilter) []*Train {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Train
	for _, tr := range t.trains {
		keep := true
		for _, f := range filters {
			if !f(t, tr) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, tr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockNo < out[j].BlockNo })
	return out
}

// MostDelayed returns the currently most delayed train, nil when the
// table is empty.
func (t *Tracker) MostDelayed() *Train {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var best *Train
	for _, tr := range t.trains {
		if best == nil || tr.DelayMinutes() > best.DelayMinutes() {
			best = tr
		}
	}
	return best
}

// MaxDelayMinutes returns the largest delay in the table.
func (t *Tracker) MaxDelayMinutes() int {
	if tr := t.MostDelayed(); tr != nil {
		return tr.DelayMinutes()
	}
	return 0
}
