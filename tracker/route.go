package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dk-butsuri/keihan-tracker/feed"
)

// RouteIntegrityError reports a rebuilt stop sequence without exactly one
// origin and one final stop. The train keeps its previous route when a
// rebuild fails this check.
type RouteIntegrityError struct {
	BlockNo int
	Starts  int
	Finals  int
}

func (e *RouteIntegrityError) Error() string {
	return fmt.Sprintf("train %d: route has %d origin and %d final stops, want exactly one of each",
		e.BlockNo, e.Starts, e.Finals)
}

// BuildRoute converts the raw schedule stop list of one train into an
// ordered StopEvent sequence. Station codes are two digits of station
// number plus one of platform; codes that do not resolve to a known
// station are dropped (signal tracks and similar non-public points).
// Departure times count from the service day's midnight and may exceed
// 24 hours for post-midnight service. The stop with the latest resolved
// time is marked final. The result always fully replaces any previous
// sequence.
func BuildRoute(reg *Registry, serviceDate time.Time, blockNo int, stops []feed.DiaStation) ([]StopEvent, error) {
	events := make([]StopEvent, 0, len(stops))
	starts := 0
	for _, raw := range stops {
		if len(raw.StationNumber) != 3 {
			continue
		}
		number, err := strconv.Atoi(raw.StationNumber[:2])
		if err != nil {
			continue
		}
		st := reg.Station(number)
		if st == nil {
			continue
		}
		switch raw.StationDepTime {
		case feed.DepTimeOrigin:
			events = append(events, StopEvent{Station: st, IsStart: true, IsStop: true})
			starts++
		case feed.DepTimeUnknown:
			events = append(events, StopEvent{Station: st})
		default:
			dep, ok := parseClock(raw.StationDepTime)
			if !ok {
				continue
			}
			events = append(events, StopEvent{Station: st, Time: serviceDate.Add(dep), IsStop: true})
		}
	}

	finalIdx := -1
	for i, ev := range events {
		if ev.Time.IsZero() {
			continue
		}
		if finalIdx < 0 || ev.Time.After(events[finalIdx].Time) {
			finalIdx = i
		}
	}
	finals := 0
	if finalIdx >= 0 {
		events[finalIdx].IsFinal = true
		finals = 1
	}
	if starts != 1 || finals != 1 {
		return nil, &RouteIntegrityError{BlockNo: blockNo, Starts: starts, Finals: finals}
	}
	return events, nil
}

// parseClock reads an "HH:MM" offset; hours past 24 represent the small
// hours of the next calendar day.
func parseClock(s string) (time.Duration, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 || hh < 0 {
		return 0, false
	}
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute, true
}
