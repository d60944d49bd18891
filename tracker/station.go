package tracker

import (
	"sort"
	"strconv"

	"github.com/dk-butsuri/keihan-tracker/feed"
	"github.com/dk-butsuri/keihan-tracker/position"
)

// Station is one station on the network. Stations are shared: trains and
// stop events reference registry entries by pointer and never own them.
// Junction stations belong to more than one line.
type Station struct {
	Number   int
	Name     feed.MultiLang
	Lines    map[position.Line]bool
	Transfer feed.StationConnections
}

func (s *Station) String() string { return s.Name.JA }

// Registry is the canonical station set, populated once from the
// reference feed and enriched lazily with transfer data. Stations are
// never deleted during a run.
type Registry struct {
	stations map[int]*Station
}

func NewRegistry() *Registry {
	return &Registry{stations: map[int]*Station{}}
}

// Station returns the station with the given number, or nil if unknown.
func (r *Registry) Station(number int) *Station {
	return r.stations[number]
}

// All returns every known station ordered by number.
func (r *Registry) All() []*Station {
	out := make([]*Station, 0, len(r.stations))
	for _, s := range r.stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (r *Registry) Len() int { return len(r.stations) }

// populate registers every station of the reference list, accumulating
// line memberships for stations shared between lines.
func (r *Registry) populate(list feed.StationList) {
	for line, detail := range list {
		for code, name := range detail.Stations {
			number, ok := stationNumber(code)
			if !ok {
				continue
			}
			if st := r.stations[number]; st != nil {
				st.Lines[position.Line(line)] = true
				continue
			}
			r.stations[number] = &Station{
				Number: number,
				Name:   name,
				Lines:  map[position.Line]bool{position.Line(line): true},
			}
		}
	}
}

// enrichTransfers attaches transfer data to already registered stations.
func (r *Registry) enrichTransfers(guide feed.TransferGuide) {
	for code, connections := range guide {
		number, ok := stationNumber(code)
		if !ok {
			continue
		}
		if st := r.stations[number]; st != nil {
			st.Transfer = connections
		}
	}
}

// stationNumber strips the "KH" prefix off a station code.
func stationNumber(code string) (int, bool) {
	if len(code) <= 2 {
		return 0, false
	}
	n, err := strconv.Atoi(code[2:])
	if err != nil {
		return 0, false
	}
	return n, true
}
