package keihantracker

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dk-butsuri/keihan-tracker/feed"
	"github.com/dk-butsuri/keihan-tracker/position"
	"github.com/dk-butsuri/keihan-tracker/tracker"
)

type healthResponse struct {
	Status     string    `json:"status"`
	LastPolled time.Time `json:"lastPolled"`
	ServiceDay string    `json:"serviceDay,omitempty"`
	TrainCount int       `json:"trainCount"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := healthResponse{
		Status:     "ok",
		LastPolled: s.tracker.LastPolled(),
		TrainCount: s.tracker.TrainCount(),
	}
	if day := s.tracker.ServiceDay(); !day.IsZero() {
		out.ServiceDay = day.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, out)
}

// StopView is one route entry of a train response.
type StopView struct {
	Station int    `json:"station"`
	Name    string `json:"name"`
	Time    string `json:"time,omitempty"`
	IsStart bool   `json:"isStart,omitempty"`
	IsFinal bool   `json:"isFinal,omitempty"`
	IsStop  bool   `json:"isStop"`
}

// PositionView carries the realtime fields of an Active train.
type PositionView struct {
	Col          int    `json:"col"`
	Row          int    `json:"row"`
	IsStopping   bool   `json:"isStopping"`
	NextStation  string `json:"nextStation,omitempty"`
	NextStop     string `json:"nextStop,omitempty"`
	LastPassed   string `json:"lastPassed,omitempty"`
	Cars         int    `json:"cars"`
	IsSpecial    bool   `json:"isSpecial"`
	DelayMinutes int    `json:"delayMinutes"`
}

// TrainView is the JSON shape of one train.
type TrainView struct {
	BlockNo       int           `json:"blockNo"`
	Number        string        `json:"number,omitempty"`
	Status        string        `json:"status"`
	Category      string        `json:"category"`
	Direction     string        `json:"direction"`
	Destination   string        `json:"destination,omitempty"`
	Formation     int           `json:"formation,omitempty"`
	HasPremiumCar bool          `json:"hasPremiumCar"`
	Position      *PositionView `json:"position,omitempty"`
	Stops         []StopView    `json:"stops,omitempty"`
}

func (s *Server) trainView(tr *tracker.Train, now time.Time, includeStops bool) TrainView {
	v := TrainView{
		BlockNo:       tr.BlockNo,
		Number:        tr.Number,
		Status:        tr.Status(now).String(),
		Category:      string(tr.Category()),
		Direction:     string(tr.Direction()),
		Formation:     tr.Formation,
		HasPremiumCar: tr.HasPremiumCar,
	}
	if tr.Destination != nil {
		v.Destination = tr.Destination.Name.JA
	}
	if a := tr.Active; a != nil {
		pv := &PositionView{
			Col:          a.Col,
			Row:          a.Row,
			IsStopping:   s.tracker.IsStopping(tr),
			Cars:         a.Cars,
			IsSpecial:    a.IsSpecial,
			DelayMinutes: a.DelayMinutes,
		}
		if st := s.tracker.NextStation(tr); st != nil {
			pv.NextStation = st.Name.JA
		}
		if st := s.tracker.NextStopStation(tr); st != nil {
			pv.NextStop = st.Name.JA
		}
		if a.LastPassed != nil {
			pv.LastPassed = a.LastPassed.Name.JA
		}
		v.Position = pv
	}
	if includeStops {
		for _, ev := range tr.Route {
			sv := StopView{
				Station: ev.Station.Number,
				Name:    ev.Station.Name.JA,
				IsStart: ev.IsStart,
				IsFinal: ev.IsFinal,
				IsStop:  ev.IsStop,
			}
			if !ev.Time.IsZero() {
				sv.Time = ev.Time.Format("15:04")
			}
			v.Stops = append(v.Stops, sv)
		}
	}
	return v
}

// trainFilters translates query parameters into a FindTrains
// conjunction.
func trainFilters(r *http.Request) ([]tracker.TrainFilter, error) {
	var filters []tracker.TrainFilter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		switch v {
		case "active":
			filters = append(filters, tracker.WithStatus(tracker.StateActive))
		case "scheduled":
			filters = append(filters, tracker.WithStatus(tracker.StateScheduled))
		case "completed":
			filters = append(filters, tracker.WithStatus(tracker.StateCompleted))
		default:
			return nil, &paramError{"status", v}
		}
	}
	if v := q.Get("category"); v != "" {
		filters = append(filters, tracker.WithCategory(tracker.Category(v)))
	}
	if v := q.Get("direction"); v != "" {
		switch v {
		case "up":
			filters = append(filters, tracker.WithDirection(position.DirectionUp))
		case "down":
			filters = append(filters, tracker.WithDirection(position.DirectionDown))
		default:
			return nil, &paramError{"direction", v}
		}
	}
	if v := q.Get("number"); v != "" {
		filters = append(filters, tracker.WithNumber(v))
	}
	for name, build := range map[string]func(int) tracker.TrainFilter{
		"destination": tracker.WithDestination,
		"block":       tracker.WithBlockNo,
		"minDelay":    tracker.WithMinDelay,
		"maxDelay":    tracker.WithMaxDelay,
		"nextStop":    tracker.WithNextStop,
	} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, &paramError{name, v}
			}
			filters = append(filters, build(n))
		}
	}
	for name, build := range map[string]func(bool) tracker.TrainFilter{
		"special":  tracker.WithSpecial,
		"premium":  tracker.WithPremiumCar,
		"stopping": tracker.WithStopping,
	} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, &paramError{name, v}
			}
			filters = append(filters, build(b))
		}
	}
	return filters, nil
}

type paramError struct{ name, value string }

func (e *paramError) Error() string { return "invalid " + e.name + ": " + e.value }

func (s *Server) handleTrains(w http.ResponseWriter, r *http.Request) {
	filters, err := trainFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trains := s.tracker.FindTrains(filters...)
	now := time.Now()
	views := make([]TrainView, 0, len(trains))
	for _, tr := range trains {
		views = append(views, s.trainView(tr, now, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"trains": views, "count": len(views)})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	blockNo, err := strconv.Atoi(chi.URLParam(r, "blockNo"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block number")
		return
	}
	tr := s.tracker.Train(blockNo)
	if tr == nil {
		writeError(w, http.StatusNotFound, "no such train")
		return
	}
	writeJSON(w, http.StatusOK, s.trainView(tr, time.Now(), true))
}

func (s *Server) handleMostDelayed(w http.ResponseWriter, r *http.Request) {
	tr := s.tracker.MostDelayed()
	if tr == nil {
		writeError(w, http.StatusNotFound, "no trains tracked")
		return
	}
	writeJSON(w, http.StatusOK, s.trainView(tr, time.Now(), false))
}

func (s *Server) handleTrainHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}
	blockNo, err := strconv.Atoi(chi.URLParam(r, "blockNo"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block number")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.store.TrainHistory(r.Context(), blockNo, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records, "count": len(records)})
}

// StationView is the JSON shape of one station.
type StationView struct {
	Number   int                     `json:"number"`
	Name     feed.MultiLang          `json:"name"`
	Lines    []string                `json:"lines"`
	Transfer feed.StationConnections `json:"transfer,omitempty"`
}

func stationView(st *tracker.Station) StationView {
	v := StationView{Number: st.Number, Name: st.Name, Transfer: st.Transfer}
	for line := range st.Lines {
		v.Lines = append(v.Lines, string(line))
	}
	return v
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	stations := s.tracker.Stations()
	views := make([]StationView, 0, len(stations))
	for _, st := range stations {
		views = append(views, stationView(st))
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": views, "count": len(views)})
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station number")
		return
	}
	st := s.tracker.Station(number)
	if st == nil {
		writeError(w, http.StatusNotFound, "no such station")
		return
	}
	writeJSON(w, http.StatusOK, stationView(st))
}

// UpcomingView is one upcoming arrival at a station.
type UpcomingView struct {
	Train TrainView `json:"train"`
	Time  string    `json:"time,omitempty"`
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station number")
		return
	}
	if s.tracker.Station(number) == nil {
		writeError(w, http.StatusNotFound, "no such station")
		return
	}
	arrivals := s.tracker.UpcomingTrains(number)
	now := time.Now()
	views := make([]UpcomingView, 0, len(arrivals))
	for _, a := range arrivals {
		uv := UpcomingView{Train: s.trainView(a.Train, now, false)}
		if !a.Stop.Time.IsZero() {
			uv.Time = a.Stop.Time.Format("15:04")
		}
		views = append(views, uv)
	}
	writeJSON(w, http.StatusOK, map[string]any{"upcoming": views, "count": len(views)})
}
