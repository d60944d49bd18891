package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Sentinel values used by the feeds.
const (
	// DepTimeOrigin marks the departure time of a train's origin stop.
	DepTimeOrigin = "-"
	// DepTimeUnknown marks a station the train passes without stopping.
	DepTimeUnknown = "99:99"
	// LastPassUnknown is one of the two values (the other is 0) meaning
	// the last-passed station is not known.
	LastPassUnknown = 99
)

// specialPrefix is prepended (with full-width padding) to the train type
// of extra services.
const specialPrefix = "臨時"

// MultiLang holds a display name in each language the feeds publish.
type MultiLang struct {
	JA string `json:"ja"`
	EN string `json:"en"`
	CN string `json:"cn"`
	TW string `json:"tw"`
	KR string `json:"kr"`
}

// MultiLangLines holds per-language lists of connecting line names.
type MultiLangLines struct {
	JA []string `json:"ja"`
	EN []string `json:"en"`
	CN []string `json:"cn"`
	TW []string `json:"tw"`
	KR []string `json:"kr"`
}

// StationConnections lists the other services reachable at a station.
// Each mode may be absent.
type StationConnections struct {
	Train    *MultiLangLines `json:"train,omitempty"`
	Subway   *MultiLangLines `json:"subway,omitempty"`
	Monorail *MultiLangLines `json:"monorail,omitempty"`
}

// TransferGuide maps "KH"-prefixed station codes to their connections.
type TransferGuide map[string]StationConnections

// LineDetail is one line of the reference station list.
type LineDetail struct {
	LineName MultiLang            `json:"lineName"`
	Stations map[string]MultiLang `json:"stations"`
}

// StationList maps line names to their stations, keyed by "KH" codes.
type StationList map[string]LineDetail

// Timestamp decodes the compact YYYYMMDDHHMMSS format the feeds use for
// their creation times. Times are local to the network.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation("20060102150405", s, time.Local)
	if err != nil {
		return fmt.Errorf("feed timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// TrainInfo is one train record inside a location group of the position
// feed.
type TrainInfo struct {
	WdfBlockNo          int    `json:"wdfBlockNo" validate:"required"`
	CarsOfTrain         int    `json:"carsOfTrain"`
	DelayMinutes        string `json:"delayMinutes"`
	DelayMinutesEn      string `json:"delayMinutesEn"`
	DelayMinutesKo      string `json:"delayMinutesKo"`
	DelayMinutesZhCn    string `json:"delayMinutesZhCn"`
	DelayMinutesZhTw    string `json:"delayMinutesZhTw"`
	DestStationCode     int    `json:"destStationCode"`
	DestStationNameEn   string `json:"destStationNameEn"`
	DestStationNameJp   string `json:"destStationNameJp"`
	DestStationNameKo   string `json:"destStationNameKo"`
	DestStationNameZhCn string `json:"destStationNameZhCn"`
	DestStationNameZhTw string `json:"destStationNameZhTw"`
	DestStationNumber   int    `json:"destStationNumber" validate:"required"`
	LastPassStation     int    `json:"lastPassStation"`
	TrainNumber         string `json:"trainNumber"`
	TrainTypeEn         string `json:"trainTypeEn"`
	TrainTypeIcon       string `json:"trainTypeIcon"`
	TrainTypeJp         string `json:"trainTypeJp"`
	TrainTypeKo         string `json:"trainTypeKo"`
	TrainTypeZhCn       string `json:"trainTypeZhCn"`
	TrainTypeZhTw       string `json:"trainTypeZhTw"`
}

// TrainType splits the special-service prefix out of the raw Japanese
// train type, returning the bare type name and whether the train is an
// extra service.
func (t *TrainInfo) TrainType() (name string, special bool) {
	if strings.Contains(t.TrainTypeJp, specialPrefix) {
		name = strings.Replace(t.TrainTypeJp, specialPrefix+"　　　　", "", 1)
		return strings.TrimSpace(name), true
	}
	return t.TrainTypeJp, false
}

// DelayText collects the per-language delay strings of a train record.
func (t *TrainInfo) DelayText() MultiLang {
	return MultiLang{
		JA: t.DelayMinutes,
		EN: t.DelayMinutesEn,
		CN: t.DelayMinutesZhCn,
		TW: t.DelayMinutesZhTw,
		KR: t.DelayMinutesKo,
	}
}

// LocationObject groups the trains currently at one grid position and
// direction. Coupled workings can put more than one train in a group.
type LocationObject struct {
	Delay                string      `json:"delay"`
	DelayEn              string      `json:"delayEn"`
	DelayKo              string      `json:"delayKo"`
	DelayZhCn            string      `json:"delayZhCn"`
	DelayZhTw            string      `json:"delayZhTw"`
	LocationCol          int         `json:"locationCol"`
	LocationRow          int         `json:"locationRow"`
	TrainDirection       int         `json:"trainDirection"`
	TrainIconTypeImageJp string      `json:"trainIconTypeImageJp"`
	TrainInfoObjects     []TrainInfo `json:"trainInfoObjects" validate:"dive"`
	TrainTypeVisIconVis  string      `json:"trainTypeVisIconVis"`
}

// TrainPositionList is the live position feed payload.
type TrainPositionList struct {
	FileCreatedTime Timestamp        `json:"fileCreatedTime"`
	FileVersion     string           `json:"fileVersion"`
	LinkNum         string           `json:"linkNum"`
	LocationObjects []LocationObject `json:"locationObjects" validate:"dive"`
}

// DiaStation is one entry of a train's scheduled stop list. The station
// number is two digits of station code plus one digit of platform.
type DiaStation struct {
	StationNumber   string `json:"stationNumber"`
	StationDepTime  string `json:"stationDepTime"`
	StationNameJp   string `json:"stationNameJp"`
	StationNameEn   string `json:"stationNameEn"`
	StationNameZhTw string `json:"stationNameZhTw"`
	StationNameZhCn string `json:"stationNameZhCn"`
	StationNameKo   string `json:"stationNameKo"`
}

// ScheduleTrain is one train of the schedule feed.
type ScheduleTrain struct {
	WdfBlockNo            int          `json:"wdfBlockNo" validate:"required"`
	ExtTrain              bool         `json:"extTrain"`
	PremiumCar            int          `json:"premiumCar"`
	TrainCar              string       `json:"trainCar"`
	DiaStationInfoObjects []DiaStation `json:"diaStationInfoObjects"`
}

// StartTimeList is the schedule feed payload.
type StartTimeList struct {
	FileCreatedTime Timestamp       `json:"fileCreatedTime"`
	FileVersion     string          `json:"fileVersion"`
	TrainInfo       []ScheduleTrain `json:"TrainInfo" validate:"dive"`
}
