package telemetry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Session is a decoded session-info document. It changes far less often
// than telemetry and is always replaced wholesale; callers share it by
// pointer and must not modify it.
type Session struct {
	WeekendInfo WeekendInfo `yaml:"WeekendInfo" json:"WeekendInfo"`
	SessionInfo SessionInfo `yaml:"SessionInfo" json:"SessionInfo"`
	DriverInfo  DriverInfo  `yaml:"DriverInfo" json:"DriverInfo"`
}

// WeekendInfo describes the event and track.
type WeekendInfo struct {
	TrackName        string `yaml:"TrackName" json:"TrackName"`
	TrackDisplayName string `yaml:"TrackDisplayName" json:"TrackDisplayName"`
	TrackConfigName  string `yaml:"TrackConfigName" json:"TrackConfigName"`
	TrackLength      string `yaml:"TrackLength" json:"TrackLength"`
	TrackCity        string `yaml:"TrackCity" json:"TrackCity"`
	TrackCountry     string `yaml:"TrackCountry" json:"TrackCountry"`
	EventType        string `yaml:"EventType" json:"EventType"`
	Category         string `yaml:"Category" json:"Category"`
	SessionID        int    `yaml:"SessionID" json:"SessionID"`
	SubSessionID     int    `yaml:"SubSessionID" json:"SubSessionID"`
}

// SessionInfo lists the sessions of the event.
type SessionInfo struct {
	Sessions []SessionEntry `yaml:"Sessions" json:"Sessions"`
}

// SessionEntry is one practice/qualify/race session.
type SessionEntry struct {
	SessionNum       int              `yaml:"SessionNum" json:"SessionNum"`
	SessionLaps      string           `yaml:"SessionLaps" json:"SessionLaps"`
	SessionTime      string           `yaml:"SessionTime" json:"SessionTime"`
	SessionType      string           `yaml:"SessionType" json:"SessionType"`
	SessionName      string           `yaml:"SessionName" json:"SessionName"`
	ResultsPositions []ResultPosition `yaml:"ResultsPositions" json:"ResultsPositions"`
}

// ResultPosition is a driver's classification inside a session.
type ResultPosition struct {
	Position      int     `yaml:"Position" json:"Position"`
	ClassPosition int     `yaml:"ClassPosition" json:"ClassPosition"`
	CarIdx        int     `yaml:"CarIdx" json:"CarIdx"`
	Lap           int     `yaml:"Lap" json:"Lap"`
	FastestLap    int     `yaml:"FastestLap" json:"FastestLap"`
	FastestTime   float64 `yaml:"FastestTime" json:"FastestTime"`
	LastTime      float64 `yaml:"LastTime" json:"LastTime"`
	LapsLed       int     `yaml:"LapsLed" json:"LapsLed"`
	LapsComplete  int     `yaml:"LapsComplete" json:"LapsComplete"`
	Incidents     int     `yaml:"Incidents" json:"Incidents"`
	ReasonOutStr  string  `yaml:"ReasonOutStr" json:"ReasonOutStr"`
}

// DriverInfo is the roster of cars in the session.
type DriverInfo struct {
	DriverCarIdx int      `yaml:"DriverCarIdx" json:"DriverCarIdx"`
	Drivers      []Driver `yaml:"Drivers" json:"Drivers"`
}

// Driver describes one car entry.
type Driver struct {
	CarIdx             int    `yaml:"CarIdx" json:"CarIdx"`
	UserName           string `yaml:"UserName" json:"UserName"`
	TeamName           string `yaml:"TeamName" json:"TeamName"`
	CarNumber          string `yaml:"CarNumber" json:"CarNumber"`
	CarScreenNameShort string `yaml:"CarScreenNameShort" json:"CarScreenNameShort"`
	CarClassShortName  string `yaml:"CarClassShortName" json:"CarClassShortName"`
	IRating            int    `yaml:"IRating" json:"IRating"`
	LicString          string `yaml:"LicString" json:"LicString"`
	IsSpectator        int    `yaml:"IsSpectator" json:"IsSpectator"`
	CarIsPaceCar       int    `yaml:"CarIsPaceCar" json:"CarIsPaceCar"`
}

// Standing joins a classified position with the driver roster.
type Standing struct {
	Position    int     `json:"position"`
	CarIdx      int     `json:"carIdx"`
	CarNumber   string  `json:"carNumber"`
	Driver      string  `json:"driver"`
	CarClass    string  `json:"carClass"`
	IRating     int     `json:"iRating"`
	License     string  `json:"license"`
	Lap         int     `json:"lap"`
	FastestTime float64 `json:"fastestTime"`
	LastTime    float64 `json:"lastTime"`
	IsPlayer    bool    `json:"isPlayer"`
}

// ParseSession decodes a single session-info YAML document.
func ParseSession(data []byte) (*Session, error) {
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &s, nil
}

// ParseSessions decodes a YAML stream holding one or more session
// documents, in order.
func ParseSessions(data []byte) ([]*Session, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []*Session
	for {
		var s Session
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse session %d: %w", len(out), err)
		}
		out = append(out, &s)
	}
}

// Driver returns the roster entry for a car index.
func (s *Session) Driver(carIdx int) (Driver, bool) {
	for _, d := range s.DriverInfo.Drivers {
		if d.CarIdx == carIdx {
			return d, true
		}
	}
	return Driver{}, false
}

// Standings returns the classification of the latest session that has
// results, ordered by position.
func (s *Session) Standings() []Standing {
	if s == nil {
		return nil
	}
	var results []ResultPosition
	for i := len(s.SessionInfo.Sessions) - 1; i >= 0; i-- {
		if rp := s.SessionInfo.Sessions[i].ResultsPositions; len(rp) > 0 {
			results = rp
			break
		}
	}
	out := make([]Standing, 0, len(results))
	for _, r := range results {
		st := Standing{
			Position:    r.Position,
			CarIdx:      r.CarIdx,
			Lap:         r.Lap,
			FastestTime: r.FastestTime,
			LastTime:    r.LastTime,
			IsPlayer:    r.CarIdx == s.DriverInfo.DriverCarIdx,
		}
		if d, ok := s.Driver(r.CarIdx); ok {
			st.CarNumber = d.CarNumber
			st.Driver = d.UserName
			st.CarClass = d.CarClassShortName
			st.IRating = d.IRating
			st.License = d.LicString
		}
		out = append(out, st)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
