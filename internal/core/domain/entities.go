package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Fields holds keys the editor does not model. Values are kept in compact
// JSON form and written back untouched.
type Fields map[string]json.RawMessage

// Plan is a named, ordered itinerary.
// Stops is nil when the "stops" key was absent from the source document.
type Plan struct {
	Name     string
	DateFrom string
	DateTo   string
	Stops    []Stop
	Extra    Fields
}

// Stop is a single place in a plan. Dates are kept as authored and read
// through ParseDate. A nil coordinate means the user has not set it yet.
type Stop struct {
	Name     string
	Label    string
	Lat      *float64
	Lng      *float64
	DateFrom string
	DateTo   string
	Notes    string
	ImageURL string
	Extra    Fields
}

// Draft is a work-in-progress plan written by the debounced sync.
type Draft struct {
	Data      Plan      `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// SavedPlan is a plan that passed validation and was promoted by a save.
type SavedPlan struct {
	ID      string    `json:"id"`
	Owner   string    `json:"owner"`
	Plan    Plan      `json:"plan"`
	SavedAt time.Time `json:"saved_at"`
}

// RecoverySummary describes the last saved plan offered on boot.
type RecoverySummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Emoji       string    `json:"emoji,omitempty"`
	StopCount   int       `json:"stop_count"`
	TotalNights int       `json:"total_nights"`
	SavedAt     time.Time `json:"saved_at"`
}

// Stats are the header figures shown next to the editor.
type Stats struct {
	Stops       int `json:"stops"`
	TotalNights int `json:"total_nights"`
}

// Float returns a pointer to v, for building stops in code.
func Float(v float64) *float64 { return &v }

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := p
	out.Extra = p.Extra.clone()
	if p.Stops != nil {
		out.Stops = make([]Stop, len(p.Stops))
		for i, s := range p.Stops {
			out.Stops[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the stop, pass-through fields included.
func (s Stop) Clone() Stop {
	out := s
	if s.Lat != nil {
		out.Lat = Float(*s.Lat)
	}
	if s.Lng != nil {
		out.Lng = Float(*s.Lng)
	}
	out.Extra = s.Extra.clone()
	return out
}

func (f Fields) clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// IsStopComplete reports whether the stop has a name and a valid position.
// It drives the visual status of a stop only.
func IsStopComplete(s Stop) bool {
	if s.Name == "" {
		return false
	}
	return ValidLat(s.Lat) && ValidLng(s.Lng)
}

// ValidLat reports whether lat is present, finite and within [-90, 90].
func ValidLat(lat *float64) bool {
	return lat != nil && !math.IsNaN(*lat) && !math.IsInf(*lat, 0) && *lat >= -90 && *lat <= 90
}

// ValidLng reports whether lng is present, finite and within [-180, 180].
func ValidLng(lng *float64) bool {
	return lng != nil && !math.IsNaN(*lng) && !math.IsInf(*lng, 0) && *lng >= -180 && *lng <= 180
}

// HasPosition reports whether both coordinates are set.
func (s Stop) HasPosition() bool {
	return s.Lat != nil && s.Lng != nil
}

// DisplayName is what a marker or list row shows for the stop.
func (s Stop) DisplayName() string {
	switch {
	case s.Label != "":
		return s.Label
	case s.Name != "":
		return s.Name
	default:
		return "New stop"
	}
}

// Nights is the number of whole days between DateFrom and DateTo.
// Missing or unreadable dates give 0; it is never negative.
func (s Stop) Nights() int {
	return NightsBetween(s.DateFrom, s.DateTo)
}

// ShortDateRange renders the stop dates as "2 Mar – 5 Mar".
func (s Stop) ShortDateRange() string {
	return ShortDateRange(s.DateFrom, s.DateTo)
}

// TotalNights sums the nights of every stop.
func (p Plan) TotalNights() int {
	total := 0
	for _, s := range p.Stops {
		total += s.Nights()
	}
	return total
}

// Stats returns the stop count and total nights.
func (p Plan) Stats() Stats {
	return Stats{Stops: len(p.Stops), TotalNights: p.TotalNights()}
}

// Summary builds the recovery summary for a saved plan.
func (sp SavedPlan) Summary() RecoverySummary {
	emoji, name := SplitEmoji(sp.Plan.Name)
	return RecoverySummary{
		ID:          sp.ID,
		Name:        name,
		Emoji:       emoji,
		StopCount:   len(sp.Plan.Stops),
		TotalNights: sp.Plan.TotalNights(),
		SavedAt:     sp.SavedAt,
	}
}
