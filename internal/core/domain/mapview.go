package domain

// MapView is a saved plan prepared for a map client: display names, badges,
// rendered notes and leg distances are resolved so the client draws only.
type MapView struct {
	PlanID          string    `json:"plan_id,omitempty"`
	Name            string    `json:"name"`
	Emoji           string    `json:"emoji,omitempty"`
	Bounds          *Bounds   `json:"bounds,omitempty"`
	Stats           Stats     `json:"stats"`
	TotalDistanceKm float64   `json:"total_distance_km"`
	Stops           []MapStop `json:"stops"`
}

// MapStop is one marker with its popup content.
type MapStop struct {
	Number    int       `json:"number"`
	Name      string    `json:"name"`
	Kind      StopKind  `json:"kind"`
	Point     *GeoPoint `json:"point,omitempty"`
	DateRange string    `json:"date_range,omitempty"`
	Nights    int       `json:"nights"`
	NotesHTML string    `json:"notes_html,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	// Leg to the next stop; empty on the last stop or without positions.
	NextDistanceKm float64 `json:"next_distance_km,omitempty"`
	NextDistance   string  `json:"next_distance,omitempty"`
}
