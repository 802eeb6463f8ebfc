package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a geocoder suggestion the user can pick for a stop.
type Place struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Country string   `json:"country,omitempty"`
	Point   GeoPoint `json:"point"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Points returns the positions of stops that have both coordinates, in order.
func (p Plan) Points() []GeoPoint {
	points := make([]GeoPoint, 0, len(p.Stops))
	for _, s := range p.Stops {
		if s.HasPosition() {
			points = append(points, GeoPoint{Lat: *s.Lat, Lng: *s.Lng})
		}
	}
	return points
}

// Bounds returns the box the map should fit, or false when no stop has a
// position.
func (p Plan) Bounds() (Bounds, bool) {
	points := p.Points()
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{MinLat: points[0].Lat, MaxLat: points[0].Lat, MinLng: points[0].Lng, MaxLng: points[0].Lng}
	for _, pt := range points[1:] {
		b.MinLat = min(b.MinLat, pt.Lat)
		b.MaxLat = max(b.MaxLat, pt.Lat)
		b.MinLng = min(b.MinLng, pt.Lng)
		b.MaxLng = max(b.MaxLng, pt.Lng)
	}
	return b, true
}
