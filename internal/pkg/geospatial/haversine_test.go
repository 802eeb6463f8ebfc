package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/planpresso/internal/pkg/geospatial"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want, tolerance        float64
	}{
		{"same point", 50, 14, 50, 14, 0, 1e-9},
		{"prague to karlstejn", 50.0875, 14.4214, 49.9394, 14.1883, 23.3, 0.5},
		{"quarter meridian", 0, 0, 90, 0, 10007.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geospatial.DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceKm = %.3f, want %.3f ± %.3f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestFormatDistance(t *testing.T) {
	cases := map[float64]string{
		0.85:   "850 m",
		12.34:  "12.3 km",
		523.6:  "524 km",
		6000.0: "6000 km",
	}
	for km, want := range cases {
		if got := geospatial.FormatDistance(km); got != want {
			t.Errorf("FormatDistance(%v) = %q, want %q", km, got, want)
		}
	}
}
