package validation

import (
	"strconv"
	"strings"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// CheckField reports whether a single form value should be flagged.
// Only coordinates are checked, and empty values are never flagged.
func CheckField(field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	switch field {
	case "lat":
		v, err := strconv.ParseFloat(value, 64)
		return err != nil || !domain.ValidLat(&v)
	case "lng":
		v, err := strconv.ParseFloat(value, 64)
		return err != nil || !domain.ValidLng(&v)
	default:
		return false
	}
}
