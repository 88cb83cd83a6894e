package geocode

import (
	"context"
	"strings"
)

// Geocoder turns coordinates into a human readable address label.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error)
}

// Address holds the components used to build a label.
type Address struct {
	Street string
	City   string
	Region string
}

// FormatAddress renders "<street> <city>, <region>" and trims the result.
// It returns "" when every component is empty.
func FormatAddress(a Address) string {
	if a.Street == "" && a.City == "" && a.Region == "" {
		return ""
	}
	label := strings.TrimSpace(strings.TrimSpace(a.Street+" "+a.City) + ", " + a.Region)
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(label, ","), ","))
}
