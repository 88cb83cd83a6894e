package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vbonduro/phototasks/internal/geocode"
)

// NominatimGeocoder resolves addresses through an OpenStreetMap Nominatim
// server's /reverse endpoint.
type NominatimGeocoder struct {
	host      string
	userAgent string
	client    *http.Client
}

func NewNominatimGeocoder(host, userAgent string) *NominatimGeocoder {
	return &NominatimGeocoder{
		host:      host,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		Road          string `json:"road"`
		HouseNumber   string `json:"house_number"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		State         string `json:"state"`
		StateDistrict string `json:"state_district"`
	} `json:"address"`
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.host+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("nominatim: %s", body.Error)
	}

	a := body.Address
	street := a.Road
	if street != "" && a.HouseNumber != "" {
		street = street + " " + a.HouseNumber
	}
	label := geocode.FormatAddress(geocode.Address{
		Street: street,
		City:   firstNonEmpty(a.City, a.Town, a.Village),
		Region: firstNonEmpty(a.State, a.StateDistrict),
	})
	if label == "" {
		return "", fmt.Errorf("nominatim returned no address")
	}
	return label, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
