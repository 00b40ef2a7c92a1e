// Package geo resolves place names and estimates routes for the trip
// detail view. Both upstreams are public best-effort services, so every
// failure degrades to a placeholder estimate instead of an error.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GeocodeCache keeps resolved coordinates around so repeat lookups skip
// the upstream. A nil cache disables it.
type GeocodeCache interface {
	GetGeocode(ctx context.Context, place string) (lat, lon float64, ok bool, err error)
	SetGeocode(ctx context.Context, place string, lat, lon float64) error
}

// RouteEstimate is what the ride detail shows. When no estimate could be
// produced Distance is "N/A" and Duration the rough default.
type RouteEstimate struct {
	Distance        string `json:"distance"`
	Duration        string `json:"duration"`
	DurationMinutes int    `json:"duration_minutes"`
}

func fallbackEstimate() RouteEstimate {
	return RouteEstimate{Distance: "N/A", Duration: "~2h", DurationMinutes: 120}
}

type Service struct {
	nominatimURL string
	osrmURL      string
	client       *http.Client
	cache        GeocodeCache
	log          *slog.Logger
}

type ServiceOption func(*Service)

func WithGeocodeCache(cache GeocodeCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

func NewService(nominatimURL, osrmURL string, log *slog.Logger, opts ...ServiceOption) *Service {
	service := &Service{
		nominatimURL: nominatimURL,
		osrmURL:      osrmURL,
		client:       &http.Client{Timeout: 5 * time.Second},
		log:          log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// EstimateRoute geocodes both endpoints and asks OSRM for the driving
// route between them. Any failure along the way returns the fallback.
func (s *Service) EstimateRoute(ctx context.Context, origin, destination string) RouteEstimate {
	fromLat, fromLon, err := s.geocode(ctx, origin)
	if err != nil {
		s.log.Warn("geocoding failed", "place", origin, "err", err)
		return fallbackEstimate()
	}
	toLat, toLon, err := s.geocode(ctx, destination)
	if err != nil {
		s.log.Warn("geocoding failed", "place", destination, "err", err)
		return fallbackEstimate()
	}

	meters, seconds, err := s.route(ctx, fromLat, fromLon, toLat, toLon)
	if err != nil {
		s.log.Warn("route lookup failed", "origin", origin, "destination", destination, "err", err)
		return fallbackEstimate()
	}
	minutes := int(seconds / 60)
	return RouteEstimate{
		Distance:        fmt.Sprintf("%.1f km", meters/1000),
		Duration:        formatDuration(minutes),
		DurationMinutes: minutes,
	}
}

func (s *Service) geocode(ctx context.Context, place string) (lat, lon float64, err error) {
	if s.cache != nil {
		if lat, lon, ok, err := s.cache.GetGeocode(ctx, place); err == nil && ok {
			return lat, lon, nil
		}
	}

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.nominatimURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", "brocab/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no match for %q", place)
	}
	lat, err = strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err = strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetGeocode(ctx, place, lat, lon); err != nil {
			s.log.Warn("geocode cache write failed", "place", place, "err", err)
		}
	}
	return lat, lon, nil
}

func (s *Service) route(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (meters, seconds float64, err error) {
	// OSRM route query: /route/v1/driving/{lon1},{lat1};{lon2},{lat2}
	routeURL := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=false",
		s.osrmURL, fromLon, fromLat, toLon, toLat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, routeURL, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	var out struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return 0, 0, fmt.Errorf("osrm no route: %v", out.Code)
	}
	return out.Routes[0].Distance, out.Routes[0].Duration, nil
}

func formatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
