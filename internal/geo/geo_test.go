package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newUpstreams(t *testing.T, routeBody string) (nominatim, osrm *httptest.Server) {
	t.Helper()
	nominatim = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "Nowhere" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"lat":"28.613900","lon":"77.209000"}]`)
	}))
	t.Cleanup(nominatim.Close)
	osrm = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, routeBody)
	}))
	t.Cleanup(osrm.Close)
	return nominatim, osrm
}

func TestEstimateRoute_Success(t *testing.T) {
	nominatim, osrm := newUpstreams(t, `{"code":"Ok","routes":[{"distance":233000,"duration":14400}]}`)
	svc := NewService(nominatim.URL, osrm.URL, slog.Default())

	est := svc.EstimateRoute(context.Background(), "Delhi", "Agra")

	assert.Equal(t, "233.0 km", est.Distance)
	assert.Equal(t, "4h", est.Duration)
	assert.Equal(t, 240, est.DurationMinutes)
}

func TestEstimateRoute_GeocodeMissFallsBack(t *testing.T) {
	nominatim, osrm := newUpstreams(t, `{"code":"Ok","routes":[{"distance":1000,"duration":60}]}`)
	svc := NewService(nominatim.URL, osrm.URL, slog.Default())

	est := svc.EstimateRoute(context.Background(), "Nowhere", "Agra")

	assert.Equal(t, "N/A", est.Distance)
	assert.Equal(t, "~2h", est.Duration)
	assert.Equal(t, 120, est.DurationMinutes)
}

func TestEstimateRoute_NoRouteFallsBack(t *testing.T) {
	nominatim, osrm := newUpstreams(t, `{"code":"NoRoute","routes":[]}`)
	svc := NewService(nominatim.URL, osrm.URL, slog.Default())

	est := svc.EstimateRoute(context.Background(), "Delhi", "Agra")

	assert.Equal(t, "N/A", est.Distance)
	assert.Equal(t, "~2h", est.Duration)
}

func TestEstimateRoute_DeadUpstreamFallsBack(t *testing.T) {
	svc := NewService("http://127.0.0.1:1", "http://127.0.0.1:1", slog.Default())

	est := svc.EstimateRoute(context.Background(), "Delhi", "Agra")

	assert.Equal(t, "N/A", est.Distance)
}

type fakeGeoCache struct {
	coords map[string][2]float64
	sets   int
}

func (c *fakeGeoCache) GetGeocode(_ context.Context, place string) (float64, float64, bool, error) {
	if v, ok := c.coords[place]; ok {
		return v[0], v[1], true, nil
	}
	return 0, 0, false, nil
}

func (c *fakeGeoCache) SetGeocode(_ context.Context, place string, lat, lon float64) error {
	c.coords[place] = [2]float64{lat, lon}
	c.sets++
	return nil
}

func TestEstimateRoute_UsesGeocodeCache(t *testing.T) {
	var nominatimHits int
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nominatimHits++
		fmt.Fprint(w, `[{"lat":"28.613900","lon":"77.209000"}]`)
	}))
	t.Cleanup(nominatim.Close)
	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":5000,"duration":600}]}`)
	}))
	t.Cleanup(osrm.Close)

	cache := &fakeGeoCache{coords: map[string][2]float64{}}
	svc := NewService(nominatim.URL, osrm.URL, slog.Default(), WithGeocodeCache(cache))

	svc.EstimateRoute(context.Background(), "Delhi", "Agra")
	svc.EstimateRoute(context.Background(), "Delhi", "Agra")

	assert.Equal(t, 2, nominatimHits)
	assert.Equal(t, 2, cache.sets)
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{45, "45 min"},
		{60, "1h"},
		{135, "2h 15m"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, formatDuration(tc.minutes))
		})
	}
	assert.True(t, strings.HasPrefix(formatDuration(0), "0"))
}
