package routing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/milagros-hr/proyecto-transport/internal/types"
)

type stubRoads struct {
	km    float64
	err   error
	calls int
}

func (s *stubRoads) DrivingDistanceKm(_ context.Context, _, _ types.Point) (float64, error) {
	s.calls++
	return s.km, s.err
}

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lng1      float64
		lat2      float64
		lng2      float64
		wantKm    float64
		tolerance float64
	}{
		{
			name: "same point",
			lat1: -12.1203, lng1: -77.0282,
			lat2: -12.1203, lng2: -77.0282,
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name: "Miraflores to San Isidro (~1.95km)",
			lat1: -12.1203, lng1: -77.0282,
			lat2: -12.1040, lng2: -77.0348,
			wantKm:    1.95,
			tolerance: 0.02,
		},
		{
			name: "New York to Los Angeles (~3944km)",
			lat1: 40.7128, lng1: -74.0060,
			lat2: 34.0522, lng2: -118.2437,
			wantKm:    3944,
			tolerance: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestRoute_PrefersGraph(t *testing.T) {
	roads := &stubRoads{km: 99}
	r := NewRouter(LimaGraph(), 1.4, WithRoadProvider(roads))

	got, err := r.Route(context.Background(),
		types.Point{Name: "Miraflores", Lat: -12.1203, Lng: -77.0282},
		types.Point{Name: "San Isidro", Lat: -12.1040, Lng: -77.0348},
	)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.Source != SourceGraph || got.DistanceKm != 3 || len(got.Path) != 2 {
		t.Fatalf("route = %+v", got)
	}
	if roads.calls != 0 {
		t.Fatalf("road provider called %d times", roads.calls)
	}
}

func TestRoute_HaversineFallback(t *testing.T) {
	r := NewRouter(LimaGraph(), 1.4)

	got, err := r.Route(context.Background(),
		types.Point{Lat: -12.1203, Lng: -77.0282},
		types.Point{Lat: -12.1040, Lng: -77.0348},
	)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.Source != SourceHaversine {
		t.Fatalf("source = %s", got.Source)
	}
	if got.DistanceKm != 2.73 {
		t.Fatalf("distance = %v, want 2.73", got.DistanceKm)
	}
	if len(got.Path) != 0 {
		t.Fatalf("path = %v, want empty", got.Path)
	}
}

func TestRoute_DisconnectedNamesUseCoordinates(t *testing.T) {
	g := LimaGraph()
	g.AddLocation(Location{Name: "Chorrillos", Lat: -12.1700, Lng: -77.0200})
	r := NewRouter(g, 1.4)

	got, err := r.Route(context.Background(), types.Point{Name: "Barranco"}, types.Point{Name: "Chorrillos"})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.Source != SourceHaversine || got.DistanceKm <= 0 {
		t.Fatalf("route = %+v", got)
	}
}

func TestRoute_RoadProvider(t *testing.T) {
	roads := &stubRoads{km: 4.567}
	r := NewRouter(LimaGraph(), 1.4, WithRoadProvider(roads))

	got, err := r.Route(context.Background(), types.Point{Lat: -12.05, Lng: -77.05}, types.Point{Lat: -12.10, Lng: -77.0})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.Source != SourceMaps || got.DistanceKm != 4.57 {
		t.Fatalf("route = %+v", got)
	}

	roads.err = errors.New("quota exceeded")
	got, err = r.Route(context.Background(), types.Point{Lat: -12.05, Lng: -77.05}, types.Point{Lat: -12.10, Lng: -77.0})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if got.Source != SourceHaversine || got.DistanceKm != 10.89 {
		t.Fatalf("fallback route = %+v", got)
	}
}

func TestRoute_MissingCoordinates(t *testing.T) {
	r := NewRouter(LimaGraph(), 1.4)
	_, err := r.Route(context.Background(), types.Point{Name: "Somewhere"}, types.Point{Name: "Miraflores"})
	if !errors.Is(err, ErrNoCoordinates) {
		t.Fatalf("err = %v, want ErrNoCoordinates", err)
	}
}
