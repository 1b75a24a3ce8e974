package routing

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestShortestPath_LimaGraph(t *testing.T) {
	g := LimaGraph()
	tests := []struct {
		name     string
		from, to string
		wantDist float64
		wantPath []string
	}{
		{
			name:     "direct edge beats the Lince detour",
			from:     "Miraflores",
			to:       "San Isidro",
			wantDist: 3,
			wantPath: []string{"Miraflores", "San Isidro"},
		},
		{
			name:     "downtown to Miraflores",
			from:     "Cercado de Lima",
			to:       "Miraflores",
			wantDist: 9,
			wantPath: []string{"Cercado de Lima", "Lince", "San Isidro", "Miraflores"},
		},
		{
			name:     "through Surquillo",
			from:     "Barranco",
			to:       "San Borja",
			wantDist: 8,
			wantPath: []string{"Barranco", "Miraflores", "Surquillo", "San Borja"},
		},
		{
			name:     "across the city",
			from:     "Callao",
			to:       "La Molina",
			wantDist: 34,
			wantPath: []string{"Callao", "San Miguel", "Pueblo Libre", "Cercado de Lima", "Lince", "San Isidro", "San Borja", "Surco", "La Molina"},
		},
		{
			name:     "same vertex",
			from:     "Lince",
			to:       "Lince",
			wantDist: 0,
			wantPath: []string{"Lince"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, path := g.ShortestPath(tt.from, tt.to)
			if d != tt.wantDist {
				t.Fatalf("distance = %v, want %v", d, tt.wantDist)
			}
			if !reflect.DeepEqual(path, tt.wantPath) {
				t.Fatalf("path = %v, want %v", path, tt.wantPath)
			}
		})
	}
}

func TestShortestPath_IsSymmetricAndRepeatable(t *testing.T) {
	g := LimaGraph()
	d1, p1 := g.ShortestPath("Callao", "Barranco")
	d2, p2 := g.ShortestPath("Callao", "Barranco")
	if d1 != d2 || !reflect.DeepEqual(p1, p2) {
		t.Fatalf("repeated query differs: %v %v vs %v %v", d1, p1, d2, p2)
	}
	back, _ := g.ShortestPath("Barranco", "Callao")
	if back != d1 {
		t.Fatalf("reverse distance = %v, want %v", back, d1)
	}
}

func TestShortestPath_NoPath(t *testing.T) {
	g := LimaGraph()
	g.AddLocation(Location{Name: "Ancón", Lat: -11.77, Lng: -77.17})

	cases := [][2]string{
		{"Miraflores", "Ancón"},
		{"Miraflores", "Atlantis"},
		{"Atlantis", "Miraflores"},
	}
	for _, c := range cases {
		d, path := g.ShortestPath(c[0], c[1])
		if !math.IsInf(d, 1) {
			t.Errorf("%s -> %s: distance = %v, want +Inf", c[0], c[1], d)
		}
		if len(path) != 0 {
			t.Errorf("%s -> %s: path = %v, want empty", c[0], c[1], path)
		}
	}
}

func TestAddEdge_RejectsNegativeWeight(t *testing.T) {
	g := NewGraph()
	if err := g.AddEdge("a", "b", -1); err == nil {
		t.Fatal("expected error for negative weight")
	}
	if err := g.AddEdge("a", "", 1); err == nil {
		t.Fatal("expected error for unnamed endpoint")
	}
}

func TestLocations_Sorted(t *testing.T) {
	locs := LimaGraph().Locations()
	if len(locs) != 13 {
		t.Fatalf("expected 13 locations, got %d", len(locs))
	}
	for i := 1; i < len(locs); i++ {
		if locs[i-1].Name > locs[i].Name {
			t.Fatalf("locations not sorted at %d: %s > %s", i, locs[i-1].Name, locs[i].Name)
		}
	}
	for _, l := range locs {
		if !l.HasCoords() {
			t.Errorf("%s has no coordinates", l.Name)
		}
	}
}

func TestLoadGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	body := `{
		"locations": [{"name": "A", "lat": -12.0, "lng": -77.0}],
		"edges": [{"from": "A", "to": "B", "weight": 2}, {"from": "B", "to": "C", "weight": 1.5}]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write graph: %v", err)
	}
	g, err := LoadGraph(path)
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}
	d, p := g.ShortestPath("A", "C")
	if d != 3.5 || len(p) != 3 {
		t.Fatalf("got %v %v", d, p)
	}
	if l, ok := g.Location("A"); !ok || l.Lat != -12.0 {
		t.Fatalf("location A = %+v, %v", l, ok)
	}
}
