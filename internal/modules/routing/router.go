// README: Route computation chain: street graph, then road provider, then corrected great-circle distance.
package routing

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/milagros-hr/proyecto-transport/internal/types"
)

var ErrNoCoordinates = errors.New("missing coordinates for route endpoint")

type Source string

const (
	SourceGraph     Source = "graph"
	SourceMaps      Source = "maps"
	SourceHaversine Source = "haversine"
)

type Route struct {
	DistanceKm float64  `json:"distance_km"`
	Path       []string `json:"path,omitempty"`
	Source     Source   `json:"source"`
}

// RoadProvider returns a driving distance between two coordinates.
type RoadProvider interface {
	DrivingDistanceKm(ctx context.Context, origin, destination types.Point) (float64, error)
}

type Router struct {
	graph      *Graph
	roads      RoadProvider
	roadFactor float64
	log        *zap.Logger
}

type Option func(*Router)

func WithRoadProvider(p RoadProvider) Option {
	return func(r *Router) { r.roads = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.log = l }
}

func NewRouter(g *Graph, roadFactor float64, opts ...Option) *Router {
	if g == nil {
		g = NewGraph()
	}
	if roadFactor < 1 {
		roadFactor = 1
	}
	r := &Router{graph: g, roadFactor: roadFactor, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Graph() *Graph {
	return r.graph
}

// Route resolves the distance between two points. Named points found in the graph use the
// shortest path; anything else needs coordinates, either given or known for the name.
func (r *Router) Route(ctx context.Context, origin, destination types.Point) (Route, error) {
	if origin.Name != "" && destination.Name != "" {
		if d, path := r.graph.ShortestPath(origin.Name, destination.Name); !math.IsInf(d, 1) {
			return Route{DistanceKm: round2(d), Path: path, Source: SourceGraph}, nil
		}
	}

	o, ok := r.resolve(origin)
	if !ok {
		return Route{}, ErrNoCoordinates
	}
	d, ok := r.resolve(destination)
	if !ok {
		return Route{}, ErrNoCoordinates
	}

	if r.roads != nil {
		km, err := r.roads.DrivingDistanceKm(ctx, o, d)
		if err == nil && km > 0 {
			return Route{DistanceKm: round2(km), Source: SourceMaps}, nil
		}
		r.log.Warn("road provider failed; using great-circle estimate", zap.Error(err))
	}

	km := HaversineKm(o.Lat, o.Lng, d.Lat, d.Lng) * r.roadFactor
	return Route{DistanceKm: round2(km), Source: SourceHaversine}, nil
}

func (r *Router) resolve(p types.Point) (types.Point, bool) {
	if p.HasCoords() {
		return p, true
	}
	if l, ok := r.graph.Location(p.Name); ok && l.HasCoords() {
		p.Lat, p.Lng = l.Lat, l.Lng
		return p, true
	}
	return p, false
}
