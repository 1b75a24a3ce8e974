// README: Weighted undirected graph of named locations with Dijkstra shortest-path queries.
package routing

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// Location is a graph vertex. Coordinates are optional.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat,omitempty"`
	Lng  float64 `json:"lng,omitempty"`
}

func (l Location) HasCoords() bool {
	return l.Lat != 0 || l.Lng != 0
}

type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// Graph is built once and read-only afterwards; concurrent ShortestPath calls are safe.
type Graph struct {
	adj       map[string]map[string]float64
	locations map[string]Location
}

func NewGraph() *Graph {
	return &Graph{
		adj:       make(map[string]map[string]float64),
		locations: make(map[string]Location),
	}
}

// AddLocation registers a vertex, overwriting any coordinates already known for it.
func (g *Graph) AddLocation(l Location) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return
	}
	g.locations[l.Name] = l
	if _, ok := g.adj[l.Name]; !ok {
		g.adj[l.Name] = make(map[string]float64)
	}
}

func (g *Graph) AddEdge(from, to string, weight float64) error {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return fmt.Errorf("edge endpoints must be named")
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("edge %s-%s: weight must be a finite non-negative number", from, to)
	}
	for _, name := range []string{from, to} {
		if _, ok := g.locations[name]; !ok {
			g.AddLocation(Location{Name: name})
		}
	}
	g.adj[from][to] = weight
	g.adj[to][from] = weight
	return nil
}

func (g *Graph) Location(name string) (Location, bool) {
	l, ok := g.locations[strings.TrimSpace(name)]
	return l, ok
}

// Locations returns all vertices sorted by name.
func (g *Graph) Locations() []Location {
	out := make([]Location, 0, len(g.locations))
	for _, l := range g.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ShortestPath runs Dijkstra from origin to destination. Unknown endpoints and unreachable
// destinations yield (+Inf, nil).
func (g *Graph) ShortestPath(origin, destination string) (float64, []string) {
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	if _, ok := g.adj[origin]; !ok {
		return math.Inf(1), nil
	}
	if _, ok := g.adj[destination]; !ok {
		return math.Inf(1), nil
	}
	if origin == destination {
		return 0, []string{origin}
	}

	dist := map[string]float64{origin: 0}
	prev := make(map[string]string)
	done := make(map[string]bool)

	pq := &queue{}
	seq := 0
	heap.Push(pq, &item{name: origin, dist: 0, seq: seq})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*item)
		if done[cur.name] {
			continue
		}
		done[cur.name] = true
		if cur.name == destination {
			break
		}
		for next, w := range g.adj[cur.name] {
			if done[next] {
				continue
			}
			nd := cur.dist + w
			if d, seen := dist[next]; !seen || nd < d {
				dist[next] = nd
				prev[next] = cur.name
				seq++
				heap.Push(pq, &item{name: next, dist: nd, seq: seq})
			}
		}
	}

	total, ok := dist[destination]
	if !ok {
		return math.Inf(1), nil
	}
	var path []string
	for at := destination; ; at = prev[at] {
		path = append(path, at)
		if at == origin {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return total, path
}

type graphFile struct {
	Locations []Location `json:"locations"`
	Edges     []Edge     `json:"edges"`
}

// LoadGraph reads a graph definition of the form {"locations": [...], "edges": [...]}.
func LoadGraph(path string) (*Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	var f graphFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode graph %s: %w", path, err)
	}
	g := NewGraph()
	for _, l := range f.Locations {
		g.AddLocation(l)
	}
	for _, e := range f.Edges {
		if err := g.AddEdge(e.From, e.To, e.Weight); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// item ordering falls back to push order on equal distance.
type item struct {
	name string
	dist float64
	seq  int
}

type queue []*item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].dist == q[j].dist {
		return q[i].seq < q[j].seq
	}
	return q[i].dist < q[j].dist
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(*item)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
