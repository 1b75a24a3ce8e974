package matching

import (
	"context"
	"sync"

	"github.com/milagros-hr/proyecto-transport/internal/modules/routing"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

type MemoryIndex struct {
	mu      sync.RWMutex
	origins map[types.ID]types.Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{origins: make(map[types.ID]types.Point)}
}

func (m *MemoryIndex) Reset(_ context.Context, origins map[types.ID]types.Point) error {
	next := make(map[types.ID]types.Point, len(origins))
	for id, p := range origins {
		if p.HasCoords() {
			next[id] = p
		}
	}
	m.mu.Lock()
	m.origins = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Add(_ context.Context, id types.ID, origin types.Point) error {
	if !origin.HasCoords() {
		return nil
	}
	m.mu.Lock()
	m.origins[id] = origin
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Remove(_ context.Context, ids ...types.ID) error {
	m.mu.Lock()
	for _, id := range ids {
		delete(m.origins, id)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Nearby(_ context.Context, center types.Point, radiusKm float64) (map[types.ID]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[types.ID]float64)
	for id, p := range m.origins {
		if d := routing.HaversineKm(center.Lat, center.Lng, p.Lat, p.Lng); d <= radiusKm {
			out[id] = d
		}
	}
	return out, nil
}
