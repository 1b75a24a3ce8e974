// README: Proximity index of open request origins backed by Redis GEO.
package matching

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/milagros-hr/proyecto-transport/internal/types"
)

const pendingGeoKey = "matching:pending_requests"

type RedisIndex struct {
	redis *redis.Client
	key   string
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{redis: client, key: pendingGeoKey}
}

// Reset replaces the whole index in one MULTI block.
func (s *RedisIndex) Reset(ctx context.Context, origins map[types.ID]types.Point) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		locs := make([]*redis.GeoLocation, 0, len(origins))
		for id, p := range origins {
			if !p.HasCoords() {
				continue
			}
			locs = append(locs, geoLocation(id, p))
		}
		if len(locs) > 0 {
			pipe.GeoAdd(ctx, s.key, locs...)
		}
		return nil
	})
	return err
}

func (s *RedisIndex) Add(ctx context.Context, id types.ID, origin types.Point) error {
	if !origin.HasCoords() {
		return nil
	}
	return s.redis.GeoAdd(ctx, s.key, geoLocation(id, origin)).Err()
}

func (s *RedisIndex) Remove(ctx context.Context, ids ...types.ID) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id.String()
	}
	return s.redis.ZRem(ctx, s.key, members...).Err()
}

func (s *RedisIndex) Nearby(ctx context.Context, center types.Point, radiusKm float64) (map[types.ID]float64, error) {
	results, err := s.redis.GeoSearchLocation(ctx, s.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err == redis.Nil {
		return map[types.ID]float64{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[types.ID]float64, len(results))
	for _, r := range results {
		id, ok := types.ParseID(r.Name)
		if !ok {
			continue
		}
		out[id] = r.Dist
	}
	return out, nil
}

func geoLocation(id types.ID, p types.Point) *redis.GeoLocation {
	return &redis.GeoLocation{
		Name:      strconv.FormatInt(int64(id), 10),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}
}
