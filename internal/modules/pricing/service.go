// README: Pricing service computes fares from distance.
package pricing

import (
	"math"

	"github.com/milagros-hr/proyecto-transport/internal/config"
)

type Service struct {
	rate Rate
}

func NewService(cfg config.PricingConfig) *Service {
	return &Service{rate: Rate{
		BaseFare: cfg.BaseFare,
		PerKm:    cfg.PerKm,
		Floor:    cfg.Floor,
		Ceiling:  cfg.Ceiling,
	}}
}

func (s *Service) Rate() Rate {
	return s.rate
}

// Price returns max(floor, base + perKm*d), capped at the ceiling when one is set.
// Negative distances are treated as zero.
func (s *Service) Price(distanceKm float64) float64 {
	return s.Quote(distanceKm).Fare
}

func (s *Service) Quote(distanceKm float64) Quote {
	if distanceKm < 0 || math.IsNaN(distanceKm) {
		distanceKm = 0
	}
	q := Quote{DistanceKm: distanceKm}
	fare := s.rate.BaseFare + s.rate.PerKm*distanceKm
	if fare < s.rate.Floor {
		fare = s.rate.Floor
		q.Floored = true
	}
	if s.rate.Ceiling > 0 && fare > s.rate.Ceiling {
		fare = s.rate.Ceiling
		q.Capped = true
	}
	q.Fare = roundCents(fare)
	return q
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
