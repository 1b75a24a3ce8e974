package pricing

import (
	"testing"

	"github.com/milagros-hr/proyecto-transport/internal/config"
)

func TestService_Price(t *testing.T) {
	svc := NewService(config.PricingConfig{BaseFare: 4.50, PerKm: 2.30, Floor: 8.00, Ceiling: 40.00})

	tests := []struct {
		name     string
		distance float64
		wantFare float64
	}{
		{name: "zero distance hits the floor", distance: 0, wantFare: 8.00},
		{name: "short trip still floored", distance: 1.5, wantFare: 8.00},
		{name: "graph distance Miraflores-San Isidro", distance: 3, wantFare: 11.40},
		{name: "haversine distance Miraflores-San Isidro", distance: 2.73, wantFare: 10.78},
		{name: "medium trip", distance: 10, wantFare: 27.50},
		{name: "long trip capped", distance: 34, wantFare: 40.00},
		{name: "negative distance treated as zero", distance: -3, wantFare: 8.00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Price(tt.distance); got != tt.wantFare {
				t.Errorf("Price(%v) = %v, want %v", tt.distance, got, tt.wantFare)
			}
		})
	}
}

func TestService_PriceIsMonotonicAndBounded(t *testing.T) {
	svc := NewService(config.DefaultPricing())
	prev := svc.Price(0)
	for d := 0.0; d <= 50; d += 0.25 {
		got := svc.Price(d)
		if got < prev {
			t.Fatalf("price decreased at %v km: %v < %v", d, got, prev)
		}
		if got > 40.00 {
			t.Fatalf("price %v exceeds ceiling at %v km", got, d)
		}
		prev = got
	}
}

func TestService_NoCeiling(t *testing.T) {
	svc := NewService(config.PricingConfig{BaseFare: 3.00, PerKm: 1.20, Floor: 5.00})
	q := svc.Quote(100)
	if q.Capped || q.Fare != 123.00 {
		t.Fatalf("quote = %+v", q)
	}
	if !svc.Quote(0).Floored {
		t.Fatal("expected zero distance to be floored")
	}
}
