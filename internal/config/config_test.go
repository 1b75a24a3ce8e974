package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRANSPORT_JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.DataDir != "data" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	want := PricingConfig{BaseFare: 4.50, PerKm: 2.30, Floor: 8.00, Ceiling: 40.00}
	if cfg.Pricing != want {
		t.Fatalf("pricing = %+v, want %+v", cfg.Pricing, want)
	}
	if cfg.Routing.RoadFactor != 1.4 {
		t.Fatalf("road factor = %v", cfg.Routing.RoadFactor)
	}
	if cfg.Matching.RadiusKm != 10 {
		t.Fatalf("radius = %v", cfg.Matching.RadiusKm)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TRANSPORT_JWT_SECRET", "secret")
	t.Setenv("TRANSPORT_FARE_BASE", "3.00")
	t.Setenv("TRANSPORT_FARE_PER_KM", "1.20")
	t.Setenv("TRANSPORT_EVENTS", "kafka")
	t.Setenv("TRANSPORT_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pricing.BaseFare != 3.00 || cfg.Pricing.PerKm != 1.20 {
		t.Fatalf("pricing = %+v", cfg.Pricing)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.Events.KafkaBrokers)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	var cfg Config
	cfg.Storage.Backend = "postgres"
	cfg.Events.Backend = "carrier-pigeon"
	cfg.Routing.RoadFactor = 0.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"http addr", "TRANSPORT_DB_DSN", "TRANSPORT_JWT_SECRET", "road factor", "radius", "carrier-pigeon"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err.Error(), want)
		}
	}
}
