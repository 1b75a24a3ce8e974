package pricing

// Rate is the fare schedule. A zero Ceiling means no cap.
type Rate struct {
	BaseFare float64 `json:"base_fare"`
	PerKm    float64 `json:"per_km"`
	Floor    float64 `json:"floor"`
	Ceiling  float64 `json:"ceiling,omitempty"`
}

type Quote struct {
	DistanceKm float64 `json:"distance_km"`
	Fare       float64 `json:"fare"`
	Floored    bool    `json:"floored,omitempty"`
	Capped     bool    `json:"capped,omitempty"`
}
