package routing

import "math"

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance in km between two lat/lng pairs in degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	sinDPhi := math.Sin(radians(lat2-lat1) / 2)
	sinDLambda := math.Sin(radians(lng2-lng1) / 2)

	h := sinDPhi*sinDPhi + math.Cos(phi1)*math.Cos(phi2)*sinDLambda*sinDLambda
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
