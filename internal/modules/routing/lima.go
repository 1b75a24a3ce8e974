// README: Built-in street graph of Lima districts used when no graph file is configured.
package routing

var limaLocations = []Location{
	{Name: "Cercado de Lima", Lat: -12.0464, Lng: -77.0428},
	{Name: "Jesús María", Lat: -12.0719, Lng: -77.0431},
	{Name: "Lince", Lat: -12.0876, Lng: -77.0364},
	{Name: "San Isidro", Lat: -12.1040, Lng: -77.0348},
	{Name: "Miraflores", Lat: -12.1203, Lng: -77.0282},
	{Name: "Barranco", Lat: -12.1406, Lng: -77.0214},
	{Name: "Surquillo", Lat: -12.1142, Lng: -77.0177},
	{Name: "San Borja", Lat: -12.1086, Lng: -77.0023},
	{Name: "Surco", Lat: -12.1339, Lng: -76.9931},
	{Name: "La Molina", Lat: -12.0794, Lng: -76.9397},
	{Name: "Pueblo Libre", Lat: -12.0740, Lng: -77.0615},
	{Name: "San Miguel", Lat: -12.0773, Lng: -77.0907},
	{Name: "Callao", Lat: -12.0566, Lng: -77.1181},
}

var limaEdges = []Edge{
	{"Cercado de Lima", "Jesús María", 3},
	{"Cercado de Lima", "Lince", 4},
	{"Lince", "San Isidro", 2},
	{"San Isidro", "Miraflores", 3},
	{"Miraflores", "Barranco", 3},
	{"Miraflores", "Surquillo", 2},
	{"Surquillo", "San Borja", 3},
	{"San Borja", "Surco", 4},
	{"Surco", "La Molina", 6},
	{"Cercado de Lima", "Pueblo Libre", 4},
	{"Pueblo Libre", "San Miguel", 3},
	{"San Miguel", "Callao", 7},
	{"Jesús María", "Lince", 2},
	{"San Isidro", "San Borja", 4},
}

// LimaGraph returns a fresh copy of the built-in district graph.
func LimaGraph() *Graph {
	g := NewGraph()
	for _, l := range limaLocations {
		g.AddLocation(l)
	}
	for _, e := range limaEdges {
		// static data; weights are known to be valid
		_ = g.AddEdge(e.From, e.To, e.Weight)
	}
	return g
}
