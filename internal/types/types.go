// Package types holds the value objects shared by every module.
package types

import (
	"strconv"
)

// ID identifies riders, drivers, requests and offers. Ids are assigned as max existing + 1.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a positive decimal id.
func ParseID(s string) (ID, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return ID(n), true
}

// Point is a named place with optional coordinates. A zero Lat/Lng pair means "no coordinates".
type Point struct {
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat,omitempty"`
	Lng  float64 `json:"lng,omitempty"`
}

func (p Point) HasCoords() bool {
	return p.Lat != 0 || p.Lng != 0
}

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

func (r Role) Valid() bool {
	return r == RoleRider || r == RoleDriver
}
