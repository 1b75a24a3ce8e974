// README: Trip request aggregate, counter-offers, notices and status definitions.
package trip

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/milagros-hr/proyecto-transport/internal/types"
)

type Status string

const (
	StatusPending           Status = "pending"
	StatusWithOffers        Status = "with_offers"
	StatusAccepted          Status = "accepted"
	StatusConfirmed         Status = "confirmed"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
	StatusCancelledByRider  Status = "cancelled_by_rider"
	StatusCancelledByDriver Status = "cancelled_by_driver"
)

var statusAliases = map[string]Status{
	"pendiente":           StatusPending,
	"con_ofertas":         StatusWithOffers,
	"aceptada":            StatusAccepted,
	"confirmada":          StatusConfirmed,
	"en_curso":            StatusInProgress,
	"completado":          StatusCompleted,
	"completada":          StatusCompleted,
	"cancelado_pasajero":  StatusCancelledByRider,
	"cancelado_conductor": StatusCancelledByDriver,
	"cancelada":           StatusCancelledByRider,
}

// ParseStatus accepts canonical values and the legacy Spanish spellings.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch st := Status(v); st {
	case StatusPending, StatusWithOffers, StatusAccepted, StatusConfirmed,
		StatusInProgress, StatusCompleted, StatusCancelledByRider, StatusCancelledByDriver:
		return st, nil
	}
	if st, ok := statusAliases[v]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Open reports whether the request is still awaiting a decision (queued).
func (s Status) Open() bool {
	return s == StatusPending || s == StatusWithOffers
}

// Matched reports whether a driver and an agreed price are bound to the request.
func (s Status) Matched() bool {
	switch s {
	case StatusAccepted, StatusConfirmed, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s Status) Cancelled() bool {
	return s == StatusCancelledByRider || s == StatusCancelledByDriver
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s.Cancelled()
}

type Departure string

const (
	DepartureNow   Departure = "now"
	Departure30Min Departure = "30_min"
	Departure60Min Departure = "60_min"
)

// ParseDeparture maps a departure hint to the delay before pickup. Empty means now.
func ParseDeparture(s string) (Departure, time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "now", "ahora":
		return DepartureNow, 0, nil
	case "30_min", "30min":
		return Departure30Min, 30 * time.Minute, nil
	case "60_min", "60min", "1h":
		return Departure60Min, 60 * time.Minute, nil
	}
	return "", 0, fmt.Errorf("%w: unknown departure hint %q", ErrInvalidInput, s)
}

// Transition is one entry of a request's state history.
type Transition struct {
	From    Status    `json:"from,omitempty"`
	State   Status    `json:"state"`
	At      time.Time `json:"at"`
	ActorID types.ID  `json:"actor_id"`
	Reason  string    `json:"reason,omitempty"`
}

type Request struct {
	ID                     types.ID     `json:"id"`
	RiderID                types.ID     `json:"rider_id"`
	DriverID               *types.ID    `json:"driver_id"`
	LastCancellingDriverID *types.ID    `json:"last_cancelling_driver_id,omitempty"`
	Origin                 types.Point  `json:"origin"`
	Destination            types.Point  `json:"destination"`
	DistanceKm             float64      `json:"distance_km"`
	DistanceSource         string       `json:"distance_source,omitempty"`
	Route                  []string     `json:"route,omitempty"`
	StandardPrice          float64      `json:"standard_price"`
	AgreedPrice            *float64     `json:"agreed_price"`
	Status                 Status       `json:"status"`
	Departure              Departure    `json:"departure"`
	EstimatedDeparture     time.Time    `json:"estimated_departure"`
	QueuePosition          int          `json:"queue_position"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
	AcceptedAt             *time.Time   `json:"accepted_at,omitempty"`
	ConfirmedAt            *time.Time   `json:"confirmed_at,omitempty"`
	StartedAt              *time.Time   `json:"started_at,omitempty"`
	CompletedAt            *time.Time   `json:"completed_at,omitempty"`
	CancelledAt            *time.Time   `json:"cancelled_at,omitempty"`
	CancelReason           string       `json:"cancel_reason,omitempty"`
	CancelledBy            types.Role   `json:"cancelled_by,omitempty"`
	History                []Transition `json:"history"`
}

// Participant returns the role actor plays on the request, if any.
func (r *Request) Participant(actor types.ID) (types.Role, bool) {
	if actor == r.RiderID {
		return types.RoleRider, true
	}
	if r.DriverID != nil && *r.DriverID == actor {
		return types.RoleDriver, true
	}
	return "", false
}

// Clone returns a deep copy that can leave the critical section.
func (r *Request) Clone() *Request {
	c := *r
	if r.DriverID != nil {
		v := *r.DriverID
		c.DriverID = &v
	}
	if r.LastCancellingDriverID != nil {
		v := *r.LastCancellingDriverID
		c.LastCancellingDriverID = &v
	}
	if r.AgreedPrice != nil {
		v := *r.AgreedPrice
		c.AgreedPrice = &v
	}
	c.Route = append([]string(nil), r.Route...)
	c.History = append([]Transition(nil), r.History...)
	return &c
}

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

type Offer struct {
	ID         types.ID    `json:"id"`
	RequestID  types.ID    `json:"request_id"`
	DriverID   types.ID    `json:"driver_id"`
	Price      float64     `json:"price"`
	Message    string      `json:"message,omitempty"`
	Status     OfferStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

// Notice tells a rider or driver that the other party cancelled a trip.
type Notice struct {
	ID          types.ID   `json:"id"`
	UserID      types.ID   `json:"user_id"`
	Role        types.Role `json:"role"`
	RequestID   types.ID   `json:"request_id"`
	CancelledBy types.Role `json:"cancelled_by"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	SeenAt      *time.Time `json:"seen_at,omitempty"`
}

type HistorySummary struct {
	Trips           []*Request `json:"trips"`
	Count           int        `json:"count"`
	TotalFare       float64    `json:"total_fare"`
	TotalDistanceKm float64    `json:"total_distance_km"`
}

type Stats struct {
	Requested int `json:"requested"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}
