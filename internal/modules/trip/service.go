// README: Trip service: request creation, queue listing, lifecycle transitions, cancellation and history.
package trip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/milagros-hr/proyecto-transport/internal/events"
	"github.com/milagros-hr/proyecto-transport/internal/modules/routing"
	"github.com/milagros-hr/proyecto-transport/internal/observability"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrUnauthorized = errors.New("actor not allowed on this request")
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failure")
)

type Router interface {
	Route(ctx context.Context, origin, destination types.Point) (routing.Route, error)
}

type Pricer interface {
	Price(distanceKm float64) float64
}

// Directory confirms that a user exists with the given role.
type Directory interface {
	Exists(ctx context.Context, id types.ID, role types.Role) (bool, error)
}

type Service struct {
	store     *Store
	router    Router
	pricing   Pricer
	directory Directory
	events    events.Publisher
	radiusKm  float64
	log       *zap.Logger
}

type Deps struct {
	Store     *Store
	Router    Router
	Pricing   Pricer
	Directory Directory
	Events    events.Publisher
	// RadiusKm is the default search radius for nearby pending requests.
	RadiusKm float64
	Logger   *zap.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		router:    d.Router,
		pricing:   d.Pricing,
		directory: d.Directory,
		events:    d.Events,
		radiusKm:  d.RadiusKm,
		log:       d.Logger,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.radiusKm <= 0 {
		s.radiusKm = 10
	}
	return s
}

func (s *Service) Store() *Store {
	return s.store
}

type CreateCommand struct {
	RiderID     types.ID
	Origin      types.Point
	Destination types.Point
	// DistanceKm is computed from the route when zero.
	DistanceKm float64
	Departure  string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Request, error) {
	if cmd.RiderID <= 0 {
		return nil, fmt.Errorf("%w: rider id is required", ErrInvalidInput)
	}
	if cmd.DistanceKm < 0 || math.IsNaN(cmd.DistanceKm) || math.IsInf(cmd.DistanceKm, 0) {
		return nil, fmt.Errorf("%w: distance must be a non-negative number", ErrInvalidInput)
	}
	cmd.Origin.Name = strings.TrimSpace(cmd.Origin.Name)
	cmd.Destination.Name = strings.TrimSpace(cmd.Destination.Name)
	if cmd.Origin.Name == "" && !cmd.Origin.HasCoords() {
		return nil, fmt.Errorf("%w: origin is required", ErrInvalidInput)
	}
	if cmd.Destination.Name == "" && !cmd.Destination.HasCoords() {
		return nil, fmt.Errorf("%w: destination is required", ErrInvalidInput)
	}
	departure, delay, err := ParseDeparture(cmd.Departure)
	if err != nil {
		return nil, err
	}
	if err := s.RequireUser(ctx, cmd.RiderID, types.RoleRider); err != nil {
		return nil, err
	}

	distance := cmd.DistanceKm
	var path []string
	source := "client"
	if distance == 0 {
		route, err := s.router.Route(ctx, cmd.Origin, cmd.Destination)
		if errors.Is(err, routing.ErrNoCoordinates) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if err != nil {
			return nil, err
		}
		distance, path, source = route.DistanceKm, route.Path, string(route.Source)
	}
	price := s.pricing.Price(distance)

	var created *Request
	err = s.store.Update(ctx, func(tx *Tx) error {
		now := tx.Now()
		r := &Request{
			RiderID:            cmd.RiderID,
			Origin:             cmd.Origin,
			Destination:        cmd.Destination,
			DistanceKm:         distance,
			DistanceSource:     source,
			Route:              path,
			StandardPrice:      price,
			Status:             StatusPending,
			Departure:          departure,
			EstimatedDeparture: now.Add(delay),
			QueuePosition:      tx.QueueLen() + 1,
			CreatedAt:          now,
			UpdatedAt:          now,
			History: []Transition{{
				State:   StatusPending,
				At:      now,
				ActorID: cmd.RiderID,
				Reason:  "requested",
			}},
		}
		tx.AddRequest(r)
		created = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.TripTransitions.WithLabelValues(string(StatusPending)).Inc()
	s.publish(ctx, events.TripRequested, created, cmd.RiderID, "")
	return created, nil
}

// Get returns a request visible to actor (its rider or current driver).
func (s *Service) Get(ctx context.Context, id, actor types.ID) (*Request, error) {
	var out *Request
	err := s.store.View(ctx, func(tx *Tx) error {
		r, err := tx.Request(id)
		if err != nil {
			return err
		}
		if _, ok := r.Participant(actor); !ok {
			return fmt.Errorf("%w: request %s", ErrUnauthorized, id)
		}
		out = r.Clone()
		return nil
	})
	return out, err
}

// Near filters pending requests to those whose origin lies within RadiusKm of the point.
type Near struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

type PendingRequest struct {
	*Request
	DriverDistanceKm *float64 `json:"driver_distance_km,omitempty"`
}

// ListPending returns open requests in FIFO order, optionally restricted to a radius.
func (s *Service) ListPending(ctx context.Context, near *Near) ([]PendingRequest, error) {
	var pending []*Request
	err := s.store.View(ctx, func(tx *Tx) error {
		for _, r := range tx.Pending() {
			pending = append(pending, r.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]PendingRequest, 0, len(pending))
	if near == nil {
		for _, r := range pending {
			out = append(out, PendingRequest{Request: r})
		}
		return out, nil
	}

	radius := near.RadiusKm
	if radius <= 0 {
		radius = s.radiusKm
	}
	center := types.Point{Lat: near.Lat, Lng: near.Lng}
	distances, err := s.nearby(ctx, center, radius, pending)
	if err != nil {
		return nil, err
	}
	for _, r := range pending {
		d, ok := distances[r.ID]
		if !ok {
			continue
		}
		d = math.Round(d*100) / 100
		out = append(out, PendingRequest{Request: r, DriverDistanceKm: &d})
	}
	return out, nil
}

func (s *Service) nearby(ctx context.Context, center types.Point, radiusKm float64, pending []*Request) (map[types.ID]float64, error) {
	if d, ok := s.store.Nearby(ctx, center, radiusKm); ok {
		return d, nil
	}
	out := make(map[types.ID]float64)
	for _, r := range pending {
		if !r.Origin.HasCoords() {
			continue
		}
		if d := routing.HaversineKm(center.Lat, center.Lng, r.Origin.Lat, r.Origin.Lng); d <= radiusKm {
			out[r.ID] = d
		}
	}
	return out, nil
}

type TransitionCommand struct {
	RequestID types.ID
	Target    Status
	ActorID   types.ID
	Reason    string
}

// Transition advances a matched request or cancels it. The rider confirms a driver who
// accepted directly; the driver starts and completes the trip. States that need
// negotiation data are reached through the negotiation engine only.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Request, error) {
	if cmd.Target.Cancelled() {
		return s.cancel(ctx, CancelCommand{RequestID: cmd.RequestID, ActorID: cmd.ActorID, Reason: cmd.Reason}, cmd.Target)
	}
	switch cmd.Target {
	case StatusConfirmed, StatusInProgress, StatusCompleted:
	default:
		return nil, fmt.Errorf("%w: %s is reached through negotiation", ErrInvalidState, cmd.Target)
	}

	var out *Request
	err := s.store.Update(ctx, func(tx *Tx) error {
		r, err := tx.Request(cmd.RequestID)
		if err != nil {
			return err
		}
		role, ok := r.Participant(cmd.ActorID)
		if !ok {
			return fmt.Errorf("%w: request %s", ErrUnauthorized, r.ID)
		}
		if !CanTransition(r.Status, cmd.Target) || (cmd.Target == StatusConfirmed && r.Status != StatusAccepted) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidState, r.Status, cmd.Target)
		}
		if want := transitionActor(cmd.Target); role != want {
			return fmt.Errorf("%w: only the %s can move a request to %s", ErrUnauthorized, want, cmd.Target)
		}
		if err := Apply(r, cmd.Target, cmd.ActorID, cmd.Reason, tx.Now()); err != nil {
			return err
		}
		out = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.TripTransitions.WithLabelValues(string(out.Status)).Inc()
	s.publish(ctx, eventFor(out.Status), out, cmd.ActorID, cmd.Reason)
	return out, nil
}

type CancelCommand struct {
	RequestID types.ID
	ActorID   types.ID
	Reason    string
}

// Cancel is allowed from any non-terminal state for the rider or the assigned driver.
// The other party, when there is one, receives a notice.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Request, error) {
	return s.cancel(ctx, cmd, "")
}

// cancel applies the cancellation; a non-empty want must match the actor's variant.
func (s *Service) cancel(ctx context.Context, cmd CancelCommand, want Status) (*Request, error) {
	reason := strings.TrimSpace(cmd.Reason)
	var out *Request
	err := s.store.Update(ctx, func(tx *Tx) error {
		r, err := tx.Request(cmd.RequestID)
		if err != nil {
			return err
		}
		if want != "" {
			role, ok := r.Participant(cmd.ActorID)
			if ok && (role == types.RoleRider) != (want == StatusCancelledByRider) {
				return fmt.Errorf("%w: %s cannot set %s", ErrUnauthorized, role, want)
			}
		}
		driver := r.DriverID
		role, err := Cancel(r, cmd.ActorID, reason, tx.Now())
		if err != nil {
			return err
		}
		switch {
		case role == types.RoleRider && driver != nil:
			tx.AddNotice(&Notice{UserID: *driver, Role: types.RoleDriver, RequestID: r.ID, CancelledBy: role, Reason: reason, CreatedAt: tx.Now()})
		case role == types.RoleDriver:
			tx.AddNotice(&Notice{UserID: r.RiderID, Role: types.RoleRider, RequestID: r.ID, CancelledBy: role, Reason: reason, CreatedAt: tx.Now()})
		}
		out = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.TripTransitions.WithLabelValues(string(out.Status)).Inc()
	s.publish(ctx, events.TripCancelled, out, cmd.ActorID, reason)
	return out, nil
}

// Active lists a user's requests that are neither completed nor cancelled.
// Drivers only see requests they are matched to.
func (s *Service) Active(ctx context.Context, user types.ID, role types.Role) ([]*Request, error) {
	return s.collect(ctx, func(r *Request) bool {
		if r.Status.Terminal() {
			return false
		}
		if role == types.RoleDriver {
			return r.DriverID != nil && *r.DriverID == user && r.Status.Matched()
		}
		return r.RiderID == user
	})
}

// History returns completed trips, most recent first, with totals.
func (s *Service) History(ctx context.Context, user types.ID, role types.Role) (*HistorySummary, error) {
	trips, err := s.collect(ctx, func(r *Request) bool {
		return r.Status == StatusCompleted && belongsTo(r, user, role)
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(trips)-1; i < j; i, j = i+1, j-1 {
		trips[i], trips[j] = trips[j], trips[i]
	}
	h := &HistorySummary{Trips: trips, Count: len(trips)}
	for _, r := range trips {
		if r.AgreedPrice != nil {
			h.TotalFare += *r.AgreedPrice
		}
		h.TotalDistanceKm += r.DistanceKm
	}
	h.TotalFare = math.Round(h.TotalFare*100) / 100
	h.TotalDistanceKm = math.Round(h.TotalDistanceKm*100) / 100
	return h, nil
}

func (s *Service) Stats(ctx context.Context, user types.ID, role types.Role) (Stats, error) {
	var st Stats
	err := s.store.View(ctx, func(tx *Tx) error {
		for _, r := range tx.requests {
			involved := belongsTo(r, user, role) ||
				(role == types.RoleDriver && r.LastCancellingDriverID != nil && *r.LastCancellingDriverID == user)
			if !involved {
				continue
			}
			st.Requested++
			switch {
			case r.Status == StatusCompleted:
				st.Completed++
			case r.Status.Cancelled():
				st.Cancelled++
			default:
				st.Active++
			}
		}
		return nil
	})
	return st, err
}

// Notices returns unseen cancellation notices for the user and marks them seen, so each
// notice is delivered once.
func (s *Service) Notices(ctx context.Context, user types.ID, role types.Role) ([]Notice, error) {
	var out []Notice
	err := s.store.Update(ctx, func(tx *Tx) error {
		for _, n := range tx.Notices(func(n *Notice) bool {
			return n.UserID == user && n.Role == role && n.SeenAt == nil
		}) {
			at := tx.Now()
			n.SeenAt = &at
			out = append(out, *n)
		}
		return nil
	})
	if out == nil {
		out = []Notice{}
	}
	return out, err
}

func (s *Service) collect(ctx context.Context, match func(*Request) bool) ([]*Request, error) {
	var out []*Request
	err := s.store.View(ctx, func(tx *Tx) error {
		for _, r := range tx.Requests(match) {
			out = append(out, r.Clone())
		}
		return nil
	})
	if out == nil {
		out = []*Request{}
	}
	return out, err
}

// RequireUser checks the directory, when one is configured, for a user with the role.
func (s *Service) RequireUser(ctx context.Context, id types.ID, role types.Role) error {
	if s.directory == nil {
		return nil
	}
	ok, err := s.directory.Exists(ctx, id, role)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !ok {
		return fmt.Errorf("%w: unknown %s %s", ErrUnauthorized, role, id)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, kind events.Kind, r *Request, actor types.ID, reason string) {
	Publish(ctx, s.events, s.log, kind, r, actor, reason)
}

// Publish emits a lifecycle event. Failures are logged; the state change already happened.
func Publish(ctx context.Context, p events.Publisher, log *zap.Logger, kind events.Kind, r *Request, actor types.ID, reason string) {
	e := events.Event{
		Kind:      kind,
		RequestID: int64(r.ID),
		Version:   len(r.History),
		RiderID:   int64(r.RiderID),
		Status:    string(r.Status),
		ActorID:   int64(actor),
		Reason:    reason,
		At:        r.UpdatedAt,
	}
	if r.DriverID != nil {
		e.DriverID = int64(*r.DriverID)
	}
	if r.AgreedPrice != nil {
		e.Price = *r.AgreedPrice
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn("publish trip event", zap.String("kind", string(kind)), zap.Int64("request_id", e.RequestID), zap.Error(err))
	}
}

func eventFor(st Status) events.Kind {
	switch st {
	case StatusAccepted:
		return events.TripAccepted
	case StatusConfirmed:
		return events.TripConfirmed
	case StatusInProgress:
		return events.TripStarted
	case StatusCompleted:
		return events.TripCompleted
	}
	if st.Cancelled() {
		return events.TripCancelled
	}
	return events.TripRequested
}

func transitionActor(to Status) types.Role {
	if to == StatusConfirmed {
		return types.RoleRider
	}
	return types.RoleDriver
}

func belongsTo(r *Request, user types.ID, role types.Role) bool {
	if role == types.RoleDriver {
		return r.DriverID != nil && *r.DriverID == user
	}
	return r.RiderID == user
}
