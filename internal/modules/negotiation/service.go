// README: Negotiation engine: direct accept at the standard fare, counter-offers and the rider's decision.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/milagros-hr/proyecto-transport/internal/events"
	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
	"github.com/milagros-hr/proyecto-transport/internal/observability"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

// ErrDuplicateOffer is returned when a driver already has a live offer on the request.
var ErrDuplicateOffer = fmt.Errorf("%w: driver already has a pending offer on this request", trip.ErrInvalidState)

const maxMessageLen = 280

type Service struct {
	trips  *trip.Service
	store  *trip.Store
	events events.Publisher
	log    *zap.Logger
}

func NewService(trips *trip.Service, pub events.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{trips: trips, store: trips.Store(), events: pub, log: log}
}

type AcceptDirectCommand struct {
	RequestID types.ID
	DriverID  types.ID
}

// AcceptDirect lets a driver claim an open request at its standard price.
func (s *Service) AcceptDirect(ctx context.Context, cmd AcceptDirectCommand) (*trip.Request, error) {
	if err := s.trips.RequireUser(ctx, cmd.DriverID, types.RoleDriver); err != nil {
		return nil, err
	}
	var out *trip.Request
	err := s.store.Update(ctx, func(tx *trip.Tx) error {
		r, err := tx.Request(cmd.RequestID)
		if err != nil {
			return err
		}
		if r.RiderID == cmd.DriverID {
			return fmt.Errorf("%w: riders cannot accept their own request", trip.ErrUnauthorized)
		}
		if !r.Status.Open() {
			return fmt.Errorf("%w: request %s is %s", trip.ErrInvalidState, r.ID, r.Status)
		}
		if err := trip.Match(r, cmd.DriverID, r.StandardPrice, trip.StatusAccepted, "accepted at standard price", tx.Now()); err != nil {
			return err
		}
		out = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.TripTransitions.WithLabelValues(string(trip.StatusAccepted)).Inc()
	trip.Publish(ctx, s.events, s.log, events.TripAccepted, out, cmd.DriverID, "")
	return out, nil
}

type OfferCommand struct {
	RequestID types.ID
	DriverID  types.ID
	Price     float64
	Message   string
}

// CreateOffer records a driver's counter-offer on an open request. The first offer moves
// a pending request to with_offers.
func (s *Service) CreateOffer(ctx context.Context, cmd OfferCommand) (*trip.Offer, error) {
	// Prices are stored in cents; the rounded value must stay positive.
	price := math.Round(cmd.Price*100) / 100
	if !(price > 0) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: offered price must be at least 0.01", trip.ErrInvalidInput)
	}
	msg := strings.TrimSpace(cmd.Message)
	if len([]rune(msg)) > maxMessageLen {
		return nil, fmt.Errorf("%w: message longer than %d characters", trip.ErrInvalidInput, maxMessageLen)
	}
	if err := s.trips.RequireUser(ctx, cmd.DriverID, types.RoleDriver); err != nil {
		return nil, err
	}

	var (
		offer *trip.Offer
		req   *trip.Request
	)
	err := s.store.Update(ctx, func(tx *trip.Tx) error {
		r, err := tx.Request(cmd.RequestID)
		if err != nil {
			return err
		}
		if r.RiderID == cmd.DriverID {
			return fmt.Errorf("%w: riders cannot bid on their own request", trip.ErrUnauthorized)
		}
		if !r.Status.Open() {
			return fmt.Errorf("%w: request %s is %s", trip.ErrInvalidState, r.ID, r.Status)
		}
		live := tx.Offers(func(o *trip.Offer) bool {
			return o.RequestID == r.ID && o.DriverID == cmd.DriverID && o.Status == trip.OfferPending
		})
		if len(live) > 0 {
			return ErrDuplicateOffer
		}

		o := &trip.Offer{
			RequestID: r.ID,
			DriverID:  cmd.DriverID,
			Price:     price,
			Message:   msg,
			Status:    trip.OfferPending,
			CreatedAt: tx.Now(),
		}
		tx.AddOffer(o)
		if r.Status == trip.StatusPending {
			if err := trip.Apply(r, trip.StatusWithOffers, cmd.DriverID, fmt.Sprintf("counter-offer %s", o.ID), tx.Now()); err != nil {
				return err
			}
		}
		c := *o
		offer = &c
		req = r.Clone()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateOffer) {
			observability.CounterOffers.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}
	observability.CounterOffers.WithLabelValues("created").Inc()
	s.publishOffer(ctx, events.TripOffered, req, offer, cmd.DriverID)
	return offer, nil
}

// AcceptOffer binds the chosen offer to the rider's request and rejects every sibling,
// all in one persisted batch.
func (s *Service) AcceptOffer(ctx context.Context, riderID, offerID types.ID) (*trip.Request, error) {
	var (
		out      *trip.Request
		accepted trip.Offer
		rejected int
	)
	err := s.store.Update(ctx, func(tx *trip.Tx) error {
		o, r, err := riderOffer(tx, riderID, offerID)
		if err != nil {
			return err
		}
		if !r.Status.Open() {
			return fmt.Errorf("%w: request %s is %s", trip.ErrInvalidState, r.ID, r.Status)
		}
		if err := trip.Match(r, o.DriverID, o.Price, trip.StatusConfirmed, fmt.Sprintf("counter-offer %s accepted", o.ID), tx.Now()); err != nil {
			return err
		}
		now := tx.Now()
		o.Status = trip.OfferAccepted
		o.ResolvedAt = &now
		for _, sib := range tx.Offers(func(x *trip.Offer) bool {
			return x.RequestID == r.ID && x.ID != o.ID && x.Status == trip.OfferPending
		}) {
			at := now
			sib.Status = trip.OfferRejected
			sib.ResolvedAt = &at
			rejected++
		}
		accepted = *o
		out = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.CounterOffers.WithLabelValues("accepted").Inc()
	observability.CounterOffers.WithLabelValues("rejected").Add(float64(rejected))
	observability.TripTransitions.WithLabelValues(string(trip.StatusConfirmed)).Inc()
	s.publishOffer(ctx, events.TripConfirmed, out, &accepted, riderID)
	return out, nil
}

// RejectOffer declines one offer. The request keeps its state.
func (s *Service) RejectOffer(ctx context.Context, riderID, offerID types.ID) (*trip.Offer, error) {
	var out trip.Offer
	err := s.store.Update(ctx, func(tx *trip.Tx) error {
		o, _, err := riderOffer(tx, riderID, offerID)
		if err != nil {
			return err
		}
		now := tx.Now()
		o.Status = trip.OfferRejected
		o.ResolvedAt = &now
		out = *o
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.CounterOffers.WithLabelValues("rejected").Inc()
	return &out, nil
}

// PendingOffers lists live offers on a request owned by riderID, cheapest first.
func (s *Service) PendingOffers(ctx context.Context, requestID, riderID types.ID) ([]trip.Offer, error) {
	out := []trip.Offer{}
	err := s.store.View(ctx, func(tx *trip.Tx) error {
		r, err := tx.Request(requestID)
		if err != nil {
			return err
		}
		if r.RiderID != riderID {
			return fmt.Errorf("%w: request %s belongs to another rider", trip.ErrUnauthorized, r.ID)
		}
		for _, o := range tx.Offers(func(o *trip.Offer) bool {
			return o.RequestID == requestID && o.Status == trip.OfferPending
		}) {
			out = append(out, *o)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Price == out[j].Price {
			return out[i].ID < out[j].ID
		}
		return out[i].Price < out[j].Price
	})
	return out, err
}

// DriverOffers lists every offer made by a driver, newest first.
func (s *Service) DriverOffers(ctx context.Context, driverID types.ID) ([]trip.Offer, error) {
	out := []trip.Offer{}
	err := s.store.View(ctx, func(tx *trip.Tx) error {
		for _, o := range tx.Offers(func(o *trip.Offer) bool { return o.DriverID == driverID }) {
			out = append(out, *o)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

// Reconcile rolls interrupted acceptances forward: an accepted offer on a request that is
// still open confirms the request. Pending offers on closed requests are rejected by the
// store on commit. It returns how many requests were repaired.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	repaired := 0
	err := s.store.Update(ctx, func(tx *trip.Tx) error {
		for _, o := range tx.Offers(func(o *trip.Offer) bool { return o.Status == trip.OfferAccepted }) {
			r, err := tx.Request(o.RequestID)
			if err != nil || !r.Status.Open() {
				continue
			}
			if err := trip.Match(r, o.DriverID, o.Price, trip.StatusConfirmed, fmt.Sprintf("counter-offer %s accepted (recovered)", o.ID), tx.Now()); err != nil {
				return err
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if repaired > 0 {
		s.log.Warn("reconciled interrupted offer acceptances", zap.Int("requests", repaired))
	}
	return repaired, nil
}

// riderOffer loads a pending offer and its request, checking that riderID owns the request.
func riderOffer(tx *trip.Tx, riderID, offerID types.ID) (*trip.Offer, *trip.Request, error) {
	o, err := tx.Offer(offerID)
	if err != nil {
		return nil, nil, err
	}
	if o.Status != trip.OfferPending {
		return nil, nil, fmt.Errorf("%w: offer %s is %s", trip.ErrInvalidState, o.ID, o.Status)
	}
	r, err := tx.Request(o.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if r.RiderID != riderID {
		return nil, nil, fmt.Errorf("%w: request %s belongs to another rider", trip.ErrUnauthorized, r.ID)
	}
	return o, r, nil
}

func (s *Service) publishOffer(ctx context.Context, kind events.Kind, r *trip.Request, o *trip.Offer, actor types.ID) {
	e := events.Event{
		Kind:      kind,
		RequestID: int64(r.ID),
		Version:   len(r.History),
		RiderID:   int64(r.RiderID),
		DriverID:  int64(o.DriverID),
		OfferID:   int64(o.ID),
		Status:    string(r.Status),
		Price:     o.Price,
		ActorID:   int64(actor),
		At:        r.UpdatedAt,
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish offer event", zap.String("kind", string(kind)), zap.Int64("request_id", e.RequestID), zap.Error(err))
	}
}
