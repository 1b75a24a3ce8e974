// README: Trip lifecycle events and the publisher contract.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	TripRequested Kind = "trip.requested"
	TripOffered   Kind = "trip.offered"
	TripAccepted  Kind = "trip.accepted"
	TripConfirmed Kind = "trip.confirmed"
	TripStarted   Kind = "trip.started"
	TripCompleted Kind = "trip.completed"
	TripCancelled Kind = "trip.cancelled"
)

// Event is emitted after the state change is committed. Publishing happens outside the
// store's critical section, so two events of one trip can leave out of order; Version
// (the length of the request's state history) restores the order. Offer events keep the
// version of the state they were made in.
type Event struct {
	Kind      Kind      `json:"kind"`
	RequestID int64     `json:"request_id"`
	Version   int       `json:"version"`
	RiderID   int64     `json:"rider_id"`
	DriverID  int64     `json:"driver_id,omitempty"`
	OfferID   int64     `json:"offer_id,omitempty"`
	Status    string    `json:"status"`
	Price     float64   `json:"price,omitempty"`
	ActorID   int64     `json:"actor_id"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Key partitions events by request so consumers see one trip in order.
func (e Event) Key() []byte {
	return []byte(strconv.FormatInt(e.RequestID, 10))
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(l *zap.Logger) *LogPublisher {
	return &LogPublisher{log: l}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Info("trip event",
		zap.String("kind", string(e.Kind)),
		zap.Int64("request_id", e.RequestID),
		zap.Int("version", e.Version),
		zap.String("status", e.Status),
		zap.Int64("actor_id", e.ActorID),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
