package trip

import (
	"fmt"
	"time"

	"github.com/milagros-hr/proyecto-transport/internal/modules/queue"
	"github.com/milagros-hr/proyecto-transport/internal/storage"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

// Tx is only valid inside the Store.Update or Store.View callback that produced it.
type Tx struct {
	now      time.Time
	requests []*Request
	offers   []*Offer
	notices  []*Notice
	created  []*Request
	baseline map[string][]byte
	wasOpen  map[types.ID]bool
	queue    *queue.Queue[types.ID]
}

// Now is the clock reading taken when the critical section started.
func (tx *Tx) Now() time.Time {
	return tx.now
}

func (tx *Tx) Request(id types.ID) (*Request, error) {
	for _, r := range tx.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
}

func (tx *Tx) Requests(match func(*Request) bool) []*Request {
	out := make([]*Request, 0)
	for _, r := range tx.requests {
		if match == nil || match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Pending returns open requests in queue order.
func (tx *Tx) Pending() []*Request {
	byID := make(map[types.ID]*Request, len(tx.requests))
	for _, r := range tx.requests {
		byID[r.ID] = r
	}
	ids := tx.queue.Items()
	out := make([]*Request, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok && r.Status.Open() {
			out = append(out, r)
		}
	}
	return out
}

// QueueLen is the number of open requests before any created in this transaction.
func (tx *Tx) QueueLen() int {
	return tx.queue.Len()
}

// AddRequest assigns the next id and appends r.
func (tx *Tx) AddRequest(r *Request) {
	var max types.ID
	for _, existing := range tx.requests {
		if existing.ID > max {
			max = existing.ID
		}
	}
	r.ID = max + 1
	tx.requests = append(tx.requests, r)
	tx.created = append(tx.created, r)
}

func (tx *Tx) Offer(id types.ID) (*Offer, error) {
	for _, o := range tx.offers {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: offer %s", ErrNotFound, id)
}

func (tx *Tx) Offers(match func(*Offer) bool) []*Offer {
	out := make([]*Offer, 0)
	for _, o := range tx.offers {
		if match == nil || match(o) {
			out = append(out, o)
		}
	}
	return out
}

func (tx *Tx) AddOffer(o *Offer) {
	var max types.ID
	for _, existing := range tx.offers {
		if existing.ID > max {
			max = existing.ID
		}
	}
	o.ID = max + 1
	tx.offers = append(tx.offers, o)
}

func (tx *Tx) Notices(match func(*Notice) bool) []*Notice {
	out := make([]*Notice, 0)
	for _, n := range tx.notices {
		if match == nil || match(n) {
			out = append(out, n)
		}
	}
	return out
}

func (tx *Tx) AddNotice(n *Notice) {
	var max types.ID
	for _, existing := range tx.notices {
		if existing.ID > max {
			max = existing.ID
		}
	}
	n.ID = max + 1
	tx.notices = append(tx.notices, n)
}

func (tx *Tx) encode() ([]storage.Document, error) {
	requests, err := storage.Encode(CollectionRequests, tx.requests)
	if err != nil {
		return nil, err
	}
	offers, err := storage.Encode(CollectionOffers, tx.offers)
	if err != nil {
		return nil, err
	}
	notices, err := storage.Encode(CollectionNotices, tx.notices)
	if err != nil {
		return nil, err
	}
	return []storage.Document{requests, offers, notices}, nil
}

// settleOffers rejects every pending offer whose request is no longer open.
func (tx *Tx) settleOffers() {
	open := make(map[types.ID]bool, len(tx.requests))
	for _, r := range tx.requests {
		open[r.ID] = r.Status.Open()
	}
	for _, o := range tx.offers {
		if o.Status == OfferPending && !open[o.RequestID] {
			at := tx.now
			o.Status = OfferRejected
			o.ResolvedAt = &at
		}
	}
}
