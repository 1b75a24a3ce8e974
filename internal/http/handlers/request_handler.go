// README: Rider-facing trip request handlers: create, get, offers, transition, cancel.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/http/middleware"
	"github.com/milagros-hr/proyecto-transport/internal/modules/negotiation"
	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
)

type RequestHandler struct {
	trips *trip.Service
	neg   *negotiation.Service
}

func NewRequestHandler(trips *trip.Service, neg *negotiation.Service) *RequestHandler {
	return &RequestHandler{trips: trips, neg: neg}
}

type createRequestReq struct {
	Origin      *pointReq `json:"origin" binding:"required"`
	Destination *pointReq `json:"destination" binding:"required"`
	DistanceKm  float64   `json:"distance_km" binding:"gte=0"`
	Departure   string    `json:"departure"`
}

type transitionReq struct {
	State  string `json:"state" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

type cancelReq struct {
	Reason string `json:"reason" binding:"max=500"`
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestReq
	if !bindJSON(c, &req, false) {
		return
	}
	r, err := h.trips.Create(c.Request.Context(), trip.CreateCommand{
		RiderID:     middleware.CallerID(c),
		Origin:      req.Origin.point(),
		Destination: req.Destination.point(),
		DistanceKm:  req.DistanceKm,
		Departure:   req.Departure,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.trips.Get(c.Request.Context(), id, middleware.CallerID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Offers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	offers, err := h.neg.PendingOffers(c.Request.Context(), id, middleware.CallerID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"offers": offers})
}

func (h *RequestHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transitionReq
	if !bindJSON(c, &req, false) {
		return
	}
	target, err := trip.ParseStatus(req.State)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	r, err := h.trips.Transition(c.Request.Context(), trip.TransitionCommand{
		RequestID: id,
		Target:    target,
		ActorID:   middleware.CallerID(c),
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cancelReq
	if !bindJSON(c, &req, true) {
		return
	}
	r, err := h.trips.Cancel(c.Request.Context(), trip.CancelCommand{
		RequestID: id,
		ActorID:   middleware.CallerID(c),
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}
