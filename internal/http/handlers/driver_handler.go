// README: Driver handlers: nearby queue, direct accept, counter-offers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/http/middleware"
	"github.com/milagros-hr/proyecto-transport/internal/modules/negotiation"
	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
)

type DriverHandler struct {
	trips *trip.Service
	neg   *negotiation.Service
}

func NewDriverHandler(trips *trip.Service, neg *negotiation.Service) *DriverHandler {
	return &DriverHandler{trips: trips, neg: neg}
}

type offerReq struct {
	Price   float64 `json:"price" binding:"required,gt=0"`
	Message string  `json:"message" binding:"max=280"`
}

// ListPending returns the FIFO queue; lat and lng narrow it to a radius around the driver.
func (h *DriverHandler) ListPending(c *gin.Context) {
	var near *trip.Near
	if c.Query("lat") != "" || c.Query("lng") != "" {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			writeError(c, http.StatusBadRequest, "lat and lng must be valid coordinates")
			return
		}
		near = &trip.Near{Lat: lat, Lng: lng}
		if v := c.Query("radius_km"); v != "" {
			r, err := strconv.ParseFloat(v, 64)
			if err != nil || r <= 0 {
				writeError(c, http.StatusBadRequest, "radius_km must be a positive number")
				return
			}
			near.RadiusKm = r
		}
	}
	requests, err := h.trips.ListPending(c.Request.Context(), near)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": requests})
}

func (h *DriverHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.neg.AcceptDirect(c.Request.Context(), negotiation.AcceptDirectCommand{
		RequestID: id,
		DriverID:  middleware.CallerID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *DriverHandler) Offer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req offerReq
	if !bindJSON(c, &req, false) {
		return
	}
	o, err := h.neg.CreateOffer(c.Request.Context(), negotiation.OfferCommand{
		RequestID: id,
		DriverID:  middleware.CallerID(c),
		Price:     req.Price,
		Message:   req.Message,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *DriverHandler) MyOffers(c *gin.Context) {
	offers, err := h.neg.DriverOffers(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"offers": offers})
}
