// README: Graph and fare quote handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/modules/pricing"
	"github.com/milagros-hr/proyecto-transport/internal/modules/routing"
)

type RouteHandler struct {
	router  *routing.Router
	pricing *pricing.Service
}

func NewRouteHandler(router *routing.Router, pricingSvc *pricing.Service) *RouteHandler {
	return &RouteHandler{router: router, pricing: pricingSvc}
}

type quoteReq struct {
	Origin      *pointReq `json:"origin" binding:"required"`
	Destination *pointReq `json:"destination" binding:"required"`
}

type quoteResp struct {
	Route routing.Route `json:"route"`
	Quote pricing.Quote `json:"quote"`
	Rate  pricing.Rate  `json:"rate"`
}

func (h *RouteHandler) Nodes(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"locations": h.router.Graph().Locations()})
}

func (h *RouteHandler) Quote(c *gin.Context) {
	var req quoteReq
	if !bindJSON(c, &req, false) {
		return
	}
	route, err := h.router.Route(c.Request.Context(), req.Origin.point(), req.Destination.point())
	if errors.Is(err, routing.ErrNoCoordinates) {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, quoteResp{Route: route, Quote: h.pricing.Quote(route.DistanceKm), Rate: h.pricing.Rate()})
}
