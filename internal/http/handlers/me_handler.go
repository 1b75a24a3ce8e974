package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/http/middleware"
	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
)

type MeHandler struct {
	trips *trip.Service
}

func NewMeHandler(trips *trip.Service) *MeHandler {
	return &MeHandler{trips: trips}
}

func (h *MeHandler) Active(c *gin.Context) {
	out, err := h.trips.Active(c.Request.Context(), middleware.CallerID(c), middleware.CallerRole(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": out})
}

func (h *MeHandler) History(c *gin.Context) {
	out, err := h.trips.History(c.Request.Context(), middleware.CallerID(c), middleware.CallerRole(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *MeHandler) Notices(c *gin.Context) {
	out, err := h.trips.Notices(c.Request.Context(), middleware.CallerID(c), middleware.CallerRole(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"notices": out})
}

func (h *MeHandler) Stats(c *gin.Context) {
	out, err := h.trips.Stats(c.Request.Context(), middleware.CallerID(c), middleware.CallerRole(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}
