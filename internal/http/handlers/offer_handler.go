package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/http/middleware"
	"github.com/milagros-hr/proyecto-transport/internal/modules/negotiation"
)

type OfferHandler struct {
	neg *negotiation.Service
}

func NewOfferHandler(neg *negotiation.Service) *OfferHandler {
	return &OfferHandler{neg: neg}
}

func (h *OfferHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.neg.AcceptOffer(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *OfferHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.neg.RejectOffer(c.Request.Context(), middleware.CallerID(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}
