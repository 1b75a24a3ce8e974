// README: Base handler utilities (JSON helpers, binding, error mapping).
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
	"github.com/milagros-hr/proyecto-transport/internal/modules/users"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// pointReq is a place given by name, coordinates or both.
type pointReq struct {
	Name string  `json:"name" binding:"max=120"`
	Lat  float64 `json:"lat" binding:"gte=-90,lte=90"`
	Lng  float64 `json:"lng" binding:"gte=-180,lte=180"`
}

func (p *pointReq) point() types.Point {
	if p == nil {
		return types.Point{}
	}
	return types.Point{Name: strings.TrimSpace(p.Name), Lat: p.Lat, Lng: p.Lng}
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// bindJSON decodes the body into req. An empty body is accepted when optional is set.
func bindJSON(c *gin.Context, req any, optional bool) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{Field: fe.Namespace(), Rule: fe.Tag(), Param: fe.Param()})
		}
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: out})
		return false
	}
	writeError(c, http.StatusBadRequest, "invalid json")
	return false
}

func pathID(c *gin.Context, name string) (types.ID, bool) {
	id, ok := types.ParseID(c.Param(name))
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid "+name)
	}
	return id, ok
}

// writeServiceError maps domain errors to status codes. Unexpected errors are attached to
// the context for the access log and hidden from the client.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrNotFound), errors.Is(err, users.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrInvalidState), errors.Is(err, users.ErrEmailTaken):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, trip.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, trip.ErrInvalidInput), errors.Is(err, users.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
