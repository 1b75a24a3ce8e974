package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/modules/negotiation"
	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
	"github.com/milagros-hr/proyecto-transport/internal/modules/users"
)

func TestWriteServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: request 9", trip.ErrNotFound), http.StatusNotFound},
		{users.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: pending -> completed", trip.ErrInvalidState), http.StatusConflict},
		{negotiation.ErrDuplicateOffer, http.StatusConflict},
		{users.ErrEmailTaken, http.StatusConflict},
		{trip.ErrUnauthorized, http.StatusForbidden},
		{trip.ErrInvalidInput, http.StatusBadRequest},
		{users.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", trip.ErrPersistence, errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeServiceError(c, tt.err)
		if w.Code != tt.want {
			t.Fatalf("%v: status %d, want %d", tt.err, w.Code, tt.want)
		}
		if tt.want == http.StatusInternalServerError && bytes.Contains(w.Body.Bytes(), []byte("disk full")) {
			t.Fatalf("internal error details leaked: %s", w.Body.String())
		}
	}
}

func TestBindJSON_ValidationFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/offer", func(c *gin.Context) {
		var req offerReq
		if !bindJSON(c, &req, false) {
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.POST("/cancel", func(c *gin.Context) {
		var req cancelReq
		if !bindJSON(c, &req, true) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/offer", `{"price": -1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Fields) != 1 || resp.Fields[0].Field != "offerReq.Price" || resp.Fields[0].Rule != "gt" {
		t.Fatalf("unexpected field errors %+v", resp.Fields)
	}

	if w := post("/offer", `{not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: %d", w.Code)
	}
	if w := post("/cancel", ``); w.Code != http.StatusNoContent {
		t.Fatalf("optional empty body: %d", w.Code)
	}
	if w := post("/offer", ``); w.Code != http.StatusBadRequest {
		t.Fatalf("required empty body: %d", w.Code)
	}
}
