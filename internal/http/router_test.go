// README: End-to-end API flow over in-memory collections.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/config"
	transporthttp "github.com/milagros-hr/proyecto-transport/internal/http"
	"github.com/milagros-hr/proyecto-transport/internal/infra"
	"github.com/milagros-hr/proyecto-transport/internal/modules/matching"
	"github.com/milagros-hr/proyecto-transport/internal/modules/negotiation"
	"github.com/milagros-hr/proyecto-transport/internal/modules/pricing"
	"github.com/milagros-hr/proyecto-transport/internal/modules/routing"
	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
	"github.com/milagros-hr/proyecto-transport/internal/modules/users"
	"github.com/milagros-hr/proyecto-transport/internal/storage"
)

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := storage.NewMemoryStore()

	dir := users.NewDirectory(db, nil)
	store, err := trip.NewStore(ctx, db, trip.WithIndex(matching.NewMemoryIndex()))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	router := routing.NewRouter(routing.LimaGraph(), 1.4)
	prices := pricing.NewService(config.DefaultPricing())
	trips := trip.NewService(trip.Deps{Store: store, Router: router, Pricing: prices, Directory: dir})
	tokens := infra.NewJWTManager("test-secret", "proyecto-transport", time.Hour)

	engine := transporthttp.NewRouter(transporthttp.RouterDeps{
		Trips:       trips,
		Negotiation: negotiation.NewService(trips, nil, nil),
		Users:       dir,
		Routing:     router,
		Pricing:     prices,
		Verifier:    tokens,
		Tokens:      tokens,
	})
	return &api{t: t, engine: engine}
}

func (a *api) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			a.t.Fatalf("%s %s: decode %s: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

type authResp struct {
	Token string `json:"token"`
	User  struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

func (a *api) register(role, email string) authResp {
	a.t.Helper()
	body := map[string]any{"role": role, "name": email, "email": email, "password": "secret1"}
	if role == "driver" {
		body["vehicle"] = map[string]any{"plate": "ABC-" + email[:3], "model": "Yaris"}
	}
	var out authResp
	if code := a.do(http.MethodPost, "/api/auth/register", "", body, &out); code != http.StatusCreated {
		a.t.Fatalf("register %s: status %d", email, code)
	}
	return out
}

type requestResp struct {
	ID            int64    `json:"id"`
	Status        string   `json:"status"`
	StandardPrice float64  `json:"standard_price"`
	AgreedPrice   *float64 `json:"agreed_price"`
	DriverID      *int64   `json:"driver_id"`
}

type offerResp struct {
	ID     int64   `json:"id"`
	Price  float64 `json:"price"`
	Status string  `json:"status"`
}

func TestAPI_CounterOfferFlow(t *testing.T) {
	a := newAPI(t)
	rider := a.register("rider", "ana@example.com")
	driverA := a.register("driver", "luis@example.com")
	driverB := a.register("driver", "rosa@example.com")

	if code := a.do(http.MethodGet, "/healthz", "", nil, nil); code != http.StatusOK {
		t.Fatalf("healthz: %d", code)
	}

	var quote struct {
		Route struct {
			DistanceKm float64 `json:"distance_km"`
			Source     string  `json:"source"`
		} `json:"route"`
		Quote struct {
			Fare float64 `json:"fare"`
		} `json:"quote"`
	}
	code := a.do(http.MethodPost, "/api/routes/quote", "", map[string]any{
		"origin": map[string]any{"name": "Miraflores"}, "destination": map[string]any{"name": "San Isidro"},
	}, &quote)
	if code != http.StatusOK || quote.Route.DistanceKm != 3 || quote.Route.Source != "graph" || quote.Quote.Fare != 11.40 {
		t.Fatalf("quote: %d %+v", code, quote)
	}

	var req requestResp
	code = a.do(http.MethodPost, "/api/requests", rider.Token, map[string]any{
		"origin":      map[string]any{"name": "Miraflores", "lat": -12.1203, "lng": -77.0282},
		"destination": map[string]any{"name": "San Isidro", "lat": -12.1040, "lng": -77.0348},
	}, &req)
	if code != http.StatusCreated || req.Status != "pending" || req.StandardPrice != 11.40 {
		t.Fatalf("create: %d %+v", code, req)
	}

	if code := a.do(http.MethodPost, "/api/requests", driverA.Token, map[string]any{
		"origin": map[string]any{"name": "Miraflores"}, "destination": map[string]any{"name": "San Isidro"},
	}, nil); code != http.StatusForbidden {
		t.Fatalf("driver creating a request: %d", code)
	}

	var pending struct {
		Requests []struct {
			ID               int64    `json:"id"`
			DriverDistanceKm *float64 `json:"driver_distance_km"`
		} `json:"requests"`
	}
	code = a.do(http.MethodGet, "/api/driver/requests?lat=-12.1100&lng=-77.0300&radius_km=5", driverA.Token, nil, &pending)
	if code != http.StatusOK || len(pending.Requests) != 1 || pending.Requests[0].DriverDistanceKm == nil {
		t.Fatalf("nearby: %d %+v", code, pending)
	}
	code = a.do(http.MethodGet, "/api/driver/requests?lat=-12.0566&lng=-77.1181&radius_km=2", driverA.Token, nil, &pending)
	if code != http.StatusOK || len(pending.Requests) != 0 {
		t.Fatalf("far away driver: %d %+v", code, pending)
	}

	reqPath := fmt.Sprintf("/api/driver/requests/%d/offers", req.ID)
	var offerA, offerB offerResp
	if code := a.do(http.MethodPost, reqPath, driverA.Token, map[string]any{"price": 15}, &offerA); code != http.StatusCreated {
		t.Fatalf("offer A: %d", code)
	}
	if code := a.do(http.MethodPost, reqPath, driverB.Token, map[string]any{"price": 12, "message": "llego en 5"}, &offerB); code != http.StatusCreated {
		t.Fatalf("offer B: %d", code)
	}
	if code := a.do(http.MethodPost, reqPath, driverB.Token, map[string]any{"price": 11}, nil); code != http.StatusConflict {
		t.Fatalf("duplicate offer: %d", code)
	}

	var offers struct {
		Offers []offerResp `json:"offers"`
	}
	code = a.do(http.MethodGet, fmt.Sprintf("/api/requests/%d/offers", req.ID), rider.Token, nil, &offers)
	if code != http.StatusOK || len(offers.Offers) != 2 || offers.Offers[0].ID != offerB.ID {
		t.Fatalf("offers: %d %+v", code, offers)
	}

	var confirmed requestResp
	code = a.do(http.MethodPost, fmt.Sprintf("/api/offers/%d/accept", offerB.ID), rider.Token, nil, &confirmed)
	if code != http.StatusOK || confirmed.Status != "confirmed" || confirmed.AgreedPrice == nil || *confirmed.AgreedPrice != 12 {
		t.Fatalf("accept offer: %d %+v", code, confirmed)
	}
	if code := a.do(http.MethodPost, fmt.Sprintf("/api/driver/requests/%d/accept", req.ID), driverA.Token, nil, nil); code != http.StatusConflict {
		t.Fatalf("late direct accept: %d", code)
	}

	transition := fmt.Sprintf("/api/requests/%d/transition", req.ID)
	for _, state := range []string{"in_progress", "completed"} {
		var got requestResp
		code := a.do(http.MethodPost, transition, driverB.Token, map[string]any{"state": state}, &got)
		if code != http.StatusOK || got.Status != state {
			t.Fatalf("transition %s: %d %+v", state, code, got)
		}
	}
	if code := a.do(http.MethodPost, transition, driverA.Token, map[string]any{"state": "completed"}, nil); code != http.StatusForbidden {
		t.Fatalf("non-participant transition: %d", code)
	}

	var history struct {
		Count     int     `json:"count"`
		TotalFare float64 `json:"total_fare"`
	}
	code = a.do(http.MethodGet, "/api/me/history", rider.Token, nil, &history)
	if code != http.StatusOK || history.Count != 1 || history.TotalFare != 12 {
		t.Fatalf("history: %d %+v", code, history)
	}

	var mine struct {
		Offers []offerResp `json:"offers"`
	}
	code = a.do(http.MethodGet, "/api/driver/offers", driverA.Token, nil, &mine)
	if code != http.StatusOK || len(mine.Offers) != 1 || mine.Offers[0].Status != "rejected" {
		t.Fatalf("driver A offers: %d %+v", code, mine)
	}
}

func TestAPI_CancelNotice(t *testing.T) {
	a := newAPI(t)
	rider := a.register("rider", "ana@example.com")
	driver := a.register("driver", "luis@example.com")

	var req requestResp
	if code := a.do(http.MethodPost, "/api/requests", rider.Token, map[string]any{
		"origin": map[string]any{"name": "Barranco"}, "destination": map[string]any{"name": "Surco"},
		"departure": "30_min",
	}, &req); code != http.StatusCreated {
		t.Fatalf("create: %d", code)
	}
	if code := a.do(http.MethodPost, fmt.Sprintf("/api/driver/requests/%d/accept", req.ID), driver.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("direct accept: %d", code)
	}
	var cancelled requestResp
	code := a.do(http.MethodPost, fmt.Sprintf("/api/requests/%d/cancel", req.ID), driver.Token, map[string]any{"reason": "vehicle breakdown"}, &cancelled)
	if code != http.StatusOK || cancelled.Status != "cancelled_by_driver" || cancelled.DriverID != nil {
		t.Fatalf("driver cancel: %d %+v", code, cancelled)
	}

	var notices struct {
		Notices []struct {
			RequestID int64  `json:"request_id"`
			Reason    string `json:"reason"`
		} `json:"notices"`
	}
	code = a.do(http.MethodGet, "/api/me/notices", rider.Token, nil, &notices)
	if code != http.StatusOK || len(notices.Notices) != 1 || notices.Notices[0].Reason != "vehicle breakdown" {
		t.Fatalf("notices: %d %+v", code, notices)
	}
	code = a.do(http.MethodGet, "/api/me/notices", rider.Token, nil, &notices)
	if code != http.StatusOK || len(notices.Notices) != 0 {
		t.Fatalf("second read: %d %+v", code, notices)
	}

	var stats struct {
		Requested int `json:"requested"`
		Cancelled int `json:"cancelled"`
	}
	code = a.do(http.MethodGet, "/api/me/stats", rider.Token, nil, &stats)
	if code != http.StatusOK || stats.Requested != 1 || stats.Cancelled != 1 {
		t.Fatalf("stats: %d %+v", code, stats)
	}
}

func TestAPI_Errors(t *testing.T) {
	a := newAPI(t)
	rider := a.register("rider", "ana@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", http.MethodGet, "/api/me/active", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/me/active", "nope", nil, http.StatusUnauthorized},
		{"missing origin", http.MethodPost, "/api/requests", rider.Token, map[string]any{"destination": map[string]any{"name": "Surco"}}, http.StatusBadRequest},
		{"bad latitude", http.MethodPost, "/api/requests", rider.Token, map[string]any{
			"origin": map[string]any{"lat": 200, "lng": 0}, "destination": map[string]any{"name": "Surco"},
		}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/requests/abc", rider.Token, nil, http.StatusBadRequest},
		{"unknown request", http.MethodGet, "/api/requests/77", rider.Token, nil, http.StatusNotFound},
		{"unknown state", http.MethodPost, "/api/requests/1/transition", rider.Token, map[string]any{"state": "flying"}, http.StatusBadRequest},
		{"rider on driver api", http.MethodGet, "/api/driver/requests", rider.Token, nil, http.StatusForbidden},
		{"duplicate email", http.MethodPost, "/api/auth/register", "", map[string]any{
			"role": "rider", "name": "Ana", "email": "ana@example.com", "password": "secret1",
		}, http.StatusConflict},
		{"bad login", http.MethodPost, "/api/auth/login", "", map[string]any{
			"role": "rider", "email": "ana@example.com", "password": "wrong",
		}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := a.do(tt.method, tt.path, tt.token, tt.body, nil); code != tt.want {
				t.Fatalf("status %d, want %d", code, tt.want)
			}
		})
	}

	var login authResp
	if code := a.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"role": "rider", "email": "ANA@example.com", "password": "secret1",
	}, &login); code != http.StatusOK || login.User.ID != rider.User.ID || login.Token == "" {
		t.Fatalf("login: %d %+v", code, login)
	}
}
