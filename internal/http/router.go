// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/milagros-hr/proyecto-transport/internal/http/handlers"
	"github.com/milagros-hr/proyecto-transport/internal/http/middleware"
	"github.com/milagros-hr/proyecto-transport/internal/infra"
	"github.com/milagros-hr/proyecto-transport/internal/modules/negotiation"
	"github.com/milagros-hr/proyecto-transport/internal/modules/pricing"
	"github.com/milagros-hr/proyecto-transport/internal/modules/routing"
	"github.com/milagros-hr/proyecto-transport/internal/modules/trip"
	"github.com/milagros-hr/proyecto-transport/internal/modules/users"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

type RouterDeps struct {
	Trips       *trip.Service
	Negotiation *negotiation.Service
	Users       *users.Directory
	Routing     *routing.Router
	Pricing     *pricing.Service
	Verifier    infra.TokenVerifier
	Tokens      handlers.TokenIssuer
	Logger      *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(log), middleware.Logging(log), middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	routeHandler := handlers.NewRouteHandler(d.Routing, d.Pricing)
	api.GET("/graph/nodes", routeHandler.Nodes)
	api.POST("/routes/quote", routeHandler.Quote)

	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.Auth(d.Verifier))
	riders := middleware.RequireRole(types.RoleRider)
	drivers := middleware.RequireRole(types.RoleDriver)

	requestHandler := handlers.NewRequestHandler(d.Trips, d.Negotiation)
	authed.POST("/requests", riders, requestHandler.Create)
	authed.GET("/requests/:id", requestHandler.Get)
	authed.GET("/requests/:id/offers", riders, requestHandler.Offers)
	authed.POST("/requests/:id/transition", requestHandler.Transition)
	authed.POST("/requests/:id/cancel", requestHandler.Cancel)

	driverHandler := handlers.NewDriverHandler(d.Trips, d.Negotiation)
	driverAPI := authed.Group("/driver", drivers)
	driverAPI.GET("/requests", driverHandler.ListPending)
	driverAPI.POST("/requests/:id/accept", driverHandler.Accept)
	driverAPI.POST("/requests/:id/offers", driverHandler.Offer)
	driverAPI.GET("/offers", driverHandler.MyOffers)

	offerHandler := handlers.NewOfferHandler(d.Negotiation)
	authed.POST("/offers/:id/accept", riders, offerHandler.Accept)
	authed.POST("/offers/:id/reject", riders, offerHandler.Reject)

	meHandler := handlers.NewMeHandler(d.Trips)
	authed.GET("/me/active", meHandler.Active)
	authed.GET("/me/history", meHandler.History)
	authed.GET("/me/notices", meHandler.Notices)
	authed.GET("/me/stats", meHandler.Stats)

	return r
}
