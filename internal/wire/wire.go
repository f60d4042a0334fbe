package wire

import (
	"net/http"

	"coach-booking/internal/adaptor"
	"coach-booking/internal/data/entity"
	"coach-booking/internal/usecase"
	"coach-booking/pkg/middleware"
	"coach-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Router *chi.Mux
}

// guards are the per-route middleware shared by the feature wiring.
type guards struct {
	auth  func(http.Handler) http.Handler
	admin func(http.Handler) http.Handler
	limit func(http.Handler) http.Handler
}

// Wiring builds the handlers and the router. rdb may be nil; rate limiting is then off.
func Wiring(service *usecase.Service, config *utils.Config, rdb redis.Scripter, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, logger)

	g := guards{
		auth:  middleware.Auth(config.JWT, logger),
		admin: middleware.RequireRole(logger, entity.RoleAdmin),
		limit: middleware.RateLimit(config.RateLimit, rdb, logger),
	}

	return &App{
		Router: setupRouter(handler, g, logger),
	}
}

func setupRouter(handler *adaptor.Handler, g guards, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wireBooking(r, handler.Booking, handler.Reschedule, g)
	wireDispute(r, handler.Dispute, g)
	wireReview(r, handler.Review, g)
	wirePayment(r, handler.Payment, handler.Reliability, g)
	wireWebhook(r, handler.Webhook)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
