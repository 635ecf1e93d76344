package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/base-14/examples/go/parking-lot/internal/logging"
	"github.com/base-14/examples/go/parking-lot/internal/parking"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
	metrics    *Metrics
}

func NewServer(port string, parkingLot *parking.InstrumentedParkingLot, serviceName string) *Server {
	handler := NewHandler(parkingLot, serviceName)
	metrics := NewMetrics(parkingLot)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      newRouter(handler, metrics),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		metrics:    metrics,
	}
}

func newRouter(handler *Handler, metrics *Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/parking-lot", func(r chi.Router) {
		r.Post("/", handler.CreateParkingLot)
		r.Post("/park", handler.ParkVehicle)
		r.Post("/leave", handler.LeaveSlot)
		r.Get("/status", handler.GetStatus)
		r.Get("/find/{registration}", handler.FindByRegistration)
		r.Get("/colors/{color}/registrations", handler.RegistrationsByColor)
		r.Get("/colors/{color}/slots", handler.SlotsByColor)
	})

	return r
}

// Start blocks serving requests. A server stopped through Shutdown returns nil.
func (s *Server) Start() error {
	logging.Info(context.Background()).Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx).Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
