//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/collectmyitem/booking/internal/checkout"
	"github.com/collectmyitem/booking/internal/events"
	"github.com/collectmyitem/booking/internal/storage"
)

type Storage interface {
	MarkPaid(ctx context.Context, ref string) (bool, error)
	Get(ctx context.Context, ref string) (*storage.Booking, error)
	List(ctx context.Context) ([]storage.Booking, error)
}

type CheckoutService interface {
	CreateSession(ctx context.Context, req checkout.Request) (checkout.Result, error)
}

type WebhookVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type Config struct {
	PublicDir         string
	AdminUser         string
	AdminPasswordHash string
}

type Server struct {
	storage      Storage
	checkout     CheckoutService
	verifier     WebhookVerifier
	producer     events.Producer
	logger       *zap.Logger
	cfg          Config
	server       *http.Server
	AuditManager *AuditManager
}

func New(st Storage, co CheckoutService, verifier WebhookVerifier, producer events.Producer, logger *zap.Logger, cfg Config) *Server {
	return &Server{
		storage:      st,
		checkout:     co,
		verifier:     verifier,
		producer:     producer,
		logger:       logger,
		cfg:          cfg,
		AuditManager: NewAuditManager(logger, 2, 5, 500*time.Millisecond),
	}
}

func (s *Server) Run(ctx context.Context, port string) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.AuditManager.Start(ctx)

	s.logger.Info("Server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("HTTP server shutdown completed")

	s.AuditManager.Shutdown(ctx)
	s.logger.Info("Server shutdown completed successfully")

	return nil
}

func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()

	// The webhook stays off the audit chain: signature verification runs over
	// the exact transmitted bytes, so nothing may buffer or re-encode the body
	// before the handler reads it.
	r.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.auditMiddleware)

	api.HandleFunc("/api/price", s.handlePrice).Methods(http.MethodPost)
	api.HandleFunc("/create-checkout-session", s.handleCreateCheckoutSession).Methods(http.MethodPost)
	api.HandleFunc("/api/create-checkout-session", s.handleCreateCheckoutSession).Methods(http.MethodPost)

	if s.cfg.AdminUser != "" && s.cfg.AdminPasswordHash != "" {
		admin := api.NewRoute().Subrouter()
		admin.Use(s.basicAuthMiddleware)
		admin.HandleFunc("/api/bookings", s.handleListBookings).Methods(http.MethodGet)
		admin.HandleFunc("/api/bookings/{ref}", s.handleGetBooking).Methods(http.MethodGet)
	}

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.PublicDir))).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Stripe-Signature", "Authorization"}),
	)

	return handlers.RecoveryHandler(handlers.RecoveryLogger(zap.NewStdLog(s.logger)))(cors(r))
}
