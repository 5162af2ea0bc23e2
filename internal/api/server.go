// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/tracker-tokens/internal/logging"
	"github.com/tracker-tokens/internal/models"
	"github.com/tracker-tokens/internal/service"
)

// Service interfaces for dependency injection and testing

// LedgerServiceInterface defines the interface for ledger operations
type LedgerServiceInterface interface {
	Append(ctx context.Context, input *service.AppendInput) (*models.TokenTransaction, error)
	Query(ctx context.Context, input *service.QueryInput) (*service.QueryResult, error)
	BalanceOf(ctx context.Context, userID string) (decimal.Decimal, error)
}

// EngagementServiceInterface defines the interface for engagement operations
type EngagementServiceInterface interface {
	RecordVisit(ctx context.Context, input *service.RecordVisitInput) (*service.RecordVisitResult, error)
	ListSites(ctx context.Context, userID string) ([]*models.TrackedSite, error)
}

// NotificationServiceInterface defines the interface for notification operations
type NotificationServiceInterface interface {
	Create(ctx context.Context, input *service.CreateInput) (*models.Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID string, read bool) (*models.Notification, error)
}

// BreachServiceInterface defines the interface for breach-check operations
type BreachServiceInterface interface {
	CheckEmail(ctx context.Context, email string) ([]*models.BreachResult, error)
	CheckAndNotify(ctx context.Context, userID string, email string) (*service.CheckResult, error)
}

// UserServiceInterface defines the interface for user operations
type UserServiceInterface interface {
	Register(ctx context.Context, input *service.RegisterInput) (*models.User, error)
	Get(ctx context.Context, userID string) (*models.User, error)
	UpdateSettings(ctx context.Context, userID string, input *service.UpdateSettingsInput) (*models.User, error)
}

// Server represents the HTTP API server.
type Server struct {
	router              *mux.Router
	httpServer          *http.Server
	ledgerService       LedgerServiceInterface
	engagementService   EngagementServiceInterface
	notificationService NotificationServiceInterface
	breachService       BreachServiceInterface
	userService         UserServiceInterface
	logger              *logging.Logger
	config              *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	ledgerService LedgerServiceInterface,
	engagementService EngagementServiceInterface,
	notificationService NotificationServiceInterface,
	breachService BreachServiceInterface,
	userService UserServiceInterface,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		router:              mux.NewRouter(),
		ledgerService:       ledgerService,
		engagementService:   engagementService,
		notificationService: notificationService,
		breachService:       breachService,
		userService:         userService,
		logger:              logger,
		config:              config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Middleware order matters: logging wraps everything, recovery before
	// any handler runs, rate limiting after CORS so preflights stay cheap.
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Ledger endpoints
	s.router.HandleFunc("/tokens", s.handleQueryTokens).Methods("GET")
	s.router.HandleFunc("/tokens", s.handleAppendToken).Methods("POST")
	s.router.HandleFunc("/tokens/balance", s.handleGetBalance).Methods("GET")

	// Engagement endpoints
	s.router.HandleFunc("/trackers", s.handleListSites).Methods("GET")
	s.router.HandleFunc("/trackers", s.handleRecordVisit).Methods("POST")

	// Notification endpoints
	s.router.HandleFunc("/notifications", s.handleListNotifications).Methods("GET")
	s.router.HandleFunc("/notifications", s.handleCreateNotification).Methods("POST")
	s.router.HandleFunc("/notifications", s.handleMarkRead).Methods("PUT")

	// Breach-check endpoints
	s.router.HandleFunc("/breach-check", s.handleBreachCheck).Methods("GET")
	s.router.HandleFunc("/breach-check", s.handleBreachCheckAndNotify).Methods("POST")

	// User endpoints
	s.router.HandleFunc("/users", s.handleRegisterUser).Methods("POST")
	s.router.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
	s.router.HandleFunc("/users/{id}", s.handleUpdateSettings).Methods("PUT")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "tracker-tokens",
	})
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
