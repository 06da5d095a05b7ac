package server

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"wallet-service/internal/config"
	"wallet-service/internal/domain"
	"wallet-service/internal/handler"
	"wallet-service/internal/metrics"
	"wallet-service/internal/notifier"
	"wallet-service/internal/repository"
	"wallet-service/internal/repository/memory"
	"wallet-service/migrations"
)

// Server represents the HTTP server
type Server struct {
	router  *mux.Router
	server  *http.Server
	db      *sql.DB
	nc      *nats.Conn
	async   *notifier.Async
	metrics *metrics.Metrics
	logger  *slog.Logger
	port    string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		metrics: metrics.New(),
		logger:  logger,
	}

	store, err := s.openStore(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := s.buildNotifier(cfg, store)
	if err != nil {
		s.closeResources()
		return nil, err
	}

	services := newServices(store, sink, s.metrics, cfg, logger)
	s.router = s.routes(services)
	return s, nil
}

func (s *Server) openStore(cfg *config.Config) (domain.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		s.logger.Info("Using in-memory store")
		return memory.NewStore(), nil
	}

	// Initialize database connection
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	s.db = db
	s.logger.Info("Successfully connected to database")

	if cfg.AutoMigrate {
		if err := repository.Migrate(ctx, db, migrations.FS, s.logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	return repository.NewStore(db, s.logger), nil
}

// buildNotifier persists every message to the inbox and, when NATS is
// configured, publishes it as well. Delivery runs off the request path.
func (s *Server) buildNotifier(cfg *config.Config, store domain.Store) (domain.Notifier, error) {
	sinks := notifier.Multi{notifier.NewPersisted(store.Notification())}

	if cfg.NATSURL != "" {
		nc, err := notifier.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect to nats: %w", err)
		}
		s.nc = nc
		sinks = append(sinks, notifier.NewNATS(nc, cfg.NATSSubject))
		s.logger.Info("Publishing notifications to NATS", "subject", cfg.NATSSubject)
	}

	s.async = notifier.NewAsync(sinks, cfg.NotifyBufferSize, s.logger)
	return s.async, nil
}

func (s *Server) routes(svc *services) *mux.Router {
	accountHandler := handler.NewAccountHandler(svc.wallet, svc.admin)
	transactionHandler := handler.NewTransactionHandler(svc.wallet, svc.reconciliation)
	notificationHandler := handler.NewNotificationHandler(svc.wallet)
	bankAccountHandler := handler.NewBankAccountHandler(svc.wallet, svc.admin)

	router := mux.NewRouter()

	// Add middleware for logging and metrics
	router.Use(loggingMiddleware(s.logger))
	router.Use(s.metrics.Middleware(routeTemplate))

	// User routes
	users := router.PathPrefix("/users/{user_id}").Subrouter()
	users.HandleFunc("/account", accountHandler.GetAccount).Methods("GET")
	users.HandleFunc("/deposits", transactionHandler.CreateDeposit).Methods("POST")
	users.HandleFunc("/deposits", transactionHandler.ListDeposits).Methods("GET")
	users.HandleFunc("/withdrawals", transactionHandler.CreateWithdrawal).Methods("POST")
	users.HandleFunc("/withdrawals", transactionHandler.ListWithdrawals).Methods("GET")
	users.HandleFunc("/transfers", transactionHandler.Transfer).Methods("POST")
	users.HandleFunc("/transactions", transactionHandler.ListTransactions).Methods("GET")
	users.HandleFunc("/notifications", notificationHandler.ListNotifications).Methods("GET")
	users.HandleFunc("/notifications/{notification_id}", notificationHandler.MarkRead).Methods("PATCH")

	router.HandleFunc("/company-bank-accounts", bankAccountHandler.ListBankAccounts).Methods("GET")

	// Admin routes
	admin := router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	admin.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	admin.HandleFunc("/accounts/{user_id}/balance", accountHandler.AdjustBalance).Methods("POST")
	admin.HandleFunc("/accounts/{user_id}/adjustments", accountHandler.ListAdjustments).Methods("GET")
	admin.HandleFunc("/transactions", transactionHandler.ListAllTransactions).Methods("GET")
	admin.HandleFunc("/transactions/{transaction_id}/status", transactionHandler.SetStatus).Methods("PUT")
	admin.HandleFunc("/company-bank-accounts", bankAccountHandler.ReplaceBankAccounts).Methods("PUT")

	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	router.HandleFunc("/health", s.health).Methods("GET")

	return router
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Check database connectivity in health check
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}
	}
	if s.nc != nil && !s.nc.IsConnected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "nats unavailable"})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create response wrapper to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, then pending notifications, then closes
// the connections they depend on.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var errs []error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.async != nil {
		if err := s.async.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
	}
	s.closeResources()
	return stderrors.Join(errs...)
}

func (s *Server) closeResources() {
	if s.nc != nil {
		s.nc.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger writes JSON to stdout, or discards when the port is "0" (tests).
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.ServerPort == "0" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	server, err := NewServer(cfg, NewLogger(cfg))
	if err != nil {
		return nil, "", err
	}

	// Start the server and get the actual port
	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.closeResources()
		return nil, "", err
	}

	return server, port, nil
}
