package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"minibank/internal/config"
	"minibank/internal/domain"
	"minibank/internal/forex"
	"minibank/internal/handler"
	"minibank/internal/repository"
	"minibank/internal/repository/memory"
	"minibank/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	redis  *redis.Client
	logger *slog.Logger
	port   string
}

// NewServer wires stores, services and handlers from cfg.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{logger: logger}

	store, err := s.openStore(cfg)
	if err != nil {
		return nil, err
	}

	rates, err := s.openRateStore(cfg, store)
	if err != nil {
		s.close()
		return nil, err
	}

	provider := forex.NewClient(forex.Config{
		BaseURL:           cfg.ForexBaseURL,
		ReferenceCurrency: cfg.ForexReferenceCurrency,
		Timeout:           cfg.ForexTimeout,
		RequestsPerSecond: cfg.ForexRequestsPerSecond,
		Burst:             cfg.ForexBurst,
	}, logger)

	// Services
	exchangeRateService := service.NewExchangeRateService(rates, provider, cfg.RateMaxAge, logger)
	transactionService := service.NewTransactionService(store, exchangeRateService, logger)
	accountService := service.NewAccountService(store, logger)
	ownerService := service.NewOwnerService(store.Owner(), logger)

	// Handlers
	ownerHandler := handler.NewOwnerHandler(ownerService)
	accountHandler := handler.NewAccountHandler(accountService, transactionService)
	transactionHandler := handler.NewTransactionHandler(transactionService, accountService)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/owners", ownerHandler.RegisterOwner).Methods("POST")

	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts/{id:[0-9]+}", accountHandler.DeleteAccount).Methods("DELETE")
	router.HandleFunc("/accounts/{number}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{number}/balance", accountHandler.GetBalance).Methods("GET")
	router.HandleFunc("/accounts/{number}/deposit", accountHandler.Deposit).Methods("POST")
	router.HandleFunc("/accounts/{number}/withdraw", accountHandler.Withdraw).Methods("POST")
	router.HandleFunc("/accounts/{number}/transactions", accountHandler.ListTransactions).Methods("GET")
	router.HandleFunc("/accounts/{number}/transactions/incoming", accountHandler.ListIncoming).Methods("GET")
	router.HandleFunc("/accounts/{number}/transactions/outgoing", accountHandler.ListOutgoing).Methods("GET")

	router.HandleFunc("/transactions", transactionHandler.Transfer).Methods("POST")

	router.HandleFunc("/health", s.health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.router = router
	return s, nil
}

func (s *Server) openStore(cfg *config.Config) (domain.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		s.logger.Warn("Using in-memory ledger store; data is lost on shutdown")
		return memory.NewStore(s.logger), nil
	}

	db, err := repository.Open(cfg.GetDBConnectionString(), repository.PoolConfig{
		MaxOpenConns:   cfg.DBMaxConns,
		MaxIdleConns:   cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
	}, s.logger)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.logger.Info("Successfully connected to database")

	if err := repository.Migrate(cfg.GetDBURL(), s.logger); err != nil {
		s.close()
		return nil, err
	}

	return repository.NewStore(db, s.logger), nil
}

func (s *Server) openRateStore(cfg *config.Config, store domain.Store) (domain.ExchangeRateRepository, error) {
	if cfg.RateStore != config.RateStoreRedis {
		return store.ExchangeRate(), nil
	}

	client, err := repository.NewRedisClient(repository.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisUseTLS,
	}, s.logger)
	if err != nil {
		return nil, err
	}
	s.redis = client
	s.logger.Info("Exchange rates stored in Redis", "addr", cfg.RedisAddr)

	return repository.NewRedisRateRepository(client, s.logger), nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(r.Context()).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "rate store unavailable"})
			return
		}
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

// Start listens on port and serves in the background. Port "0" picks a
// free port; the chosen one is returned.
func (s *Server) Start(port string) (string, error) {
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
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, then releases the stores.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.close()
	return err
}

func (s *Server) close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", "error", err)
		}
		s.db = nil
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", "error", err)
		}
		s.redis = nil
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

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = NewLogger(cfg, os.Stdout)
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.close()
		return nil, "", err
	}

	return server, port, nil
}
