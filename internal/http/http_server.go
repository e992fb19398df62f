package http

// entry point of the status api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/services/report"
	"gitlab.com/dutbench.net/internal/core/services/status"
	"gitlab.com/dutbench.net/internal/handlers"
	"gitlab.com/dutbench.net/internal/handlers/batches"
)

type ServiceProvider struct {
	statusService status.IStatusService
	reportService report.IReportService
}

func NewServiceProvider(
	statusService status.IStatusService,
	reportService report.IReportService,
) *ServiceProvider {
	return &ServiceProvider{
		statusService: statusService,
		reportService: reportService,
	}
}

type Server struct {
	router          *mux.Router
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	middleware      *handlers.MiddlewareProvider
	logger          primary.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, middleware *handlers.MiddlewareProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		middleware:      middleware,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	if s.ServiceProvider.statusService == nil || s.ServiceProvider.reportService == nil {
		return errors.New("http server: status and report services are required")
	}

	r := mux.NewRouter()
	handlers.NewHealthHandler(s.ServiceName).RegisterRoutes(r)

	// batch routes sit behind the token check when a secret is configured
	api := r.NewRoute().Subrouter()
	api.Use(s.middleware.JWTMiddleware)
	batches.
		NewBatchHandler(s.ServiceProvider.statusService, s.ServiceProvider.reportService, s.logger).
		RegisterRoutes(api)

	if s.middleware.Enabled() {
		s.logger.Info("JWT authentication enabled for batch routes")
	}
	s.router = r
	return nil
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the port and serves in the background
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		if err := s.Init(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("Shutting down http server...")
	return srv.Shutdown(ctx)
}
