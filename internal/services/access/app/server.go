package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/platewire/boardgate/internal/platform/logging"
	accesshttp "github.com/platewire/boardgate/internal/services/access/api/http"
	"github.com/platewire/boardgate/internal/services/access/audit"
	"github.com/platewire/boardgate/internal/services/access/ceremony"
	"github.com/platewire/boardgate/internal/services/access/pin"
	accesssqlite "github.com/platewire/boardgate/internal/services/access/storage/sqlite"
	"github.com/platewire/boardgate/internal/services/access/token"
)

// ceremonySweepInterval bounds how long an abandoned ceremony session can
// outlive its TTL in storage.
const ceremonySweepInterval = time.Minute

// Server hosts the access service: the JSON API and a gRPC health endpoint.
type Server struct {
	log          *zap.Logger
	store        *accesssqlite.Store
	api          *accesshttp.Server
	httpListener net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
}

// New creates a configured access server listening on the provided
// addresses. An empty grpcAddr disables the health listener.
func New(httpAddr, grpcAddr string, debug bool) (*Server, error) {
	log, err := logging.New(debug)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	store, err := openAccessStore()
	if err != nil {
		return nil, err
	}

	tokenCfg, err := token.LoadConfigFromEnv(nil)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	recorder := audit.NewRecorder(store, store, log)
	verifier := pin.NewVerifier(store, recorder)
	adapter := ceremony.NewAdapter(store, store, recorder, ceremony.LoadConfigFromEnv(), log)

	api := accesshttp.NewServer(log, verifier, adapter, tokenCfg, debug)

	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", httpAddr, err)
	}

	var grpcListener net.Listener
	var grpcServer *grpc.Server
	var healthServer *health.Server
	if strings.TrimSpace(grpcAddr) != "" {
		grpcListener, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = httpListener.Close()
			_ = store.Close()
			return nil, fmt.Errorf("listen on grpc addr %s: %w", grpcAddr, err)
		}
		grpcServer = grpc.NewServer()
		healthServer = health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	}

	return &Server{
		log:          log,
		store:        store,
		api:          api,
		httpListener: httpListener,
		httpServer:   &http.Server{Handler: api.Router()},
		grpcListener: grpcListener,
		grpcServer:   grpcServer,
		health:       healthServer,
	}, nil
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Run creates and serves an access server until the context ends.
func Run(ctx context.Context, httpAddr, grpcAddr string, debug bool) error {
	server, err := New(httpAddr, grpcAddr, debug)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the access server and blocks until it stops or the context
// ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.closeStore()
	defer func() { _ = s.log.Sync() }()

	go s.sweepSessions(serverCtx)

	s.log.Info("access server listening", zap.String("addr", s.httpListener.Addr().String()))
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()

	grpcErr := make(chan error, 1)
	if s.grpcServer != nil && s.grpcListener != nil {
		s.log.Info("health server listening", zap.String("addr", s.grpcListener.Addr().String()))
		go func() {
			grpcErr <- s.grpcServer.Serve(s.grpcListener)
		}()
	}

	handleHTTPErr := func(err error) error {
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}

	shutdownHTTP := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}
	shutdownGRPC := func() {
		if s.grpcServer == nil {
			return
		}
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
	}

	select {
	case <-ctx.Done():
		shutdownHTTP()
		shutdownGRPC()
		return handleHTTPErr(<-httpErr)
	case err := <-httpErr:
		shutdownGRPC()
		return handleHTTPErr(err)
	case err := <-grpcErr:
		shutdownHTTP()
		if handled := handleHTTPErr(<-httpErr); handled != nil {
			return handled
		}
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// sweepSessions removes expired ceremony sessions and stale gate sessions
// on a fixed interval.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(ceremonySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := s.store.DeleteExpiredCeremonySessions(ctx, now); err != nil {
				s.log.Warn("sweep ceremony sessions", zap.Error(err))
			}
			s.api.EvictIdleSessions(now)
		}
	}
}

func openAccessStore() (*accesssqlite.Store, error) {
	path := strings.TrimSpace(os.Getenv("BOARDGATE_DB_PATH"))
	if path == "" {
		path = filepath.Join("data", "access.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := accesssqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open access sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn("close access store", zap.Error(err))
	}
}
