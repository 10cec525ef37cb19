package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database/service"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
)

// Server hosts the token service and the standard health service.
type Server struct {
	server *grpc.Server
	health *health.Server
	addr   string
	logger *slog.Logger
}

// NewServer builds the gRPC server with logging, recovery and bearer
// authentication interceptors.
func NewServer(authService service.AuthService, addr string, logger *slog.Logger) *Server {
	authenticate := &authenticator{authService: authService, logger: logger}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(InterceptorLogger(logger), logging.WithLogOnEvents(logging.FinishCall)),
			recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(recoveryHandler(logger))),
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
		grpc.ChainStreamInterceptor(
			logging.StreamServerInterceptor(InterceptorLogger(logger), logging.WithLogOnEvents(logging.FinishCall)),
			recovery.StreamServerInterceptor(recovery.WithRecoveryHandler(recoveryHandler(logger))),
		),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthServer)
	RegisterTokenServiceServer(srv, NewTokenServer(authService, logger))
	healthServer.SetServingStatus(TokenServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{
		server: srv,
		health: healthServer,
		addr:   addr,
		logger: logger,
	}
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("🔌 [gRPC] Server running...", "addr", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Stop drains in-flight calls, forcing the stop once ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}

// InterceptorLogger adapts slog to the go-grpc-middleware logging interface.
func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

func recoveryHandler(logger *slog.Logger) recovery.RecoveryHandlerFunc {
	return func(p any) error {
		logger.Error("❌ [gRPC] Recovered from panic", "panic", p)
		return status.Error(codes.Internal, "internal server error")
	}
}

// requiresAuth selects the calls that must carry a bearer access token.
func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	method := c.FullMethod()
	if strings.HasPrefix(method, "/"+healthpb.Health_ServiceDesc.ServiceName+"/") {
		return false
	}
	return method != IntrospectMethod && method != RefreshMethod
}

type authenticator struct {
	authService service.AuthService
	logger      *slog.Logger
}

// AuthFunc validates the bearer token and attaches the principal to ctx.
func (a *authenticator) AuthFunc(ctx context.Context) (context.Context, error) {
	raw, err := auth.AuthFromMD(ctx, "bearer")
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	principal, err := a.authService.Authorize(ctx, raw)
	if err != nil {
		if security.IsAuthenticationError(err) {
			a.logger.Warn("⚠️ [gRPC] Authentication failed", "reason", security.Kind(err))
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		a.logger.Error("❌ [gRPC] Authentication error", "error", err)
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return security.WithPrincipal(ctx, principal), nil
}
