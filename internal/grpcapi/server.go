// Package grpcapi serves the AccessControl gRPC service and the standard
// gRPC health service.
package grpcapi

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/BrandonDHaskell/facegate/internal/auth"
	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
)

// Authorizer checks an Authorization header value for a scope.
type Authorizer interface {
	Authorize(header, scope string) (*auth.Claims, error)
}

type Dependencies struct {
	Logger        *zap.Logger
	Addr          string
	AccessService *service.AccessService
	// Authorizer nil disables authentication.
	Authorizer Authorizer
}

type Server struct {
	server       *grpc.Server
	healthServer *health.Server
	addr         string
	logger       *zap.Logger
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(16<<20),
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger), authInterceptor(d.Authorizer)),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	RegisterAccessControlServer(s, &accessControl{access: d.AccessService})
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		server:       s,
		healthServer: healthServer,
		addr:         d.Addr,
		logger:       logger,
	}
}

// Start listens on the configured address and blocks until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	return s.server.Serve(lis)
}

// Stop drains in-flight calls, forcing a hard stop when ctx ends first.
func (s *Server) Stop(ctx context.Context) {
	s.healthServer.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.logger.Warn("grpc server forced to stop")
		s.server.Stop()
	}
}
