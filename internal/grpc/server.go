package grpc

import (
	"context"
	"log/slog"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"roomchat/internal/observability"
)

// ServiceName is the health-check service reported for the chat engine.
const ServiceName = "roomchat.Chat"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// AdminServer exposes gRPC health checks on the admin port.
type AdminServer struct {
	server *grpc.Server
	health *health.Server
	db     Pinger
}

// NewAdminServer builds the gRPC server with tracing and metrics interceptors.
func NewAdminServer(db Pinger) *AdminServer {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &AdminServer{server: srv, health: hs, db: db}
}

// Refresh updates the serving status from the database ping.
func (s *AdminServer) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			slog.Warn("health ping failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks serving on lis until Stop.
func (s *AdminServer) Serve(lis net.Listener) error {
	slog.Info("grpc admin server listening", "addr", lis.Addr().String())
	return s.server.Serve(lis)
}

// Stop marks every service not serving and drains in-flight calls.
func (s *AdminServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
