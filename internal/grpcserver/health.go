package grpcserver

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/akylbek/payment-system/payment-intents/internal/telemetry"
)

// ServiceName is the health-checked service name, next to the overall "" entry.
const ServiceName = "payment.intents"

// HealthServer exposes the standard gRPC health protocol so orchestrators can
// probe the process without going through HTTP.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
}

func NewHealthServer() *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &HealthServer{srv: srv, health: hs}
}

func (s *HealthServer) Serve(lis net.Listener) error {
	telemetry.Logger.Info("gRPC health server starting", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// Shutdown reports NOT_SERVING to watchers and stops accepting calls.
func (s *HealthServer) Shutdown() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *HealthServer) Checker() healthpb.HealthServer {
	return s.health
}
