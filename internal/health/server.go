// Package health exposes storefront readiness over the standard gRPC health protocol.
package health

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "auroramart.storefront"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	store    Pinger
	interval time.Duration
	logger   *zap.Logger
}

func NewServer(store Pinger, interval time.Duration, logger *zap.Logger) *Server {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	s := &Server{
		grpc:     grpcServer,
		health:   hs,
		store:    store,
		interval: interval,
		logger:   logger,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Watch probes the store until ctx is cancelled, flipping the serving status as it
// goes up or down.
func (s *Server) Watch(ctx context.Context) {
	s.Probe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe pings the store once and records the result.
func (s *Server) Probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if err := s.store.Ping(pctx); err != nil {
		s.logger.Warn("store ping failed", zap.Error(err))
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	return true
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop reports NOT_SERVING to watchers and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
