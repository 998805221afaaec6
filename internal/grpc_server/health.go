package grpc_server

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service key probes can ask for besides "".
const ServiceName = "payme.webhook"

// HealthServer exposes the standard gRPC health protocol for orchestrator
// probes. It starts NOT_SERVING and flips once dependencies check out.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewHealthServer(logger *zap.Logger) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	s := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &HealthServer{server: s, health: hs, logger: logger}
}

// Serve blocks serving on lis until the server is stopped.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))
	if err := s.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

func (s *HealthServer) SetServing(service string) {
	s.health.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
}

func (s *HealthServer) SetNotServing(service string) {
	s.health.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	if service == "" {
		s.health.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
}

// Watch re-checks ready every interval and mirrors the result into the
// health status until ctx is done.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration, ready func(context.Context) error) {
	check := func() {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := ready(checkCtx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.SetNotServing("")
			return
		}
		s.SetServing("")
		s.SetServing(ServiceName)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

func (s *HealthServer) GracefulStop() { s.server.GracefulStop() }
func (s *HealthServer) Stop() { s.server.Stop() }
