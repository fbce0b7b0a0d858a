package grpc

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported alongside the overall ("") status
const ServiceName = "statsvc"

// Checker reports whether the backing store is usable
type Checker interface {
	Health(ctx context.Context) error
}

// Server exposes grpc.health.v1.Health driven by periodic store probes
type Server struct {
	health   *health.Server
	checker  Checker
	interval time.Duration
	logger   *log.Logger
}

// NewServer creates a health Server; status is NOT_SERVING until the first probe
func NewServer(c Checker, interval time.Duration, l *log.Logger) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{health: hs, checker: c, interval: interval, logger: l}
}

// Register attaches the health service to a gRPC server
func (s *Server) Register(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, s.health)
}

// Run probes the store immediately and then every interval until ctx is done
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.probe(ctx)
	for {
		select {
		case <-ticker.C:
			s.probe(ctx)
		case <-ctx.Done():
			s.logger.Println("gRPC Server: health checker stopped")
			s.health.Shutdown()
			return
		}
	}
}

// probe pings the store once and updates the serving status
func (s *Server) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.checker.Health(pingCtx); err != nil {
		s.logger.Printf("gRPC Server: store health probe failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Check returns the current status for service ("" for the whole server)
func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
