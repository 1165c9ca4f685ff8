package health

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Mr-Leon909/tsutsuji-app/interceptor"
)

// Service is the name reported next to the overall "" status.
const Service = "tsutsuji"

// Pinger reports whether the backend database is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Server is the gRPC sidecar with the standard health service and reflection.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	pinger   Pinger
	interval time.Duration
}

// NewServer builds the sidecar. Health methods are public; reflection needs a
// session token.
func NewServer(pinger Pinger, verifier interceptor.TokenVerifier, interval time.Duration) *Server {
	auth := interceptor.NewAuthInterceptor(verifier, []string{
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
		"/grpc.health.v1.Health/List",
	})

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptor.LoggingUnary, auth.Unary()),
		grpc.ChainStreamInterceptor(interceptor.LoggingStream, auth.Stream()),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)

	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Server{
		grpc:     grpcServer,
		health:   hs,
		pinger:   pinger,
		interval: interval,
	}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Probe pings the database once and publishes the result.
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.pinger.HealthCheck(ctx); err != nil {
		log.Printf("Database health check failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
	return status
}

// Watch probes until ctx is done.
func (s *Server) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
