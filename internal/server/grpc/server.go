// Package grpc runs the server's gRPC endpoint, which exposes the standard
// health service probed by clients to decide whether they are online.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/suitewaste/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address string
	logger  logging.Logger
	health  *health.Server
}

func NewGRPCServer(address string, l logging.Logger) *GRPCServer {
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		health:  health.NewServer(),
	}
}

// SetServing flips the overall health status reported to probes.
func (s *GRPCServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)
	s.SetServing(true)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
