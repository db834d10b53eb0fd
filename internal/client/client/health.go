package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthProber answers whether the server is reachable and serving.
type HealthProber interface {
	Check(ctx context.Context) error
	Close() error
}

type GRPCHealthProber struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

// NewGRPCHealthProber connects lazily to addr; no I/O happens until Check.
func NewGRPCHealthProber(addr string, opts ...grpc.DialOption) (*GRPCHealthProber, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCHealthProber{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

func (p *GRPCHealthProber) Check(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: health status %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (p *GRPCHealthProber) Close() error {
	return p.conn.Close()
}
