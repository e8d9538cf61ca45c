// Package grpc implements the gRPC transport for kartavyabot.
//
// The bot's conversations happen on WhatsApp and HTTP; over gRPC it only
// serves the standard grpc.health.v1.Health service so orchestrators and
// sidecars can probe it natively. The reported status follows the readiness
// function given to New.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/kartavyaai/kartavyabot/internal/transport"
)

// ServiceName is the service name reported next to the overall ("") status.
const ServiceName = "kartavyabot"

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port     int
	ready    func() bool
	interval time.Duration
	server   *grpc.Server
	health   *health.Server
}

// New creates a new gRPC transport on the given port. ready is polled to
// update the health status; nil means always serving.
func New(port int, ready func() bool) *Transport {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Transport{
		port:     port,
		ready:    ready,
		interval: 5 * time.Second,
		server:   grpc.NewServer(),
		health:   health.NewServer(),
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server. The handler is not used: no conversation
// service is exposed over gRPC.
func (t *Transport) Listen(ctx context.Context, _ transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.serve(ctx, lis)
}

func (t *Transport) serve(ctx context.Context, lis net.Listener) error {
	healthpb.RegisterHealthServer(t.server, t.health)
	t.update()

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("grpc transport shutting down")
				t.health.Shutdown()
				t.server.GracefulStop()
				return
			case <-ticker.C:
				t.update()
			}
		}
	}()

	return t.server.Serve(lis)
}

func (t *Transport) update() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if t.ready() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus("", status)
	t.health.SetServingStatus(ServiceName, status)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.health.Shutdown()
	t.server.GracefulStop()
	return nil
}
