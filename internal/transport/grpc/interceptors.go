package grpc

import (
	"context"
	"log/slog"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"roombook/backend/internal/logging"
)

const defaultRequestTimeout = 10 * time.Second

// RequestTimeoutInterceptor bounds calls that arrive without a deadline.
func RequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

// LogContextInterceptor tags every record logged while serving a call with
// the rpc name and the requester.
func LogContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logging.AppendCtx(ctx, slog.String("rpc", path.Base(info.FullMethod)))
		if id := firstHeader(ctx, requesterIDHeader); id != "" {
			ctx = logging.AppendCtx(ctx, slog.String("requester_id", id))
		}
		return handler(ctx, req)
	}
}

// Register adds the bookings service and the standard health service to s
// and marks both as serving.
func Register(s *grpc.Server, srv BookingsServer) *health.Server {
	RegisterBookingsServer(s, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}
