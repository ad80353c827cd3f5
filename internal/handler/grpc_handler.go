package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
)

// GRPCHandler serves the gRPC health protocol for the service and keeps it
// in step with store connectivity.
type GRPCHandler struct {
	health *health.Server
	store  Pinger
	name   string
	log    *logger.Logger
}

// NewGRPCHandler creates a new gRPC handler. name is the service name
// reported alongside the overall "" service.
func NewGRPCHandler(store Pinger, name string, log *logger.Logger) *GRPCHandler {
	return &GRPCHandler{
		health: health.NewServer(),
		store:  store,
		name:   name,
		log:    log.Component("grpc"),
	}
}

// NewServer builds a gRPC server with the health service, reflection and
// the logging interceptor registered.
func (h *GRPCHandler) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(h.UnaryInterceptor))
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, h.health)
	reflection.Register(srv)
	return srv
}

// Check pings the store once and updates the serving status.
func (h *GRPCHandler) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Store ping failed")
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(h.name, st)
	return st
}

// WatchStore re-checks the store every interval until ctx is done.
func (h *GRPCHandler) WatchStore(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			h.Check(pingCtx)
			cancel()
		}
	}
}

// Shutdown marks every service NOT_SERVING so clients drain before stop.
func (h *GRPCHandler) Shutdown() {
	h.health.Shutdown()
}

// UnaryInterceptor logs each call and converts service errors to gRPC
// status errors.
func (h *GRPCHandler) UnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	err = toGRPCError(err)

	code := status.Code(err)
	ev := h.log.Debug()
	if code != codes.OK {
		ev = h.log.Warn().Err(err)
	}
	ev.Str("method", info.FullMethod).
		Str("code", code.String()).
		Dur("duration", time.Since(start)).
		Msg("gRPC call")

	return resp, err
}

// toGRPCError converts service errors to gRPC status errors
func toGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	e, ok := errors.As(err)
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}
	switch e.Code {
	case errors.ErrCodeNotFound:
		return status.Error(codes.NotFound, e.Message)
	case errors.ErrCodeConflict:
		return status.Error(codes.Aborted, e.Message)
	case errors.ErrCodeValidation, errors.ErrCodeInvalidAttachment:
		return status.Error(codes.InvalidArgument, e.Message)
	case errors.ErrCodeUnauthorized:
		return status.Error(codes.Unauthenticated, e.Message)
	case errors.ErrCodeForbidden:
		return status.Error(codes.PermissionDenied, e.Message)
	case errors.ErrCodeNotEligible, errors.ErrCodeOverPayment:
		return status.Error(codes.FailedPrecondition, e.Message)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
