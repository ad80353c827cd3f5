package handler

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
)

func TestGRPCHealth(t *testing.T) {
	ctx := context.Background()

	h := NewGRPCHandler(repository.NewMemoryStore(), "catering-requests", logger.Nop())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Check(ctx))

	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{Service: "catering-requests"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	down := NewGRPCHandler(failingPinger{}, "catering-requests", logger.Nop())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, down.Check(ctx))
	resp, err = down.health.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	srv := h.NewServer()
	_, registered := srv.GetServiceInfo()["grpc.health.v1.Health"]
	assert.True(t, registered)
}

func TestUnaryInterceptor(t *testing.T) {
	h := NewGRPCHandler(repository.NewMemoryStore(), "catering-requests", logger.Nop())
	info := &grpc.UnaryServerInfo{FullMethod: "/catering.v1.Requests/Get"}

	resp, err := h.UnaryInterceptor(context.Background(), "req", info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = h.UnaryInterceptor(context.Background(), "req", info, func(context.Context, any) (any, error) {
		return nil, errors.NotFound("request", "r-1")
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestToGRPCError(t *testing.T) {
	assert.NoError(t, toGRPCError(nil))

	cases := map[codes.Code]error{
		codes.InvalidArgument:    errors.InvalidInput("venue", "venue is required"),
		codes.PermissionDenied:   errors.Forbidden("no"),
		codes.Aborted:            errors.Conflict("stale"),
		codes.FailedPrecondition: errors.OverPayment("too much"),
		codes.Unauthenticated:    errors.Unauthorized("who"),
		codes.Internal:           stderrors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, status.Code(toGRPCError(err)), err.Error())
	}

	passthrough := status.Error(codes.Unavailable, "draining")
	assert.Equal(t, passthrough, toGRPCError(passthrough))
}
