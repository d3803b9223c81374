package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/miradorstack/mirador-triage/internal/config"
)

func TestHealthServer(t *testing.T) {
	srv, err := NewServer(config.ServerConfig{HealthAddress: "127.0.0.1:0", GracefulTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, time.Second, srv.GracefulTimeout())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	conn, err := grpc.NewClient(srv.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	srv.SetServing(false)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	srv.Shutdown(ctx)
	require.NoError(t, <-done)
}

func TestNewServerRejectsBadAddress(t *testing.T) {
	_, err := NewServer(config.ServerConfig{HealthAddress: "not-an-address"})
	require.Error(t, err)
}
