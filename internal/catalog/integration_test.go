package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brandotp/numberdesk/internal/gateway"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Ready to accept connections"),
			wait.ForListeningPort("6379/tcp"),
		).WithDeadline(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestCatalogCachesInRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	client := startRedis(t)
	source := &countingSource{
		countries: []gateway.Country{{ID: 7, Title: "Netherlands", Code: "+31"}},
		services:  []gateway.Service{{ID: 1, Name: "telegram", DisplayPrice: "12.50"}},
	}
	cat := New(source, client, time.Minute, testLogger())
	ctx := context.Background()

	// Second read must be served from the cache.
	for i := 0; i < 2; i++ {
		countries, err := cat.Countries(ctx)
		require.NoError(t, err)
		require.Len(t, countries, 1)
		assert.Equal(t, "+31", countries[0].Code)
	}
	assert.Equal(t, 1, source.countryCalls)

	for i := 0; i < 2; i++ {
		services, err := cat.Services(ctx, 7)
		require.NoError(t, err)
		require.Len(t, services, 1)
	}
	assert.Equal(t, 1, source.serviceCalls)

	// A corrupt cache entry falls back to the source.
	require.NoError(t, client.Set(ctx, "catalog:countries", "not-json", time.Minute).Err())
	countries, err := cat.Countries(ctx)
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, 2, source.countryCalls)
}
