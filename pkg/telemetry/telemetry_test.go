package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoopWhenDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{
		Enabled:     false,
		Endpoint:    "http://localhost:4318",
		ServiceName: "user-service",
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: true, ServiceName: "user-service"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestSetup_CreatesProvider(t *testing.T) {
	// non-routable address, nothing gets exported
	shutdown, err := Setup(context.Background(), Config{
		Enabled:        true,
		Endpoint:       "http://192.0.2.1:4318",
		ServiceName:    "user-service",
		ServiceVersion: "test",
		Environment:    "test",
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
