package otel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"claimdesk/internal/platform/otel"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := otel.Setup(context.Background(), "claimdesk-test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpoint(t *testing.T) {
	shutdown, err := otel.Setup(context.Background(), "claimdesk-test", "http://localhost:4318")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
