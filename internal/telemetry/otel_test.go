package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), "gophauth-test", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, shutdown(ctx), "noop shutdown ignores a cancelled context")
}

func TestSetup_CreatesProvider(t *testing.T) {
	// Non-routable address; nothing is exported because no spans are recorded.
	shutdown, err := Setup(context.Background(), "gophauth-test", "http://192.0.2.1:4318")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
