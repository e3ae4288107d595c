package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabledIsNoop(t *testing.T) {
	cleanup, err := Init(context.Background(), Config{}, "test")
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	cleanup()
}

func TestInitWritesTraces(t *testing.T) {
	dir := t.TempDir()
	cleanup, err := Init(context.Background(), Config{Enabled: true, Dir: dir}, "test")
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "unit")
	span.End()
	cleanup()

	b, err := os.ReadFile(filepath.Join(dir, "urbanbot_traces.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Name": "unit"`)
}
