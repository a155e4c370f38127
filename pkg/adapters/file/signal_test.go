package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/notebook/pkg/adapters/file"
	"github.com/aretw0/notebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_ConsumeIsEdgeTriggered(t *testing.T) {
	ctx := context.Background()
	sig := file.NewSignal(filepath.Join(t.TempDir(), "cancel.signal"))

	fired, err := sig.Consume(ctx)
	require.NoError(t, err)
	assert.False(t, fired)

	require.NoError(t, sig.Raise())
	fired, err = sig.Consume(ctx)
	require.NoError(t, err)
	assert.True(t, fired)

	_, err = os.Stat(sig.Path)
	assert.True(t, os.IsNotExist(err))

	fired, err = sig.Consume(ctx)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestSignal_UndeletableMarkerStillFires(t *testing.T) {
	// A non-empty directory at the marker path exists but cannot be removed.
	path := filepath.Join(t.TempDir(), "cancel.signal")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0o755))

	sig := file.NewSignal(path, file.WithRetry(2, time.Millisecond))
	fired, err := sig.Consume(context.Background())

	assert.True(t, fired)
	assert.ErrorIs(t, err, domain.ErrSignalDeleteFailed)
}
