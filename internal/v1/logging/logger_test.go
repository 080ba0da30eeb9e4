package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	err := Initialize(true)
	require.NoError(t, err)
	assert.NotNil(t, GetLogger())

	// Second call is a no-op thanks to sync.Once
	err = Initialize(false)
	require.NoError(t, err)
}

func TestGetLoggerFallback(t *testing.T) {
	// Even before Initialize, GetLogger must return a usable logger
	l := GetLogger()
	assert.NotNil(t, l)
}

func TestAppendContextFields(t *testing.T) {
	t.Run("nil context", func(t *testing.T) {
		fields := appendContextFields(nil, nil)
		assert.Empty(t, fields)
	})

	t.Run("room and player", func(t *testing.T) {
		ctx := WithPlayer(WithRoom(context.Background(), "MAZABCD"), "p-1")
		fields := appendContextFields(ctx, nil)

		keys := make([]string, 0, len(fields))
		for _, f := range fields {
			keys = append(keys, f.Key)
		}
		assert.Contains(t, keys, "room_code")
		assert.Contains(t, keys, "player_id")
		assert.Contains(t, keys, "service")
	})

	t.Run("plain context gets service only", func(t *testing.T) {
		fields := appendContextFields(context.Background(), nil)
		require.Len(t, fields, 1)
		assert.Equal(t, "service", fields[0].Key)
	})
}

func TestLoggingDoesNotPanic(t *testing.T) {
	ctx := WithRoom(context.Background(), "MAZWXYZ")
	assert.NotPanics(t, func() {
		Debug(ctx, "debug message")
		Info(ctx, "info message")
		Warn(ctx, "warn message")
		Error(ctx, "error message")
	})
}
