package logger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/event"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewWithConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "json stdout", cfg: Config{Level: "info", Format: "json", OutputPath: "stdout"}},
		{name: "console stderr", cfg: Config{Level: "debug", Format: "console", OutputPath: "stderr"}},
		{name: "sampled file", cfg: Config{
			Level:          "warn",
			Format:         "json",
			OutputPath:     filepath.Join(t.TempDir(), "app.log"),
			EnableSampling: true,
			Environment:    "production",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewWithConfig(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, log)
			log.Info("hello")
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("nonsense"))
}

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithContext(context.Background(), base).Info("no id")
	WithContext(WithRequestID(context.Background(), "req-1"), base).Info("with id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ContextMap())
	assert.Equal(t, "req-1", entries[1].ContextMap()["request_id"])
	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestRequestIDInterceptor(t *testing.T) {
	interceptor := RequestIDInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	var seen string
	handler := func(ctx context.Context, req any) (any, error) {
		seen = GetRequestID(ctx)
		return "ok", nil
	}

	t.Run("generates id", func(t *testing.T) {
		resp, err := interceptor(context.Background(), nil, info, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
		assert.Len(t, seen, 36)
	})

	t.Run("reuses incoming id", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "from-client"))
		_, err := interceptor(ctx, nil, info, handler)
		require.NoError(t, err)
		assert.Equal(t, "from-client", seen)
	})
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), 0.1, "warn")
	ctx := WithRequestID(context.Background(), "req-2")

	sql := func() (string, int64) { return "SELECT * FROM users", 1 }

	gl.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len(), "record not found is not logged")

	gl.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	require.Equal(t, 1, logs.FilterMessage("gorm query error").Len())
	assert.Equal(t, "req-2", logs.All()[0].ContextMap()["request_id"])

	gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Equal(t, 1, logs.FilterMessage("gorm slow query").Len())

	gl.Trace(ctx, time.Now(), sql, nil)
	assert.Equal(t, 0, logs.FilterMessage("gorm query").Len(), "fast queries are below warn")

	verbose := gl.LogMode(gormlogger.Info)
	verbose.Trace(ctx, time.Now(), sql, nil)
	assert.Equal(t, 1, logs.FilterMessage("gorm query").Len())

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), sql, errors.New("ignored"))
	assert.Equal(t, 1, logs.FilterMessage("gorm query error").Len())
}

func TestMongoMonitor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	monitor := NewMongoMonitor(zap.New(core), 100*time.Millisecond)
	ctx := context.Background()

	monitor.Succeeded(ctx, &event.CommandSucceededEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "find", DatabaseName: "users", Duration: time.Millisecond},
	})
	monitor.Succeeded(ctx, &event.CommandSucceededEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "find", DatabaseName: "users", Duration: time.Second},
	})
	monitor.Failed(ctx, &event.CommandFailedEvent{
		CommandFinishedEvent: event.CommandFinishedEvent{CommandName: "insert", DatabaseName: "users"},
		Failure:              "E11000 duplicate key error",
	})

	assert.Equal(t, 1, logs.FilterMessage("mongo command").Len())
	assert.Equal(t, 1, logs.FilterMessage("mongo slow command").Len())

	failed := logs.FilterMessage("mongo command failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "insert", failed[0].ContextMap()["command"])
	assert.Equal(t, "E11000 duplicate key error", failed[0].ContextMap()["failure"])
}
