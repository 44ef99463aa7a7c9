package logger

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.uber.org/zap"
)

// NewMongoMonitor returns a command monitor that logs failed commands as errors and
// commands slower than slowThreshold as warnings. Successful commands are logged at
// debug level.
func NewMongoMonitor(zapLogger *zap.Logger, slowThreshold time.Duration) *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			fields := commandFields(evt.CommandFinishedEvent)
			logger := WithContext(ctx, zapLogger)

			if slowThreshold > 0 && evt.Duration > slowThreshold {
				logger.Warn("mongo slow command", append(fields, zap.Duration("threshold", slowThreshold))...)
				return
			}
			logger.Debug("mongo command", fields...)
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			fields := append(commandFields(evt.CommandFinishedEvent), zap.String("failure", evt.Failure))
			WithContext(ctx, zapLogger).Error("mongo command failed", fields...)
		},
	}
}

func commandFields(evt event.CommandFinishedEvent) []zap.Field {
	return []zap.Field{
		zap.String("command", evt.CommandName),
		zap.String("database", evt.DatabaseName),
		zap.Int64("mongo_request_id", evt.RequestID),
		zap.Duration("elapsed", evt.Duration),
		zap.Float64("elapsed_ms", float64(evt.Duration.Nanoseconds())/1e6),
	}
}
