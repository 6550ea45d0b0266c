package session

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/unitable/pkg/core"
)

// Observer receives a summary after every session operation, whether it
// succeeded or not.
type Observer interface {
	OnOperation(ctx context.Context, sum core.Summary)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, sum core.Summary)

// OnOperation implements Observer.
func (f ObserverFunc) OnOperation(ctx context.Context, sum core.Summary) {
	f(ctx, sum)
}

// LoggingObserver logs every operation summary using structured logging.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a logging observer. A nil logger uses slog.Default().
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnOperation implements Observer.
func (lo *LoggingObserver) OnOperation(ctx context.Context, sum core.Summary) {
	attrs := []slog.Attr{
		slog.String("op", sum.Op),
		slog.Int64("rows", sum.RowsAfter),
		slog.Int("columns", sum.ColumnsAfter),
		slog.Int64("rows_delta", sum.RowsAfter-sum.RowsBefore),
		slog.Int("columns_delta", sum.ColumnsAfter-sum.ColumnsBefore),
		slog.Duration("duration", sum.Duration),
	}
	if sum.Target != "" {
		attrs = append(attrs, slog.String("target", sum.Target))
	}
	if sum.Err != nil {
		attrs = append(attrs, slog.String("error", sum.Err.Error()))
		lo.logger.LogAttrs(ctx, slog.LevelWarn, sum.Message(), attrs...)
		return
	}
	lo.logger.LogAttrs(ctx, slog.LevelInfo, sum.Message(), attrs...)
}
