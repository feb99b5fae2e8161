package store

import "log/slog"

// LoggingObserver is a simple observer that logs all store events using
// structured logging
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnEvent implements the Observer interface
func (lo *LoggingObserver) OnEvent(event Event) {
	lo.logger.Info("store_lifecycle",
		"event", event.Type,
		"timestamp", event.Timestamp,
		"data", event.Data,
	)
}
