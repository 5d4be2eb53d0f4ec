package logger

import "time"

// ForWorker returns a logger tagged with the worker index and category key
func ForWorker(base Logger, workerIndex int, category string) Logger {
	if base == nil {
		base = GetLogger()
	}
	return base.WithFields(map[string]interface{}{
		"worker":   workerIndex,
		"category": category,
	})
}

// LogCategoryOutcome logs the end of one category task at a level matching its status
func LogCategoryOutcome(log Logger, status string, products, failed, duplicates int, elapsed time.Duration) {
	fields := map[string]interface{}{
		"status":     status,
		"products":   products,
		"failed":     failed,
		"duplicates": duplicates,
		"duration":   elapsed,
	}

	switch {
	case status == "aborted":
		log.WarnWithFields("Category aborted", fields)
	case failed > 0:
		log.WarnWithFields("Category completed with failed items", fields)
	default:
		log.InfoWithFields("Category completed", fields)
	}
}

// LogComponentStart logs a component's settings once it is ready to use.
// A nil log falls back to the global logger.
func LogComponentStart(log Logger, component string, settings map[string]interface{}) {
	if log == nil {
		log = GetLogger()
	}
	log.WithField("component", component).InfoWithFields("Component started", settings)
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
