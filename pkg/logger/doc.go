// Package logger provides the structured logging interface used across
// shopscraper.
//
// It wraps zerolog with a small API: leveled messages, child loggers that
// carry fields, and a process wide logger for code that has none injected.
// Console output is colored only when stdout is a terminal.
//
// Every category worker logs through a child logger tagged with its index
// and category key:
//
//	log := logger.ForWorker(base, 2, "men/tops")
//	log.InfoWithFields("Grid loaded", map[string]interface{}{"items": 48})
//
// Tests use NewTestLogger to capture and assert on emitted messages.
package logger
