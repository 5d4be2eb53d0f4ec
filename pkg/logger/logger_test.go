package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shopscraper/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "invalid"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	for name, emit := range map[string]func(string){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
		"error": logger.Error,
	} {
		t.Run(name, func(t *testing.T) {
			buf.Reset()
			emit(name + " message")
			assert.Contains(t, buf.String(), name+" message")
			assert.Contains(t, buf.String(), `"level":"`+name+`"`)
		})
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	child := logger.WithField("category", "men/tops")
	child.Info("child")
	assert.Contains(t, buf.String(), `"category":"men/tops"`)

	buf.Reset()
	logger.Info("parent")
	assert.NotContains(t, buf.String(), "category")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	if logger.WithError(nil) != logger {
		t.Error("WithError(nil) should return the same logger")
	}

	logger.WithError(errors.New("grid never appeared")).Error("category aborted")
	assert.Contains(t, buf.String(), "category aborted")
	assert.Contains(t, buf.String(), "grid never appeared")
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	ForWorker(logger, 2, "women/dresses").InfoWithFields("Grid loaded", map[string]interface{}{
		"items":    48,
		"settle":   time.Second,
		"headless": true,
		"urls":     []string{"a", "b"},
	})

	output := buf.String()
	assert.Contains(t, output, `"worker":2`)
	assert.Contains(t, output, `"category":"women/dresses"`)
	assert.Contains(t, output, `"items":48`)
	assert.Contains(t, output, `"headless":true`)
	assert.Contains(t, output, `"urls":["a","b"]`)
}

func TestLogCategoryOutcomeLevels(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		failed  int
		level   string
		message string
	}{
		{"clean", "completed", 0, "INFO", "Category completed"},
		{"failed items", "completed", 2, "WARN", "Category completed with failed items"},
		{"aborted", "aborted", 0, "WARN", "Category aborted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewTestLogger()
			LogCategoryOutcome(log, tt.status, 3, tt.failed, 1, time.Second)

			msgs := log.GetMessagesByLevel(tt.level)
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.message, msgs[0].Message)
			assert.Equal(t, 1, msgs[0].Fields["duplicates"])
		})
	}
}

func TestTestLoggerSharesStoreWithChildren(t *testing.T) {
	log := NewTestLogger()
	child := log.WithField("worker", 1).WithError(errors.New("boom"))
	child.Warn("item failed")
	log.Info("run finished")

	msgs := log.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, 1, msgs[0].Fields["worker"])
	assert.EqualError(t, msgs[0].Error, "boom")
	assert.Nil(t, msgs[1].Fields)
	assert.True(t, strings.HasPrefix(log.String(), "[WARN] item failed"))

	log.Clear()
	assert.Empty(t, log.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	err := Initialize(&config.LoggingConfig{Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, GetLogger())
	GetLogger().WithField("key", "value").Info("with field")

	test := NewTestLogger()
	SetLogger(test)
	t.Cleanup(func() { SetLogger(NewNopLogger()) })

	GetLogger().WithError(errors.New("test")).Error("with error")
	assert.True(t, test.HasError())
}

func TestLogComponentStart(t *testing.T) {
	log := NewTestLogger()
	LogComponentStart(log, "browser", map[string]interface{}{"headless": true})

	msgs := log.GetMessagesByLevel("INFO")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Component started", msgs[0].Message)
	assert.Equal(t, "browser", msgs[0].Fields["component"])
	assert.Equal(t, true, msgs[0].Fields["headless"])
}
