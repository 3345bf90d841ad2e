package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattermost/logr/v2"
	"github.com/mattermost/logr/v2/formatters"
	"github.com/mattermost/logr/v2/targets"
)

const (
	combinedLogFile = "combined.log"
	warnLogFile     = "warn.log"
)

// levelsFrom returns the logr levels at or above the named level.
func levelsFrom(level string) []logr.Level {
	all := []logr.Level{logr.Debug, logr.Info, logr.Warn, logr.Error, logr.Fatal, logr.Panic}
	switch strings.ToLower(level) {
	case "error":
		return all[3:]
	case "warn":
		return all[2:]
	case "info":
		return all[1:]
	default:
		return all
	}
}

// NewLogr creates the logging engine. Records at or above level go to out in
// plain text. When logDir is set, every record is also written as JSON to
// combined.log, and warnings and errors to warn.log.
func NewLogr(out io.Writer, level, logDir string) (*logr.Logr, error) {
	lgr, err := logr.New(
		logr.MaxQueueSize(1000),
	)
	if err != nil {
		return nil, err
	}

	console := targets.NewWriterTarget(out)
	if err := lgr.AddTarget(console, "console", logr.NewCustomFilter(levelsFrom(level)...), &formatters.Plain{Delim: " "}, 1000); err != nil {
		return nil, err
	}

	if logDir == "" {
		return lgr, nil
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		_ = lgr.Shutdown()
		return nil, err
	}

	files := []struct {
		name  string
		level string
	}{
		{combinedLogFile, "debug"},
		{warnLogFile, "warn"},
	}
	for _, file := range files {
		target := targets.NewFileTarget(targets.FileOptions{
			Filename:   filepath.Join(logDir, file.name),
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     5, // days
			Compress:   true,
		})
		jsonFormatter := &formatters.JSON{
			EnableCaller: true,
		}
		if err := lgr.AddTarget(target, file.name, logr.NewCustomFilter(levelsFrom(file.level)...), jsonFormatter, 1000); err != nil {
			_ = lgr.Shutdown()
			return nil, err
		}
	}
	return lgr, nil
}

// LogrLogger adapts a logr.Logger to the key/value logger interface used by
// the matrix and migrator packages.
type LogrLogger struct {
	logger logr.Logger
}

// NewLogrLogger creates a LogrLogger.
func NewLogrLogger(logger logr.Logger) *LogrLogger {
	return &LogrLogger{logger: logger}
}

// LogDebug logs a debug message
func (l *LogrLogger) LogDebug(message string, keyValuePairs ...any) {
	l.logger.Debug(message, fieldsFromPairs(keyValuePairs)...)
}

// LogInfo logs an info message
func (l *LogrLogger) LogInfo(message string, keyValuePairs ...any) {
	l.logger.Info(message, fieldsFromPairs(keyValuePairs)...)
}

// LogWarn logs a warning message
func (l *LogrLogger) LogWarn(message string, keyValuePairs ...any) {
	l.logger.Warn(message, fieldsFromPairs(keyValuePairs)...)
}

// LogError logs an error message
func (l *LogrLogger) LogError(message string, keyValuePairs ...any) {
	l.logger.Error(message, fieldsFromPairs(keyValuePairs)...)
}

// fieldsFromPairs turns alternating keys and values into logr fields. A
// trailing key without a value is kept with an empty value, and non-string
// keys are formatted with %v.
func fieldsFromPairs(keyValuePairs []any) []logr.Field {
	if len(keyValuePairs) == 0 {
		return nil
	}

	fields := make([]logr.Field, 0, (len(keyValuePairs)+1)/2)
	for i := 0; i < len(keyValuePairs); i += 2 {
		key, ok := keyValuePairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyValuePairs[i])
		}
		if i+1 >= len(keyValuePairs) {
			fields = append(fields, logr.String(key, ""))
			continue
		}
		fields = append(fields, logr.Any(key, keyValuePairs[i+1]))
	}
	return fields
}
