// Copyright 2023 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides leveled, structured logging for the passthrough
// filesystem server, built on log/slog with an added TRACE level below
// Debug and optional asynchronous rotation to a log file.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jacobsa/passthroughfuse/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom slog levels. slog reserves -4/0/4/8 for Debug/Info/Warn/Error;
// TRACE sits below Debug and OFF sits above Error so that it suppresses
// everything, including errors.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

var severityToLevel = map[cfg.LogSeverity]slog.Level{
	cfg.TraceLogSeverity:   LevelTrace,
	cfg.DebugLogSeverity:   LevelDebug,
	cfg.InfoLogSeverity:    slog.LevelInfo,
	cfg.WarningLogSeverity: LevelWarn,
	cfg.ErrorLogSeverity:   LevelError,
	cfg.OffLogSeverity:     LevelOff,
}

var levelToSeverity = map[slog.Level]string{
	LevelTrace:     "TRACE",
	LevelDebug:     "DEBUG",
	slog.LevelInfo: "INFO",
	LevelWarn:      "WARNING",
	LevelError:     "ERROR",
}

// loggerFactory owns the handful of knobs that decide how log records are
// rendered and where they end up: a format ("text" or "json"), a minimum
// severity, and an optional destination file with rotation settings. The
// zero value writes JSON to stderr at INFO.
type loggerFactory struct {
	file            *os.File
	sysWriter       io.Writer
	level           cfg.LogSeverity
	format          string
	logRotateConfig cfg.LogRotateConfig
}

var defaultLoggerFactory = &loggerFactory{
	level:     cfg.InfoLogSeverity,
	format:    "json",
	sysWriter: os.Stderr,
}

var defaultLogger = slog.New(
	defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, programLevelFor(cfg.InfoLogSeverity), ""),
)

func programLevelFor(severity cfg.LogSeverity) *slog.LevelVar {
	v := new(slog.LevelVar)
	setLoggingLevel(severity, v)
	return v
}

// setLoggingLevel maps a configured severity onto the slog level that
// gates handler output, defaulting unrecognized severities to INFO.
func setLoggingLevel(severity cfg.LogSeverity, programLevel *slog.LevelVar) {
	level, ok := severityToLevel[severity]
	if !ok {
		level = slog.LevelInfo
	}
	programLevel.Set(level)
}

// replaceAttrFor renames slog's "level" attribute to "severity" (using our
// level names) and prefixes the log message, so handler output matches the
// rest of the passthrough server's log lines.
func replaceAttrFor(prefix string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			level, _ := a.Value.Any().(slog.Level)
			name, ok := levelToSeverity[level]
			if !ok {
				name = level.String()
			}
			a.Key = "severity"
			a.Value = slog.StringValue(name)
		case slog.MessageKey:
			if prefix != "" {
				a.Value = slog.StringValue(prefix + a.Value.String())
			}
		}
		return a
	}
}

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, programLevel *slog.LevelVar, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       programLevel,
		ReplaceAttr: replaceAttrFor(prefix),
	}

	if f.format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// SetLogFormat changes the active default logger's rendering format
// ("text" or "json"; anything else behaves like "json") without touching
// its destination or severity.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	rebuildDefaultLogger("")
}

func rebuildDefaultLogger(prefix string) {
	w := io.Writer(os.Stderr)
	switch {
	case defaultLoggerFactory.file != nil:
		w = defaultLoggerFactory.file
	case defaultLoggerFactory.sysWriter != nil:
		w = defaultLoggerFactory.sysWriter
	}
	programLevel := programLevelFor(defaultLoggerFactory.level)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel, prefix))
}

// InitLogFile points the default logger at config's log file, applying
// rotation and asynchronous delivery so that mount-path operations never
// block on log I/O. A config with an empty FilePath leaves logging on
// stderr.
func InitLogFile(config cfg.LoggingConfig) error {
	defaultLoggerFactory.level = config.Severity
	defaultLoggerFactory.format = config.Format
	defaultLoggerFactory.logRotateConfig = config.LogRotate

	if config.FilePath == "" {
		defaultLoggerFactory.file = nil
		defaultLoggerFactory.sysWriter = os.Stderr
		rebuildDefaultLogger("")
		return nil
	}

	f, err := os.OpenFile(string(config.FilePath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file %q: %w", config.FilePath, err)
	}
	defaultLoggerFactory.file = f
	defaultLoggerFactory.sysWriter = nil

	lj := &lumberjack.Logger{
		Filename:   string(config.FilePath),
		MaxSize:    config.LogRotate.MaxFileSizeMB,
		MaxBackups: config.LogRotate.BackupFileCount,
		Compress:   config.LogRotate.Compress,
	}
	programLevel := programLevelFor(config.Severity)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(NewAsyncLogger(lj, 1000), programLevel, ""))
	return nil
}

func logf(level slog.Level, format string, v ...interface{}) {
	if !defaultLogger.Enabled(nil, level) {
		return
	}
	defaultLogger.Log(nil, level, fmt.Sprintf(format, v...))
}

// Default returns the slog.Logger backing the package-level Tracef/.../
// Errorf functions, for components (like internal/fs.FileSystem) that want
// structured fields rather than a formatted string.
func Default() *slog.Logger {
	return defaultLogger
}

func Tracef(format string, v ...interface{}) { logf(LevelTrace, format, v...) }
func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(slog.LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }
