package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits of log files.
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 2
)

// NewRotatingFileCore returns a core that writes every level as JSON to path. The file is
// rotated once it grows past logFileMaxSizeMB and old files are compressed.
func NewRotatingFileCore(path string) zapcore.Core {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		Compress:   true,
	}
	cfg := NewEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), zap.DebugLevel)
}

// NewFileLogger returns a new logger that outputs Info+ logs to stdout and to the rotating
// file at path.
func NewFileLogger(name, path string) Logger {
	return newImpl(name, INFO, NewStdoutCore(), NewRotatingFileCore(path))
}
