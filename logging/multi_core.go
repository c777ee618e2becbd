package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// consoleSyncer returns a WriteSyncer for stdout.
func consoleSyncer() zapcore.WriteSyncer {
	return zapcore.AddSync(os.Stdout)
}

// NewMultiCore creates a zapcore.Core that tees output to both console and a
// rotating log file. The file output always uses JSON encoding; the console
// output is human-readable in development mode and JSON in production.
func NewMultiCore(level zapcore.Level, filePath string, isDev bool) zapcore.Core {
	fileWriter := NewFileWriter(filePath)
	return NewMultiCoreWithWriters(level, zapcore.AddSync(os.Stdout), fileWriter, isDev)
}

// NewMultiCoreWithWriters creates a tee core over the provided writers.
// Useful in tests where output is captured in buffers.
func NewMultiCoreWithWriters(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		fileWriter,
		level,
	)

	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}

	consoleCore := zapcore.NewCore(
		consoleEncoder,
		consoleWriter,
		level,
	)

	return zapcore.NewTee(consoleCore, fileCore)
}
