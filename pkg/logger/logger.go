// Package logger builds the zap logger shared by every feedbin-mcp component.
//
// Logs always go to stderr by default: in stdio mode stdout carries the
// protocol stream and must stay clean.
package logger

import (
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// UnstructuredEnv switches the encoder to human-readable console output.
const UnstructuredEnv = "UNSTRUCTURED_LOGS"

// Options configure New.
type Options struct {
	// Debug lowers the level to debug.
	Debug bool
	// Unstructured selects the console encoder instead of JSON.
	Unstructured bool
	// Output receives log lines. Defaults to stderr.
	Output zapcore.WriteSyncer
}

// New returns a logger configured by opts.
func New(opts Options) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	out := opts.Output
	if out == nil {
		out = zapcore.Lock(os.Stderr)
	}

	var encoder zapcore.Encoder
	if opts.Unstructured {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	zopts := []zap.Option{zap.ErrorOutput(out)}
	if opts.Debug {
		zopts = append(zopts, zap.AddCaller())
	}
	return zap.New(zapcore.NewCore(encoder, out, level), zopts...)
}

// FromEnv reads UNSTRUCTURED_LOGS through getenv and returns Options for it.
// Unset or unparsable values keep structured output.
func FromEnv(getenv func(string) string, debug bool) Options {
	return Options{
		Debug:        debug,
		Unstructured: unstructuredLogs(getenv),
	}
}

func unstructuredLogs(getenv func(string) string) bool {
	if getenv == nil {
		getenv = os.Getenv
	}
	unstructured, err := strconv.ParseBool(getenv(UnstructuredEnv))
	if err != nil {
		return false
	}
	return unstructured
}
