// Package options contains helpers shared by the CLI commands.
package options

import (
	"fmt"

	"github.com/vesper-lang/vesper-go/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// HandleLoggingParams reads logging configuration and creates the logger
// accordingly: console encoding, ISO8601 timestamps, level taken from the
// config unless debug forces it down to debug.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if logPath := cfg.LogPath; logPath != "" {
		cc.OutputPaths = []string{logPath}
	}

	return cc.Build()
}
