package main

import (
	"io"

	"github.com/bool64/zapctxd"
	"go.uber.org/zap/zapcore"
)

// newLogger creates JSON logger with level name as in zap (debug, info, warn, error), empty name means info.
func newLogger(level string, w io.Writer) (*zapctxd.Logger, error) {
	var lvl zapcore.Level

	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	return zapctxd.New(zapctxd.Config{
		Level:  lvl,
		Output: w,
	}), nil
}
