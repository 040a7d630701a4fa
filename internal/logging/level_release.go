//go:build !debug

package logging

import "go.uber.org/zap/zapcore"

const defaultLevel = zapcore.InfoLevel
