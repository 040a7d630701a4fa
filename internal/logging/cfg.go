package logging

import "go.uber.org/zap/zapcore"

// Config is the configuration for the logging subsystem.
type Config struct {
	// Level is the logging level.
	Level zapcore.Level
}

// DefaultConfig returns the logging configuration for this build: the
// default level is Debug when built with the "debug" build tag and Info
// otherwise.
func DefaultConfig() *Config {
	return &Config{
		Level: defaultLevel,
	}
}
