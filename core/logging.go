// Package core holds the ambient concerns shared by every layer of the
// translation layer: logging, the D3D12 error taxonomy, configuration and
// object identifiers.
package core

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(func() {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "vkd3d ",
		})
		l.SetLevel(levelFromEnv())
		singleton = &logger{l}
	})
	return singleton
}

// levelFromEnv honors VKD3D_DEBUG / VKD3D_SHADER_DEBUG the way the source
// uses them: "none", "err", "warn", "info", "trace" map onto the charm
// log levels, defaulting to Warn when unset or unrecognized.
func levelFromEnv() log.Level {
	for _, name := range []string{"VKD3D_DEBUG", "VKD3D_SHADER_DEBUG"} {
		switch os.Getenv(name) {
		case "trace", "debug":
			return log.DebugLevel
		case "info":
			return log.InfoLevel
		case "warn":
			return log.WarnLevel
		case "err", "error":
			return log.ErrorLevel
		case "none":
			return log.FatalLevel + 1
		}
	}
	return log.WarnLevel
}

// SetLevel overrides the log level derived from VKD3D_DEBUG /
// VKD3D_SHADER_DEBUG.
func SetLevel(l log.Level) {
	getLogger().SetLevel(l)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
