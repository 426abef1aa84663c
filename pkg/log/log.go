package log

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

const logFile = "inkdash.log"

// Build returns a JSON logger writing to paths. "stdout" and "stderr" are
// accepted as paths.
func Build(debug bool, paths ...string) (logr.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zc.DisableStacktrace = true
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	zc.OutputPaths = paths
	z, err := zc.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build logger: %w", err)
	}
	return zapr.NewLogger(z), nil
}

func New(file string) logr.Logger {
	if file == "" {
		file = logFile
	}
	l, err := Build(true, file)
	if err != nil {
		panic(err)
	}
	return l
}

func NewStdoutLogger() logr.Logger {
	l, err := Build(true, "stdout")
	if err != nil {
		panic(err)
	}
	return l
}
