// Package cron adapts zerolog to the robfig/cron logger interface.
package cron

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Logger implements cron.Logger. Info messages go to debug, cron is chatty.
type Logger struct {
	log zerolog.Logger
}

var _ cron.Logger = Logger{}

// New wraps log.
func New(log zerolog.Logger) Logger {
	return Logger{log: log}
}

// Info implements cron.Logger.
func (l Logger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(fields(keysAndValues)).Msg(msg)
}

// Error implements cron.Logger.
func (l Logger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(fields(keysAndValues)).Msg(msg)
}

// fields turns cron's alternating key value list into a map,
// non string keys are formatted.
func fields(keysAndValues []any) map[string]any {
	out := make(map[string]any, len(keysAndValues)/2) //nolint:mnd

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}

		out[key] = keysAndValues[i+1]
	}

	return out
}
