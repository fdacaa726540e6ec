package service

import (
	"context"

	"github.com/rs/zerolog"
)

// Alert codes raised by the payout state machine.
const (
	AlertInsufficientAtConfirm = "PAYOUT_INSUFFICIENT_AT_CONFIRM"
	AlertRetriesExhausted      = "PAYOUT_RETRIES_EXHAUSTED"
)

// LogAlerter implements ports.Alerter by emitting error-level structured
// events that the on-call pipeline picks up. It never blocks the caller.
type LogAlerter struct {
	log zerolog.Logger
}

// NewLogAlerter creates a new LogAlerter.
func NewLogAlerter(log zerolog.Logger) *LogAlerter {
	return &LogAlerter{log: log}
}

// Raise emits one alert event.
func (a *LogAlerter) Raise(_ context.Context, code string, detail string, fields map[string]string) {
	ev := a.log.Error().Str("alert", code)
	for k, v := range fields {
		ev = ev.Str(k, v)
	}
	ev.Msg(detail)
}
