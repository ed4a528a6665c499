package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologSink writes each event as one structured log line at info level.
// Failed operations are logged at warn.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *ZerologSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}

	ev := s.logger.Info()
	if !event.Success {
		ev = s.logger.Warn()
	}

	ev = ev.Time("at", event.Timestamp).
		Str("event", event.EventType).
		Bool("success", event.Success)
	if event.UserID != "" {
		ev = ev.Str("actor", event.UserID)
	}
	if event.TenantID != "" {
		ev = ev.Str("tenant", event.TenantID)
	}
	if event.IP != "" {
		ev = ev.Str("ip", event.IP)
	}
	if event.Error != "" {
		ev = ev.Str("reason", event.Error)
	}
	if len(event.Metadata) > 0 {
		dict := zerolog.Dict()
		for k, v := range event.Metadata {
			dict = dict.Str(k, v)
		}
		ev = ev.Dict("meta", dict)
	}
	ev.Msg("audit")
}
