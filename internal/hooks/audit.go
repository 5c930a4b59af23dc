package hooks

import (
	"context"

	"github.com/soyeahso/mcp-digitalocean/internal/logging"
)

// Audit registers a handler on every event in AllEvents that writes one
// info line per event to l.
func Audit(m *Manager, l *logging.Logger) {
	al := l.Sub("audit")
	for _, ev := range AllEvents {
		m.On(ev, "audit", func(_ context.Context, p Payload) error {
			al.Info().Str("event", p.Event).Fields(p.Data).Msg("hook event")
			return nil
		})
	}
}
