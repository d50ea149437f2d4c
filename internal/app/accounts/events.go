// internal/app/accounts/events.go
package accounts

import (
	"context"

	"github.com/dalemusser/dochub/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventFirstLogin fires once per user, on the isFirstTimeUser
// true -> false transition.
const EventFirstLogin = "firstLogin"

// Event is delivered to subscribed listeners. ID is unique per
// emission.
type Event struct {
	ID   string
	Name string
	User models.FullUser
}

// Listener observes account lifecycle events. Listeners run
// synchronously on the mutating call's goroutine; anything slow
// belongs on the listener's own queue.
type Listener interface {
	HandleAccountEvent(ctx context.Context, ev Event)
}

// Subscribe registers a listener. Not safe to call concurrently with
// mutating operations; subscribe during startup.
func (m *Manager) Subscribe(l Listener) {
	m.listeners = append(m.listeners, l)
}

func (m *Manager) emitFirstLogin(ctx context.Context, full models.FullUser) {
	ev := Event{
		ID:   uuid.NewString(),
		Name: EventFirstLogin,
		User: full,
	}
	m.log.Info("emitting account event",
		zap.String("event", ev.Name),
		zap.String("event_id", ev.ID),
		zap.Int64("user_id", full.ID))
	for _, l := range m.listeners {
		l.HandleAccountEvent(ctx, ev)
	}
}
