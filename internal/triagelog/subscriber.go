package triagelog

import (
	"context"
	"fmt"
	"time"

	"github.com/siraya-health/navigator/internal/shared/events"
	"github.com/siraya-health/navigator/internal/shared/types"
	"github.com/siraya-health/navigator/internal/triage"
)

// Subscriber listens to triage events and appends log entries, so
// completions reported over the bus and over HTTP land in the same store
type Subscriber struct {
	repo Repository
	bus  events.EventBus
}

// NewSubscriber creates a new triage log subscriber
func NewSubscriber(repo Repository, bus events.EventBus) *Subscriber {
	return &Subscriber{repo: repo, bus: bus}
}

// Start subscribes to completed-triage events
func (s *Subscriber) Start(ctx context.Context) error {
	if err := s.bus.Subscribe(ctx, "triage.completed", "triagelog-subscriber", s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to triage.completed: %w", err)
	}
	return nil
}

// handleEvent converts a completion event into a log entry
func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	entry := s.eventToEntry(event)
	if entry == nil {
		return nil
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append triage entry: %w", err)
	}
	return nil
}

func (s *Subscriber) eventToEntry(event events.Event) *Entry {
	data, ok := event.Data.(map[string]any)
	if !ok {
		return nil
	}

	entry := &Entry{
		ID:             types.NewID(),
		SessionID:      event.SessionID,
		LoggedAt:       event.Timestamp.UTC().Truncate(time.Microsecond),
		Comune:         stringField(data, "comune"),
		Path:           triage.Path(stringField(data, "path")),
		Branch:         triage.Branch(stringField(data, "branch")),
		Disposition:    stringField(data, "disposition"),
		EmergencyColor: triage.Color(stringField(data, "emergency_color")),
		RedFlags:       []string{},
	}
	if entry.EmergencyColor == "" {
		entry.EmergencyColor = triage.ColorGreen
	}

	// Urgency arrives as a JSON number
	if v, ok := data["urgency"].(float64); ok {
		entry.Urgency = int(v)
	}

	if flags, ok := data["red_flags"].([]any); ok {
		for _, f := range flags {
			if label, ok := f.(string); ok {
				entry.RedFlags = append(entry.RedFlags, label)
			}
		}
	}

	return entry
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
