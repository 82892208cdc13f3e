package session

import (
	"time"

	"github.com/siraya-health/navigator/internal/routing"
	"github.com/siraya-health/navigator/internal/shared/types"
	"github.com/siraya-health/navigator/internal/triage"
)

// Status is the lifecycle state of a session
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusEmergency Status = "emergency"
)

// Role identifies who produced a transcript message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the per-conversation aggregate. Urgency is set once by the
// first-message classification; State is mutated one answer at a time by
// the service.
type Session struct {
	ID             types.ID                `json:"id"`
	Status         Status                  `json:"status"`
	Urgency        *triage.UrgencyScore    `json:"urgency,omitempty"`
	State          *triage.State           `json:"state,omitempty"`
	Messages       []Message               `json:"messages"`
	Recommendation *routing.Recommendation `json:"recommendation,omitempty"`
	EmergencyColor triage.Color            `json:"emergency_color"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// NewSession creates an empty active session
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             types.NewID(),
		Status:         StatusActive,
		EmergencyColor: triage.ColorGreen,
		Messages:       []Message{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Append adds a transcript message and touches the update timestamp
func (s *Session) Append(role Role, text string) {
	now := time.Now().UTC()
	s.Messages = append(s.Messages, Message{Role: role, Text: text, Timestamp: now})
	s.UpdatedAt = now
}

// Terminal reports whether the session accepts no further messages
func (s *Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusEmergency
}

// TurnResult is the service's answer to one conversational turn
type TurnResult struct {
	SessionID      types.ID                `json:"session_id"`
	Status         Status                  `json:"status"`
	Phase          triage.Phase            `json:"phase"`
	Prompt         string                  `json:"prompt"`
	Urgency        *triage.UrgencyScore    `json:"urgency,omitempty"`
	Recommendation *routing.Recommendation `json:"recommendation,omitempty"`
	EmergencyColor triage.Color            `json:"emergency_color"`
}
