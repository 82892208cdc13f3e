package session

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/siraya-health/navigator/internal/routing"
	"github.com/siraya-health/navigator/internal/shared/errors"
	"github.com/siraya-health/navigator/internal/shared/events"
	"github.com/siraya-health/navigator/internal/shared/metrics"
	"github.com/siraya-health/navigator/internal/shared/types"
	"github.com/siraya-health/navigator/internal/triage"
)

const infoPrompt = "Per informazioni su orari, prenotazioni e contatti chiama il numero unico 116117 " +
	"o consulta il sito della tua AUSL."

const consentRefusedPrompt = "Va bene, non registro altre informazioni. " +
	"Se cambi idea puoi riscrivermi in qualsiasi momento. Per urgenze chiama il 116117."

// Service drives the conversation: it owns classification, answer
// collection, phase routing and the final facility recommendation. Access
// to each session is serialized here; the decision core stays lock-free.
type Service struct {
	repo       Repository
	classifier *triage.Classifier
	router     *routing.Router
	bus        events.EventBus

	mu    sync.Mutex
	locks map[types.ID]*sync.Mutex
}

// NewService creates the conversation service. bus may be nil (limited mode).
func NewService(repo Repository, classifier *triage.Classifier, router *routing.Router, bus events.EventBus) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		router:     router,
		bus:        bus,
		locks:      make(map[types.ID]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing updates for one session
func (s *Service) sessionLock(id types.ID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func (s *Service) releaseLock(id types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
}

// Start creates a new active session
func (s *Service) Start(ctx context.Context) (*Session, error) {
	sess := NewSession()
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	metrics.RecordSessionCreated()
	s.publish(ctx, events.NewEvent("session.created", "session", map[string]any{
		"session_id": sess.ID,
	}).WithSession(sess.ID))

	return sess, nil
}

// Get returns a session by ID
func (s *Service) Get(ctx context.Context, id types.ID) (*Session, error) {
	return s.repo.Get(ctx, id)
}

// Replace overwrites a session's stored state with a caller-supplied
// snapshot, for frontend instances syncing their local copy
func (s *Service) Replace(ctx context.Context, sess *Session) error {
	lock := s.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	sess.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, sess)
}

// Delete removes a session
func (s *Service) Delete(ctx context.Context, id types.ID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.releaseLock(id)
	return nil
}

// ListActive returns the sessions still in progress
func (s *Service) ListActive(ctx context.Context) ([]*Session, error) {
	return s.repo.ListActive(ctx)
}

// Cleanup removes sessions not updated within maxAge
func (s *Service) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	removed, err := s.repo.Cleanup(ctx, maxAge)
	if err != nil {
		return 0, err
	}
	metrics.RecordSessionsCleaned(removed)
	return removed, nil
}

// HandleMessage processes one conversational turn. The first message of a
// session is classified; later messages are collected as the answer to the
// current phase's question. The next phase decision, and at disposition the
// facility recommendation, come back in the TurnResult.
func (s *Service) HandleMessage(ctx context.Context, id types.ID, text string) (*TurnResult, error) {
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Terminal() {
		return nil, errors.Conflict("session is already closed")
	}

	sess.Append(RoleUser, text)

	// Track the worst emergency color seen across the whole conversation
	if color := triage.DetectEmergencyColor(text); colorRank(color) > colorRank(sess.EmergencyColor) {
		sess.EmergencyColor = color
	}

	var firstTurn bool
	if sess.Urgency == nil {
		firstTurn = true
		score := s.classifier.ClassifyInitialUrgency(text)
		sess.Urgency = &score
		sess.State = triage.NewState(score)

		metrics.RecordClassification(string(score.AssignedPath), string(score.AssignedBranch), score.Score)
		for _, flag := range score.DetectedRedFlags {
			severity := "high"
			if score.RequiresImmediate118 {
				severity = "critical"
			}
			metrics.RecordRedFlag(severity, flag)
		}

		s.publish(ctx, events.NewEvent("triage.classified", "session", map[string]any{
			"session_id": sess.ID,
			"score":      score.Score,
			"path":       score.AssignedPath,
			"branch":     score.AssignedBranch,
			"rationale":  score.Rationale,
		}).WithSession(sess.ID))

		// Informational requests are not triaged
		if score.AssignedBranch == triage.BranchInformazioni {
			sess.Status = StatusCompleted
			sess.Append(RoleAssistant, infoPrompt)
			if err := s.repo.Update(ctx, sess); err != nil {
				return nil, err
			}
			return &TurnResult{
				SessionID:      sess.ID,
				Status:         sess.Status,
				Phase:          triage.PhaseDisposition,
				Prompt:         infoPrompt,
				Urgency:        sess.Urgency,
				EmergencyColor: sess.EmergencyColor,
			}, nil
		}
	} else {
		if done, result, err := s.collectAnswer(ctx, sess, text); done || err != nil {
			return result, err
		}
	}

	decision, err := triage.RouteToPhase(sess.State)
	if err != nil {
		return nil, err
	}

	sess.State.CurrentPhase = decision.Phase
	metrics.RecordPhaseTransition(string(sess.State.AssignedPath), string(decision.Phase))

	result := &TurnResult{
		SessionID:      sess.ID,
		Status:         sess.Status,
		Phase:          decision.Phase,
		Prompt:         decision.Prompt,
		EmergencyColor: sess.EmergencyColor,
	}
	if firstTurn {
		result.Urgency = sess.Urgency
	}

	switch decision.Phase {
	case triage.PhaseEmergencyOverride:
		sess.Status = StatusEmergency
		result.Status = sess.Status
		metrics.RecordEmergencyOverride()
		s.publish(ctx, events.NewEvent("triage.emergency_override", "session", map[string]any{
			"session_id": sess.ID,
			"red_flags":  sess.State.ClinicalData.RedFlags,
		}).WithSession(sess.ID))

	case triage.PhaseDisposition:
		rec := s.router.Route(
			sess.State.PatientInfo.Location,
			sess.Urgency.Score,
			clinicalArea(sess.State),
			sess.State.AssignedPath,
		)
		sess.Recommendation = &rec
		sess.Status = StatusCompleted
		result.Status = sess.Status
		result.Recommendation = &rec

		metrics.RecordRoutingDecision(rec.Tipo)
		metrics.RecordSessionCompleted(string(sess.State.AssignedPath), rec.Tipo)
		s.publish(ctx, events.NewEvent("triage.completed", "session", map[string]any{
			"session_id":      sess.ID,
			"comune":          sess.State.PatientInfo.Location,
			"path":            sess.State.AssignedPath,
			"branch":          sess.State.AssignedBranch,
			"urgency":         sess.Urgency.Score,
			"disposition":     rec.Tipo,
			"emergency_color": sess.EmergencyColor,
			"red_flags":       sess.State.ClinicalData.RedFlags,
		}).WithSession(sess.ID))
	}

	sess.Append(RoleAssistant, decision.Prompt)
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}

	return result, nil
}

// collectAnswer stores the user's answer into the field asked by the
// current phase. Returns done=true when the turn is fully handled here
// (consent refused, unparsable pain scale re-ask).
func (s *Service) collectAnswer(ctx context.Context, sess *Session, text string) (bool, *TurnResult, error) {
	answer := strings.TrimSpace(text)
	state := sess.State

	// Any answer can reveal a critical symptom; record it so the override
	// fires on the next phase decision.
	if state.CurrentPhase != triage.PhaseRedFlags {
		if labels, critical := s.classifier.ScanRedFlags(answer); critical {
			state.RecordRedFlags(labels, true)
			for _, flag := range labels {
				metrics.RecordRedFlag("critical", flag)
			}
			return false, nil, nil
		}
	}

	switch state.CurrentPhase {
	case triage.PhaseIntentDetection:
		if isAffirmative(answer) {
			state.ConsentGiven = true
			return false, nil, nil
		}
		sess.Status = StatusCompleted
		sess.Append(RoleAssistant, consentRefusedPrompt)
		if err := s.repo.Update(ctx, sess); err != nil {
			return true, nil, err
		}
		return true, &TurnResult{
			SessionID:      sess.ID,
			Status:         sess.Status,
			Phase:          triage.PhaseDisposition,
			Prompt:         consentRefusedPrompt,
			EmergencyColor: sess.EmergencyColor,
		}, nil

	case triage.PhaseLocation:
		state.PatientInfo.Location = answer

	case triage.PhaseChiefComplaint:
		state.ClinicalData.ChiefComplaint = answer

	case triage.PhasePainAssessment:
		value, err := parsePainScale(answer)
		if err != nil {
			// Re-ask the same question
			prompt := "Non ho capito. Indica un numero da 1 (lieve) a 10 (insopportabile)."
			sess.Append(RoleAssistant, prompt)
			if err := s.repo.Update(ctx, sess); err != nil {
				return true, nil, err
			}
			return true, &TurnResult{
				SessionID:      sess.ID,
				Status:         sess.Status,
				Phase:          triage.PhasePainAssessment,
				Prompt:         prompt,
				EmergencyColor: sess.EmergencyColor,
			}, nil
		}
		state.ClinicalData.PainScale = &value

	case triage.PhaseRedFlags:
		labels, critical := s.classifier.ScanRedFlags(answer)
		if len(labels) == 0 {
			// Record the negative answer so the question is not repeated
			labels = []string{"nessuno"}
		}
		state.RecordRedFlags(labels, critical)
		if critical {
			for _, flag := range labels {
				metrics.RecordRedFlag("critical", flag)
			}
		}

	case triage.PhaseDemographics:
		if age, err := strconv.Atoi(extractDigits(answer)); err == nil && age > 0 && age < 130 {
			state.PatientInfo.Age = age
		}

	case triage.PhaseAnamnesis:
		if answer == "" {
			answer = "nessuno"
		}
		state.ClinicalData.Medications = answer
	}

	return false, nil, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}

// clinicalArea derives the routing area from the assigned path
func clinicalArea(state *triage.State) string {
	if state.AssignedPath == triage.PathB {
		return "Salute Mentale"
	}
	return "Generale"
}

func isAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "sì", "si", "sí", "ok", "va bene", "certo", "d'accordo", "yes":
		return true
	}
	return false
}

// parsePainScale accepts an integer 0-10, possibly embedded in a sentence
func parsePainScale(answer string) (int, error) {
	digits := extractDigits(answer)
	value, err := strconv.Atoi(digits)
	if err != nil {
		return 0, errors.BadRequest("pain scale must be a number between 0 and 10")
	}
	if value < 0 || value > 10 {
		return 0, errors.BadRequest("pain scale must be between 0 and 10")
	}
	return value, nil
}

// extractDigits returns the first run of digits in the text
func extractDigits(text string) string {
	start := -1
	for i, r := range text {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
		} else if start != -1 {
			return text[start:i]
		}
	}
	if start == -1 {
		return ""
	}
	return text[start:]
}

func colorRank(c triage.Color) int {
	switch c {
	case triage.ColorBlack:
		return 3
	case triage.ColorRed:
		return 2
	case triage.ColorOrange:
		return 1
	default:
		return 0
	}
}
