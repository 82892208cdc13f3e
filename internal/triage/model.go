package triage

// Path is the clinical processing track assigned at classification
type Path string

const (
	PathA Path = "EMERGENZA_FISICA" // fast-track, max 3 questions
	PathB Path = "SALUTE_MENTALE"   // mental health, consent-gated
	PathC Path = "STANDARD"         // full protocol
)

// Branch distinguishes clinical triage from informational requests
type Branch string

const (
	BranchTriage       Branch = "TRIAGE"
	BranchInformazioni Branch = "INFORMAZIONI"
)

// Phase is a state in the per-path conversation state machine
type Phase string

const (
	PhaseLocation          Phase = "LOCATION"
	PhaseChiefComplaint    Phase = "CHIEF_COMPLAINT"
	PhaseRedFlags          Phase = "RED_FLAGS"
	PhasePainAssessment    Phase = "PAIN_ASSESSMENT"
	PhaseDemographics      Phase = "DEMOGRAPHICS"
	PhaseAnamnesis         Phase = "ANAMNESIS"
	PhaseIntentDetection   Phase = "INTENT_DETECTION"   // consent gate, path B
	PhaseDisposition       Phase = "DISPOSITION"        // terminal
	PhaseEmergencyOverride Phase = "EMERGENCY_OVERRIDE" // terminal
)

// Terminal reports whether no further transition is defined out of the phase
func (p Phase) Terminal() bool {
	return p == PhaseDisposition || p == PhaseEmergencyOverride
}

// UrgencyScore is the result of the one-shot first-message classification.
// It is created once per session and never mutated.
type UrgencyScore struct {
	Score                int      `json:"score"` // 1-5
	AssignedPath         Path     `json:"assigned_path"`
	AssignedBranch       Branch   `json:"assigned_branch"`
	Rationale            string   `json:"rationale"`
	DetectedRedFlags     []string `json:"detected_red_flags"`
	RequiresImmediate118 bool     `json:"requires_immediate_118"`
}

// PatientInfo holds demographic answers collected during the conversation
type PatientInfo struct {
	Location  string `json:"location,omitempty"`
	Age       int    `json:"age,omitempty"`
	Sex       string `json:"sex,omitempty"`
	Pregnancy bool   `json:"pregnancy,omitempty"`
}

// ClinicalData holds clinical answers collected during the conversation.
// PainScale is a pointer so that an answered 0 stays distinct from unanswered.
type ClinicalData struct {
	ChiefComplaint string   `json:"chief_complaint,omitempty"`
	PainScale      *int     `json:"pain_scale,omitempty"`
	RedFlags       []string `json:"red_flags,omitempty"`
	Medications    string   `json:"medications,omitempty"`
}

// State is the mutable per-session triage aggregate. It is owned by the
// session layer, which serializes access; nothing here locks.
type State struct {
	AssignedPath   Path         `json:"assigned_path"`
	AssignedBranch Branch       `json:"assigned_branch"`
	CurrentPhase   Phase        `json:"current_phase"`
	ConsentGiven   bool         `json:"consent_given"`
	PatientInfo    PatientInfo  `json:"patient_info"`
	ClinicalData   ClinicalData `json:"clinical_data"`

	// CriticalRedFlags is sticky: once true the session is forced into
	// emergency override. Exported so session snapshots round-trip it.
	CriticalRedFlags bool `json:"critical_red_flags"`
}

// NewState creates an empty state seeded from the initial classification
func NewState(score UrgencyScore) *State {
	s := &State{
		AssignedPath:   score.AssignedPath,
		AssignedBranch: score.AssignedBranch,
	}
	if len(score.DetectedRedFlags) > 0 {
		s.RecordRedFlags(score.DetectedRedFlags, score.RequiresImmediate118)
	}
	return s
}

// RecordRedFlags appends detected red flag labels
func (s *State) RecordRedFlags(labels []string, critical bool) {
	s.ClinicalData.RedFlags = append(s.ClinicalData.RedFlags, labels...)
	if critical {
		s.CriticalRedFlags = true
	}
}

// HasCriticalRedFlags reports whether a critical pattern was ever recorded
func (s *State) HasCriticalRedFlags() bool {
	return s.CriticalRedFlags
}

// PhaseDecision is the state machine's answer for one turn: the phase to
// enter and the fixed prompt to show the patient.
type PhaseDecision struct {
	Phase  Phase  `json:"phase"`
	Prompt string `json:"prompt"`
}

// Recommendation prompt shown while the router resolves a facility
const dispositionPrompt = "Genero raccomandazione..."
