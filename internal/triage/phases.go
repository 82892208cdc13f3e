package triage

import "github.com/siraya-health/navigator/internal/shared/errors"

// RouteToPhase selects the next conversation phase for a state.
//
// A critical red flag record forces EMERGENCY_OVERRIDE unconditionally.
// Otherwise the required fields of the assigned path are checked in order
// and the first unset one determines the phase; when all are set the
// session moves to DISPOSITION. Pure with respect to the state: repeated
// calls with an unchanged state return the same decision.
func RouteToPhase(state *State) (PhaseDecision, error) {
	if state.HasCriticalRedFlags() {
		return PhaseDecision{
			Phase:  PhaseEmergencyOverride,
			Prompt: "EMERGENZA: Chiama immediatamente il 118",
		}, nil
	}

	switch state.AssignedPath {
	case PathA:
		return routePathA(state), nil
	case PathB:
		return routePathB(state), nil
	case PathC:
		return routePathC(state), nil
	default:
		return PhaseDecision{}, errors.Contract("unknown path: " + string(state.AssignedPath))
	}
}

// Path A: fast-track, max 3 questions
func routePathA(state *State) PhaseDecision {
	if state.PatientInfo.Location == "" {
		return PhaseDecision{PhaseLocation, "In quale comune ti trovi? (Risposta rapida)"}
	}
	if state.ClinicalData.ChiefComplaint == "" {
		return PhaseDecision{PhaseChiefComplaint, "Descrivi brevemente il sintomo principale"}
	}
	if len(state.ClinicalData.RedFlags) == 0 {
		return PhaseDecision{PhaseRedFlags, "Hai difficoltà a respirare o dolore al petto?"}
	}
	return PhaseDecision{PhaseDisposition, dispositionPrompt}
}

// Path B: mental health, consent-gated
func routePathB(state *State) PhaseDecision {
	if !state.ConsentGiven {
		return PhaseDecision{
			PhaseIntentDetection,
			"Per offrirti il supporto migliore, ho bisogno di raccogliere alcune " +
				"informazioni sulla tua situazione. Sei d'accordo a continuare? (Sì/No)",
		}
	}
	if state.PatientInfo.Location == "" {
		return PhaseDecision{PhaseLocation, "In quale comune ti trovi?"}
	}
	if state.PatientInfo.Age == 0 {
		return PhaseDecision{PhaseDemographics, "Quanti anni hai? (Necessario per indirizzarti al servizio giusto)"}
	}
	if state.ClinicalData.ChiefComplaint == "" {
		return PhaseDecision{PhaseChiefComplaint, "Puoi dirmi cosa stai provando in questo momento?"}
	}
	return PhaseDecision{PhaseDisposition, dispositionPrompt}
}

// Path C: standard full protocol
func routePathC(state *State) PhaseDecision {
	if state.PatientInfo.Location == "" {
		return PhaseDecision{PhaseLocation, "In quale comune dell'Emilia-Romagna ti trovi?"}
	}
	if state.ClinicalData.ChiefComplaint == "" {
		return PhaseDecision{PhaseChiefComplaint, "Qual è il sintomo che ti preoccupa?"}
	}
	if state.ClinicalData.PainScale == nil {
		return PhaseDecision{PhasePainAssessment, "Scala da 1 (lieve) a 10 (insopportabile), quanto è intenso?"}
	}
	if len(state.ClinicalData.RedFlags) == 0 {
		return PhaseDecision{PhaseRedFlags, "Hai difficoltà a respirare o dolore al petto?"}
	}
	if state.PatientInfo.Age == 0 {
		return PhaseDecision{PhaseDemographics, "Quanti anni hai?"}
	}
	if state.ClinicalData.Medications == "" {
		return PhaseDecision{PhaseAnamnesis, "Prendi farmaci regolarmente?"}
	}
	return PhaseDecision{PhaseDisposition, dispositionPrompt}
}
