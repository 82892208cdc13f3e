package triage

import "testing"

// --- State Machine Tests ---

func TestRouteToPhasePathA(t *testing.T) {
	state := &State{AssignedPath: PathA, AssignedBranch: BranchTriage}

	decision, err := RouteToPhase(state)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if decision.Phase != PhaseLocation {
		t.Errorf("Expected LOCATION, got %s", decision.Phase)
	}

	state.PatientInfo.Location = "Bologna"
	decision, _ = RouteToPhase(state)
	if decision.Phase != PhaseChiefComplaint {
		t.Errorf("Expected CHIEF_COMPLAINT, got %s", decision.Phase)
	}

	state.ClinicalData.ChiefComplaint = "dolore al braccio"
	decision, _ = RouteToPhase(state)
	if decision.Phase != PhaseRedFlags {
		t.Errorf("Expected RED_FLAGS, got %s", decision.Phase)
	}

	state.RecordRedFlags([]string{"nessuno"}, false)
	decision, _ = RouteToPhase(state)
	if decision.Phase != PhaseDisposition {
		t.Errorf("Expected DISPOSITION, got %s", decision.Phase)
	}
}

func TestRouteToPhasePathB(t *testing.T) {
	state := &State{AssignedPath: PathB, AssignedBranch: BranchTriage}

	// Consent gate first
	decision, err := RouteToPhase(state)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if decision.Phase != PhaseIntentDetection {
		t.Errorf("Expected INTENT_DETECTION, got %s", decision.Phase)
	}

	state.ConsentGiven = true
	decision, _ = RouteToPhase(state)
	if decision.Phase != PhaseLocation {
		t.Errorf("Expected LOCATION, got %s", decision.Phase)
	}

	state.PatientInfo.Location = "Modena"
	decision, _ = RouteToPhase(state)
	if decision.Phase != PhaseDemographics {
		t.Errorf("Expected DEMOGRAPHICS, got %s", decision.Phase)
	}

	state.PatientInfo.Age = 34
	decision, _ = RouteToPhase(state)
	if decision.Phase != PhaseChiefComplaint {
		t.Errorf("Expected CHIEF_COMPLAINT, got %s", decision.Phase)
	}

	state.ClinicalData.ChiefComplaint = "ansia continua"
	decision, _ = RouteToPhase(state)
	if decision.Phase != PhaseDisposition {
		t.Errorf("Expected DISPOSITION, got %s", decision.Phase)
	}
}

func TestRouteToPhasePathC(t *testing.T) {
	state := &State{AssignedPath: PathC, AssignedBranch: BranchTriage}

	expected := []struct {
		phase Phase
		fill  func()
	}{
		{PhaseLocation, func() { state.PatientInfo.Location = "Ferrara" }},
		{PhaseChiefComplaint, func() { state.ClinicalData.ChiefComplaint = "tosse" }},
		{PhasePainAssessment, func() { zero := 0; state.ClinicalData.PainScale = &zero }},
		{PhaseRedFlags, func() { state.RecordRedFlags([]string{"nessuno"}, false) }},
		{PhaseDemographics, func() { state.PatientInfo.Age = 51 }},
		{PhaseAnamnesis, func() { state.ClinicalData.Medications = "nessuno" }},
	}

	for _, step := range expected {
		decision, err := RouteToPhase(state)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if decision.Phase != step.phase {
			t.Fatalf("Expected %s, got %s", step.phase, decision.Phase)
		}
		step.fill()
	}

	decision, _ := RouteToPhase(state)
	if decision.Phase != PhaseDisposition {
		t.Errorf("Expected DISPOSITION, got %s", decision.Phase)
	}
}

// A pain scale of 0 is an answered value, not an unset one
func TestRouteToPhasePainScaleZeroIsAnswered(t *testing.T) {
	zero := 0
	state := &State{
		AssignedPath: PathC,
		PatientInfo:  PatientInfo{Location: "Parma"},
		ClinicalData: ClinicalData{ChiefComplaint: "mal di schiena", PainScale: &zero},
	}

	decision, err := RouteToPhase(state)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if decision.Phase != PhaseRedFlags {
		t.Errorf("Expected RED_FLAGS (pain already answered), got %s", decision.Phase)
	}
}

func TestRouteToPhaseEmergencyOverride(t *testing.T) {
	paths := []Path{PathA, PathB, PathC}

	for _, path := range paths {
		t.Run(string(path), func(t *testing.T) {
			state := &State{
				AssignedPath: path,
				PatientInfo:  PatientInfo{Location: "Bologna", Age: 40},
			}
			state.RecordRedFlags([]string{"Dolore toracico"}, true)

			decision, err := RouteToPhase(state)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if decision.Phase != PhaseEmergencyOverride {
				t.Errorf("Expected EMERGENCY_OVERRIDE, got %s", decision.Phase)
			}
			if !decision.Phase.Terminal() {
				t.Error("EMERGENCY_OVERRIDE should be terminal")
			}
		})
	}
}

func TestRouteToPhaseUnknownPath(t *testing.T) {
	state := &State{AssignedPath: Path("D")}

	_, err := RouteToPhase(state)
	if err == nil {
		t.Fatal("Expected contract violation error for unknown path")
	}
}

// Repeated calls on an unchanged state return the same decision
func TestRouteToPhasePure(t *testing.T) {
	state := &State{AssignedPath: PathA, AssignedBranch: BranchTriage}

	first, err := RouteToPhase(state)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, _ := RouteToPhase(state)

	if first != second {
		t.Errorf("Decisions differ on unchanged state: %+v vs %+v", first, second)
	}
}
