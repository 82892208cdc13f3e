package internal

import (
	"context"
	"testing"

	"github.com/siraya-health/navigator/internal/kb"
	"github.com/siraya-health/navigator/internal/routing"
	"github.com/siraya-health/navigator/internal/session"
	"github.com/siraya-health/navigator/internal/triage"
)

func newTestService() *session.Service {
	classifier := triage.NewClassifier(triage.DefaultRules())
	index := kb.NewIndex([]kb.Facility{
		{Tipologia: "ambulatorio_diabetologia", Comune: "Bologna", Nome: "Centro Diabetologico Bologna", TipoAccesso: "Prenotazione CUP", Contatti: kb.Contatti{Telefono: "051 123456"}},
	})
	router := routing.NewRouter(index, routing.DefaultAreaServices())
	return session.NewService(session.NewMemoryRepository(), classifier, router, nil)
}

// TestEmergencyWorkflow tests that a critical first message goes straight
// to the emergency override with a 118 instruction
func TestEmergencyWorkflow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	result, err := svc.HandleMessage(ctx, sess.ID, "ho dolore al petto e non riesco a respirare")
	if err != nil {
		t.Fatalf("Failed to handle message: %v", err)
	}

	if result.Urgency.Score != 5 {
		t.Errorf("Expected score 5, got %d", result.Urgency.Score)
	}
	if result.Urgency.AssignedPath != triage.PathA {
		t.Errorf("Expected path A, got %s", result.Urgency.AssignedPath)
	}
	if !result.Urgency.RequiresImmediate118 {
		t.Error("Expected requires_immediate_118")
	}
	if len(result.Urgency.DetectedRedFlags) == 0 {
		t.Error("Expected a detected red flag")
	}
	if result.Phase != triage.PhaseEmergencyOverride {
		t.Errorf("Expected EMERGENCY_OVERRIDE, got %s", result.Phase)
	}
	if result.EmergencyColor != triage.ColorRed {
		t.Errorf("Expected RED emergency color, got %s", result.EmergencyColor)
	}
}

// TestInformationalWorkflow tests that a pharmacy hours question is not triaged
func TestInformationalWorkflow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)
	result, err := svc.HandleMessage(ctx, sess.ID, "quando apre la farmacia?")
	if err != nil {
		t.Fatalf("Failed to handle message: %v", err)
	}

	if result.Urgency.AssignedBranch != triage.BranchInformazioni {
		t.Errorf("Expected INFORMAZIONI, got %s", result.Urgency.AssignedBranch)
	}
	if result.Urgency.Score != 1 {
		t.Errorf("Expected score 1, got %d", result.Urgency.Score)
	}
	if result.Status != session.StatusCompleted {
		t.Errorf("Expected completed status, got %s", result.Status)
	}
}

// TestMentalHealthWorkflow tests that a panic attack goes to path B and
// ends at CSM
func TestMentalHealthWorkflow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)

	result, err := svc.HandleMessage(ctx, sess.ID, "ho un attacco di panico")
	if err != nil {
		t.Fatalf("Failed to handle message: %v", err)
	}
	if result.Urgency.AssignedPath != triage.PathB {
		t.Fatalf("Expected path B, got %s", result.Urgency.AssignedPath)
	}
	if result.Urgency.Score != 3 {
		t.Errorf("Expected score 3, got %d", result.Urgency.Score)
	}

	for _, answer := range []string{"sì", "Modena", "29"} {
		if _, err := svc.HandleMessage(ctx, sess.ID, answer); err != nil {
			t.Fatalf("Answer %q failed: %v", answer, err)
		}
	}

	result, err = svc.HandleMessage(ctx, sess.ID, "mi sento in ansia continua")
	if err != nil {
		t.Fatalf("Failed to handle message: %v", err)
	}
	if result.Recommendation == nil || result.Recommendation.Tipo != "CSM" {
		t.Errorf("Expected CSM recommendation, got %+v", result.Recommendation)
	}
}

// TestMildSymptomWorkflow tests that cold and headache get low urgency on
// path C and complete the full protocol
func TestMildSymptomWorkflow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)

	result, err := svc.HandleMessage(ctx, sess.ID, "ho il raffreddore e mal di testa")
	if err != nil {
		t.Fatalf("Failed to handle message: %v", err)
	}
	if result.Urgency.Score != 2 {
		t.Errorf("Expected score 2, got %d", result.Urgency.Score)
	}
	if result.Urgency.AssignedPath != triage.PathC {
		t.Errorf("Expected path C, got %s", result.Urgency.AssignedPath)
	}

	answers := []string{"Bologna", "raffreddore e mal di testa", "2", "no", "40"}
	for _, answer := range answers {
		if _, err := svc.HandleMessage(ctx, sess.ID, answer); err != nil {
			t.Fatalf("Answer %q failed: %v", answer, err)
		}
	}

	result, err = svc.HandleMessage(ctx, sess.ID, "nessun farmaco")
	if err != nil {
		t.Fatalf("Failed to handle message: %v", err)
	}
	if result.Phase != triage.PhaseDisposition {
		t.Fatalf("Expected DISPOSITION, got %s", result.Phase)
	}
	// Urgency 2 with the general area has no mapped facility type: CAU fallback
	if result.Recommendation.Tipo != "CAU" {
		t.Errorf("Expected CAU, got %s", result.Recommendation.Tipo)
	}
	if result.Recommendation.DistanceKm != nil {
		t.Error("DistanceKm should be nil")
	}
}

// TestEmptyMessageWorkflow tests that empty input gets the neutral default
func TestEmptyMessageWorkflow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)
	result, err := svc.HandleMessage(ctx, sess.ID, "")
	if err != nil {
		t.Fatalf("Failed to handle message: %v", err)
	}

	if result.Urgency.Score != 3 {
		t.Errorf("Expected score 3, got %d", result.Urgency.Score)
	}
	if result.Urgency.AssignedPath != triage.PathC {
		t.Errorf("Expected path C, got %s", result.Urgency.AssignedPath)
	}
	if result.Urgency.AssignedBranch != triage.BranchTriage {
		t.Errorf("Expected branch TRIAGE, got %s", result.Urgency.AssignedBranch)
	}
	if result.Phase != triage.PhaseLocation {
		t.Errorf("Expected LOCATION, got %s", result.Phase)
	}
}

// TestSpecializedRoutingDirect tests the router against the district
// facility catalog
func TestSpecializedRoutingDirect(t *testing.T) {
	index := kb.NewIndex([]kb.Facility{
		{Tipologia: "ambulatorio_diabetologia", Comune: "Bologna", Nome: "Centro Diabetologico Bologna"},
	})
	router := routing.NewRouter(index, routing.DefaultAreaServices())

	rec := router.Route("Bologna", 2, "Diabetologia", triage.PathC)
	if rec.Tipo != "ambulatorio_diabetologia" {
		t.Errorf("Expected ambulatorio_diabetologia, got %s", rec.Tipo)
	}
	if rec.Nome != "Centro Diabetologico Bologna" {
		t.Errorf("Unexpected nome: %s", rec.Nome)
	}

	rec = router.Route("Bologna", 5, "Generale", triage.PathC)
	if rec.Tipo != "PS" {
		t.Errorf("Expected PS for urgency 5, got %s", rec.Tipo)
	}
}
