package session

import (
	"context"
	"testing"
	"time"

	"github.com/siraya-health/navigator/internal/kb"
	"github.com/siraya-health/navigator/internal/routing"
	"github.com/siraya-health/navigator/internal/triage"
)

func testService() *Service {
	classifier := triage.NewClassifier(triage.DefaultRules())
	index := kb.NewIndex([]kb.Facility{
		{Tipologia: "ambulatorio_diabetologia", Comune: "Bologna", Nome: "Centro Diabetologico Bologna"},
	})
	router := routing.NewRouter(index, routing.DefaultAreaServices())
	return NewService(NewMemoryRepository(), classifier, router, nil)
}

func TestHandleMessageCriticalFirstMessage(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	result, err := svc.HandleMessage(ctx, sess.ID, "ho dolore al petto e non riesco a respirare")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Phase != triage.PhaseEmergencyOverride {
		t.Errorf("Expected EMERGENCY_OVERRIDE, got %s", result.Phase)
	}
	if result.Status != StatusEmergency {
		t.Errorf("Expected emergency status, got %s", result.Status)
	}
	if result.Urgency == nil || result.Urgency.Score != 5 {
		t.Errorf("Expected urgency score 5, got %+v", result.Urgency)
	}
	if !result.Urgency.RequiresImmediate118 {
		t.Error("Expected requires_immediate_118")
	}

	// The session is terminal: further messages are rejected
	if _, err := svc.HandleMessage(ctx, sess.ID, "e adesso?"); err == nil {
		t.Error("Expected error for message on closed session")
	}
}

func TestHandleMessageInformational(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)
	result, err := svc.HandleMessage(ctx, sess.ID, "quando apre la farmacia?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Status != StatusCompleted {
		t.Errorf("Expected completed status, got %s", result.Status)
	}
	if result.Urgency.AssignedBranch != triage.BranchInformazioni {
		t.Errorf("Expected INFORMAZIONI, got %s", result.Urgency.AssignedBranch)
	}
	if result.Recommendation != nil {
		t.Error("Informational sessions should not get a facility recommendation")
	}
}

func TestHandleMessageFullPathC(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)

	steps := []struct {
		message string
		phase   triage.Phase
	}{
		{"mi sento poco bene da qualche giorno", triage.PhaseLocation},
		{"Bologna", triage.PhaseChiefComplaint},
		{"ho un fastidio alla schiena", triage.PhasePainAssessment},
		{"4", triage.PhaseRedFlags},
		{"no, nessuno di questi", triage.PhaseDemographics},
		{"ho 45 anni", triage.PhaseAnamnesis},
	}

	for _, step := range steps {
		result, err := svc.HandleMessage(ctx, sess.ID, step.message)
		if err != nil {
			t.Fatalf("Message %q: unexpected error: %v", step.message, err)
		}
		if result.Phase != step.phase {
			t.Fatalf("Message %q: expected phase %s, got %s", step.message, step.phase, result.Phase)
		}
	}

	result, err := svc.HandleMessage(ctx, sess.ID, "nessun farmaco")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Phase != triage.PhaseDisposition {
		t.Fatalf("Expected DISPOSITION, got %s", result.Phase)
	}
	if result.Status != StatusCompleted {
		t.Errorf("Expected completed status, got %s", result.Status)
	}
	if result.Recommendation == nil {
		t.Fatal("Expected a facility recommendation")
	}
	// Urgency 3 default routes to CAU
	if result.Recommendation.Tipo != "CAU" {
		t.Errorf("Expected CAU, got %s", result.Recommendation.Tipo)
	}
	if result.Recommendation.DistanceKm != nil {
		t.Error("DistanceKm should always be nil")
	}
}

func TestHandleMessagePathBConsent(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)

	result, err := svc.HandleMessage(ctx, sess.ID, "ho un attacco di panico")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Phase != triage.PhaseIntentDetection {
		t.Fatalf("Expected INTENT_DETECTION, got %s", result.Phase)
	}
	if result.Urgency.AssignedPath != triage.PathB {
		t.Errorf("Expected path B, got %s", result.Urgency.AssignedPath)
	}

	steps := []struct {
		message string
		phase   triage.Phase
	}{
		{"sì", triage.PhaseLocation},
		{"Modena", triage.PhaseDemographics},
		{"31", triage.PhaseChiefComplaint},
	}
	for _, step := range steps {
		result, err = svc.HandleMessage(ctx, sess.ID, step.message)
		if err != nil {
			t.Fatalf("Message %q: unexpected error: %v", step.message, err)
		}
		if result.Phase != step.phase {
			t.Fatalf("Message %q: expected %s, got %s", step.message, step.phase, result.Phase)
		}
	}

	result, err = svc.HandleMessage(ctx, sess.ID, "mi sento sopraffatto da tutto")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Phase != triage.PhaseDisposition {
		t.Fatalf("Expected DISPOSITION, got %s", result.Phase)
	}
	if result.Recommendation == nil || result.Recommendation.Tipo != "CSM" {
		t.Errorf("Expected CSM recommendation, got %+v", result.Recommendation)
	}
}

func TestHandleMessagePathBConsentRefused(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)
	svc.HandleMessage(ctx, sess.ID, "soffro di depressione")

	result, err := svc.HandleMessage(ctx, sess.ID, "no")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Errorf("Expected completed status after consent refusal, got %s", result.Status)
	}
}

func TestHandleMessageMidConversationEmergency(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)
	svc.HandleMessage(ctx, sess.ID, "ho un leggero malessere")
	svc.HandleMessage(ctx, sess.ID, "Bologna")

	// A critical symptom in a later answer forces the override
	result, err := svc.HandleMessage(ctx, sess.ID, "adesso ho anche dolore al petto fortissimo")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Phase != triage.PhaseEmergencyOverride {
		t.Errorf("Expected EMERGENCY_OVERRIDE, got %s", result.Phase)
	}
	if result.Status != StatusEmergency {
		t.Errorf("Expected emergency status, got %s", result.Status)
	}
}

func TestHandleMessagePainScaleReask(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	sess, _ := svc.Start(ctx)
	svc.HandleMessage(ctx, sess.ID, "mi fa male un ginocchio")
	svc.HandleMessage(ctx, sess.ID, "Parma")
	svc.HandleMessage(ctx, sess.ID, "dolore al ginocchio destro")

	result, err := svc.HandleMessage(ctx, sess.ID, "abbastanza direi")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Phase != triage.PhasePainAssessment {
		t.Errorf("Expected PAIN_ASSESSMENT re-ask, got %s", result.Phase)
	}

	result, _ = svc.HandleMessage(ctx, sess.ID, "direi 6 su 10")
	if result.Phase != triage.PhaseRedFlags {
		t.Errorf("Expected RED_FLAGS after valid pain answer, got %s", result.Phase)
	}
}

func TestCleanup(t *testing.T) {
	svc := testService()
	ctx := context.Background()

	old, _ := svc.Start(ctx)
	old.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	if err := svc.repo.Update(ctx, old); err != nil {
		t.Fatal(err)
	}

	fresh, _ := svc.Start(ctx)

	removed, err := svc.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}

	if _, err := svc.Get(ctx, old.ID); err == nil {
		t.Error("Old session should be gone")
	}
	if _, err := svc.Get(ctx, fresh.ID); err != nil {
		t.Errorf("Fresh session should remain: %v", err)
	}
}
