package triage

import "testing"

func TestDetectEmergencyColor(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected Color
	}{
		{"psychiatric emergency", "voglio farla finita", ColorBlack},
		{"self harm", "penso di tagliarmi", ColorBlack},
		{"chest pain", "ho dolore toracico", ColorRed},
		{"dyspnea", "non riesco a respirare", ColorRed},
		{"head trauma", "ho battuto forte testa", ColorOrange},
		{"high fever", "ho la febbre alta", ColorOrange},
		{"no emergency", "vorrei un consiglio", ColorGreen},
		{"empty", "", ColorGreen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectEmergencyColor(tt.message); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

// BLACK wins over RED when a message triggers both
func TestDetectEmergencyColorPrecedence(t *testing.T) {
	got := DetectEmergencyColor("voglio morire, ho dolore toracico")
	if got != ColorBlack {
		t.Errorf("Expected BLACK, got %s", got)
	}
}
