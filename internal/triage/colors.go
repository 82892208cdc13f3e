package triage

import "strings"

// Color is the legacy emergency triage color attached to log metadata
type Color string

const (
	ColorBlack  Color = "BLACK"  // psychiatric emergency
	ColorRed    Color = "RED"    // critical medical emergency
	ColorOrange Color = "ORANGE" // urgent
	ColorGreen  Color = "GREEN"  // no emergency detected
)

var blackKeywords = []string{
	"suicidio", "uccidermi", "togliermi la vita", "farla finita",
	"ammazzarmi", "voglio morire", "non voglio più vivere",
	"autolesionismo", "tagliarmi", "farmi male",
}

var redKeywords = []string{
	"dolore toracico", "dolore petto", "oppressione torace",
	"non riesco respirare", "non riesco a respirare", "soffoco",
	"perdita di coscienza", "svenuto", "svenimento",
	"convulsioni", "crisi convulsiva",
	"emorragia massiva", "sangue abbondante",
	"paralisi", "metà corpo bloccata",
}

var orangeKeywords = []string{
	"dolore addominale acuto", "dolore pancia molto forte",
	"trauma cranico", "battuto forte testa",
	"febbre alta", "febbre 39", "febbre 40",
	"vomito continuo", "vomito sangue",
	"dolore insopportabile", "dolore lancinante",
}

// DetectEmergencyColor scans a message for emergency keywords and returns
// the matching color. BLACK takes precedence over RED, RED over ORANGE.
func DetectEmergencyColor(message string) Color {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return ColorGreen
	}

	for _, keyword := range blackKeywords {
		if strings.Contains(text, keyword) {
			return ColorBlack
		}
	}
	for _, keyword := range redKeywords {
		if strings.Contains(text, keyword) {
			return ColorRed
		}
	}
	for _, keyword := range orangeKeywords {
		if strings.Contains(text, keyword) {
			return ColorOrange
		}
	}
	return ColorGreen
}
