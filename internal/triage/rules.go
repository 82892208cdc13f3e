package triage

// RedFlagRule pairs a regex pattern with the flag label it reports.
// Rules are held in slices, not maps, so match order is the declared order.
type RedFlagRule struct {
	Pattern string
	Label   string
}

// Rules holds the classifier's keyword and pattern tables. Treated as
// immutable after construction.
type Rules struct {
	// InfoKeywords mark a message as an informational request (no triage)
	InfoKeywords []string

	// CriticalRedFlags require calling 118 immediately
	CriticalRedFlags []RedFlagRule

	// HighRedFlags fast-track the session onto path A
	HighRedFlags []RedFlagRule

	// MentalHealthKeywords send the session onto path B
	MentalHealthKeywords []string

	// MildSymptoms lower urgency to 2 on path C
	MildSymptoms []string
}

// DefaultRules returns the standard rule tables
func DefaultRules() Rules {
	return Rules{
		InfoKeywords: []string{
			"orari", "orario", "quando apre", "quando chiude",
			"farmacia", "farmacie di turno",
			"dove trovo", "dov'è", "come arrivo",
			"come funziona", "cos'è", "cosa fa",
			"prenot", "appuntamento",
			"numero", "telefono", "contatto",
		},
		CriticalRedFlags: []RedFlagRule{
			{`dolore\s+(toracico|petto|al\s+petto)`, "Dolore toracico"},
			{`oppressione\s+torace`, "Dolore toracico"},
			{`non\s+riesco\s+(a\s+)?respirare`, "Dispnea grave"},
			{`soffoco`, "Dispnea grave"},
			{`perdita\s+di\s+coscienza`, "Perdita coscienza"},
			{`svenuto|svenimento`, "Perdita coscienza"},
			{`convulsioni?|crisi\s+convulsiva`, "Convulsioni"},
			{`emorragia\s+massiva`, "Emorragia massiva"},
			{`sangue\s+abbondante`, "Emorragia massiva"},
			{`paralisi`, "Paralisi"},
			{`\b(braccio|gamba)\s+non\s+si\s+muove\b`, "Paralisi"},
		},
		HighRedFlags: []RedFlagRule{
			{`febbre\s+(alta|39|40)`, "Febbre >39°C"},
			{`trauma\s+cranico`, "Trauma cranico"},
			{`battuto\s+(forte\s+)?testa`, "Trauma cranico"},
			{`vomito\s+(continuo|persistente|sangue)`, "Vomito persistente"},
			{`dolore\s+addominale\s+acuto`, "Dolore addominale acuto"},
			{`dolore\s+pancia\s+(molto\s+)?forte`, "Dolore addominale acuto"},
			{`sanguinamento`, "Sanguinamento"},
		},
		MentalHealthKeywords: []string{
			"ansia", "ansioso", "ansiosa", "attacco di panico", "panico",
			"depressione", "depresso", "depressa", "triste", "tristezza",
			"pensieri suicidi", "suicidio", "togliermi la vita",
			"autolesionismo", "tagliarmi", "farmi male",
			"stress", "burn out", "burnout", "esaurimento",
			"non ce la faccio più", "voglio morire",
		},
		MildSymptoms: []string{
			"mal di testa", "cefalea", "raffreddore", "tosse",
			"naso chiuso", "febbre bassa", "febbre leggera",
		},
	}
}
