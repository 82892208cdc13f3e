package routing

import (
	"fmt"
	"strings"

	"github.com/siraya-health/navigator/internal/kb"
	"github.com/siraya-health/navigator/internal/shared/metrics"
	"github.com/siraya-health/navigator/internal/triage"
)

// Recommendation is the final facility recommendation for a session.
// DistanceKm is always nil: no geographic ranking is performed.
type Recommendation struct {
	Tipo       string   `json:"tipo"`
	Nome       string   `json:"nome"`
	Note       string   `json:"note"`
	DistanceKm *float64 `json:"distance_km"`
}

// AreaServices maps a clinical area to the facility tipologia to search
// for low-urgency specialized routing. Held as an ordered slice so lookups
// are deterministic.
type AreaService struct {
	Area      string
	Tipologia string
}

// DefaultAreaServices returns the standard area to facility-type table
func DefaultAreaServices() []AreaService {
	return []AreaService{
		{"Medicazioni", "poliambulatorio"},
		{"Prelievi", "poliambulatorio"},
		{"Vaccinazioni", "poliambulatorio"},
		{"Diabetologia", "ambulatorio_diabetologia"},
		{"Cardiologia", "ambulatorio_cardiologia"},
		{"Ortopedia", "ambulatorio_ortopedia"},
	}
}

// Router resolves facility recommendations through a fixed decision
// cascade. Immutable after construction, safe for concurrent use.
type Router struct {
	index        *kb.Index
	areaServices []AreaService
}

// NewRouter creates a router over a facility index
func NewRouter(index *kb.Index, areaServices []AreaService) *Router {
	return &Router{index: index, areaServices: areaServices}
}

// Route resolves the facility recommendation for a completed triage.
// Rules are evaluated top to bottom, first match wins:
//
//  1. urgency >= 4: PS, overrides everything
//  2. path B or mental-health area: CSM
//  3. gynecology/obstetrics/pregnancy area: Consultorio
//  4. addiction area: SerD
//  5. urgency == 3: CAU
//  6. urgency == 2: specialized district service, CAU fallback
//  7. default: MMG
func (r *Router) Route(location string, urgency int, area string, path triage.Path) Recommendation {
	if urgency >= 4 {
		return Recommendation{
			Tipo: "PS",
			Nome: "Pronto Soccorso",
			Note: "Recati immediatamente in ospedale o chiama il 118.",
		}
	}

	if path == triage.PathB || strings.Contains(area, "Psichiatria") || strings.Contains(area, "Mentale") {
		return Recommendation{
			Tipo: "CSM",
			Nome: "Centro di Salute Mentale",
			Note: "Contatta il servizio territoriale per una valutazione. " +
				"Per emergenze: 1522 (violenza), Telefono Amico 02 2327 2327",
		}
	}

	if strings.Contains(area, "Ginecologia") || strings.Contains(area, "Ostetricia") || strings.Contains(area, "Gravidanza") {
		return Recommendation{
			Tipo: "Consultorio",
			Nome: "Consultorio Familiare",
			Note: "Prenota una visita presso il consultorio di zona.",
		}
	}

	if strings.Contains(area, "Dipendenze") || strings.Contains(area, "Tossicodipendenza") || strings.Contains(area, "Alcol") {
		return Recommendation{
			Tipo: "SerD",
			Nome: "SerD (Servizio Dipendenze)",
			Note: "Accesso diretto o tramite MMG per supporto specialistico.",
		}
	}

	if urgency == 3 {
		return Recommendation{
			Tipo: "CAU",
			Nome: "CAU (Continuità Assistenziale Urgenze)",
			Note: "Centro di Assistenza Urgenza per valutazioni senza appuntamento. " +
				"**AGGIORNAMENTO**: I CAU dell'Emilia-Romagna ora offrono " +
				"accesso h24, servizi diagnostici rapidi (ECG, radiologia di base) " +
				"e telemedicina. Trova il CAU più vicino tramite il numero unico 116117 " +
				"o l'app ER Salute.",
		}
	}

	if urgency == 2 {
		if rec, ok := r.searchSpecializedService(location, area); ok {
			return rec
		}
		metrics.RecordSpecializedSearchMiss()
		return Recommendation{
			Tipo: "CAU",
			Nome: "CAU (Continuità Assistenziale Urgenze)",
			Note: "Centro di Assistenza Urgenza per valutazioni senza appuntamento. " +
				"Numero unico 116117 o app ER Salute.",
		}
	}

	return Recommendation{
		Tipo: "MMG",
		Nome: "Medico di Medicina Generale",
		Note: "Contatta il tuo medico di base per una valutazione nei prossimi giorni.",
	}
}

// searchSpecializedService looks up a district facility for the area near
// the supplied location. Match rule: the registered comune and the location
// must be mutual case-insensitive substrings; the first catalog match wins.
func (r *Router) searchSpecializedService(location, area string) (Recommendation, bool) {
	var tipologia string
	for _, svc := range r.areaServices {
		if svc.Area == area {
			tipologia = svc.Tipologia
			break
		}
	}
	if tipologia == "" {
		return Recommendation{}, false
	}

	locationLower := strings.ToLower(location)
	for _, facility := range r.index.ByType(tipologia) {
		comune := strings.ToLower(facility.Comune)
		if strings.Contains(comune, locationLower) || strings.Contains(locationLower, comune) {
			nome := facility.Nome
			if nome == "" {
				nome = "Servizio Specialistico"
			}
			accesso := facility.TipoAccesso
			if accesso == "" {
				accesso = "Verificare modalità"
			}
			telefono := facility.Contatti.Telefono
			if telefono == "" {
				telefono = "N/D"
			}
			return Recommendation{
				Tipo: tipologia,
				Nome: nome,
				Note: fmt.Sprintf("Servizio dedicato per %s. Accesso: %s. Telefono: %s", area, accesso, telefono),
			}, true
		}
	}

	return Recommendation{}, false
}
