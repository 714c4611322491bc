package pipeline

import (
	"github.com/couchcryptid/hazard-alert-service/internal/domain"
)

// Enricher annotates pings with the hazard assessment of the configured model.
type Enricher struct {
	model domain.HazardModel
}

// NewEnricher creates an Enricher over model.
func NewEnricher(model domain.HazardModel) *Enricher {
	return &Enricher{model: model}
}

// Enrich assesses a ping. It never fails; a location outside every zone
// yields LevelNone.
func (e *Enricher) Enrich(p domain.Ping) domain.EnrichedPing {
	return domain.EnrichedPing{
		Ping:       p,
		Assessment: e.model.Assess(p.Lat, p.Lon),
		AssessedAt: domain.Now(),
	}
}

// Passes reports whether an enriched ping should become an alert.
func Passes(e domain.EnrichedPing) bool {
	return e.Hazardous()
}
