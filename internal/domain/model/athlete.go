// Package model contains domain entities passed between layers.
package model

import "time"

// WeightCategory is one of the federation's fixed weight bands.
type WeightCategory string

// Weight bands recognized by the federation.
const (
	Menos60K WeightCategory = "MENOS_60K"
	Menos66K WeightCategory = "MENOS_66K"
	Menos73K WeightCategory = "MENOS_73K"
	Menos81K WeightCategory = "MENOS_81K"
	Menos90K WeightCategory = "MENOS_90K"
	Mas90K   WeightCategory = "MAS_90K"
)

// WeightCategories returns the fixed set of bands in ascending weight order.
func WeightCategories() []WeightCategory {
	return []WeightCategory{Menos60K, Menos66K, Menos73K, Menos81K, Menos90K, Mas90K}
}

// Valid reports whether c is a known weight band.
func (c WeightCategory) Valid() bool {
	for _, k := range WeightCategories() {
		if c == k {
			return true
		}
	}
	return false
}

// Role identifies the caller's capability within the federation.
type Role string

// Roles used as transition guard input.
const (
	RoleComiteTecnico Role = "COMITE_TECNICO"
	RoleEntrenador    Role = "ENTRENADOR"
	RoleAtleta        Role = "ATLETA"
)

// Classification is the fitness verdict assigned within a category ranking.
type Classification string

// Fitness classifications.
const (
	Apto    Classification = "APTO"
	Reserva Classification = "RESERVA"
	NoApto  Classification = "NO_APTO"
)

// Athlete is a federation-owned athlete record. The weight category may
// change over time (re-classification), which requires re-ranking.
type Athlete struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Category     WeightCategory `json:"category"`
	BirthDate    time.Time      `json:"birth_date"`
	Club         string         `json:"club"`
	Municipality string         `json:"municipality"`
	CoachID      string         `json:"coach_id"`
	Active       bool           `json:"active"`
}
