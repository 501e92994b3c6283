// model.go this code defines the data model for the species catalog
package datastore

import "time"

// Kingdom is the closed enumeration of taxonomic kingdoms a species may
// belong to.
type Kingdom string

const (
	KingdomAnimalia Kingdom = "Animalia"
	KingdomPlantae  Kingdom = "Plantae"
	KingdomFungi    Kingdom = "Fungi"
	KingdomProtista Kingdom = "Protista"
	KingdomArchaea  Kingdom = "Archaea"
	KingdomBacteria Kingdom = "Bacteria"
)

// Kingdoms lists all valid kingdom values in display order.
var Kingdoms = []Kingdom{
	KingdomAnimalia,
	KingdomPlantae,
	KingdomFungi,
	KingdomProtista,
	KingdomArchaea,
	KingdomBacteria,
}

// ValidKingdom reports whether k is one of the closed enumeration values.
func ValidKingdom(k Kingdom) bool {
	for _, known := range Kingdoms {
		if k == known {
			return true
		}
	}
	return false
}

// Species represents a single catalog entry. Optional fields are pointers so
// that "absent" is distinguishable from the zero value.
type Species struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	ScientificName  string  `gorm:"uniqueIndex:idx_species_sciname;not null" json:"scientific_name"`
	CommonName      *string `json:"common_name,omitempty"`
	Kingdom         Kingdom `gorm:"type:varchar(20);index:idx_species_kingdom" json:"kingdom"`
	TotalPopulation *int64  `json:"total_population,omitempty"`
	ImageURL        *string `json:"image,omitempty"`
	Description     *string `gorm:"type:text" json:"description,omitempty"`
	AuthorID        string  `gorm:"index:idx_species_author;not null" json:"author"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KingdomCount is an aggregation row of species counts per kingdom.
type KingdomCount struct {
	Kingdom Kingdom `json:"kingdom"`
	Count   int64   `json:"count"`
}
