// species_repository.go: CRUD operations over the species table. Deletion is
// intentionally absent: rows are only ever read, created and updated here.
package datastore

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mkarjala/species-atlas/internal/errors"
)

// GetAllSpecies returns every species ordered by scientific name.
func (ds *DataStore) GetAllSpecies(ctx context.Context) ([]Species, error) {
	var species []Species
	err := ds.DB.WithContext(ctx).
		Order("scientific_name ASC").
		Find(&species).Error
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "get_all_species").
			Component("datastore").
			Build()
	}
	return species, nil
}

// GetSpecies returns a single species by id, or ErrSpeciesNotFound.
func (ds *DataStore) GetSpecies(ctx context.Context, id uint) (Species, error) {
	var species Species
	err := ds.DB.WithContext(ctx).First(&species, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Species{}, errors.New(ErrSpeciesNotFound).
				Category(errors.CategoryNotFound).
				Context("species_id", id).
				Component("datastore").
				Build()
		}
		return Species{}, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("species_id", id).
			Component("datastore").
			Build()
	}
	return species, nil
}

// CreateSpecies inserts a new species row. The caller is responsible for
// normalization and validation.
func (ds *DataStore) CreateSpecies(ctx context.Context, species *Species) error {
	if err := ds.DB.WithContext(ctx).Create(species).Error; err != nil {
		category := errors.CategoryDatabase
		if isUniqueViolation(err) {
			category = errors.CategoryConflict
		}
		return errors.New(err).
			Category(category).
			Context("scientific_name", species.ScientificName).
			Component("datastore").
			Build()
	}
	return nil
}

// UpdateSpecies writes the updatable fields of an existing row. The row must
// exist; a missing id yields ErrSpeciesNotFound. AuthorID is never changed by
// an update.
func (ds *DataStore) UpdateSpecies(ctx context.Context, species *Species) error {
	// Select the full updatable column set so that fields cleared to nil
	// are written as NULL instead of being skipped.
	result := ds.DB.WithContext(ctx).
		Model(&Species{}).
		Where("id = ?", species.ID).
		Select("scientific_name", "common_name", "kingdom", "total_population", "image_url", "description").
		Updates(map[string]any{
			"scientific_name":  species.ScientificName,
			"common_name":      species.CommonName,
			"kingdom":          species.Kingdom,
			"total_population": species.TotalPopulation,
			"image_url":        species.ImageURL,
			"description":      species.Description,
		})
	if result.Error != nil {
		category := errors.CategoryDatabase
		if isUniqueViolation(result.Error) {
			category = errors.CategoryConflict
		}
		return errors.New(result.Error).
			Category(category).
			Context("species_id", species.ID).
			Component("datastore").
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.New(ErrSpeciesNotFound).
			Category(errors.CategoryNotFound).
			Context("species_id", species.ID).
			Component("datastore").
			Build()
	}
	return nil
}

// SearchSpecies returns species whose scientific or common name contains the
// query, case-insensitively, with pagination.
func (ds *DataStore) SearchSpecies(ctx context.Context, query string, limit, offset int) ([]Species, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var species []Species
	err := ds.DB.WithContext(ctx).
		Where("LOWER(scientific_name) LIKE ? OR LOWER(common_name) LIKE ?", pattern, pattern).
		Order("scientific_name ASC").
		Limit(limit).
		Offset(offset).
		Find(&species).Error
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "search_species").
			Component("datastore").
			Build()
	}
	return species, nil
}

// CountSpeciesByKingdom aggregates species counts per kingdom.
func (ds *DataStore) CountSpeciesByKingdom(ctx context.Context) ([]KingdomCount, error) {
	var counts []KingdomCount
	err := ds.DB.WithContext(ctx).
		Model(&Species{}).
		Select("kingdom, COUNT(*) as count").
		Group("kingdom").
		Order("kingdom ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "count_species_by_kingdom").
			Component("datastore").
			Build()
	}
	return counts, nil
}

// isUniqueViolation reports whether err looks like a unique constraint
// violation on either supported backend.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry")
}
