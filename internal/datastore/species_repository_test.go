package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/errors"
)

// newTestStore opens a throwaway SQLite store in the test temp dir.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "species_test.db")

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func seedSpecies(t *testing.T, store *SQLiteStore, name, author string) Species {
	t.Helper()
	s := Species{
		ScientificName: name,
		Kingdom:        KingdomAnimalia,
		AuthorID:       author,
	}
	require.NoError(t, store.CreateSpecies(context.Background(), &s))
	require.NotZero(t, s.ID)
	return s
}

func TestCreateAndGetSpecies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := seedSpecies(t, store, "Acinonyx jubatus", "curator")

	got, err := store.GetSpecies(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acinonyx jubatus", got.ScientificName)
	assert.Equal(t, KingdomAnimalia, got.Kingdom)
	assert.Equal(t, "curator", got.AuthorID)
	assert.Nil(t, got.CommonName)
}

func TestGetSpeciesNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSpecies(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpeciesNotFound))

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, errors.CategoryNotFound, ee.Category)
}

func TestUpdateSpeciesWritesNilAsNull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	s := seedSpecies(t, store, "Panthera leo", "curator")
	common := "Lion"
	s.CommonName = &common
	require.NoError(t, store.UpdateSpecies(ctx, &s))

	got, err := store.GetSpecies(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CommonName)
	assert.Equal(t, "Lion", *got.CommonName)

	// Clearing an optional field back to absent must persist as NULL.
	s.CommonName = nil
	require.NoError(t, store.UpdateSpecies(ctx, &s))

	got, err = store.GetSpecies(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CommonName)
}

func TestUpdateSpeciesMissingRow(t *testing.T) {
	store := newTestStore(t)

	s := Species{ID: 4242, ScientificName: "Vulpes vulpes", Kingdom: KingdomAnimalia, AuthorID: "curator"}
	err := store.UpdateSpecies(context.Background(), &s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpeciesNotFound))
}

func TestCreateSpeciesDuplicateScientificName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedSpecies(t, store, "Panthera onca", "curator")

	dup := Species{ScientificName: "Panthera onca", Kingdom: KingdomAnimalia, AuthorID: "other"}
	err := store.CreateSpecies(ctx, &dup)
	require.Error(t, err)

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, errors.CategoryConflict, ee.Category)
}

func TestSearchSpeciesMatchesEitherName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lion := seedSpecies(t, store, "Panthera leo", "curator")
	common := "Lion"
	lion.CommonName = &common
	require.NoError(t, store.UpdateSpecies(ctx, &lion))
	seedSpecies(t, store, "Quercus robur", "curator")

	byScientific, err := store.SearchSpecies(ctx, "panthera", 10, 0)
	require.NoError(t, err)
	require.Len(t, byScientific, 1)

	byCommon, err := store.SearchSpecies(ctx, "lion", 10, 0)
	require.NoError(t, err)
	require.Len(t, byCommon, 1)
	assert.Equal(t, "Panthera leo", byCommon[0].ScientificName)

	none, err := store.SearchSpecies(ctx, "cheetah", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetAllSpeciesOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedSpecies(t, store, "Quercus robur", "curator")
	seedSpecies(t, store, "Acinonyx jubatus", "curator")

	all, err := store.GetAllSpecies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acinonyx jubatus", all[0].ScientificName)
	assert.Equal(t, "Quercus robur", all[1].ScientificName)
}

func TestCountSpeciesByKingdom(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedSpecies(t, store, "Panthera leo", "curator")
	seedSpecies(t, store, "Acinonyx jubatus", "curator")
	oak := Species{ScientificName: "Quercus robur", Kingdom: KingdomPlantae, AuthorID: "curator"}
	require.NoError(t, store.CreateSpecies(ctx, &oak))

	counts, err := store.CountSpeciesByKingdom(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	byKingdom := map[Kingdom]int64{}
	for _, c := range counts {
		byKingdom[c.Kingdom] = c.Count
	}
	assert.Equal(t, int64(2), byKingdom[KingdomAnimalia])
	assert.Equal(t, int64(1), byKingdom[KingdomPlantae])
}
