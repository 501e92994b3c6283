package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarjala/species-atlas/internal/api/auth"
	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/datastore"
)

// newTestController builds a controller wired to a throwaway SQLite store,
// with logging discarded and no auth middleware so handlers can be exercised
// directly.
func newTestController(t *testing.T) (*Controller, *echo.Echo) {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "api_test.db")

	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	e := echo.New()
	c := &Controller{
		Echo:         e,
		DS:           store,
		Settings:     settings,
		logger:       log.New(io.Discard, "", 0),
		apiLogger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		speciesCache: cache.New(time.Minute, time.Minute),
		startTime:    time.Now(),
	}
	c.Group = e.Group("/api/v2")
	c.initRoutes()

	return c, e
}

// newJSONContext builds an echo context for a JSON request, optionally
// carrying an authenticated username as the auth middleware would.
func newJSONContext(e *echo.Echo, method, target, body, username string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	if username != "" {
		ctx.Set(auth.CtxKeyIsAuthenticated, true)
		ctx.Set(auth.CtxKeyUsername, username)
	}
	return ctx, rec
}

func decodeSpecies(t *testing.T, rec *httptest.ResponseRecorder) SpeciesResponse {
	t.Helper()
	var resp SpeciesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func seedSpecies(t *testing.T, c *Controller, name, author string) *datastore.Species {
	t.Helper()
	s := &datastore.Species{
		ScientificName: name,
		Kingdom:        datastore.KingdomAnimalia,
		AuthorID:       author,
	}
	require.NoError(t, c.DS.CreateSpecies(context.Background(), s))
	return s
}

func TestCreateSpeciesSetsAuthorFromSession(t *testing.T) {
	c, e := newTestController(t)

	body := `{"scientific_name":"Acinonyx jubatus","common_name":"Cheetah","kingdom":"Animalia","author_id":"spoofed"}`
	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/species", body, "curator")

	require.NoError(t, c.CreateSpecies(ctx))
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeSpecies(t, rec)
	assert.Equal(t, "curator", resp.AuthorID, "author must come from the session, not the body")
	assert.True(t, resp.Editable)
	assert.NotZero(t, resp.ID)
}

func TestCreateSpeciesRequiresAuthentication(t *testing.T) {
	c, e := newTestController(t)

	body := `{"scientific_name":"Acinonyx jubatus","kingdom":"Animalia"}`
	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/species", body, "")

	require.NoError(t, c.CreateSpecies(ctx))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSpeciesValidation(t *testing.T) {
	c, e := newTestController(t)

	body := `{"scientific_name":"   ","kingdom":"Minerals","total_population":0}`
	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/species", body, "curator")

	require.NoError(t, c.CreateSpecies(ctx))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "scientific_name")
	assert.Contains(t, resp.Fields, "kingdom")
	assert.Contains(t, resp.Fields, "total_population")
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestCreateSpeciesNormalizesOptionals(t *testing.T) {
	c, e := newTestController(t)

	body := `{"scientific_name":"  Panthera leo ","common_name":"   ","kingdom":"Animalia","description":"  "}`
	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/species", body, "curator")

	require.NoError(t, c.CreateSpecies(ctx))
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeSpecies(t, rec)
	assert.Equal(t, "Panthera leo", resp.ScientificName)
	assert.Nil(t, resp.CommonName, "whitespace-only optional fields are stored as null")
	assert.Nil(t, resp.Description)
}

func TestCreateSpeciesDuplicateName(t *testing.T) {
	c, e := newTestController(t)
	seedSpecies(t, c, "Panthera leo", "curator")

	body := `{"scientific_name":"Panthera leo","kingdom":"Animalia"}`
	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/species", body, "curator")

	require.NoError(t, c.CreateSpecies(ctx))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateSpeciesAuthorOnly(t *testing.T) {
	c, e := newTestController(t)
	existing := seedSpecies(t, c, "Panthera leo", "alice")

	body := `{"scientific_name":"Panthera leo","common_name":"Lion","kingdom":"Animalia"}`
	target := "/api/v2/species/" + strconv.Itoa(int(existing.ID))
	ctx, rec := newJSONContext(e, http.MethodPut, target, body, "mallory")
	ctx.SetParamNames("id")
	ctx.SetParamValues(strconv.Itoa(int(existing.ID)))

	require.NoError(t, c.UpdateSpecies(ctx))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Record must be untouched
	got, err := c.DS.GetSpecies(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CommonName)
}

func TestUpdateSpeciesClearsOptionalField(t *testing.T) {
	c, e := newTestController(t)

	pop := int64(20000)
	common := "Lion"
	s := &datastore.Species{
		ScientificName:  "Panthera leo",
		CommonName:      &common,
		Kingdom:         datastore.KingdomAnimalia,
		TotalPopulation: &pop,
		AuthorID:        "alice",
	}
	require.NoError(t, c.DS.CreateSpecies(context.Background(), s))

	// Omitting total_population clears the stored value
	body := `{"scientific_name":"Panthera leo","common_name":"Lion","kingdom":"Animalia"}`
	ctx, rec := newJSONContext(e, http.MethodPut, "/api/v2/species/"+strconv.Itoa(int(s.ID)), body, "alice")
	ctx.SetParamNames("id")
	ctx.SetParamValues(strconv.Itoa(int(s.ID)))

	require.NoError(t, c.UpdateSpecies(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSpecies(t, rec)
	assert.Nil(t, resp.TotalPopulation)
	assert.Equal(t, "alice", resp.AuthorID)
}

func TestUpdateSpeciesNotFound(t *testing.T) {
	c, e := newTestController(t)

	body := `{"scientific_name":"Panthera leo","kingdom":"Animalia"}`
	ctx, rec := newJSONContext(e, http.MethodPut, "/api/v2/species/9999", body, "alice")
	ctx.SetParamNames("id")
	ctx.SetParamValues("9999")

	require.NoError(t, c.UpdateSpecies(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSpeciesNotFound(t *testing.T) {
	c, e := newTestController(t)

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/species/424242", "", "curator")
	ctx.SetParamNames("id")
	ctx.SetParamValues("424242")

	require.NoError(t, c.GetSpecies(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAllSpeciesEditableFlag(t *testing.T) {
	c, e := newTestController(t)
	seedSpecies(t, c, "Panthera leo", "alice")
	seedSpecies(t, c, "Acinonyx jubatus", "bob")

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/species", "", "alice")
	require.NoError(t, c.GetAllSpecies(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []SpeciesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	editable := map[string]bool{}
	for _, sp := range list {
		editable[sp.ScientificName] = sp.Editable
	}
	assert.True(t, editable["Panthera leo"])
	assert.False(t, editable["Acinonyx jubatus"], "other users' records are read-only")
}

func TestSearchSpeciesMatchesEitherName(t *testing.T) {
	c, e := newTestController(t)

	common := "Cheetah"
	s := &datastore.Species{
		ScientificName: "Acinonyx jubatus",
		CommonName:     &common,
		Kingdom:        datastore.KingdomAnimalia,
		AuthorID:       "curator",
	}
	require.NoError(t, c.DS.CreateSpecies(context.Background(), s))
	seedSpecies(t, c, "Panthera leo", "curator")

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/species/search?q=cheet", "", "curator")
	require.NoError(t, c.SearchSpecies(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []SpeciesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Acinonyx jubatus", list[0].ScientificName)
}

func TestListCacheInvalidatedOnCreate(t *testing.T) {
	c, e := newTestController(t)
	seedSpecies(t, c, "Panthera leo", "curator")

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/species", "", "curator")
	require.NoError(t, c.GetAllSpecies(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"scientific_name":"Acinonyx jubatus","kingdom":"Animalia"}`
	ctx, rec = newJSONContext(e, http.MethodPost, "/api/v2/species", body, "curator")
	require.NoError(t, c.CreateSpecies(ctx))
	require.Equal(t, http.StatusCreated, rec.Code)

	ctx, rec = newJSONContext(e, http.MethodGet, "/api/v2/species", "", "curator")
	require.NoError(t, c.GetAllSpecies(ctx))

	var list []SpeciesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestHealthCheck(t *testing.T) {
	c, e := newTestController(t)
	c.Settings.Version = "test"

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/health", "", "")
	require.NoError(t, c.HealthCheck(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["database_status"])
}
