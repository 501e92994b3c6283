// internal/api/v2/species.go
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mkarjala/species-atlas/internal/api/auth"
	"github.com/mkarjala/species-atlas/internal/datastore"
	apperrors "github.com/mkarjala/species-atlas/internal/errors"
)

// SpeciesRequest is the JSON body accepted by create and update endpoints.
// Author is never taken from the body; it comes from the session.
type SpeciesRequest struct {
	ScientificName  string  `json:"scientific_name"`
	CommonName      *string `json:"common_name"`
	Kingdom         string  `json:"kingdom"`
	TotalPopulation *int64  `json:"total_population"`
	ImageURL        *string `json:"image_url"`
	Description     *string `json:"description"`
}

// SpeciesResponse is the JSON representation of a species record.
type SpeciesResponse struct {
	ID              uint    `json:"id"`
	ScientificName  string  `json:"scientific_name"`
	CommonName      *string `json:"common_name"`
	Kingdom         string  `json:"kingdom"`
	TotalPopulation *int64  `json:"total_population"`
	ImageURL        *string `json:"image_url"`
	Description     *string `json:"description"`
	AuthorID        string  `json:"author_id"`
	Editable        bool    `json:"editable"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// initSpeciesRoutes registers species-related API endpoints
func (c *Controller) initSpeciesRoutes() {
	authMW := c.GetAuthMiddleware()

	group := c.Group.Group("/species", authMW)
	group.GET("", c.GetAllSpecies)
	group.GET("/search", c.SearchSpecies)
	group.GET("/:id", c.GetSpecies)
	group.POST("", c.CreateSpecies)
	group.PUT("/:id", c.UpdateSpecies)
}

// currentUsername returns the authenticated username stored in the request
// context by the auth middleware. Falls back to the service when running
// with auth disabled.
func (c *Controller) currentUsername(ctx echo.Context) string {
	if v, ok := ctx.Get(auth.CtxKeyUsername).(string); ok && v != "" {
		return v
	}
	if c.authService != nil {
		return c.authService.GetUsername(ctx)
	}
	return ""
}

func (c *Controller) toResponse(ctx echo.Context, sp *datastore.Species) SpeciesResponse {
	username := c.currentUsername(ctx)
	return SpeciesResponse{
		ID:              sp.ID,
		ScientificName:  sp.ScientificName,
		CommonName:      sp.CommonName,
		Kingdom:         string(sp.Kingdom),
		TotalPopulation: sp.TotalPopulation,
		ImageURL:        sp.ImageURL,
		Description:     sp.Description,
		AuthorID:        sp.AuthorID,
		Editable:        username != "" && username == sp.AuthorID,
		CreatedAt:       sp.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       sp.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func (c *Controller) toResponseList(ctx echo.Context, list []datastore.Species) []SpeciesResponse {
	out := make([]SpeciesResponse, 0, len(list))
	for i := range list {
		out = append(out, c.toResponse(ctx, &list[i]))
	}
	return out
}

// GetAllSpecies handles GET /api/v2/species
func (c *Controller) GetAllSpecies(ctx echo.Context) error {
	var list []datastore.Species

	if cached, found := c.speciesCache.Get(speciesListCacheKey); found {
		list = cached.([]datastore.Species)
	} else {
		var err error
		list, err = c.DS.GetAllSpecies(ctx.Request().Context())
		if err != nil {
			return c.HandleError(ctx, err, "Failed to retrieve species", http.StatusInternalServerError)
		}
		c.speciesCache.SetDefault(speciesListCacheKey, list)
	}

	return ctx.JSON(http.StatusOK, c.toResponseList(ctx, list))
}

// GetSpecies handles GET /api/v2/species/:id
func (c *Controller) GetSpecies(ctx echo.Context) error {
	id, err := parseSpeciesID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid species ID", http.StatusBadRequest)
	}

	sp, err := c.DS.GetSpecies(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrSpeciesNotFound) {
			return c.HandleError(ctx, err, "Species not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to retrieve species", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, c.toResponse(ctx, &sp))
}

// SearchSpecies handles GET /api/v2/species/search?q=...
func (c *Controller) SearchSpecies(ctx echo.Context) error {
	query := strings.TrimSpace(ctx.QueryParam("q"))
	if query == "" {
		// Empty query behaves like the unfiltered list
		return c.GetAllSpecies(ctx)
	}

	limit := parseQueryInt(ctx, "limit", 100)
	offset := parseQueryInt(ctx, "offset", 0)

	list, err := c.DS.SearchSpecies(ctx.Request().Context(), query, limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to search species", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, c.toResponseList(ctx, list))
}

// CreateSpecies handles POST /api/v2/species
func (c *Controller) CreateSpecies(ctx echo.Context) error {
	username := c.currentUsername(ctx)
	if username == "" {
		return c.HandleError(ctx, nil, "Authentication required", http.StatusUnauthorized)
	}

	var req SpeciesRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	sp := speciesFromRequest(&req)
	sp.AuthorID = username

	sp.Normalize()
	if fieldErrs := sp.Validate(); len(fieldErrs) > 0 {
		c.recordWrite("create", false)
		return c.HandleValidationError(ctx, fieldErrs)
	}

	if err := c.DS.CreateSpecies(ctx.Request().Context(), sp); err != nil {
		c.recordWrite("create", false)
		if isConflict(err) {
			return c.HandleError(ctx, err, "A species with this scientific name already exists", http.StatusConflict)
		}
		return c.HandleError(ctx, err, "Failed to create species", http.StatusInternalServerError)
	}

	c.recordWrite("create", true)
	c.invalidateSpeciesCache()

	return ctx.JSON(http.StatusCreated, c.toResponse(ctx, sp))
}

// UpdateSpecies handles PUT /api/v2/species/:id. Only the species author may
// update a record; authorship is checked before the datastore is touched.
func (c *Controller) UpdateSpecies(ctx echo.Context) error {
	username := c.currentUsername(ctx)
	if username == "" {
		return c.HandleError(ctx, nil, "Authentication required", http.StatusUnauthorized)
	}

	id, err := parseSpeciesID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid species ID", http.StatusBadRequest)
	}

	existing, err := c.DS.GetSpecies(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrSpeciesNotFound) {
			return c.HandleError(ctx, err, "Species not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to retrieve species", http.StatusInternalServerError)
	}

	authorID := existing.AuthorID
	if authorID != username {
		c.recordWrite("update", false)
		return c.HandleError(ctx, nil, "Only the author may edit this species", http.StatusForbidden)
	}

	var req SpeciesRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	sp := speciesFromRequest(&req)
	sp.ID = id
	sp.AuthorID = authorID

	sp.Normalize()
	if fieldErrs := sp.Validate(); len(fieldErrs) > 0 {
		c.recordWrite("update", false)
		return c.HandleValidationError(ctx, fieldErrs)
	}

	if err := c.DS.UpdateSpecies(ctx.Request().Context(), sp); err != nil {
		c.recordWrite("update", false)
		if errors.Is(err, datastore.ErrSpeciesNotFound) {
			return c.HandleError(ctx, err, "Species not found", http.StatusNotFound)
		}
		if isConflict(err) {
			return c.HandleError(ctx, err, "A species with this scientific name already exists", http.StatusConflict)
		}
		return c.HandleError(ctx, err, "Failed to update species", http.StatusInternalServerError)
	}

	c.recordWrite("update", true)
	c.invalidateSpeciesCache()

	updated, err := c.DS.GetSpecies(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to retrieve updated species", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, c.toResponse(ctx, &updated))
}

func speciesFromRequest(req *SpeciesRequest) *datastore.Species {
	return &datastore.Species{
		ScientificName:  req.ScientificName,
		CommonName:      req.CommonName,
		Kingdom:         datastore.Kingdom(req.Kingdom),
		TotalPopulation: req.TotalPopulation,
		ImageURL:        req.ImageURL,
		Description:     req.Description,
	}
}

func parseQueryInt(ctx echo.Context, name string, def int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func parseSpeciesID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func isConflict(err error) bool {
	var enhanced *apperrors.EnhancedError
	if errors.As(err, &enhanced) {
		return enhanced.Category == apperrors.CategoryConflict
	}
	return false
}

func (c *Controller) recordWrite(operation string, ok bool) {
	if c.metrics != nil {
		c.metrics.RecordSpeciesWrite(operation, ok)
	}
}

func (c *Controller) invalidateSpeciesCache() {
	c.speciesCache.Delete(speciesListCacheKey)
}
