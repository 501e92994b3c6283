// internal/httpcontroller/routes.go
package httpcontroller

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mkarjala/species-atlas/internal/chart"
	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/datastore"
	"github.com/mkarjala/species-atlas/internal/security"
)

//go:embed views/*.html
var ViewsFs embed.FS

// PageRouteConfig defines the structure for each full page route.
type PageRouteConfig struct {
	Path         string
	TemplateName string
	Title        string
	Authorized   bool // Whether the route requires authentication
}

// RenderData is the payload handed to every page template.
type RenderData struct {
	C        echo.Context
	Page     string
	Title    string
	Settings *conf.Settings
	Username string
	Data     any
}

// initRoutes initializes the routes for the server.
func (s *Server) initRoutes() error {
	if err := s.setupTemplateRenderer(); err != nil {
		return err
	}

	s.pageRoutes = map[string]PageRouteConfig{
		"/":            {Path: "/", TemplateName: "speciesList", Title: "Species", Authorized: true},
		"/species/:id": {Path: "/species/:id", TemplateName: "speciesDetail", Title: "Species Detail", Authorized: true},
		"/speed":       {Path: "/speed", TemplateName: "speed", Title: "Animal Speeds", Authorized: true},
	}

	for _, route := range s.pageRoutes {
		if route.Authorized {
			s.Echo.GET(route.Path, s.handlePageRequest, s.AuthMiddleware)
		} else {
			s.Echo.GET(route.Path, s.handlePageRequest)
		}
	}

	s.initAuthRoutes()

	// Prometheus scrape endpoint, enabled alongside webserver debug mode
	if s.Metrics != nil && s.Settings.WebServer.Debug {
		s.Echo.GET("/metrics", s.Metrics.Handler())
	}

	return nil
}

// handlePageRequest dispatches a page route to its data loader and renders
// the page template.
func (s *Server) handlePageRequest(c echo.Context) error {
	route, exists := s.pageRoutes[c.Path()]
	if !exists {
		return echo.NewHTTPError(http.StatusNotFound, "Page not found")
	}

	data := RenderData{
		C:        c,
		Page:     route.TemplateName,
		Title:    route.Title,
		Settings: s.Settings,
		Username: s.AuthService.GetUsername(c),
	}

	var err error
	switch route.TemplateName {
	case "speciesList":
		data.Data, err = s.speciesListData(c)
	case "speciesDetail":
		data.Data, err = s.speciesDetailData(c)
		if errors.Is(err, datastore.ErrSpeciesNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Species not found")
		}
	case "speed":
		data.Data, err = s.speedPageData(c)
	}
	if err != nil {
		s.LogError(c, err, "Failed to load page data")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load page")
	}

	return c.Render(http.StatusOK, route.TemplateName, data)
}

// SpeciesListItem is one row of the species list page.
type SpeciesListItem struct {
	datastore.Species
	Editable bool
}

// SpeciesListData backs the species list template.
type SpeciesListData struct {
	Species  []SpeciesListItem
	Query    string
	Kingdoms []datastore.Kingdom
	Counts   []datastore.KingdomCount
}

func (s *Server) speciesListData(c echo.Context) (any, error) {
	username := s.AuthService.GetUsername(c)
	query := c.QueryParam("q")

	var list []datastore.Species
	var err error
	if query != "" {
		list, err = s.DS.SearchSpecies(c.Request().Context(), query, 100, 0)
	} else {
		list, err = s.DS.GetAllSpecies(c.Request().Context())
	}
	if err != nil {
		return nil, err
	}

	items := make([]SpeciesListItem, 0, len(list))
	for i := range list {
		items = append(items, SpeciesListItem{
			Species:  list[i],
			Editable: username != "" && username == list[i].AuthorID,
		})
	}

	counts, err := s.DS.CountSpeciesByKingdom(c.Request().Context())
	if err != nil {
		return nil, err
	}

	return SpeciesListData{
		Species:  items,
		Query:    query,
		Kingdoms: datastore.Kingdoms,
		Counts:   counts,
	}, nil
}

// SpeciesDetailData backs the read-only detail template.
type SpeciesDetailData struct {
	Species  datastore.Species
	Editable bool
}

func (s *Server) speciesDetailData(c echo.Context) (any, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, datastore.ErrSpeciesNotFound
	}

	sp, err := s.DS.GetSpecies(c.Request().Context(), uint(id))
	if err != nil {
		return nil, err
	}

	username := s.AuthService.GetUsername(c)
	return SpeciesDetailData{Species: sp, Editable: username != "" && username == sp.AuthorID}, nil
}

// SpeedPageData backs the speed chart template. The SVG is rendered server
// side; an empty dataset leaves it empty and the template renders nothing.
type SpeedPageData struct {
	Chart       template.HTML
	RowsTotal   int
	RowsDropped int
}

func (s *Server) speedPageData(c echo.Context) (any, error) {
	rows, stats, err := s.ChartLoader.Load(c.Request().Context())
	if err != nil {
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.RecordChartRows(stats.RowsTotal, stats.RowsDropped)
	}

	return SpeedPageData{
		Chart:       template.HTML(chart.RenderSVG(rows)),
		RowsTotal:   stats.RowsTotal,
		RowsDropped: stats.RowsDropped,
	}, nil
}

// initAuthRoutes registers the login and logout routes.
func (s *Server) initAuthRoutes() {
	s.Echo.GET("/login", s.handleLoginPage)
	s.Echo.POST("/login", s.handleBasicAuthLogin)
	s.Echo.GET("/logout", s.handleLogout)
}

// handleLoginPage renders the login form.
func (s *Server) handleLoginPage(c echo.Context) error {
	redirect := security.ValidateRedirect(c.QueryParam("redirect"))

	return c.Render(http.StatusOK, "login", RenderData{
		C:        c,
		Page:     "login",
		Title:    "Login",
		Settings: s.Settings,
		Data: map[string]any{
			"RedirectURL": redirect,
			"Failed":      c.QueryParam("failed") != "",
		},
	})
}

// handleBasicAuthLogin handles the password login form POST.
func (s *Server) handleBasicAuthLogin(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	redirect := security.ValidateRedirect(c.FormValue("redirect"))

	if err := s.AuthService.AuthenticateBasic(c, username, password); err != nil {
		failed := "1"
		if errors.Is(err, security.ErrRateLimited) {
			failed = "rate"
		}
		return c.Redirect(http.StatusFound, "/login?failed="+failed+"&redirect="+url.QueryEscape(redirect))
	}

	if err := s.AuthService.EstablishSession(c, username); err != nil {
		s.LogError(c, err, "Failed to establish session after login")
		return echo.NewHTTPError(http.StatusInternalServerError, "Login failed")
	}

	return c.Redirect(http.StatusFound, redirect)
}

// handleLogout clears the session and returns to the login page.
func (s *Server) handleLogout(c echo.Context) error {
	if err := s.AuthService.Logout(c); err != nil {
		s.LogError(c, err, "Failed to log out")
	}
	return c.Redirect(http.StatusFound, "/login")
}
