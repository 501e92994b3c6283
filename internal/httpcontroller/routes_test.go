package httpcontroller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/datastore"
	"github.com/mkarjala/species-atlas/internal/security"
)

const testChartURL = "https://data.example.com/animal_speeds.csv"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "Species Atlas"
	settings.WebServer.Port = "0"
	settings.Security.BasicAuth.Enabled = true
	settings.Security.BasicAuth.Username = "curator"
	settings.Security.BasicAuth.Password = "hunter2"
	settings.Security.SessionSecret = "test-secret"
	settings.Security.SessionDuration = time.Hour
	settings.Chart.Source = testChartURL
	settings.Chart.FetchTimeout = 5
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "web_test.db")

	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	sm := security.NewSessionManager(settings)
	srv, err := New(settings, store, sm, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, srv.Shutdown())
	})

	// Intercept the chart CSV fetch and count calls
	httpmock.ActivateNonDefault(srv.ChartLoader.Client)
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodGet, testChartURL,
		httpmock.NewStringResponder(http.StatusOK,
			"Animal,Average Speed (km/h),Diet\nCheetah,120,Carnivore\n"))

	return srv
}

// logIn performs a form login and returns the session cookies.
func logIn(t *testing.T, srv *Server) []*http.Cookie {
	t.Helper()

	form := url.Values{}
	form.Set("username", "curator")
	form.Set("password", "hunter2")
	form.Set("redirect", "/")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func browserGet(srv *Server, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	req.Header.Set("Accept", "text/html")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	return rec
}

func TestSpeedPageRedirectsBeforeFetchingData(t *testing.T) {
	srv := newTestServer(t)

	rec := browserGet(srv, "/speed", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fspeed", rec.Header().Get("Location"))
	assert.Zero(t, httpmock.GetTotalCallCount(), "CSV must not be fetched for unauthenticated requests")
}

func TestSpeedPageRendersChartWhenAuthenticated(t *testing.T) {
	srv := newTestServer(t)
	cookies := logIn(t, srv)

	rec := browserGet(srv, "/speed", cookies)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg")
	assert.Contains(t, rec.Body.String(), "Cheetah")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestSpeedPageEmptyDataset(t *testing.T) {
	srv := newTestServer(t)
	cookies := logIn(t, srv)

	httpmock.RegisterResponder(http.MethodGet, testChartURL,
		httpmock.NewStringResponder(http.StatusOK, "Animal,Average Speed (km/h),Diet\n"))

	rec := browserGet(srv, "/speed", cookies)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<svg")
	assert.Contains(t, rec.Body.String(), "No speed data available")
}

func TestSpeciesListRequiresLogin(t *testing.T) {
	srv := newTestServer(t)

	rec := browserGet(srv, "/", nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login"))
}

func TestSpeciesListShowsEditForOwnRecords(t *testing.T) {
	srv := newTestServer(t)
	cookies := logIn(t, srv)

	seed := func(name, author string) {
		s := &datastore.Species{
			ScientificName: name,
			Kingdom:        datastore.KingdomAnimalia,
			AuthorID:       author,
		}
		require.NoError(t, srv.DS.CreateSpecies(context.Background(), s))
	}
	seed("Panthera leo", "curator")
	seed("Acinonyx jubatus", "someone-else")

	rec := browserGet(srv, "/", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Panthera leo")
	assert.Contains(t, body, "Acinonyx jubatus")
	assert.Equal(t, 1, strings.Count(body, ">Edit<"), "only own records get an edit button")
}

func TestSpeciesDetailPage(t *testing.T) {
	srv := newTestServer(t)
	cookies := logIn(t, srv)

	desc := "Fastest land animal."
	s := &datastore.Species{
		ScientificName: "Acinonyx jubatus",
		Kingdom:        datastore.KingdomAnimalia,
		Description:    &desc,
		AuthorID:       "curator",
	}
	require.NoError(t, srv.DS.CreateSpecies(context.Background(), s))

	rec := browserGet(srv, "/species/1", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acinonyx jubatus")
	assert.Contains(t, rec.Body.String(), "Fastest land animal.")
}

func TestSpeciesDetailNotFound(t *testing.T) {
	srv := newTestServer(t)
	cookies := logIn(t, srv)

	rec := browserGet(srv, "/species/999", cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginPageRendersForm(t *testing.T) {
	srv := newTestServer(t)

	rec := browserGet(srv, "/login?redirect=%2Fspeed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="redirect" value="/speed"`)
}

func TestLoginFailureRedirectsBack(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{}
	form.Set("username", "curator")
	form.Set("password", "wrong")
	form.Set("redirect", "/")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?failed="))
}

func TestLogoutInvalidatesSession(t *testing.T) {
	srv := newTestServer(t)
	cookies := logIn(t, srv)

	rec := browserGet(srv, "/logout", cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// The cleared cookie from the logout response replaces the session
	cleared := rec.Result().Cookies()
	rec = browserGet(srv, "/", cleared)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login"))
}
