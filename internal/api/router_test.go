package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foliotrack/foliotrack/internal/api"
	iauth "github.com/foliotrack/foliotrack/internal/auth"
	"github.com/foliotrack/foliotrack/internal/database/testutil"
	"github.com/foliotrack/foliotrack/internal/services"
)

func newRouter(t *testing.T, opts api.Options) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	codes, err := services.NewVerificationService(db)
	require.NoError(t, err)
	tokens, err := iauth.NewTokenService([]byte("router-test-secret"), iauth.TokenConfig{})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{})
	require.NoError(t, err)
	identity, err := services.NewIdentityService(db, codes, tokens, sessions, nil)
	require.NoError(t, err)

	r, err := api.NewRouter(db, identity, sessions, opts)
	require.NoError(t, err)
	return r, db
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterHealth(t *testing.T) {
	r, _ := newRouter(t, api.Options{})

	w := get(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRouterMetricsGated(t *testing.T) {
	r, _ := newRouter(t, api.Options{})
	require.Equal(t, http.StatusNotFound, get(r, "/metrics").Code)

	enabled, _ := newRouter(t, api.Options{EnableMetrics: true})
	w := get(enabled, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "foliotrack_")
}

func TestRouterUnknownRouteJSON(t *testing.T) {
	r, _ := newRouter(t, api.Options{})

	w := get(r, "/api/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), `"success":false`)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouterRejectsNilCollaborators(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	_, err := api.NewRouter(db, nil, nil, api.Options{})
	require.Error(t, err)
}
