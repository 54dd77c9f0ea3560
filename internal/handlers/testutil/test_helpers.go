package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foliotrack/foliotrack/internal/api"
	iauth "github.com/foliotrack/foliotrack/internal/auth"
	sharedtestutil "github.com/foliotrack/foliotrack/internal/database/testutil"
	"github.com/foliotrack/foliotrack/internal/services"
	"github.com/foliotrack/foliotrack/pkg/mail"
	"github.com/foliotrack/foliotrack/pkg/response"
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// CaptureMailer records outbound messages instead of sending them.
type CaptureMailer struct {
	Sent []mail.Message
}

func (m *CaptureMailer) Send(_ context.Context, msg mail.Message) error {
	m.Sent = append(m.Sent, msg)
	return nil
}

// LastCode extracts the six-digit code from the most recent message.
func (m *CaptureMailer) LastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.Sent)
	match := codePattern.FindStringSubmatch(m.Sent[len(m.Sent)-1].Body)
	require.Len(t, match, 2)
	return match[1]
}

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests. Session cookies from responses are captured and replayed
// on subsequent requests, mimicking a browser.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Mailer *CaptureMailer

	sessionCookie *http.Cookie
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t)

	codes, err := services.NewVerificationService(db)
	require.NoError(t, err)
	tokens, err := iauth.NewTokenService([]byte("test-suite-signing-secret"), iauth.TokenConfig{})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{})
	require.NoError(t, err)

	mailer := &CaptureMailer{}
	identity, err := services.NewIdentityService(db, codes, tokens, sessions, mailer)
	require.NoError(t, err)

	router, err := api.NewRouter(db, identity, sessions, api.Options{})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		Mailer: mailer,
	}
}

// Signup drives the full signup flow and leaves the session cookie captured.
func (e *Env) Signup(email, password string) {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/send-code", map[string]string{
		"email": email, "purpose": "signup",
	})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	w = e.Request(http.MethodPost, "/api/auth/verify-code", map[string]string{
		"email": email, "code": e.Mailer.LastCode(e.T), "purpose": "signup",
	})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	var verified struct {
		VerificationToken string `json:"verification_token"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &verified)
	require.NotEmpty(e.T, verified.VerificationToken)

	w = e.Request(http.MethodPost, "/api/auth/complete-signup", map[string]string{
		"verification_token": verified.VerificationToken,
		"password":           password,
	})
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(e.T, e.sessionCookie)
}

// ClearSession drops the captured session cookie.
func (e *Env) ClearSession() {
	e.sessionCookie = nil
}

// SessionToken returns the captured session token, or "" when none is held.
func (e *Env) SessionToken() string {
	if e.sessionCookie == nil {
		return ""
	}
	return e.sessionCookie.Value
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON
// encoding and the captured session cookie automatically.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.sessionCookie != nil {
		req.AddCookie(e.sessionCookie)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	e.captureSessionCookie(w.Result())
	return w
}

func (e *Env) captureSessionCookie(resp *http.Response) {
	if resp == nil {
		return
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name != iauth.SessionCookieName {
			continue
		}
		if c.Value == "" || c.MaxAge < 0 {
			e.sessionCookie = nil
		} else {
			e.sessionCookie = &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path}
		}
		break
	}
}
