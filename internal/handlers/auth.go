package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/foliotrack/foliotrack/internal/auth"
	"github.com/foliotrack/foliotrack/internal/middleware"
	"github.com/foliotrack/foliotrack/internal/models"
	"github.com/foliotrack/foliotrack/internal/services"
	"github.com/foliotrack/foliotrack/pkg/errors"
	"github.com/foliotrack/foliotrack/pkg/response"
)

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	// Secure marks the cookie HTTPS-only. Off by default so local
	// development over plain HTTP keeps working.
	Secure bool
	Domain string
}

// AuthHandler exposes the signup, reset, login and session endpoints.
type AuthHandler struct {
	identity *services.IdentityService
	cookies  CookieConfig
}

func NewAuthHandler(identity *services.IdentityService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{identity: identity, cookies: cookies}
}

type sendCodeRequest struct {
	Email   string `json:"email" validate:"required"`
	Purpose string `json:"purpose" validate:"required,oneof=signup reset"`
}

// POST /api/auth/send-code
func (h *AuthHandler) SendCode(c *gin.Context) {
	var req sendCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.identity.RequestVerification(c.Request.Context(), req.Email, iauth.Purpose(req.Purpose)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type verifyCodeRequest struct {
	Email   string `json:"email" validate:"required"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
	Purpose string `json:"purpose" validate:"required,oneof=signup reset"`
}

// POST /api/auth/verify-code
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := h.identity.RedeemCode(c.Request.Context(), req.Email, req.Code, iauth.Purpose(req.Purpose))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verification_token": token})
}

type completeSignupRequest struct {
	VerificationToken string `json:"verification_token" validate:"required"`
	Password          string `json:"password" validate:"required"`
	DisplayName       string `json:"display_name" validate:"omitempty,max=50"`
}

// POST /api/auth/complete-signup
func (h *AuthHandler) CompleteSignup(c *gin.Context) {
	var req completeSignupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, user, err := h.identity.CompleteSignup(c.Request.Context(), req.VerificationToken, req.Password, req.DisplayName)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, session)
	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

type resetPasswordRequest struct {
	VerificationToken string `json:"verification_token" validate:"required"`
	Password          string `json:"password" validate:"required"`
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.identity.CompleteReset(c.Request.Context(), req.VerificationToken, req.Password); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, user, err := h.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, session)
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(iauth.SessionCookieName)
	if err == nil && token != "" {
		if err := h.identity.Logout(c.Request.Context(), token); err != nil {
			response.Error(c, err)
			return
		}
	}

	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	v, ok := c.Get(middleware.CtxUserKey)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	user, ok := v.(*models.User)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
	}})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, session *models.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	// The cookie lives exactly as long as the session row.
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetCookie(iauth.SessionCookieName, session.Token, maxAge, "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(iauth.SessionCookieName, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}
