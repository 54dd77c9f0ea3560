package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foliotrack/foliotrack/internal/auth"
	"github.com/foliotrack/foliotrack/internal/models"
	"github.com/foliotrack/foliotrack/pkg/crypto"
	apperrors "github.com/foliotrack/foliotrack/pkg/errors"
	"github.com/foliotrack/foliotrack/pkg/logger"
	"github.com/foliotrack/foliotrack/pkg/mail"
	"github.com/foliotrack/foliotrack/pkg/metrics"
)

// PublicUser is the user view exposed to clients: never the password hash.
type PublicUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// IdentityService sequences the signup and password-reset flows:
// request code -> redeem code -> set password, bridged by a signed token.
// It owns no state of its own; every check re-reads the database.
type IdentityService struct {
	db       *gorm.DB
	codes    *VerificationService
	tokens   *auth.TokenService
	sessions *auth.SessionService
	mailer   mail.Mailer
	log      *zap.Logger
}

// NewIdentityService constructs the orchestrator with its collaborators.
func NewIdentityService(db *gorm.DB, codes *VerificationService, tokens *auth.TokenService, sessions *auth.SessionService, mailer mail.Mailer) (*IdentityService, error) {
	if db == nil {
		return nil, errors.New("identity service: db is required")
	}
	if codes == nil {
		return nil, errors.New("identity service: verification service is required")
	}
	if tokens == nil {
		return nil, errors.New("identity service: token service is required")
	}
	if sessions == nil {
		return nil, errors.New("identity service: session service is required")
	}

	return &IdentityService{
		db:       db,
		codes:    codes,
		tokens:   tokens,
		sessions: sessions,
		mailer:   mailer,
		log:      logger.WithModule("identity"),
	}, nil
}

// RequestVerification validates the email, checks it against the flow
// (unclaimed for signup, registered for reset), then issues a code and
// dispatches it out of band.
func (s *IdentityService) RequestVerification(ctx context.Context, email string, purpose auth.Purpose) error {
	email = normalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return err
	}

	registered, err := s.emailRegistered(ctx, email)
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	switch purpose {
	case auth.PurposeSignup:
		if registered {
			return apperrors.ErrEmailTaken
		}
	case auth.PurposeReset:
		if !registered {
			return apperrors.ErrEmailNotFound
		}
	default:
		return apperrors.NewBadRequest("Invalid request data")
	}

	code, err := s.codes.Issue(ctx, email, purpose)
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	if err := s.deliverCode(ctx, email, code); err != nil {
		// The stored code is orphaned but harmless: it expires unused.
		s.log.Error("verification code delivery failed",
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
		return apperrors.ErrDeliveryFailed
	}

	return nil
}

// RedeemCode consumes a one-time code and returns the signed token bridging
// to the password step. The server keeps no record of "this email completed
// verification"; the token is trusted exclusively.
func (s *IdentityService) RedeemCode(ctx context.Context, email, code string, purpose auth.Purpose) (string, error) {
	email = normalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return "", err
	}

	ok, err := s.codes.Redeem(ctx, email, code, purpose)
	if err != nil {
		return "", apperrors.ErrInternalServer.WithInternal(err)
	}
	if !ok {
		return "", apperrors.ErrCodeInvalid
	}

	token, err := s.tokens.Mint(email, purpose)
	if err != nil {
		return "", apperrors.ErrInternalServer.WithInternal(err)
	}

	return token, nil
}

// CompleteSignup verifies the bridging token, creates the credential, and
// issues a session.
func (s *IdentityService) CompleteSignup(ctx context.Context, token, password, displayName string) (*models.Session, *PublicUser, error) {
	payload, err := s.tokens.Verify(token)
	if err != nil || payload.Purpose != auth.PurposeSignup {
		return nil, nil, apperrors.ErrVerificationInvalid
	}

	if err := auth.ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	// Re-check: a concurrent signup may have claimed the email since the
	// code was redeemed. The unique index on users.email is the final
	// arbiter for races that slip past this read.
	registered, err := s.emailRegistered(ctx, payload.Email)
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	if registered {
		return nil, nil, apperrors.ErrEmailTaken
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = localPart(payload.Email)
	}

	user := models.User{
		Email:        payload.Email,
		PasswordHash: hash,
		DisplayName:  displayName,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, nil, apperrors.ErrEmailTaken
		}
		return nil, nil, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("create user: %w", err))
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	s.log.Info("signup completed", zap.String("user_id", user.ID))

	return session, publicView(&user), nil
}

// CompleteReset verifies the bridging token and overwrites the password hash
// in place. Outstanding sessions for the user remain valid.
func (s *IdentityService) CompleteReset(ctx context.Context, token, password string) error {
	payload, err := s.tokens.Verify(token)
	if err != nil || payload.Purpose != auth.PurposeReset {
		return apperrors.ErrVerificationInvalid
	}

	if err := auth.ValidatePassword(password); err != nil {
		return err
	}

	var user models.User
	err = s.db.WithContext(ctx).Take(&user, "email = ?", payload.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error; err != nil {
		return apperrors.ErrInternalServer.WithInternal(fmt.Errorf("update password: %w", err))
	}

	s.log.Info("password reset completed", zap.String("user_id", user.ID))

	return nil
}

// Login verifies the credential and issues a session. Unknown email and
// wrong password collapse to the same error.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*models.Session, *PublicUser, error) {
	email = normalizeEmail(email)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	return session, publicView(&user), nil
}

// Logout destroys the presented session. Idempotent.
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return apperrors.ErrInternalServer.WithInternal(err)
	}
	return nil
}

// CurrentUser resolves a session token to its public user view. Absent and
// expired sessions both return nil without error.
func (s *IdentityService) CurrentUser(ctx context.Context, token string) (*PublicUser, error) {
	user, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionExpired) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	return publicView(user), nil
}

func (s *IdentityService) emailRegistered(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lookup email: %w", err)
	}
	return count > 0, nil
}

func (s *IdentityService) deliverCode(ctx context.Context, email, code string) error {
	if s.mailer == nil {
		s.log.Warn("no mailer configured; verification code not delivered", zap.String("code", code))
		return nil
	}

	msg := mail.Message{
		To:      []string{email},
		Subject: "Your verification code - Foliotrack",
		Body:    codeEmailBody(code),
		HTML:    true,
	}

	err := s.mailer.Send(ctx, msg)
	if errors.Is(err, mail.ErrSMTPDisabled) {
		// Development behaviour: surface the code in the logs instead.
		s.log.Warn("smtp disabled; verification code not delivered", zap.String("code", code))
		return nil
	}
	return err
}

func codeEmailBody(code string) string {
	return fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 400px; margin: 0 auto;">
  <h2>Your verification code</h2>
  <p>Use this 6-digit code to verify your email:</p>
  <p style="font-size: 32px; font-weight: bold; letter-spacing: 8px;">%s</p>
  <p>This code expires in 10 minutes. If you didn't request this, you can ignore this email.</p>
</div>`, code)
}

func publicView(user *models.User) *PublicUser {
	return &PublicUser{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
