package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/foliotrack/foliotrack/internal/auth"
	"github.com/foliotrack/foliotrack/internal/models"
	"github.com/foliotrack/foliotrack/pkg/metrics"
)

const (
	defaultCodeExpiry = 10 * time.Minute

	// Codes are drawn uniformly from [100000, 999999]; never zero-padded.
	codeMin  = 100000
	codeSpan = 900000
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithCodeExpiry overrides the code lifetime.
func WithCodeExpiry(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// VerificationService issues six-digit one-time codes bound to an email and
// purpose, and redeems each at most once.
type VerificationService struct {
	db     *gorm.DB
	expiry time.Duration
	now    func() time.Time
}

// NewVerificationService constructs a code store backed by the provided database.
func NewVerificationService(db *gorm.DB, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}

	service := &VerificationService{
		db:     db,
		expiry: defaultCodeExpiry,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue generates a fresh code for the email and purpose and persists it.
// Outstanding codes for the same email and purpose stay valid until they
// expire; any of them will redeem.
func (s *VerificationService) Issue(ctx context.Context, email string, purpose auth.Purpose) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("verification service: email is required")
	}
	if !purpose.Valid() {
		return "", errors.New("verification service: unrecognised purpose")
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("verification service: generate code: %w", err)
	}

	record := models.VerificationCode{
		Email:     email,
		Code:      code,
		Purpose:   string(purpose),
		ExpiresAt: s.now().Add(s.expiry),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("verification service: store code: %w", err)
	}

	metrics.VerificationCodes.WithLabelValues("issued").Inc()

	return code, nil
}

// Redeem consumes a code matching (email, code, purpose). It reports false
// when no record matches or the match has expired, without distinguishing
// the two. On success the record is deleted so it cannot redeem twice.
func (s *VerificationService) Redeem(ctx context.Context, email, code string, purpose auth.Purpose) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var record models.VerificationCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND code = ? AND purpose = ?", email, code, string(purpose)).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.VerificationCodes.WithLabelValues("rejected").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verification service: find code: %w", err)
	}

	if record.ExpiresAt.Before(s.now()) {
		metrics.VerificationCodes.WithLabelValues("rejected").Inc()
		return false, nil
	}

	// The delete-by-id doubles as the single-use check: under concurrent
	// redemption of the same code only one delete reports an affected row.
	result := s.db.WithContext(ctx).
		Where("id = ?", record.ID).
		Delete(&models.VerificationCode{})
	if result.Error != nil {
		return false, fmt.Errorf("verification service: consume code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.VerificationCodes.WithLabelValues("rejected").Inc()
		return false, nil
	}

	metrics.VerificationCodes.WithLabelValues("redeemed").Inc()

	return true, nil
}

// CleanupExpired removes codes past their expiry. Storage hygiene only;
// redemption already checks expiry on read.
func (s *VerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.VerificationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("verification service: cleanup expired codes: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(codeMin+n.Int64(), 10), nil
}
