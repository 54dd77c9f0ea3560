package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/foliotrack/foliotrack/internal/auth"
	testutil "github.com/foliotrack/foliotrack/internal/database/testutil"
	"github.com/foliotrack/foliotrack/internal/models"
	"github.com/foliotrack/foliotrack/internal/services"
)

func TestRunOnceSweepsExpiredRecords(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC)

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{Clock: func() time.Time { return now }})
	require.NoError(t, err)
	codes, err := services.NewVerificationService(db, services.WithVerificationClock(func() time.Time { return now }))
	require.NoError(t, err)

	user := models.User{Email: "sweeper@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	expiredSession := models.Session{Token: "sweeper-expired", UserID: user.ID, ExpiresAt: now.Add(-time.Hour)}
	activeSession := models.Session{Token: "sweeper-active", UserID: user.ID, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, db.Create(&expiredSession).Error)
	require.NoError(t, db.Create(&activeSession).Error)

	expiredCode := models.VerificationCode{Email: "sweeper@example.com", Code: "111111", Purpose: "signup", ExpiresAt: now.Add(-time.Minute)}
	activeCode := models.VerificationCode{Email: "sweeper@example.com", Code: "222222", Purpose: "signup", ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, db.Create(&expiredCode).Error)
	require.NoError(t, db.Create(&activeCode).Error)

	cleaner := NewCleaner(sessions, codes)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionTokens []string
	require.NoError(t, db.Model(&models.Session{}).Where("user_id = ?", user.ID).Pluck("token", &sessionTokens).Error)
	require.Equal(t, []string{"sweeper-active"}, sessionTokens)

	var codeValues []string
	require.NoError(t, db.Model(&models.VerificationCode{}).Where("email = ?", "sweeper@example.com").Pluck("code", &codeValues).Error)
	require.Equal(t, []string{"222222"}, codeValues)
}

func TestCleanerSkipsNilDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil)
	require.False(t, cleaner.enabled)

	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
	<-cleaner.Stop().Done()
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{})
	require.NoError(t, err)

	cleaner := NewCleaner(sessions, nil, WithSessionSchedule("not-a-spec"))
	require.Error(t, cleaner.Start())
}
