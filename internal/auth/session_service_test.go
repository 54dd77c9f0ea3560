package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foliotrack/foliotrack/internal/database/testutil"
	"github.com/foliotrack/foliotrack/internal/models"
)

func TestSessionLifecycle(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	current := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	svc, err := NewSessionService(db, SessionConfig{Clock: func() time.Time { return current }})
	require.NoError(t, err)

	user := models.User{Email: "session-owner@example.com", PasswordHash: "x", DisplayName: "owner"}
	require.NoError(t, db.Create(&user).Error)

	session, err := svc.Create(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, current.Add(DefaultSessionTTL), session.ExpiresAt)

	resolved, err := svc.Resolve(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
	require.Equal(t, "session-owner@example.com", resolved.Email)

	require.NoError(t, svc.Destroy(context.Background(), session.Token))

	_, err = svc.Resolve(context.Background(), session.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// Destroy is idempotent.
	require.NoError(t, svc.Destroy(context.Background(), session.Token))
}

func TestSessionLazyExpiry(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	current := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	svc, err := NewSessionService(db, SessionConfig{Clock: func() time.Time { return current }})
	require.NoError(t, err)

	user := models.User{Email: "expiring@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	session, err := svc.Create(context.Background(), user.ID)
	require.NoError(t, err)

	current = current.Add(DefaultSessionTTL + time.Minute)

	_, err = svc.Resolve(context.Background(), session.Token)
	require.ErrorIs(t, err, ErrSessionExpired)

	// The expired row is still on disk until swept.
	var count int64
	require.NoError(t, db.Model(&models.Session{}).Where("token = ?", session.Token).Count(&count).Error)
	require.EqualValues(t, 1, count)

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, removed, int64(1))
}

func TestSessionMultipleConcurrentSessionsPerUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)

	user := models.User{Email: "multi-session@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	first, err := svc.Create(context.Background(), user.ID)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	// Both resolve independently; destroying one leaves the other intact.
	require.NoError(t, svc.Destroy(context.Background(), first.Token))

	resolved, err := svc.Resolve(context.Background(), second.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
}
