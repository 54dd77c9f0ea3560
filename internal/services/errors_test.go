package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foliotrack/foliotrack/internal/database/testutil"
	"github.com/foliotrack/foliotrack/internal/models"
)

func TestDuplicateKeyDetection(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	first := models.User{Email: "dup-key@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&first).Error)

	second := models.User{Email: "dup-key@example.com", PasswordHash: "y"}
	err := db.Create(&second).Error
	require.Error(t, err)
	require.True(t, isDuplicateKeyError(err))

	require.False(t, isDuplicateKeyError(nil))
	require.False(t, isDuplicateKeyError(errors.New("connection reset")))
}
