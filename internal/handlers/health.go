package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foliotrack/foliotrack/pkg/errors"
	"github.com/foliotrack/foliotrack/pkg/response"
)

// Health returns a simple status payload useful for readiness checks. It
// pings the database so a wedged storage layer fails the check.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			response.Error(c, errors.New("SERVICE_UNAVAILABLE", "Database unreachable", http.StatusServiceUnavailable))
			return
		}

		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
