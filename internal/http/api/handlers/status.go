package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shaiyaportal/accountd/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// grbInterval is the God Realm Battle cycle length.
const grbInterval = 6 * time.Hour

// StatusHandler serves server status projections.
type StatusHandler struct {
	db *gorm.DB
}

// NewStatusHandler constructs a StatusHandler.
func NewStatusHandler(db *gorm.DB) *StatusHandler {
	return &StatusHandler{db: db}
}

// ServerStatus reports aggregate server counters. When the store is
// unreachable the endpoint degrades to an OFFLINE payload instead of erroring
// so status pages keep rendering.
func (h *StatusHandler) ServerStatus(c *gin.Context) {
	ctx := c.Request.Context()

	var playersOnline int64
	errPlayers := h.db.WithContext(ctx).
		Model(&models.GameAccount{}).
		Where("status = ?", models.GameStatusOnline).
		Count(&playersOnline).Error

	var totalCharacters int64
	errChars := h.db.WithContext(ctx).
		Model(&models.Character{}).
		Where("del = ?", 0).
		Count(&totalCharacters).Error

	var totalGuilds int64
	errGuilds := h.db.WithContext(ctx).
		Model(&models.Guild{}).
		Count(&totalGuilds).Error

	if errPlayers != nil || errChars != nil || errGuilds != nil {
		log.WithFields(log.Fields{
			"players_err": errPlayers,
			"chars_err":   errChars,
			"guilds_err":  errGuilds,
		}).Warn("status: store unreachable, reporting offline")
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"serverStatus":    "OFFLINE",
				"playersOnline":   0,
				"totalCharacters": 0,
				"totalGuilds":     0,
				"lastUpdate":      time.Now().UTC().Format(time.RFC3339),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"serverStatus":    "ONLINE",
			"playersOnline":   playersOnline,
			"totalCharacters": totalCharacters,
			"totalGuilds":     totalGuilds,
			"lastUpdate":      time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// GRB reports the God Realm Battle schedule derived from the latest world
// snapshot.
func (h *StatusHandler) GRB(c *gin.Context) {
	var info models.WorldInfo
	errFind := h.db.WithContext(c.Request.Context()).
		Order("row_id DESC").
		First(&info).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data": gin.H{
					"status":               "Unknown",
					"timeRemaining":        "N/A",
					"timeRemainingSeconds": 0,
					"lightGodBlessing":     0,
					"darkGodBlessing":      0,
					"lastUpdate":           time.Now().UTC().Format(time.RFC3339),
				},
			})
			return
		}
		log.WithError(errFind).Error("status: load world info failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch GRB status",
		})
		return
	}

	now := time.Now().Unix()
	nextAt := info.LastWorldTime + int64(grbInterval.Seconds())
	remaining := nextAt - now
	if remaining < 0 {
		remaining = 0
	}

	status := "Active"
	if remaining > 0 {
		status = "Scheduled"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"status":               status,
			"timeRemaining":        formatRemaining(remaining),
			"timeRemainingSeconds": remaining,
			"lightGodBlessing":     info.GodBlessLight,
			"darkGodBlessing":      info.GodBlessDark,
			"lastUpdate":           time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// formatRemaining renders seconds as "Xh Ym".
func formatRemaining(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
