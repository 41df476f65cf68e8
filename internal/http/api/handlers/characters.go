package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shaiyaportal/accountd/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Ranking board limits.
const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

// CharacterHandler serves character listings and ranking boards.
type CharacterHandler struct {
	db *gorm.DB
}

// NewCharacterHandler constructs a CharacterHandler.
func NewCharacterHandler(db *gorm.DB) *CharacterHandler {
	return &CharacterHandler{db: db}
}

// ListByUser returns the non-deleted characters of a game account.
func (h *CharacterHandler) ListByUser(c *gin.Context) {
	uid, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("uid")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "UserUID is required"})
		return
	}

	var rows []models.Character
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_uid = ? AND del = ?", uid, 0).
		Order("slot ASC").
		Find(&rows).Error; errFind != nil {
		log.WithError(errFind).Error("characters: list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch characters"})
		return
	}

	characters := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		characters = append(characters, gin.H{
			"id":      row.CharID,
			"name":    row.CharName,
			"level":   row.Level,
			"job":     models.JobName(row.Job),
			"faction": models.FactionName(row.Family),
			"gold":    row.Money,
			"map":     row.Map,
			"slot":    row.Slot,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"characters": characters,
			"count":      len(characters),
		},
	})
}

// Rankings returns a character leaderboard. Supported types: level, kills;
// anything else falls back to the level board.
func (h *CharacterHandler) Rankings(c *gin.Context) {
	limit := rankingLimit(c.Query("limit"))

	q := h.db.WithContext(c.Request.Context()).
		Model(&models.Character{}).
		Where("del = ?", 0).
		Limit(limit)

	boardType := strings.TrimSpace(c.Param("type"))
	switch boardType {
	case "kills":
		q = q.Order("kills DESC, char_id ASC")
	default:
		q = q.Order("level DESC, char_id ASC")
	}

	var rows []models.Character
	if errFind := q.Find(&rows).Error; errFind != nil {
		log.WithError(errFind).Error("rankings: query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch rankings"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		entry := gin.H{
			"CharName": row.CharName,
			"Level":    row.Level,
			"Job":      row.Job,
		}
		switch boardType {
		case "kills":
			entry["Kills"] = row.Kills
			entry["Deaths"] = row.Deaths
		default:
			entry["Family"] = row.Family
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

// guildRankingRow carries the aggregated guild ranking projection.
type guildRankingRow struct {
	GuildName   string `json:"GuildName"`
	Rank        int    `json:"Rank"`
	MemberCount int64  `json:"MemberCount"`
}

// GuildRankings returns guilds ordered by rank with member counts.
func (h *CharacterHandler) GuildRankings(c *gin.Context) {
	limit := rankingLimit(c.Query("limit"))

	var rows []guildRankingRow
	if errFind := h.db.WithContext(c.Request.Context()).
		Model(&models.Guild{}).
		Select("guilds.guild_name, guilds.rank, COUNT(guild_chars.char_id) AS member_count").
		Joins("LEFT JOIN guild_chars ON guild_chars.guild_id = guilds.guild_id").
		Group("guilds.guild_name, guilds.rank").
		Order("guilds.rank DESC").
		Limit(limit).
		Scan(&rows).Error; errFind != nil {
		log.WithError(errFind).Error("rankings: guild query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch guild rankings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows})
}

// rankingLimit parses and caps the limit query parameter.
func rankingLimit(raw string) int {
	limit, errParse := strconv.Atoi(strings.TrimSpace(raw))
	if errParse != nil || limit <= 0 {
		return defaultRankingLimit
	}
	if limit > maxRankingLimit {
		return maxRankingLimit
	}
	return limit
}
