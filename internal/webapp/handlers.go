package webapp

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/guildgate/guildgate-bot/internal/storage"
)

// Handler serves the read-mostly query facade over the snapshot store.
type Handler struct {
	Store *storage.Store
}

// PendingApplications lists pending applications, oldest first.
func (h *Handler) PendingApplications(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.PendingApplications())
}

// Insights returns aggregate application statistics.
func (h *Handler) Insights(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Statistics())
}

// ApplicationStatus returns the durable status record for one user.
func (h *Handler) ApplicationStatus(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	entry, ok := h.Store.Status(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no application history"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Admins lists admin profiles.
func (h *Handler) Admins(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Admins())
}

// AddAdmin promotes a user, merging profile metadata.
func (h *Handler) AddAdmin(c *gin.Context) {
	var input struct {
		UserID   int64  `json:"user_id" binding:"required"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.Store.AddAdmin(input.UserID, input.Username, input.FullName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// RemoveAdmin demotes a user.
func (h *Handler) RemoveAdmin(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	removed, err := h.Store.RemoveAdmin(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "not an admin"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// Leaderboard returns the XP leaderboard for a chat.
func (h *Handler) Leaderboard(c *gin.Context) {
	chatID, limit, ok := chatQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Store.Leaderboard(chatID, limit))
}

// Cups returns a chat's trophy history, newest first.
func (h *Handler) Cups(c *gin.Context) {
	chatID, limit, ok := chatQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Store.Cups(chatID, limit))
}

func chatQuery(c *gin.Context) (chatID int64, limit int, ok bool) {
	chatID, err := strconv.ParseInt(c.Query("chat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat_id"})
		return 0, 0, false
	}

	limit = 10
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return 0, 0, false
		}
	}

	return chatID, limit, true
}
