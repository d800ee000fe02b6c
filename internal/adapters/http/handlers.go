package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/app"
	"github.com/dkeye/huddle/internal/domain"
)

// messagesHandler serves a room's history in ascending timestamp
// order, the read clients do at room-join time.
func messagesHandler(orch *app.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := domain.RoomID(c.Param("room"))
		msgs, err := orch.Chat.History(c.Request.Context(), room)
		if err != nil {
			var ve *app.ValidationError
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
				return
			}
			log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("history fetch")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

// usersHandler serves the contact directory minus the requesting user.
func usersHandler(orch *app.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := domain.UserID(c.GetString("user_id"))
		users, err := orch.Users.UsersExcept(c.Request.Context(), uid)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("user list fetch")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed"})
			return
		}
		c.JSON(http.StatusOK, users)
	}
}
