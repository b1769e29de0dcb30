package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/taskdeck/taskdeck-api/internal/authz"
	"github.com/taskdeck/taskdeck-api/internal/constants"
	"github.com/taskdeck/taskdeck-api/internal/database"
	apierrors "github.com/taskdeck/taskdeck-api/internal/errors"
	"github.com/taskdeck/taskdeck-api/internal/models"
)

// RequireAuth checks the session and loads the acting user. The user's id
// and role are stored in the request context as an ActorContext so handlers
// never read session state themselves.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)

		if userID == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		id, ok := toUint64(userID)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var user models.User
		if err := database.GetDB().First(&user, id).Error; err != nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyActor, authz.ActorContext{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetActor retrieves the current actor from context
func GetActor(c *gin.Context) (authz.ActorContext, bool) {
	v, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return authz.ActorContext{}, false
	}
	actor, ok := v.(authz.ActorContext)
	return actor, ok
}

func toUint64(v interface{}) (uint64, bool) {
	switch value := v.(type) {
	case uint64:
		return value, true
	case uint:
		return uint64(value), true
	case int:
		if value < 0 {
			return 0, false
		}
		return uint64(value), true
	default:
		return 0, false
	}
}
