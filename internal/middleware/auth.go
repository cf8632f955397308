package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"turtlecrossing/internal/models"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
)

// CurrentUser returns the logged-in user set by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if u, ok := c.Get(CheckUserKey); ok {
		if user, ok := u.(*models.User); ok {
			return user
		}
	}
	return nil
}

// LoadUser retrieves the user from the session and sets it on the context.
// Sessions of deleted or deactivated users are cleared.
func LoadUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserKey)
		if userID == nil {
			c.Next()
			return
		}

		var user models.User
		err := db.WithContext(c.Request.Context()).First(&user, userID).Error
		if err == nil && user.IsActive {
			c.Set(CheckUserKey, &user)
		} else {
			session.Delete(SessionUserKey)
			_ = session.Save()
		}
		c.Next()
	}
}

// AuthRequired ensures a user is logged in. Page requests are redirected to
// the login form; HTMX and JSON requests get a 401.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		if c.GetHeader("HX-Request") != "" || c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
			c.Header("HX-Redirect", "/login")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Redirect(http.StatusFound, "/login?next="+c.Request.URL.Path)
		c.Abort()
	}
}

// StaffRequired lets only staff through. Use after AuthRequired.
func StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff only"})
			return
		}
		c.Next()
	}
}
