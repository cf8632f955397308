package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"turtlecrossing/internal/middleware"
	"turtlecrossing/internal/models"
	"turtlecrossing/internal/services"
	"turtlecrossing/internal/voting"
)

// Render injects the common page variables and renders a template.
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	obj["CurrentPath"] = c.Request.URL.Path
	c.HTML(code, name, obj)
}

func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Code": code})
}

// wantsJSON is true for HTMX and API requests.
func wantsJSON(c *gin.Context) bool {
	return c.GetHeader("HX-Request") != "" ||
		strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}

// errorStatus maps service and voting errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, voting.ErrNotVotable),
		errors.Is(err, services.ErrStoryNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, voting.ErrVoteConflict),
		errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, voting.ErrInvalidVote),
		errors.Is(err, voting.ErrInvalidReason),
		isValidationError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isValidationError(err error) bool {
	for _, target := range []error{
		models.ErrStoryTitle, models.ErrStoryNeither, models.ErrStoryBoth, models.ErrStoryURL,
		models.ErrEmptyComment, models.ErrInvalidUsername, models.ErrFullNameTooLong,
		services.ErrWeakPassword, services.ErrInvalidEmail,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// abortWithError replies with the status matching err. Server errors are
// logged and hidden from the client.
func abortWithError(c *gin.Context, err error) {
	code := errorStatus(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(middleware.RequestIDKey),
			"error", err)
		message = "something went wrong"
	}
	if wantsJSON(c) {
		c.AbortWithStatusJSON(code, gin.H{"error": message})
		return
	}
	RenderError(c, code, message)
	c.Abort()
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}
