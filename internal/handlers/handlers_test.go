package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"turtlecrossing/internal/models"
	"turtlecrossing/internal/services"
	"turtlecrossing/internal/voting"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&voting.NotVotableError{ContentType: "poll"}, http.StatusNotFound},
		{services.ErrStoryNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrUserNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: nope", voting.ErrInvalidVote), http.StatusBadRequest},
		{voting.ErrInvalidReason, http.StatusBadRequest},
		{models.ErrStoryBoth, http.StatusBadRequest},
		{services.ErrWeakPassword, http.StatusBadRequest},
		{voting.ErrVoteConflict, http.StatusConflict},
		{services.ErrUsernameTaken, http.StatusConflict},
		{&voting.ConfigError{ContentType: "story", Msg: "broken"}, http.StatusInternalServerError},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}

func TestBackToOnlyFollowsLocalPaths(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) { c.String(http.StatusOK, backTo(c)) })

	for next, want := range map[string]string{
		"/s/4":               "/s/4",
		"":                   "/",
		"/":                  "/",
		"//evil.example.com": "/",
		"https://evil.com":   "/",
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("next="+next))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Body.String(), next)
	}
}

func TestAbortWithErrorHidesServerErrors(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { abortWithError(c, fmt.Errorf("pq: password authentication failed")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"something went wrong"}`, w.Body.String())
}
