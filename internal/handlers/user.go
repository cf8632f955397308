package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"turtlecrossing/internal/services"
	"turtlecrossing/internal/utils"
)

type UserHandler struct {
	users   *services.UserService
	stories *services.StoryService
	karma   *services.KarmaService
	clock   clockwork.Clock
}

func NewUserHandler(users *services.UserService, stories *services.StoryService, karma *services.KarmaService, clock clockwork.Clock) *UserHandler {
	return &UserHandler{users: users, stories: stories, karma: karma, clock: clock}
}

// Profile is the public page of a user, /u/:username.
func (h *UserHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.users.GetByUsername(ctx, c.Param("username"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	stories, err := h.stories.BySubmitter(ctx, user.ID, 50)
	if err != nil {
		abortWithError(c, err)
		return
	}

	data := gin.H{
		"User":      user,
		"Stories":   stories,
		"Avatar":    utils.GravatarURL(user.AvatarEmail(), 80),
		"DaysSince": utils.GetDaysSinceJoined(user.DateJoined, h.clock.Now()),
		"Biography": utils.RenderMarkdown(user.Biography),
	}
	// Karma history is only shown to its owner.
	if me := currentUser(c); me != nil && me.ID == user.ID {
		history, err := h.karma.History(ctx, user.ID, 20)
		if err != nil {
			abortWithError(c, err)
			return
		}
		data["KarmaLog"] = history
	}
	Render(c, http.StatusOK, "user/public.html", data)
}
