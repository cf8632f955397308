package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"turtlecrossing/internal/models"
	"turtlecrossing/internal/services"
	"turtlecrossing/internal/utils"
	"turtlecrossing/internal/voting"
)

const storiesPerPage = 30

type StoryHandler struct {
	stories *services.StoryService
	engine  *voting.Engine
}

func NewStoryHandler(stories *services.StoryService, engine *voting.Engine) *StoryHandler {
	return &StoryHandler{stories: stories, engine: engine}
}

func pageParam(c *gin.Context) int {
	if p := utils.StringToInt(c.Query("page")); p > 0 {
		return p
	}
	return 1
}

// ListTop is the front page: hottest stories first.
func (h *StoryHandler) ListTop(c *gin.Context) {
	page := pageParam(c)
	stories, err := h.stories.FrontPage(c.Request.Context(), page, storiesPerPage)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.renderList(c, "top", page, stories)
}

// ListNew shows the latest stories.
func (h *StoryHandler) ListNew(c *gin.Context) {
	page := pageParam(c)
	stories, err := h.stories.Newest(c.Request.Context(), page, storiesPerPage)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.renderList(c, "new", page, stories)
}

func (h *StoryHandler) renderList(c *gin.Context, tab string, page int, stories []models.Story) {
	Render(c, http.StatusOK, "story/list.html", gin.H{
		"Tab":      tab,
		"Stories":  stories,
		"Page":     page,
		"Offset":   (page - 1) * storiesPerPage,
		"HasNext":  len(stories) == storiesPerPage,
		"PrevPage": page - 1,
		"NextPage": page + 1,
	})
}

// Detail shows a story with its comments and the reasons a reader may
// give when voting on it.
func (h *StoryHandler) Detail(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		abortWithError(c, services.ErrStoryNotFound)
		return
	}
	ctx := c.Request.Context()
	story, err := h.stories.Get(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	comments, err := h.stories.Comments(ctx, story.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	votes, err := h.engine.Votes(story)
	if err != nil {
		abortWithError(c, err)
		return
	}
	reasons, err := votes.Reasons(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}

	data := gin.H{
		"Story":    story,
		"Comments": comments,
		"Reasons":  reasons,
	}
	if user := currentUser(c); user != nil {
		vote, err := votes.GetUserVote(ctx, user.ID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		data["UserVote"] = vote
	}

	session := sessions.Default(c)
	if flashes := session.Flashes(); len(flashes) > 0 {
		data["Flashes"] = flashes
		_ = session.Save()
	}
	Render(c, http.StatusOK, "story/detail.html", data)
}

func (h *StoryHandler) ShowCreate(c *gin.Context) {
	Render(c, http.StatusOK, "story/create.html", nil)
}

// Create submits a story. A link submitted again within the duplicate
// window leads to the earlier story instead.
func (h *StoryHandler) Create(c *gin.Context) {
	draft := &models.Story{
		Title: c.PostForm("title"),
		URL:   c.PostForm("url"),
		Text:  c.PostForm("text"),
	}
	story, duplicate, err := h.stories.Submit(c.Request.Context(), currentUser(c), draft)
	if err != nil {
		if code := errorStatus(err); code == http.StatusBadRequest {
			Render(c, code, "story/create.html", gin.H{"Error": err.Error(), "Draft": draft})
			return
		}
		abortWithError(c, err)
		return
	}
	if duplicate {
		session := sessions.Default(c)
		session.AddFlash("This link was submitted recently; here is the earlier story.")
		_ = session.Save()
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/s/%d", story.ID))
}

func (h *StoryHandler) CreateComment(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		abortWithError(c, services.ErrStoryNotFound)
		return
	}
	comment, err := h.stories.AddComment(c.Request.Context(), currentUser(c), id, c.PostForm("text"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/s/%d#c%d", id, comment.ID))
}
