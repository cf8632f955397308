package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"turtlecrossing/internal/services"
	"turtlecrossing/internal/utils"
	"turtlecrossing/internal/voting"
)

type VoteHandler struct {
	engine  *voting.Engine
	stories *services.StoryService
}

func NewVoteHandler(engine *voting.Engine, stories *services.StoryService) *VoteHandler {
	return &VoteHandler{engine: engine, stories: stories}
}

type voteState struct {
	Up        int    `json:"up"`
	Down      int    `json:"down"`
	Direction int8   `json:"direction"` // 0 when the user has not voted
	Reason    string `json:"reason"`
}

type reasonJSON struct {
	ID          uint   `json:"id,omitempty"`
	Direction   int8   `json:"direction"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// loadItem finds the votable object named by the :type and :id params.
func (h *VoteHandler) loadItem(c *gin.Context) (voting.Item, error) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		return nil, services.ErrStoryNotFound
	}
	ctx := c.Request.Context()
	switch ct := c.Param("type"); ct {
	case "story":
		return h.stories.Get(ctx, id)
	case "comment":
		return h.stories.GetComment(ctx, id)
	default:
		return nil, &voting.NotVotableError{ContentType: ct}
	}
}

// Vote places or changes the current user's vote. Form fields: direction
// ("1" or "-1") and reason.
func (h *VoteHandler) Vote(c *gin.Context) {
	user := currentUser(c)
	dir, err := voting.ParseDirection(c.PostForm("direction"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	reason := c.PostForm("reason")

	item, err := h.loadItem(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	votes, err := h.engine.Votes(item)
	if err != nil {
		abortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	_, err = votes.AddVote(ctx, user.ID, dir, reason)
	if errors.Is(err, voting.ErrVoteConflict) {
		// A concurrent request created the vote first; this attempt updates it.
		slog.Info("retrying conflicting vote", "content_type", item.VotableType(), "object_id", item.VotableID(), "user_id", user.ID)
		_, err = votes.AddVote(ctx, user.ID, dir, reason)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.respond(ctx, c, votes, user.ID)
}

// RemoveVote withdraws the current user's vote, if any.
func (h *VoteHandler) RemoveVote(c *gin.Context) {
	user := currentUser(c)
	item, err := h.loadItem(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	votes, err := h.engine.Votes(item)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := votes.RemoveVote(ctx, user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	h.respond(ctx, c, votes, user.ID)
}

// Reasons lists the reasons that may be given when voting on the item.
func (h *VoteHandler) Reasons(c *gin.Context) {
	item, err := h.loadItem(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	votes, err := h.engine.Votes(item)
	if err != nil {
		abortWithError(c, err)
		return
	}
	reasons, err := votes.Reasons(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]reasonJSON, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, reasonJSON{ID: r.ID, Direction: r.Direction, Reason: r.Reason, Description: r.Description()})
	}
	c.JSON(http.StatusOK, gin.H{
		"content_type":      item.VotableType(),
		"downvotes_allowed": votes.Settings().DownvotesAllowed(),
		"reasons":           out,
	})
}

func (h *VoteHandler) respond(ctx context.Context, c *gin.Context, votes *voting.Votes, userID uint) {
	if !wantsJSON(c) {
		c.Redirect(http.StatusFound, backTo(c))
		return
	}
	up, down, err := votes.GetVoteCounts(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	state := voteState{Up: up, Down: down}
	vote, err := votes.GetUserVote(ctx, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if vote != nil {
		state.Direction = vote.Direction
		state.Reason = vote.Reason
	}
	c.JSON(http.StatusOK, state)
}

// backTo is the local page the request came from, or the front page.
func backTo(c *gin.Context) string {
	if next := c.PostForm("next"); len(next) > 1 && next[0] == '/' && next[1] != '/' {
		return next
	}
	return "/"
}
