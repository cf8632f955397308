package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"turtlecrossing/internal/utils"
	"turtlecrossing/internal/voting"
)

// AdminHandler lets staff manage vote reasons.
type AdminHandler struct {
	reasons *voting.Registry
}

func NewAdminHandler(reasons *voting.Registry) *AdminHandler {
	return &AdminHandler{reasons: reasons}
}

func (h *AdminHandler) ListReasons(c *gin.Context) {
	reasons, err := h.reasons.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]reasonJSON, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, reasonJSON{ID: r.ID, Direction: r.Direction, Reason: r.Reason, Description: r.String()})
	}
	c.JSON(http.StatusOK, gin.H{"reasons": out})
}

// SaveReason creates a reason, or updates it when the form carries an id.
func (h *AdminHandler) SaveReason(c *gin.Context) {
	ctx := c.Request.Context()
	dir, err := voting.ParseDirection(c.PostForm("direction"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	reason := &voting.VoteReason{}
	if idStr := c.PostForm("id"); idStr != "" {
		id, ok := utils.ParseID(idStr)
		if !ok {
			abortWithError(c, voting.ErrInvalidReason)
			return
		}
		existing, err := h.reasons.Find(ctx, id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if existing == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "reason not found"})
			return
		}
		reason = existing
	}
	reason.ContentType = c.PostForm("content_type")
	reason.Direction = int8(dir)
	reason.Reason = c.PostForm("reason")

	if err := h.reasons.Save(ctx, reason); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reasonJSON{ID: reason.ID, Direction: reason.Direction, Reason: reason.Reason, Description: reason.String()})
}

func (h *AdminHandler) DeleteReason(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "reason not found"})
		return
	}
	reason, err := h.reasons.Find(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if reason == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "reason not found"})
		return
	}
	if err := h.reasons.Delete(ctx, reason); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

