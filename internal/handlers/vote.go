package handlers

import (
	"errors"
	"net/http"

	"driftwood/internal/services"
	"driftwood/internal/utils"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	voteService *services.VoteService
}

func NewVoteHandler() *VoteHandler {
	return &VoteHandler{
		voteService: services.NewVoteService(),
	}
}

// Cast records the caller's vote on a post. Any value other than -1 counts
// as an upvote; re-casting the same vote is a no-op.
func (h *VoteHandler) Cast(c *gin.Context) {
	var input struct {
		Value int `json:"value"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, "invalid vote payload")
		return
	}

	postID := utils.StringToUint(c.Param("id"))
	user := CurrentUser(c)

	if err := h.voteService.CastVote(user.ID, postID, input.Value); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			Fail(c, http.StatusNotFound, "post not found")
			return
		}
		Fail(c, http.StatusInternalServerError, "failed to cast vote")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
