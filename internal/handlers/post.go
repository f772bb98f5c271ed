package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"driftwood/internal/loader"
	"driftwood/internal/middleware"
	"driftwood/internal/models"
	"driftwood/internal/services"
	"driftwood/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postService *services.PostService
}

func NewPostHandler() *PostHandler {
	return &PostHandler{
		postService: services.NewPostService(),
	}
}

type authorJSON struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type postJSON struct {
	ID          uint        `json:"id"`
	Title       string      `json:"title"`
	TextSnippet string      `json:"text_snippet"`
	Score       int         `json:"score"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Author      *authorJSON `json:"author"`
	VoteStatus  *int        `json:"vote_status"`

	// Only set on the detail view.
	Content     string `json:"content,omitempty"`
	ContentHTML string `json:"content_html,omitempty"`
}

func serializePost(p *models.Post, author *models.User, vote *models.Vote) postJSON {
	out := postJSON{
		ID:          p.ID,
		Title:       p.Title,
		TextSnippet: utils.Snippet(p.Content, utils.SnippetLength),
		Score:       p.Score,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if author != nil {
		out.Author = &authorJSON{ID: author.ID, Username: author.Username}
	}
	if vote != nil {
		v := vote.Value
		out.VoteStatus = &v
	}
	return out
}

type postInput struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

// List serves one feed page. Author and vote-status lookups for every row are
// queued on the request's loaders first and resolved after, so a page costs
// two bulk fetches no matter how long it is.
func (h *PostHandler) List(c *gin.Context) {
	limit := utils.StringToInt(c.DefaultQuery("limit", "20"))

	var cursor *time.Time
	if raw := c.Query("cursor"); raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			Fail(c, http.StatusBadRequest, "invalid cursor")
			return
		}
		t := time.UnixMilli(millis)
		cursor = &t
	}

	posts, hasMore, err := h.postService.List(limit, cursor)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "failed to list posts")
		return
	}

	viewer := CurrentUser(c)
	loaders := middleware.Loaders(c)

	authorThunks := make([]func() (*models.User, error), len(posts))
	voteThunks := make([]func() (*models.Vote, error), len(posts))
	for i := range posts {
		authorThunks[i] = loaders.Users.LoadThunk(posts[i].AuthorID)
		if viewer != nil {
			// Anonymous viewers never hit the ledger; their vote status is
			// always null.
			voteThunks[i] = loaders.Votes.LoadThunk(loader.VoteKey{
				UserID: viewer.ID,
				PostID: posts[i].ID,
			})
		}
	}

	out := make([]postJSON, len(posts))
	for i := range posts {
		author, err := authorThunks[i]()
		if err != nil {
			Fail(c, http.StatusInternalServerError, "failed to list posts")
			return
		}
		var vote *models.Vote
		if voteThunks[i] != nil {
			if vote, err = voteThunks[i](); err != nil {
				Fail(c, http.StatusInternalServerError, "failed to list posts")
				return
			}
		}
		out[i] = serializePost(&posts[i], author, vote)
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":    out,
		"has_more": hasMore,
	})
}

func (h *PostHandler) Detail(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))
	post, err := h.postService.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			Fail(c, http.StatusNotFound, "post not found")
			return
		}
		Fail(c, http.StatusInternalServerError, "failed to load post")
		return
	}

	viewer := CurrentUser(c)
	loaders := middleware.Loaders(c)

	author, err := loaders.Users.Load(post.AuthorID)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "failed to load post")
		return
	}
	var vote *models.Vote
	if viewer != nil {
		vote, err = loaders.Votes.Load(loader.VoteKey{UserID: viewer.ID, PostID: post.ID})
		if err != nil {
			Fail(c, http.StatusInternalServerError, "failed to load post")
			return
		}
	}

	out := serializePost(post, author, vote)
	out.Content = post.Content
	out.ContentHTML = h.renderContent(post)

	c.JSON(http.StatusOK, gin.H{"post": out})
}

// renderContent returns the sanitized HTML body, cached per revision so edits
// invalidate naturally.
func (h *PostHandler) renderContent(post *models.Post) string {
	cacheKey := fmt.Sprintf("post:html:%d:%d", post.ID, post.UpdatedAt.UnixNano())
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if html, ok := cached.(string); ok {
			return html
		}
	}

	html := utils.RenderMarkdown(post.Content)
	utils.GetCache().Set(cacheKey, html, 10*time.Minute)
	return html
}

func (h *PostHandler) Create(c *gin.Context) {
	var input postInput
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, "title is required")
		return
	}

	user := CurrentUser(c)
	post, err := h.postService.Create(user.ID, input.Title, input.Content)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "failed to create post")
		return
	}

	out := serializePost(post, user, nil)
	out.Content = post.Content
	c.JSON(http.StatusCreated, gin.H{"post": out})
}

func (h *PostHandler) Update(c *gin.Context) {
	var input postInput
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, "title is required")
		return
	}

	id := utils.StringToUint(c.Param("id"))
	user := CurrentUser(c)

	post, err := h.postService.Update(id, user.ID, input.Title, input.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			Fail(c, http.StatusNotFound, "post not found")
		case errors.Is(err, services.ErrNotAuthorized):
			Fail(c, http.StatusForbidden, "not authorized")
		default:
			Fail(c, http.StatusInternalServerError, "failed to update post")
		}
		return
	}

	out := serializePost(post, user, nil)
	out.Content = post.Content
	c.JSON(http.StatusOK, gin.H{"post": out})
}

func (h *PostHandler) Delete(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))
	user := CurrentUser(c)

	if err := h.postService.Delete(id, user.ID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			Fail(c, http.StatusNotFound, "post not found")
		case errors.Is(err, services.ErrNotAuthorized):
			Fail(c, http.StatusForbidden, "not authorized")
		default:
			Fail(c, http.StatusInternalServerError, "failed to delete post")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
