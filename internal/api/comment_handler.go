package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/service"
)

// CommentHandler handles comment thread endpoints. Every thread route first
// checks that the caller moderates the thread's article.
type CommentHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		services: services,
		log:      log.With().Str("handler", "comment").Logger(),
	}
}

// queryInt reads an integer query parameter; malformed values count as unset
func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

// authorize aborts the request unless the actor moderates thread id
func (h *CommentHandler) authorize(c *gin.Context) bool {
	if err := h.services.Comment.Authorize(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return false
	}
	return true
}

// ListRoots handles GET /v1/comments
func (h *CommentHandler) ListRoots(c *gin.Context) {
	list, err := h.services.Comment.ListRoots(c.Request.Context(), actorFrom(c), c.Query("type"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetOne handles GET /v1/comments/:id
func (h *CommentHandler) GetOne(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	thread, err := h.services.Comment.GetOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// GetAnswers handles GET /v1/comments/:id/answers
func (h *CommentHandler) GetAnswers(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	answers, err := h.services.Comment.GetAnswers(c.Request.Context(), c.Param("id"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

// MarkRead handles PUT /v1/comments/:id/read
func (h *CommentHandler) MarkRead(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	if err := h.services.Comment.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Answer handles POST /v1/comments/:id/answers
func (h *CommentHandler) Answer(c *gin.Context) {
	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, errBadBody(err))
		return
	}
	if !h.authorize(c) {
		return
	}

	answer, err := h.services.Comment.Answer(c.Request.Context(), c.Param("id"), actorFrom(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, answer)
}
