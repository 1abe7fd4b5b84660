package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/service"
)

// ArticleHandler handles article endpoints
type ArticleHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// Create handles POST /v1/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var req models.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, errBadBody(err))
		return
	}

	view, err := h.services.Article.Create(c.Request.Context(), actorFrom(c), req.Title)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List handles GET /v1/articles
func (h *ArticleHandler) List(c *gin.Context) {
	var params models.ArticleListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, h.log, apperr.Wrap(apperr.KindInvalidInput, apperr.InvalidInput, "query parameters are malformed", err))
		return
	}

	list, err := h.services.Query.List(c.Request.Context(), actorFrom(c), params)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ExistsByTitle handles GET /v1/articles/exists?title=
func (h *ArticleHandler) ExistsByTitle(c *gin.Context) {
	match, err := h.services.Query.ExistsByTitle(c.Request.Context(), actorFrom(c), c.Query("title"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

// GetByURI handles GET /v1/articles/uri/:uri
func (h *ArticleHandler) GetByURI(c *gin.Context) {
	view, err := h.services.Query.GetByIDOrURI(c.Request.Context(), c.Param("uri"), models.KeyCustomURI)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetOne handles GET /v1/articles/:id
func (h *ArticleHandler) GetOne(c *gin.Context) {
	view, err := h.services.Query.GetOne(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Update handles PATCH /v1/articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	var patch models.ArticlePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, h.log, errBadBody(err))
		return
	}

	article, err := h.services.Article.Update(c.Request.Context(), c.Param("id"), &patch, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// ChangeState handles PUT /v1/articles/:id/state
func (h *ArticleHandler) ChangeState(c *gin.Context) {
	var req models.ChangeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, errBadBody(err))
		return
	}

	article, err := h.services.Article.ChangeState(c.Request.Context(), c.Param("id"), actorFrom(c), req.State)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// ChangeStatesBulk handles PUT /v1/articles/state
func (h *ArticleHandler) ChangeStatesBulk(c *gin.Context) {
	var req models.BulkStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, errBadBody(err))
		return
	}

	result, err := h.services.Article.ChangeStatesBulk(c.Request.Context(), actorFrom(c), req.IDs, req.State)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Remove handles DELETE /v1/articles/:id
func (h *ArticleHandler) Remove(c *gin.Context) {
	article, err := h.services.Article.Remove(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// SaveImage handles PUT /v1/articles/:id/images/:kind
// Accepts a multipart upload in the "image" field
func (h *ArticleHandler) SaveImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Server.MaxUploadSize)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		respondError(c, h.log, apperr.Wrap(apperr.KindInvalidInput, apperr.InvalidInput,
			fmt.Sprintf("image: a file of at most %d MB is required", h.cfg.Server.MaxUploadSize/(1024*1024)), err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, h.log, errBadBody(err))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	blob := models.Blob{Filename: header.Filename, ContentType: contentType, Data: data}
	article, err := h.services.Article.SaveImage(c.Request.Context(), c.Param("id"), actorFrom(c), models.ImageKind(c.Param("kind")), blob)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("article_id", c.Param("id")).
		Str("kind", c.Param("kind")).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Msg("Article image saved")

	c.JSON(http.StatusOK, article)
}

// RemoveImage handles DELETE /v1/articles/:id/images/:kind
func (h *ArticleHandler) RemoveImage(c *gin.Context) {
	article, err := h.services.Article.RemoveImage(c.Request.Context(), c.Param("id"), actorFrom(c), models.ImageKind(c.Param("kind")))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}
