package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/storage"
	"github.com/content-threads-api/internal/validation"
)

// FileHandler serves stored article images
type FileHandler struct {
	store storage.ObjectStore
	log   zerolog.Logger
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(store storage.ObjectStore, log zerolog.Logger) *FileHandler {
	return &FileHandler{
		store: store,
		log:   log.With().Str("handler", "file").Logger(),
	}
}

// Download handles GET /files/:id
func (h *FileHandler) Download(c *gin.Context) {
	key, err := validation.ParseObjectID(c.Param("id"), "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	stream, contentType, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer stream.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, stream, nil)
}
