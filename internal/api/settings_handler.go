package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/service"
)

// settingsTTLHeader carries the settings cache deadline in unix milliseconds
const settingsTTLHeader = "X-Settings-Ttl"

// SettingsHandler handles comment settings endpoints
type SettingsHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(services *service.Services, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		services: services,
		log:      log.With().Str("handler", "settings").Logger(),
	}
}

// presentedTTL reads the client's cached deadline; unparseable values are
// treated as absent
func presentedTTL(c *gin.Context) *time.Time {
	raw := c.GetHeader(settingsTTLHeader)
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	ttl := time.UnixMilli(ms)
	return &ttl
}

func writeSettings(c *gin.Context, settings *models.CommentSettings) {
	c.Header(settingsTTLHeader, strconv.FormatInt(settings.TTL.UnixMilli(), 10))
	c.JSON(http.StatusOK, settings)
}

// Get handles GET /v1/users/:id/comment-settings
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.services.Settings.Get(c.Request.Context(), actorFrom(c), c.Param("id"), presentedTTL(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	writeSettings(c, settings)
}

// Save handles PUT /v1/users/:id/comment-settings
func (h *SettingsHandler) Save(c *gin.Context) {
	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, h.log, errBadBody(err))
		return
	}

	settings, err := h.services.Settings.Save(c.Request.Context(), actorFrom(c), c.Param("id"), &patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	writeSettings(c, settings)
}
