package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/apperr"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// respondError writes err as {code, name, description}. Internal failures
// are logged with their cause and reported generically.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status, name, description := apperr.Describe(err)

	if status == http.StatusNotModified {
		c.AbortWithStatus(status)
		return
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	c.AbortWithStatusJSON(status, errorResponse{Code: status, Name: name, Description: description})
}

// errBadBody reports a request body that could not be decoded
func errBadBody(err error) error {
	return apperr.Wrap(apperr.KindInvalidInput, apperr.InvalidInput, "request body is malformed", err)
}
