package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/models"
)

const actorKey = "actor"

// IdentityClaims are the JWT claims that describe the caller. The subject is
// the user id.
type IdentityClaims struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	Author bool   `json:"author"`
	jwt.RegisteredClaims
}

func errUnauthenticated(description string) error {
	return apperr.New(apperr.KindUnauthenticated, apperr.Unauthorized, description)
}

// authMiddleware resolves the bearer token into an Actor
func authMiddleware(cfg *config.AuthConfig, log zerolog.Logger) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			respondError(c, log, errUnauthenticated("missing bearer token"))
			return
		}

		claims := &IdentityClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
			respondError(c, log, errUnauthenticated("invalid token"))
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			respondError(c, log, errUnauthenticated("token subject is not a user id"))
			return
		}

		c.Set(actorKey, &models.Actor{
			ID:       id,
			Name:     claims.Name,
			Email:    claims.Email,
			IsAdmin:  claims.Admin,
			IsAuthor: claims.Author,
		})
		c.Next()
	}
}

// adminOnly rejects non-admin actors
func adminOnly(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).IsAdmin {
			respondError(c, log, apperr.Forbid())
			return
		}
		c.Next()
	}
}

// actorFrom returns the actor set by authMiddleware
func actorFrom(c *gin.Context) *models.Actor {
	return c.MustGet(actorKey).(*models.Actor)
}
