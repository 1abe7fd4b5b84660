// Package policy holds the authorization predicates consulted before any
// article or comment mutation. Predicates are pure; callers turn a false
// answer into a Forbidden or QuotaExceeded failure.
package policy

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/models"
)

// MaxBoostedHeld is the number of boosted articles a non-admin author may
// already hold when boosting one more through a single transition.
const MaxBoostedHeld = 1

// IsOwnerOrAdmin reports whether actor is an admin or the article's author.
func IsOwnerOrAdmin(actor *models.Actor, article *models.Article) bool {
	if actor == nil || article == nil {
		return false
	}
	return actor.IsAdmin || actor.ID == article.AuthorID
}

// CanMutateArticle reports whether actor may change article.
func CanMutateArticle(actor *models.Actor, article *models.Article) bool {
	return IsOwnerOrAdmin(actor, article)
}

// CanViewArticle reports whether actor may read the private view of article.
func CanViewArticle(actor *models.Actor, article *models.Article) bool {
	return IsOwnerOrAdmin(actor, article)
}

// BoostQuotaExceeded is the single-transition rule: a non-admin already
// holding more than one boosted article cannot boost another.
func BoostQuotaExceeded(actor *models.Actor, currentBoosted int64) bool {
	if actor.IsAdmin {
		return false
	}
	return currentBoosted > MaxBoostedHeld
}

// BulkBoostQuotaExceeded is the bulk-transition rule: a non-admin may not
// boost through the bulk path while holding any boosted article, nor boost
// more than one article per request.
func BulkBoostQuotaExceeded(actor *models.Actor, currentBoosted int64, requested int) bool {
	if actor.IsAdmin {
		return false
	}
	return currentBoosted >= 1 || requested > 1
}

// CanModerateComments reports whether actor may read, mark or answer the
// comments on an article written by articleAuthorID.
func CanModerateComments(actor *models.Actor, articleAuthorID primitive.ObjectID) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin || actor.ID == articleAuthorID
}
