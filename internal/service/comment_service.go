package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/notify"
	"github.com/content-threads-api/internal/policy"
	"github.com/content-threads-api/internal/repository"
	"github.com/content-threads-api/internal/validation"
)

// commentService is the concrete implementation of CommentService
type commentService struct {
	comments  repository.CommentRepository
	notifier  notify.Dispatcher
	validate  *validation.Validator
	sanitizer *bluemonday.Policy
	now       func() time.Time
	log       zerolog.Logger
}

func newCommentService(repos *repository.Repositories, notifier notify.Dispatcher, v *validation.Validator, now func() time.Time, log zerolog.Logger) *commentService {
	return &commentService{
		comments:  repos.Comment,
		notifier:  notifier,
		validate:  v,
		sanitizer: bluemonday.UGCPolicy(),
		now:       now,
		log:       log.With().Str("service", "comment").Logger(),
	}
}

func errCommentNotFound() error {
	return apperr.New(apperr.KindNotFound, apperr.NotFound, "comment not found")
}

// ListRoots pages through the root comments on the actor's articles
func (s *commentService) ListRoots(ctx context.Context, actor *models.Actor, partition string, page, limit int) (*models.CommentList, error) {
	p := models.PartitionAll
	if partition != "" {
		p = models.Partition(partition)
	}
	if !p.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput, "type: must be one of: all, not-readed, only-readed")
	}

	pg := models.NewPage(page, limit, models.DefaultCommentLimit)
	filter := models.CommentFilter{ArticleAuthorID: actor.ID, Partition: p}

	items, err := s.comments.ListRoots(ctx, filter, pg)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	count, err := s.comments.CountRoots(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &models.CommentList{Items: items, Count: count, Page: pg.Page, Limit: pg.Limit}, nil
}

func parseCommentID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.New(apperr.KindInvalidInput, apperr.InvalidID, "comment id is malformed")
	}
	return oid, nil
}

// GetOne resolves a root comment with its article and direct answers
func (s *commentService) GetOne(ctx context.Context, id string) (*models.CommentThread, error) {
	oid, err := parseCommentID(id)
	if err != nil {
		return nil, err
	}

	thread, err := s.comments.GetThread(ctx, oid)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if thread == nil {
		return nil, errCommentNotFound()
	}
	return thread, nil
}

// GetAnswers pages through the direct answers of a root comment
func (s *commentService) GetAnswers(ctx context.Context, rootID string, page, limit int) (*models.AnswerList, error) {
	oid, err := parseCommentID(rootID)
	if err != nil {
		return nil, err
	}

	pg := models.NewPage(page, limit, models.DefaultCommentLimit)
	items, err := s.comments.ListAnswers(ctx, oid, pg)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	count, err := s.comments.CountAnswers(ctx, oid)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &models.AnswerList{Items: items, Count: count, Page: pg.Page, Limit: pg.Limit}, nil
}

// MarkRead stamps readedAt once; a second call reports AlreadyRead
func (s *commentService) MarkRead(ctx context.Context, id string) error {
	oid, err := parseCommentID(id)
	if err != nil {
		return err
	}

	marked, err := s.comments.MarkRead(ctx, oid, s.now())
	if err != nil {
		return apperr.Internal(err)
	}
	if !marked {
		return apperr.New(apperr.KindConflict, apperr.AlreadyRead, "comment is already read")
	}
	return nil
}

// Answer creates a direct answer to a root comment under the actor's
// identity, then notifies the reader when asked to
func (s *commentService) Answer(ctx context.Context, rootID string, actor *models.Actor, req models.AnswerRequest) (*models.Comment, error) {
	if req.Notify == "" {
		req.Notify = models.NotifyNo
	}
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}

	root, err := s.GetOne(ctx, rootID)
	if err != nil {
		if apperr.IsName(err, apperr.NotFound) {
			return nil, apperr.New(apperr.KindNotFound, apperr.RootNotFound, "root comment not found")
		}
		return nil, err
	}
	if !hasArticle(root) {
		return nil, apperr.New(apperr.KindNotFound, apperr.RootNotFound, "root comment does not belong to an article")
	}

	message := strings.TrimSpace(s.stripMarkup(req.Message))
	if message == "" {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput, "message: is required")
	}
	if utf8.RuneCountInString(message) > models.MaxCommentLength {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput,
			fmt.Sprintf("message: must be at most %d characters", models.MaxCommentLength))
	}

	now := s.now()
	answer := &models.Comment{
		ID:        primitive.NewObjectID(),
		ArticleID: root.ArticleID,
		AnswerOf:  &root.ID,
		UserName:  actor.Name,
		UserEmail: actor.Email,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.Create(ctx, answer); err != nil {
		return nil, apperr.Internal(err)
	}

	s.log.Info().
		Str("comment_id", answer.ID.Hex()).
		Str("root_id", root.ID.Hex()).
		Str("notify", req.Notify).
		Msg("Answer created")

	if req.Notify == models.NotifyYes {
		payload := models.AnswerNotification{Root: root.Comment, Answer: *answer, Article: root.Article}
		if err := s.notifier.Send(ctx, notify.TemplateCommentAnswer, payload); err != nil {
			s.log.Warn().Err(err).Str("comment_id", answer.ID.Hex()).Msg("Failed to dispatch answer notification")
		}
	}

	return answer, nil
}

// Authorize fails unless actor authored the article the thread belongs to
// or is an admin
func (s *commentService) Authorize(ctx context.Context, actor *models.Actor, id string) error {
	thread, err := s.GetOne(ctx, id)
	if err != nil {
		return err
	}
	if !hasArticle(thread) {
		return errCommentNotFound()
	}
	if !policy.CanModerateComments(actor, thread.Article.AuthorID) {
		return apperr.Forbid()
	}
	return nil
}

func hasArticle(thread *models.CommentThread) bool {
	return thread.Article != nil && !thread.Article.ID.IsZero()
}

// stripMarkup removes disallowed markup and returns the text unescaped, so
// plain punctuation such as "a < b && c" is kept as typed. It repeats until
// the text is stable under sanitize and unescape.
func (s *commentService) stripMarkup(message string) string {
	for i := 0; i < 4; i++ {
		plain := html.UnescapeString(s.sanitizer.Sanitize(message))
		if plain == message {
			return plain
		}
		message = plain
	}
	return s.sanitizer.Sanitize(message)
}
