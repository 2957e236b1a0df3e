package core

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mdobak/go-xerrors"

	"conduit/internal/utils/databaseutils"
	"conduit/models"
)

func scanComment(rows *sql.Rows) (*models.Comment, error) {
	comment := &models.Comment{}
	if err := rows.Scan(
		&comment.ID,
		&comment.Body,
		&comment.AuthorID,
		&comment.ArticleID,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return comment, nil
}

func (c *Core) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	insertSQL := `
		INSERT INTO comments (body, author_id, article_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, body, author_id, article_id, created_at, updated_at
	`

	now := time.Now()
	args := []any{comment.Body, comment.AuthorID, comment.ArticleID, now, now}
	created, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, insertSQL, scanComment, args...)
	if err != nil {
		return nil, xerrors.New(err)
	}

	return created, nil
}

// GetCommentsByArticleId returns the article's comments, newest first.
func (c *Core) GetCommentsByArticleId(ctx context.Context, articleID int64) ([]*models.Comment, error) {
	query := `
		SELECT id, body, author_id, article_id, created_at, updated_at
		FROM comments
		WHERE article_id = $1
		ORDER BY created_at DESC, id DESC
	`

	comments, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, scanComment, articleID)
	if err != nil {
		return nil, xerrors.New(err)
	}

	return comments, nil
}

// GetCommentById fetches a comment along with the slug of the article it
// belongs to, so callers can reject ids addressed through the wrong article.
func (c *Core) GetCommentById(ctx context.Context, commentID int64) (*models.Comment, string, error) {
	query := `
		SELECT c.id, c.body, c.author_id, c.article_id, c.created_at, c.updated_at, a.slug
		FROM comments c
		JOIN articles a ON a.id = c.article_id
		WHERE c.id = $1
	`

	type commentWithSlug struct {
		comment     *models.Comment
		articleSlug string
	}

	result, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (commentWithSlug, error) {
		comment := &models.Comment{}
		var slug string
		if err := rows.Scan(
			&comment.ID,
			&comment.Body,
			&comment.AuthorID,
			&comment.ArticleID,
			&comment.CreatedAt,
			&comment.UpdatedAt,
			&slug,
		); err != nil {
			return commentWithSlug{}, xerrors.New(err)
		}
		return commentWithSlug{comment: comment, articleSlug: slug}, nil
	}, commentID)

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, "", xerrors.New(NoRecordFound)
		default:
			return nil, "", xerrors.New(err)
		}
	}

	return result.comment, result.articleSlug, nil
}

func (c *Core) DeleteComment(ctx context.Context, commentID int64) error {
	deleteSQL := `
		DELETE FROM comments
		WHERE id = $1
	`

	result, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, deleteSQL, commentID)
	if err != nil {
		return xerrors.New(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return xerrors.New(err)
	}
	if affected == 0 {
		return xerrors.New(NoRecordFound)
	}

	return nil
}
