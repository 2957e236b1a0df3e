package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"

	"conduit/internal/auth"
	"conduit/internal/filter"
	"conduit/internal/utils/databaseutils"
	"conduit/internal/utils/stringutils"
	"conduit/models"
)

var ErrDuplicatedSlug = xerrors.Message("Duplicate slug")

const (
	slugAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	slugSuffixLen   = 6
	maxSlugAttempts = 5
)

// Slugify lowercases and hyphenates a title, stripping common punctuation.
func Slugify(title string) string {
	slug := strings.ToLower(title)

	slug = strings.ReplaceAll(slug, " ", "-")
	replacements := []string{".", ",", "!", "?", ":", ";", "'", "\"", "(", ")", "[", "]", "{", "}", "/", "\\"}
	for _, char := range replacements {
		slug = strings.ReplaceAll(slug, char, "")
	}

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	slug = strings.Trim(slug, "-")

	return slug
}

// NewSlug appends a random base-36 suffix so that articles with identical
// titles get distinct slugs.
func NewSlug(title string) string {
	suffix := make([]byte, slugSuffixLen)
	for i := range suffix {
		suffix[i] = slugAlphabet[rand.IntN(len(slugAlphabet))]
	}

	return Slugify(title) + "-" + string(suffix)
}

func scanArticle(rows *sql.Rows) (*models.Article, error) {
	article := &models.Article{}
	if err := rows.Scan(
		&article.ID,
		&article.Slug,
		&article.Title,
		&article.Description,
		&article.Body,
		&article.AuthorID,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return article, nil
}

// CreateArticle inserts the article, generating the slug from the title when
// none is set. The random suffix makes collisions unlikely, not impossible,
// so a unique violation retries with a fresh suffix.
func (c *Core) CreateArticle(ctx context.Context, article *models.Article) (*models.Article, error) {
	generated := article.Slug == ""

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		if generated {
			article.Slug = NewSlug(article.Title)
		}

		created, err := c.insertArticle(ctx, article)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrDuplicatedSlug) || !generated {
			return nil, err
		}
	}

	return nil, xerrors.New(ErrDuplicatedSlug)
}

func (c *Core) insertArticle(ctx context.Context, article *models.Article) (*models.Article, error) {
	insertSQL := `
		INSERT INTO articles (slug, title, description, body, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, slug, title, description, body, author_id, created_at, updated_at
	`

	now := time.Now()
	args := []any{article.Slug, article.Title, article.Description, article.Body, article.AuthorID, now, now}
	created, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, insertSQL, scanArticle, args...)
	if err != nil {
		switch {
		case isUniqueViolation(err, "articles_slug_key"):
			return nil, xerrors.New(ErrDuplicatedSlug)
		default:
			return nil, xerrors.New(err)
		}
	}

	return created, nil
}

func (c *Core) GetArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	query := `
		SELECT id, slug, title, description, body, author_id, created_at, updated_at
		FROM articles
		WHERE slug = $1
	`

	article, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanArticle, slug)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, xerrors.New(NoRecordFound)
		default:
			return nil, xerrors.New(err)
		}
	}

	return article, nil
}

const articleFilterWhere = `
	WHERE ($1 = '' OR u.username = $1)
	AND ($2 = '' OR EXISTS (
		SELECT 1 FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id = a.id AND t.name = $2
	))
	AND ($3 = '' OR EXISTS (
		SELECT 1 FROM article_favorites af
		JOIN users fu ON fu.id = af.user_id
		WHERE af.article_id = a.id AND fu.username = $3
	))
`

// GetArticles lists articles matching the given filters (combined with AND),
// newest first. The returned count covers the whole filtered set, independent
// of pagination.
func (c *Core) GetArticles(ctx context.Context, filters filter.Filter, tag, author, favorited string) ([]*models.Article, int64, error) {
	countSQL := `
		SELECT count(*)
		FROM articles a
		JOIN users u ON u.id = a.author_id
	` + articleFilterWhere

	total, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, countSQL, func(rows *sql.Rows) (int64, error) {
		var count int64
		if err := rows.Scan(&count); err != nil {
			return 0, xerrors.New(err)
		}
		return count, nil
	}, author, tag, favorited)
	if err != nil {
		return nil, 0, xerrors.New(err)
	}

	pageSQL := `
		SELECT a.id, a.slug, a.title, a.description, a.body, a.author_id, a.created_at, a.updated_at
		FROM articles a
		JOIN users u ON u.id = a.author_id
	` + articleFilterWhere + `
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $4 OFFSET $5
	`

	articles, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, pageSQL, scanArticle, author, tag, favorited, filters.Limit, filters.Offset)
	if err != nil {
		return nil, 0, xerrors.New(err)
	}

	return articles, total, nil
}

// GetFeed lists articles authored by users the given user follows. When the
// user follows nobody it returns an empty page without touching the articles
// table.
func (c *Core) GetFeed(ctx context.Context, userID int64, filters filter.Filter) ([]*models.Article, int64, error) {
	followingIds, err := c.GetFollowingIdList(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(followingIds) == 0 {
		return []*models.Article{}, 0, nil
	}

	placeholders, args := stringutils.INClause(followingIds, 1)
	inClause := strings.Join(placeholders, ", ")

	countSQL := fmt.Sprintf(`
		SELECT count(*)
		FROM articles
		WHERE author_id IN (%s)
	`, inClause)

	total, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, countSQL, func(rows *sql.Rows) (int64, error) {
		var count int64
		if err := rows.Scan(&count); err != nil {
			return 0, xerrors.New(err)
		}
		return count, nil
	}, args...)
	if err != nil {
		return nil, 0, xerrors.New(err)
	}

	pageSQL := fmt.Sprintf(`
		SELECT id, slug, title, description, body, author_id, created_at, updated_at
		FROM articles
		WHERE author_id IN (%s)
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, inClause, len(followingIds)+1, len(followingIds)+2)

	pageArgs := append(args, filters.Limit, filters.Offset)
	articles, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, pageSQL, scanArticle, pageArgs...)
	if err != nil {
		return nil, 0, xerrors.New(err)
	}

	return articles, total, nil
}

// UpdateArticle overwrites title, description and body. The slug is immutable
// once set.
func (c *Core) UpdateArticle(ctx context.Context, article *models.Article) (*models.Article, error) {
	query := `
		UPDATE articles
		SET title = $1, description = $2, body = $3, updated_at = $4
		WHERE id = $5
		RETURNING id, slug, title, description, body, author_id, created_at, updated_at
	`

	args := []any{article.Title, article.Description, article.Body, time.Now(), article.ID}
	updated, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanArticle, args...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, xerrors.New(NoRecordFound)
		default:
			return nil, xerrors.New(err)
		}
	}

	return updated, nil
}

// DeleteArticle removes the article. Comments, tag links and favorites go
// with it via the schema's cascade rules.
func (c *Core) DeleteArticle(ctx context.Context, articleID int64) error {
	deleteSQL := `
		DELETE FROM articles
		WHERE id = $1
	`

	result, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, deleteSQL, articleID)
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

// FavouriteArticle adds the favorite edge, a no-op when it already exists.
func (c *Core) FavouriteArticle(ctx context.Context, userID, articleID int64) error {
	insertSQL := `
		INSERT INTO article_favorites (user_id, article_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, article_id) DO NOTHING
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, insertSQL, userID, articleID); err != nil {
		return xerrors.New(err)
	}

	return nil
}

// UnfavouriteArticle removes the favorite edge, a no-op when it is absent.
func (c *Core) UnfavouriteArticle(ctx context.Context, userID, articleID int64) error {
	deleteSQL := `
		DELETE FROM article_favorites
		WHERE user_id = $1 AND article_id = $2
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, deleteSQL, userID, articleID); err != nil {
		return xerrors.New(err)
	}

	return nil
}

func (c *Core) IsFavouriteArticleByUser(ctx context.Context, articleID int64, user *auth.User) (bool, error) {
	if user == nil {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM article_favorites WHERE user_id = $1 AND article_id = $2
		)
	`

	isFavourite, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (bool, error) {
		var favourite bool
		if err := rows.Scan(&favourite); err != nil {
			return false, xerrors.New(err)
		}
		return favourite, nil
	}, user.ID, articleID)

	if err != nil {
		return false, xerrors.New(err)
	}

	return isFavourite, nil
}

// FavouriteArticleCount derives the count live from the relation, there is no
// stored counter to drift out of sync.
func (c *Core) FavouriteArticleCount(ctx context.Context, articleID int64) (int64, error) {
	query := `
		SELECT count(*) FROM article_favorites WHERE article_id = $1
	`

	count, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (int64, error) {
		var c int64
		if err := rows.Scan(&c); err != nil {
			return 0, xerrors.New(err)
		}
		return c, nil
	}, articleID)

	if err != nil {
		return 0, xerrors.New(err)
	}

	return count, nil
}

// FavouriteArticleByArticleId reports which of the given articles the user
// has favorited.
func (c *Core) FavouriteArticleByArticleId(ctx context.Context, articleIdList []int64, user *auth.User) (map[int64]bool, error) {
	favourited := make(map[int64]bool)
	if user == nil || len(articleIdList) == 0 {
		return favourited, nil
	}

	placeholders, args := stringutils.INClause(articleIdList, 2)
	query := fmt.Sprintf(`
		SELECT article_id
		FROM article_favorites
		WHERE user_id = $1 AND article_id IN (%s)
	`, strings.Join(placeholders, ", "))

	queryArgs := append([]any{user.ID}, args...)
	ids, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (int64, error) {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, xerrors.New(err)
		}
		return id, nil
	}, queryArgs...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	for _, id := range ids {
		favourited[id] = true
	}

	return favourited, nil
}

func (c *Core) FavouriteCountByArticleId(ctx context.Context, articleIdList []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64)
	if len(articleIdList) == 0 {
		return counts, nil
	}

	placeholders, args := stringutils.INClause(articleIdList, 1)
	query := fmt.Sprintf(`
		SELECT article_id, count(*)
		FROM article_favorites
		WHERE article_id IN (%s)
		GROUP BY article_id
	`, strings.Join(placeholders, ", "))

	type articleCount struct {
		articleID int64
		count     int64
	}

	rows, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (articleCount, error) {
		var ac articleCount
		if err := rows.Scan(&ac.articleID, &ac.count); err != nil {
			return articleCount{}, xerrors.New(err)
		}
		return ac, nil
	}, args...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	for _, row := range rows {
		counts[row.articleID] = row.count
	}

	return counts, nil
}
