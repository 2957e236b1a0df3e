package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mdobak/go-xerrors"

	"conduit/internal/utils/databaseutils"
	"conduit/internal/utils/stringutils"
	"conduit/models"
)

// CreateTag upserts the given tag names and returns them with their database
// ids, in input order. Existing names are reused, new ones are created, and a
// name appearing more than once yields a single result.
func (c *Core) CreateTag(ctx context.Context, tags []*models.Tag) ([]*models.Tag, error) {
	if len(tags) == 0 {
		return []*models.Tag{}, nil
	}

	// A repeated name must occupy a single VALUES row: Postgres rejects an
	// ON CONFLICT DO UPDATE that would touch the same row twice.
	seen := make(map[string]bool, len(tags))
	uniqueTags := make([]*models.Tag, 0, len(tags))
	for _, tag := range tags {
		if seen[tag.Name] {
			continue
		}
		seen[tag.Name] = true
		uniqueTags = append(uniqueTags, tag)
	}

	valueStrings := make([]string, 0, len(uniqueTags))
	valueArgs := make([]any, 0, len(uniqueTags))
	for i, tag := range uniqueTags {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d)", i+1))
		valueArgs = append(valueArgs, tag.Name)
	}

	// The DO UPDATE arm is a trick to make RETURNING yield the existing rows
	// as well as the freshly inserted ones.
	insertSQL := fmt.Sprintf(`
		INSERT INTO tags (name)
		VALUES %s
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`, strings.Join(valueStrings, ", "))

	returnedTags, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, insertSQL, func(rows *sql.Rows) (*models.Tag, error) {
		tag := &models.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, xerrors.New(err)
		}
		return tag, nil
	}, valueArgs...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	tagsByName := make(map[string]*models.Tag, len(returnedTags))
	for _, tag := range returnedTags {
		tagsByName[tag.Name] = tag
	}

	resultTags := make([]*models.Tag, 0, len(uniqueTags))
	for _, tag := range uniqueTags {
		returned, exists := tagsByName[tag.Name]
		if !exists {
			return nil, xerrors.Newf("tag %s not returned by upsert", tag.Name)
		}
		tag.ID = returned.ID
		resultTags = append(resultTags, returned)
	}

	return resultTags, nil
}

// AttachTags links the tags to the article.
func (c *Core) AttachTags(ctx context.Context, articleID int64, tags []*models.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(tags))
	valueArgs := make([]any, 0, len(tags)+1)
	valueArgs = append(valueArgs, articleID)
	for i, tag := range tags {
		valueStrings = append(valueStrings, fmt.Sprintf("($1, $%d)", i+2))
		valueArgs = append(valueArgs, tag.ID)
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO article_tags (article_id, tag_id)
		VALUES %s
		ON CONFLICT (article_id, tag_id) DO NOTHING
	`, strings.Join(valueStrings, ", "))

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, insertSQL, valueArgs...); err != nil {
		return xerrors.New(err)
	}

	return nil
}

// ReplaceArticleTags swaps the article's tag set wholesale. Meant to run
// inside a transaction together with the article update.
func (c *Core) ReplaceArticleTags(ctx context.Context, articleID int64, tags []*models.Tag) error {
	deleteSQL := `
		DELETE FROM article_tags
		WHERE article_id = $1
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, deleteSQL, articleID); err != nil {
		return xerrors.New(err)
	}

	return c.AttachTags(ctx, articleID, tags)
}

// GetTagsByArticleId returns the tags of every listed article, keyed by
// article id. Tag names come back alphabetically.
func (c *Core) GetTagsByArticleId(ctx context.Context, articleIdList []int64) (map[int64][]models.Tag, error) {
	tagsByArticle := make(map[int64][]models.Tag)
	if len(articleIdList) == 0 {
		return tagsByArticle, nil
	}

	placeholders, args := stringutils.INClause(articleIdList, 1)
	query := fmt.Sprintf(`
		SELECT at.article_id, t.id, t.name
		FROM article_tags at
		JOIN tags t ON t.id = at.tag_id
		WHERE at.article_id IN (%s)
		ORDER BY t.name
	`, strings.Join(placeholders, ", "))

	type articleTag struct {
		articleID int64
		tag       models.Tag
	}

	rows, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (articleTag, error) {
		var at articleTag
		if err := rows.Scan(&at.articleID, &at.tag.ID, &at.tag.Name); err != nil {
			return articleTag{}, xerrors.New(err)
		}
		return at, nil
	}, args...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	for _, row := range rows {
		tagsByArticle[row.articleID] = append(tagsByArticle[row.articleID], row.tag)
	}

	return tagsByArticle, nil
}

// GetAllTags lists every distinct tag name, alphabetically.
func (c *Core) GetAllTags(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM tags
		ORDER BY name
	`

	names, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (string, error) {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", xerrors.New(err)
		}
		return name, nil
	})

	if err != nil {
		return nil, xerrors.New(err)
	}

	return names, nil
}
