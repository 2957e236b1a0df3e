package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/filter"
	"conduit/models"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"How to train your dragon", "how-to-train-your-dragon"},
		{"Hello, World!", "hello-world"},
		{"  spaced  out  ", "spaced-out"},
		{"What's up? (nothing)", "whats-up-nothing"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.title))
	}
}

func TestNewSlugAppendsBase36Suffix(t *testing.T) {
	slug := NewSlug("How to train your dragon")

	require.True(t, strings.HasPrefix(slug, "how-to-train-your-dragon-"))

	suffix := strings.TrimPrefix(slug, "how-to-train-your-dragon-")
	assert.Len(t, suffix, slugSuffixLen)
	for _, char := range suffix {
		assert.Contains(t, slugAlphabet, string(char))
	}
}

func TestNewSlugDistinctForSameTitle(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		slug := NewSlug("How to train your dragon")
		assert.False(t, seen[slug], "slug %q generated twice", slug)
		seen[slug] = true
	}
}

func TestCreateArticleRetriesOnSlugCollision(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("INSERT INTO articles").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "articles_slug_key"})

	now := time.Now()
	mock.ExpectQuery("INSERT INTO articles").
		WillReturnRows(articleRows(mock).
			AddRow(int64(1), "how-to-train-your-dragon-abc123", "How to train your dragon", "desc", "body", int64(5), now, now))

	created, err := c.CreateArticle(context.Background(), &models.Article{
		Title:       "How to train your dragon",
		Description: "desc",
		Body:        "body",
		AuthorID:    5,
	})

	require.NoError(t, err)
	assert.Equal(t, "how-to-train-your-dragon-abc123", created.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetArticleBySlugNotFound(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT (.+) FROM articles").
		WithArgs("missing-slug").
		WillReturnRows(articleRows(mock))

	_, err := c.GetArticleBySlug(context.Background(), "missing-slug")

	assert.True(t, errors.Is(err, NoRecordFound))
}

func TestGetArticlesReturnsFilteredCount(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery(`SELECT count\(\*\)`).
		WithArgs("jacob", "dragons", "").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(42)))

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM articles").
		WithArgs("jacob", "dragons", "", int64(20), int64(0)).
		WillReturnRows(articleRows(mock).
			AddRow(int64(1), "slug-one-aaaaaa", "one", "d", "b", int64(5), now, now).
			AddRow(int64(2), "slug-two-bbbbbb", "two", "d", "b", int64(5), now, now))

	articles, total, err := c.GetArticles(context.Background(), filter.NewFilter(20, 0), "dragons", "jacob", "")

	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	assert.Len(t, articles, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFeedWithoutFolloweesSkipsArticleQuery(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT followed_id").
		WithArgs(int64(9)).
		WillReturnRows(mock.NewRows([]string{"followed_id"}))

	articles, total, err := c.GetFeed(context.Background(), 9, filter.NewFilter(20, 0))

	require.NoError(t, err)
	assert.Empty(t, articles)
	assert.Equal(t, int64(0), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFeedRestrictsToFollowedAuthors(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT followed_id").
		WithArgs(int64(9)).
		WillReturnRows(mock.NewRows([]string{"followed_id"}).AddRow(int64(3)).AddRow(int64(4)))

	mock.ExpectQuery(`SELECT count\(\*\)`).
		WithArgs(int64(3), int64(4)).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(1)))

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM articles").
		WithArgs(int64(3), int64(4), int64(20), int64(0)).
		WillReturnRows(articleRows(mock).
			AddRow(int64(1), "followed-post-aaaaaa", "followed post", "d", "b", int64(3), now, now))

	articles, total, err := c.GetFeed(context.Background(), 9, filter.NewFilter(20, 0))

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, articles, 1)
	assert.Equal(t, int64(3), articles[0].AuthorID)
}

func TestFavouriteArticleIsIdempotentUpsert(t *testing.T) {
	c, mock := newTestCore(t)

	// Same favorite twice: both are plain upserts, the second one a no-op.
	mock.ExpectExec("INSERT INTO article_favorites").
		WithArgs(int64(9), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO article_favorites").
		WithArgs(int64(9), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, c.FavouriteArticle(context.Background(), 9, 1))
	require.NoError(t, c.FavouriteArticle(context.Background(), 9, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnfavouriteArticleNoopWhenAbsent(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectExec("DELETE FROM article_favorites").
		WithArgs(int64(9), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, c.UnfavouriteArticle(context.Background(), 9, 1))
}

func TestIsFavouriteArticleByUserNilViewer(t *testing.T) {
	c, _ := newTestCore(t)

	favorited, err := c.IsFavouriteArticleByUser(context.Background(), 1, nil)

	require.NoError(t, err)
	assert.False(t, favorited)
}

func TestFavouriteArticleByArticleIdNilViewer(t *testing.T) {
	c, _ := newTestCore(t)

	favorited, err := c.FavouriteArticleByArticleId(context.Background(), []int64{1, 2}, nil)

	require.NoError(t, err)
	assert.Empty(t, favorited)
}
