package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/models"
)

func commentRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{"id", "body", "author_id", "article_id", "created_at", "updated_at"})
}

func TestCreateCommentAssignsIdAndTimestamps(t *testing.T) {
	c, mock := newTestCore(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO comments").
		WillReturnRows(commentRows(mock).AddRow(int64(12), "Nice post", int64(5), int64(1), now, now))

	created, err := c.CreateComment(context.Background(), &models.Comment{
		Body:      "Nice post",
		AuthorID:  5,
		ArticleID: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(12), created.ID)
	assert.Equal(t, "Nice post", created.Body)
	assert.WithinDuration(t, now, created.CreatedAt, time.Second)
}

func TestGetCommentsByArticleId(t *testing.T) {
	c, mock := newTestCore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM comments").
		WithArgs(int64(1)).
		WillReturnRows(commentRows(mock).
			AddRow(int64(13), "second", int64(5), int64(1), now, now).
			AddRow(int64(12), "first", int64(5), int64(1), now.Add(-time.Minute), now.Add(-time.Minute)))

	comments, err := c.GetCommentsByArticleId(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, int64(13), comments[0].ID)
}

func TestGetCommentByIdReturnsArticleSlug(t *testing.T) {
	c, mock := newTestCore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM comments").
		WithArgs(int64(12)).
		WillReturnRows(mock.NewRows([]string{"id", "body", "author_id", "article_id", "created_at", "updated_at", "slug"}).
			AddRow(int64(12), "Nice post", int64(5), int64(1), now, now, "how-to-train-your-dragon-abc123"))

	comment, slug, err := c.GetCommentById(context.Background(), 12)

	require.NoError(t, err)
	assert.Equal(t, int64(12), comment.ID)
	assert.Equal(t, "how-to-train-your-dragon-abc123", slug)
}

func TestGetCommentByIdNotFound(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT (.+) FROM comments").
		WithArgs(int64(99)).
		WillReturnRows(mock.NewRows([]string{"id", "body", "author_id", "article_id", "created_at", "updated_at", "slug"}))

	_, _, err := c.GetCommentById(context.Background(), 99)

	assert.True(t, errors.Is(err, NoRecordFound))
}

func TestDeleteCommentMissing(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectExec("DELETE FROM comments").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.DeleteComment(context.Background(), 99)

	assert.True(t, errors.Is(err, NoRecordFound))
}

func TestDeleteComment(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectExec("DELETE FROM comments").
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, c.DeleteComment(context.Background(), 12))
}
