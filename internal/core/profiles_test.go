package core

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/auth"
)

func profileRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{"id", "username", "bio", "image", "following"})
}

func TestGetProfileAnonymousViewer(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("jacob", int64(0)).
		WillReturnRows(profileRows(mock).AddRow(int64(1), "jacob", nil, nil, false))

	profile, err := c.GetProfile(context.Background(), "jacob", nil)

	require.NoError(t, err)
	assert.Equal(t, "jacob", profile.Username)
	assert.False(t, profile.Following)
	assert.Nil(t, profile.Bio)
}

func TestGetProfileNotFound(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ghost", int64(0)).
		WillReturnRows(profileRows(mock))

	_, err := c.GetProfile(context.Background(), "ghost", nil)

	assert.True(t, errors.Is(err, NoRecordFound))
}

func TestFollowUserSelfFollowRejected(t *testing.T) {
	c, mock := newTestCore(t)

	follower := &auth.User{ID: 1, Username: "jacob"}

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("jacob").
		WillReturnRows(userRows(mock).AddRow(int64(1), "jacob@example.com", "jacob", []byte("hash"), nil, nil))

	_, err := c.FollowUser(context.Background(), follower, "jacob")

	assert.True(t, errors.Is(err, ErrSelfFollow))
}

func TestFollowUserForcesFollowingTrue(t *testing.T) {
	c, mock := newTestCore(t)

	follower := &auth.User{ID: 1, Username: "jacob"}

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("celeb").
		WillReturnRows(userRows(mock).AddRow(int64(2), "celeb@example.com", "celeb", []byte("hash"), nil, nil))

	mock.ExpectExec("INSERT INTO user_follows").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("celeb", int64(1)).
		WillReturnRows(profileRows(mock).AddRow(int64(2), "celeb", nil, nil, true))

	profile, err := c.FollowUser(context.Background(), follower, "celeb")

	require.NoError(t, err)
	assert.Equal(t, "celeb", profile.Username)
	assert.True(t, profile.Following)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowUserUnknownUsername(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ghost").
		WillReturnRows(userRows(mock))

	_, err := c.FollowUser(context.Background(), &auth.User{ID: 1}, "ghost")

	assert.True(t, errors.Is(err, NoRecordFound))
}

func TestUnfollowUserNoopWhenNotFollowing(t *testing.T) {
	c, mock := newTestCore(t)

	follower := &auth.User{ID: 1, Username: "jacob"}

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("celeb").
		WillReturnRows(userRows(mock).AddRow(int64(2), "celeb@example.com", "celeb", []byte("hash"), nil, nil))

	mock.ExpectExec("DELETE FROM user_follows").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("celeb", int64(1)).
		WillReturnRows(profileRows(mock).AddRow(int64(2), "celeb", nil, nil, false))

	profile, err := c.UnfollowUser(context.Background(), follower, "celeb")

	require.NoError(t, err)
	assert.False(t, profile.Following)
}

func TestGetFollowingIdList(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT followed_id").
		WithArgs(int64(1)).
		WillReturnRows(mock.NewRows([]string{"followed_id"}).AddRow(int64(2)).AddRow(int64(3)))

	ids, err := c.GetFollowingIdList(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
}
