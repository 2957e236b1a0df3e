package core

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/auth"
)

func TestCreateUserAssignsId(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("jacob", "jake@jake.jake", []byte("hash"), nil, nil).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(7)))

	user := &auth.User{Username: "jacob", Email: "jake@jake.jake", Password: []byte("hash")}
	err := c.CreateUser(context.Background(), user)

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := c.CreateUser(context.Background(), &auth.User{Username: "jacob", Email: "jake@jake.jake", Password: []byte("hash")})

	assert.True(t, errors.Is(err, ErrDuplicateEmail))
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

	err := c.CreateUser(context.Background(), &auth.User{Username: "jacob", Email: "jake@jake.jake", Password: []byte("hash")})

	assert.True(t, errors.Is(err, ErrDuplicateUsername))
}

func TestGetUserByEmailNotFound(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("missing@jake.jake").
		WillReturnRows(userRows(mock))

	_, err := c.GetUserByEmail(context.Background(), "missing@jake.jake")

	assert.True(t, errors.Is(err, NoRecordFound))
}

func TestGetUsersByIdListEmpty(t *testing.T) {
	c, _ := newTestCore(t)

	users, err := c.GetUsersByIdList(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUpdateUserDuplicateEmail(t *testing.T) {
	c, mock := newTestCore(t)

	mock.ExpectQuery("UPDATE users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := c.UpdateUser(context.Background(), &auth.User{ID: 1, Username: "jacob", Email: "taken@jake.jake", Password: []byte("hash")})

	assert.True(t, errors.Is(err, ErrDuplicateEmail))
}
