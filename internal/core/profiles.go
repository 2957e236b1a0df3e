package core

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mdobak/go-xerrors"

	"conduit/internal/auth"
	"conduit/internal/utils/databaseutils"
	"conduit/models"
)

var ErrSelfFollow = xerrors.Message("Cannot follow yourself")

func scanProfile(rows *sql.Rows) (*models.Profile, error) {
	profile := &models.Profile{}
	if err := rows.Scan(
		&profile.ID,
		&profile.Username,
		&profile.Bio,
		&profile.Image,
		&profile.Following,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return profile, nil
}

// GetProfile fetches the user and the viewer's following flag in one query.
// A nil viewer always reads following=false.
func (c *Core) GetProfile(ctx context.Context, username string, viewer *auth.User) (*models.Profile, error) {
	query := `
		SELECT u.id, u.username, u.bio, u.image,
			EXISTS (
				SELECT 1 FROM user_follows WHERE follower_id = $2 AND followed_id = u.id
			)
		FROM users u
		WHERE u.username = $1
	`

	profile, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanProfile, username, viewerID(viewer))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, xerrors.New(NoRecordFound)
		default:
			return nil, xerrors.New(err)
		}
	}

	return profile, nil
}

func (c *Core) GetProfileByUserId(ctx context.Context, userID int64, viewer *auth.User) (*models.Profile, error) {
	query := `
		SELECT u.id, u.username, u.bio, u.image,
			EXISTS (
				SELECT 1 FROM user_follows WHERE follower_id = $2 AND followed_id = u.id
			)
		FROM users u
		WHERE u.id = $1
	`

	profile, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanProfile, userID, viewerID(viewer))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, xerrors.New(NoRecordFound)
		default:
			return nil, xerrors.New(err)
		}
	}

	return profile, nil
}

// FollowUser adds the follow edge. Following an already-followed user is a
// no-op, the returned profile always reads following=true.
func (c *Core) FollowUser(ctx context.Context, follower *auth.User, followeeUsername string) (*models.Profile, error) {
	followee, err := c.GetUserByUsername(ctx, followeeUsername)
	if err != nil {
		return nil, err
	}

	if followee.ID == follower.ID {
		return nil, xerrors.New(ErrSelfFollow)
	}

	insertSQL := `
		INSERT INTO user_follows (follower_id, followed_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followed_id) DO NOTHING
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, insertSQL, follower.ID, followee.ID); err != nil {
		return nil, xerrors.New(err)
	}

	profile, err := c.GetProfile(ctx, followeeUsername, follower)
	if err != nil {
		return nil, err
	}

	profile.Following = true
	return profile, nil
}

// UnfollowUser removes the follow edge, a no-op when it does not exist.
func (c *Core) UnfollowUser(ctx context.Context, follower *auth.User, followeeUsername string) (*models.Profile, error) {
	followee, err := c.GetUserByUsername(ctx, followeeUsername)
	if err != nil {
		return nil, err
	}

	deleteSQL := `
		DELETE FROM user_follows
		WHERE follower_id = $1 AND followed_id = $2
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, deleteSQL, follower.ID, followee.ID); err != nil {
		return nil, xerrors.New(err)
	}

	profile, err := c.GetProfile(ctx, followeeUsername, follower)
	if err != nil {
		return nil, err
	}

	profile.Following = false
	return profile, nil
}

// GetFollowingIdList returns the ids of every user the given user follows.
func (c *Core) GetFollowingIdList(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT followed_id
		FROM user_follows
		WHERE follower_id = $1
	`

	ids, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (int64, error) {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, xerrors.New(err)
		}
		return id, nil
	}, userID)

	if err != nil {
		return nil, xerrors.New(err)
	}

	return ids, nil
}

func viewerID(viewer *auth.User) int64 {
	if viewer == nil {
		return 0
	}
	return viewer.ID
}
