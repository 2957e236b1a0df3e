package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"conduit/internal/auth"
	"conduit/internal/core"
	"conduit/internal/utils/collectionutils"
	"conduit/internal/utils/databaseutils"
	"conduit/internal/utils/functional"
	"conduit/internal/validator"
	"conduit/models"
)

// CommentResponse is the wire shape of a comment with its author profile.
type CommentResponse struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Body      string          `json:"body"`
	Author    *models.Profile `json:"author"`
}

func (app *application) createComment(w http.ResponseWriter, r *http.Request) {
	type createCommentPayload struct {
		Body string `json:"body"`
	}

	type CreateCommentRequest struct {
		createCommentPayload `json:"comment"`
	}

	var createCommentRequest CreateCommentRequest

	if err := app.readJSON(w, r, &createCommentRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

	v := validator.New()
	v.CheckNotBlank(createCommentRequest.Body, "body", "must be provided")

	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	params := httprouter.ParamsFromContext(r.Context())
	slug := params.ByName("slug")

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}

	comment, err := databaseutils.DoTransactionally(r.Context(), app.session, func(txCtx context.Context) (*models.Comment, error) {
		article, err := app.core.GetArticleBySlug(txCtx, slug)
		if err != nil {
			return nil, err
		}

		return app.core.CreateComment(txCtx, &models.Comment{
			Body:      createCommentRequest.Body,
			ArticleID: article.ID,
			AuthorID:  user.ID,
		})
	})

	if err != nil {
		switch {
		case errors.Is(err, core.NoRecordFound):
			app.notFoundResponse(w, r)
			return
		default:
			app.internalErrorResponse(w, r, err)
			return
		}
	}

	profile, err := app.core.GetProfileByUserId(r.Context(), comment.AuthorID, user)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	response := envelope{"comment": commentResponse(comment, profile)}
	if err := app.writeJSON(w, http.StatusCreated, response, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) getComments(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	slug := params.ByName("slug")

	article, err := app.core.GetArticleBySlug(r.Context(), slug)
	if err != nil {
		switch {
		case errors.Is(err, core.NoRecordFound):
			app.notFoundResponse(w, r)
			return
		default:
			app.internalErrorResponse(w, r, err)
			return
		}
	}

	comments, err := app.core.GetCommentsByArticleId(r.Context(), article.ID)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	viewer, _ := app.auth.GetAuthenticatedUser(r)

	authorIdList := functional.Map(comments, func(c *models.Comment) int64 { return c.AuthorID })
	authors, err := app.core.GetUsersByIdList(r.Context(), authorIdList)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}
	authorByUserId := collectionutils.Associate(authors, func(user *auth.User) (int64, *auth.User) {
		return user.ID, user
	})

	followingByUserId := make(map[int64]bool)
	if viewer != nil {
		followingIds, err := app.core.GetFollowingIdList(r.Context(), viewer.ID)
		if err != nil {
			app.internalErrorResponse(w, r, err)
			return
		}
		for _, id := range followingIds {
			followingByUserId[id] = true
		}
	}

	commentResponses := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		author := authorByUserId[comment.AuthorID]
		profile := &models.Profile{
			Username:  author.Username,
			Bio:       author.Bio,
			Image:     author.Image,
			Following: collectionutils.GetOrDefault(followingByUserId, comment.AuthorID, false),
		}
		commentResponses = append(commentResponses, commentResponse(comment, profile))
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"comments": commentResponses}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) deleteComment(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	slug := params.ByName("slug")

	commentID, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	comment, articleSlug, err := app.core.GetCommentById(r.Context(), commentID)
	if err != nil {
		switch {
		case errors.Is(err, core.NoRecordFound):
			app.notFoundResponse(w, r)
			return
		default:
			app.internalErrorResponse(w, r, err)
			return
		}
	}

	// A comment id addressed through the wrong article reads as missing, so
	// ids cannot be probed across articles.
	if articleSlug != slug {
		app.notFoundResponse(w, r)
		return
	}

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}
	if comment.AuthorID != user.ID {
		app.unauthorizedResponse(w, r, &AppError{ErrorMessage: "You are not the author of this comment"})
		return
	}

	if err := app.core.DeleteComment(r.Context(), comment.ID); err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func commentResponse(comment *models.Comment, author *models.Profile) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
		Author:    author,
	}
}
