package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"conduit/internal/auth"
	"conduit/internal/core"
	"conduit/internal/filter"
	"conduit/internal/utils/collectionutils"
	"conduit/internal/utils/databaseutils"
	"conduit/internal/utils/functional"
	"conduit/internal/validator"
	"conduit/models"
)

// ArticleResponse is the wire shape of a single article, author profile
// nested, favoritesCount always derived live from the relation.
type ArticleResponse struct {
	Slug           string          `json:"slug"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Body           string          `json:"body"`
	TagList        []string        `json:"tagList"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Favorited      bool            `json:"favorited"`
	FavoritesCount int64           `json:"favoritesCount"`
	Author         *models.Profile `json:"author"`
}

func (app *application) createArticle(w http.ResponseWriter, r *http.Request) {
	type createArticlePayload struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Body        string    `json:"body"`
		TagList     *[]string `json:"tagList"`
	}

	type CreateArticleRequest struct {
		createArticlePayload `json:"article"`
	}

	var createArticleRequest CreateArticleRequest

	if err := app.readJSON(w, r, &createArticleRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

	v := validator.New()
	v.CheckNotBlank(createArticleRequest.Title, "title", "must be provided")
	v.CheckNotBlank(createArticleRequest.Description, "description", "must be provided")
	v.CheckNotBlank(createArticleRequest.Body, "body", "must be provided")

	var tagNames []string
	if createArticleRequest.TagList != nil {
		for _, tag := range *createArticleRequest.TagList {
			v.CheckNotBlank(tag, "tagList", "must not contain blank tags")
			tagNames = append(tagNames, strings.TrimSpace(tag))
		}
	}

	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}

	article, err := databaseutils.DoTransactionally(r.Context(), app.session, func(txCtx context.Context) (*models.Article, error) {
		created, err := app.core.CreateArticle(txCtx, &models.Article{
			Title:       createArticleRequest.Title,
			Description: createArticleRequest.Description,
			Body:        createArticleRequest.Body,
			AuthorID:    user.ID,
		})
		if err != nil {
			return nil, err
		}

		if len(tagNames) > 0 {
			tagModels := functional.Map(tagNames, func(name string) *models.Tag {
				return &models.Tag{Name: name}
			})

			tags, err := app.core.CreateTag(txCtx, tagModels)
			if err != nil {
				return nil, err
			}

			if err := app.core.AttachTags(txCtx, created.ID, tags); err != nil {
				return nil, err
			}
		}

		return created, nil
	})

	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	response, err := app.buildArticleResponse(r.Context(), article, user, nil)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusCreated, envelope{"article": response}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) getArticles(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	query := r.URL.Query()
	tagQ := app.readString(query, "tag", "")
	authorQ := app.readString(query, "author", "")
	favoritedQ := app.readString(query, "favorited", "")

	limit := app.readInt(query, "limit", 20, v)
	offset := app.readInt(query, "offset", 0, v)

	filters := filter.NewFilter(limit, offset)
	filter.ValidateFilters(filters, v)
	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	articles, total, err := app.core.GetArticles(r.Context(), filters, tagQ, authorQ, favoritedQ)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	viewer, _ := app.auth.GetAuthenticatedUser(r)
	response, err := app.multiArticleResponse(r.Context(), articles, total, viewer)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, response, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) getFeed(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	query := r.URL.Query()
	limit := app.readInt(query, "limit", 20, v)
	offset := app.readInt(query, "offset", 0, v)

	filters := filter.NewFilter(limit, offset)
	filter.ValidateFilters(filters, v)
	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}

	articles, total, err := app.core.GetFeed(r.Context(), user.ID, filters)
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

	response, err := app.multiArticleResponse(r.Context(), articles, total, user)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, response, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) getArticle(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	slug := params.ByName("slug")

	// The router treats "feed" as a slug, see routes.go.
	if slug == "feed" {
		app.requireAuthenticatedUser(app.getFeed)(w, r)
		return
	}

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

	viewer, _ := app.auth.GetAuthenticatedUser(r)
	response, err := app.buildArticleResponse(r.Context(), article, viewer, nil)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"article": response}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) updateArticle(w http.ResponseWriter, r *http.Request) {
	type updateArticlePayload struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Body        *string   `json:"body"`
		TagList     *[]string `json:"tagList"`
	}

	type UpdateArticleRequest struct {
		updateArticlePayload `json:"article"`
	}

	var updateArticleRequest UpdateArticleRequest

	if err := app.readJSON(w, r, &updateArticleRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

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

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}
	if article.AuthorID != user.ID {
		app.unauthorizedResponse(w, r, &AppError{ErrorMessage: "You are not the author of this article"})
		return
	}

	v := validator.New()
	var tagNames []string

	if updateArticleRequest.Title != nil {
		article.Title = *updateArticleRequest.Title
		v.CheckNotBlank(article.Title, "title", "must not be blank")
	}
	if updateArticleRequest.Description != nil {
		article.Description = *updateArticleRequest.Description
		v.CheckNotBlank(article.Description, "description", "must not be blank")
	}
	if updateArticleRequest.Body != nil {
		article.Body = *updateArticleRequest.Body
		v.CheckNotBlank(article.Body, "body", "must not be blank")
	}
	if updateArticleRequest.TagList != nil {
		for _, tag := range *updateArticleRequest.TagList {
			v.CheckNotBlank(tag, "tagList", "must not contain blank tags")
			tagNames = append(tagNames, strings.TrimSpace(tag))
		}
	}

	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	updated, err := databaseutils.DoTransactionally(r.Context(), app.session, func(txCtx context.Context) (*models.Article, error) {
		updated, err := app.core.UpdateArticle(txCtx, article)
		if err != nil {
			return nil, err
		}

		// A supplied tagList replaces the association set wholesale.
		if updateArticleRequest.TagList != nil {
			var tags []*models.Tag
			if len(tagNames) > 0 {
				tagModels := functional.Map(tagNames, func(name string) *models.Tag {
					return &models.Tag{Name: name}
				})
				tags, err = app.core.CreateTag(txCtx, tagModels)
				if err != nil {
					return nil, err
				}
			}

			if err := app.core.ReplaceArticleTags(txCtx, updated.ID, tags); err != nil {
				return nil, err
			}
		}

		return updated, nil
	})

	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	response, err := app.buildArticleResponse(r.Context(), updated, user, nil)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"article": response}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) deleteArticle(w http.ResponseWriter, r *http.Request) {
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

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}
	if article.AuthorID != user.ID {
		app.unauthorizedResponse(w, r, &AppError{ErrorMessage: "You are not the author of this article"})
		return
	}

	// Comments, tag links and favorites are removed by the cascade rules.
	if err := app.core.DeleteArticle(r.Context(), article.ID); err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) favoriteArticle(w http.ResponseWriter, r *http.Request) {
	app.toggleFavorite(w, r, true)
}

func (app *application) unfavoriteArticle(w http.ResponseWriter, r *http.Request) {
	app.toggleFavorite(w, r, false)
}

// toggleFavorite adds or removes the caller's favorite edge. The article is
// checked before the caller, and the response reads the resulting state no
// matter what was stored before.
func (app *application) toggleFavorite(w http.ResponseWriter, r *http.Request, favorited bool) {
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

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}

	if favorited {
		err = app.core.FavouriteArticle(r.Context(), user.ID, article.ID)
	} else {
		err = app.core.UnfavouriteArticle(r.Context(), user.ID, article.ID)
	}
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	response, err := app.buildArticleResponse(r.Context(), article, user, &favorited)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"article": response}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

// buildArticleResponse assembles the wire shape of one article: tag names,
// live favorites count, favorited flag (forced when the caller just toggled
// it) and the author profile relative to the viewer.
func (app *application) buildArticleResponse(ctx context.Context, article *models.Article, viewer *auth.User, forceFavorited *bool) (*ArticleResponse, error) {
	profile, err := app.core.GetProfileByUserId(ctx, article.AuthorID, viewer)
	if err != nil {
		return nil, err
	}

	tagsByArticleId, err := app.core.GetTagsByArticleId(ctx, []int64{article.ID})
	if err != nil {
		return nil, err
	}
	tagNames := functional.Map(tagsByArticleId[article.ID], func(t models.Tag) string { return t.Name })
	if tagNames == nil {
		tagNames = []string{}
	}

	var isFavorited bool
	if forceFavorited != nil {
		isFavorited = *forceFavorited
	} else {
		isFavorited, err = app.core.IsFavouriteArticleByUser(ctx, article.ID, viewer)
		if err != nil {
			return nil, err
		}
	}

	favoritesCount, err := app.core.FavouriteArticleCount(ctx, article.ID)
	if err != nil {
		return nil, err
	}

	return &ArticleResponse{
		Slug:           article.Slug,
		Title:          article.Title,
		Description:    article.Description,
		Body:           article.Body,
		TagList:        tagNames,
		CreatedAt:      article.CreatedAt,
		UpdatedAt:      article.UpdatedAt,
		Favorited:      isFavorited,
		FavoritesCount: favoritesCount,
		Author:         profile,
	}, nil
}

// multiArticleResponse assembles a page of articles with batched lookups:
// tags, favorited flags, favorite counts, authors and the viewer's followees
// are each fetched once for the whole page.
func (app *application) multiArticleResponse(ctx context.Context, articles []*models.Article, total int64, viewer *auth.User) (envelope, error) {
	articleIdList := functional.Map(articles, func(a *models.Article) int64 { return a.ID })

	tagsByArticleId, err := app.core.GetTagsByArticleId(ctx, articleIdList)
	if err != nil {
		return nil, err
	}

	favouritedByArticleId, err := app.core.FavouriteArticleByArticleId(ctx, articleIdList, viewer)
	if err != nil {
		return nil, err
	}

	favouriteCountByArticleId, err := app.core.FavouriteCountByArticleId(ctx, articleIdList)
	if err != nil {
		return nil, err
	}

	authorIdList := functional.Map(articles, func(a *models.Article) int64 { return a.AuthorID })
	authors, err := app.core.GetUsersByIdList(ctx, authorIdList)
	if err != nil {
		return nil, err
	}
	authorByUserId := collectionutils.Associate(authors, func(user *auth.User) (int64, *auth.User) {
		return user.ID, user
	})

	followingByUserId := make(map[int64]bool)
	if viewer != nil {
		followingIds, err := app.core.GetFollowingIdList(ctx, viewer.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range followingIds {
			followingByUserId[id] = true
		}
	}

	articleResponses := make([]*ArticleResponse, 0, len(articles))
	for _, article := range articles {
		tags := collectionutils.GetOrDefault(tagsByArticleId, article.ID, []models.Tag{})
		tagNames := functional.Map(tags, func(t models.Tag) string { return t.Name })
		if tagNames == nil {
			tagNames = []string{}
		}

		author := authorByUserId[article.AuthorID]
		articleResponses = append(articleResponses, &ArticleResponse{
			Slug:           article.Slug,
			Title:          article.Title,
			Description:    article.Description,
			Body:           article.Body,
			TagList:        tagNames,
			CreatedAt:      article.CreatedAt,
			UpdatedAt:      article.UpdatedAt,
			Favorited:      favouritedByArticleId[article.ID],
			FavoritesCount: favouriteCountByArticleId[article.ID],
			Author: &models.Profile{
				Username:  author.Username,
				Bio:       author.Bio,
				Image:     author.Image,
				Following: collectionutils.GetOrDefault(followingByUserId, article.AuthorID, false),
			},
		})
	}

	return envelope{
		"articles":      articleResponses,
		"articlesCount": total,
	}, nil
}
