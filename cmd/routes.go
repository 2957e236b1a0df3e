package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)

	// No authentication required for these routes
	router.HandlerFunc(http.MethodPost, "/api/users", app.registerUser)
	router.HandlerFunc(http.MethodPost, "/api/users/login", app.login)
	router.HandlerFunc(http.MethodGet, "/api/profiles/:username", app.getProfile)
	router.HandlerFunc(http.MethodGet, "/api/articles", app.getArticles)
	router.HandlerFunc(http.MethodGet, "/api/articles/:slug/comments", app.getComments)
	router.HandlerFunc(http.MethodGet, "/api/tags", app.getTags)

	// Authentication required for these routes
	router.HandlerFunc(http.MethodGet, "/api/user", app.requireAuthenticatedUser(app.getCurrentUser))
	router.HandlerFunc(http.MethodPut, "/api/user", app.requireAuthenticatedUser(app.updateUser))
	router.HandlerFunc(http.MethodPost, "/api/profiles/:username/follow", app.requireAuthenticatedUser(app.followUser))
	router.HandlerFunc(http.MethodDelete, "/api/profiles/:username/follow", app.requireAuthenticatedUser(app.unfollowUser))
	router.HandlerFunc(http.MethodPost, "/api/articles", app.requireAuthenticatedUser(app.createArticle))
	router.HandlerFunc(http.MethodPut, "/api/articles/:slug", app.requireAuthenticatedUser(app.updateArticle))
	router.HandlerFunc(http.MethodDelete, "/api/articles/:slug", app.requireAuthenticatedUser(app.deleteArticle))
	router.HandlerFunc(http.MethodPost, "/api/articles/:slug/favorite", app.requireAuthenticatedUser(app.favoriteArticle))
	router.HandlerFunc(http.MethodDelete, "/api/articles/:slug/favorite", app.requireAuthenticatedUser(app.unfavoriteArticle))
	router.HandlerFunc(http.MethodPost, "/api/articles/:slug/comments", app.requireAuthenticatedUser(app.createComment))
	router.HandlerFunc(http.MethodDelete, "/api/articles/:slug/comments/:id", app.requireAuthenticatedUser(app.deleteComment))

	// GET /api/articles/feed is dispatched inside getArticle: httprouter
	// cannot register a static segment next to the :slug wildcard.
	router.HandlerFunc(http.MethodGet, "/api/articles/:slug", app.getArticle)

	return app.recoverPanic(app.requestID(app.authenticate(router)))
}
