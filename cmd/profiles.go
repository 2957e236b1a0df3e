package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"conduit/internal/core"
	"conduit/models"
)

func (app *application) getProfile(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	username := params.ByName("username")

	viewer, _ := app.auth.GetAuthenticatedUser(r)

	profile, err := app.core.GetProfile(r.Context(), username, viewer)
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

	if err := app.writeJSON(w, http.StatusOK, profileResponse(profile), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) followUser(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	username := params.ByName("username")

	follower, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}

	profile, err := app.core.FollowUser(r.Context(), follower, username)
	if err != nil {
		switch {
		case errors.Is(err, core.NoRecordFound):
			app.notFoundResponse(w, r)
			return
		case errors.Is(err, core.ErrSelfFollow):
			app.badRequestResponse(w, r, &AppError{ErrorMessage: "You cannot follow yourself"})
			return
		default:
			app.internalErrorResponse(w, r, err)
			return
		}
	}

	if err := app.writeJSON(w, http.StatusOK, profileResponse(profile), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) unfollowUser(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	username := params.ByName("username")

	follower, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r)
		return
	}

	profile, err := app.core.UnfollowUser(r.Context(), follower, username)
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

	if err := app.writeJSON(w, http.StatusOK, profileResponse(profile), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func profileResponse(profile *models.Profile) envelope {
	return envelope{"profile": profile}
}
