package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"conduit/internal/web"
)

const requestIDCtxKey = "request_id"

// authenticate resolves the caller identity once at the boundary. A missing
// or invalid token leaves the request anonymous; routes that need a caller
// enforce it through requireAuthenticatedUser.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		authorization := r.Header.Get("Authorization")
		if authorization != "" {
			authorizationParts := strings.Split(authorization, " ")
			if len(authorizationParts) == 2 && authorizationParts[0] == "Token" {
				token := authorizationParts[1]
				claim, err := app.auth.Authenticate(token)
				if err == nil {
					user, err := app.core.GetUserByID(r.Context(), claim.UserID)
					if err == nil {
						user.Token = token
						r = app.auth.SetAuthenticatedUser(r, user)
					}
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (app *application) requireAuthenticatedUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !app.auth.IsUserAuthenticated(r) {
			app.authenticationRequiredResponse(w, r)
			return
		}
		next(w, r)
	}
}

func (app *application) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		r = web.AddValueToContext(r, requestIDCtxKey, id)

		app.logger.Debug("handling request",
			"request_id", id,
			"request_method", r.Method,
			"request_url", r.URL.String(),
		)

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.internalErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
