package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/yeomin4242/guesswhat/auth"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Define context key type to avoid collisions
type contextKey string

const (
	userContextKey contextKey = "user"

	// Identity headers are rewritten from the verified user for downstream
	// logging. Handlers read the user from the context only.
	userIDHeader    = "X-User-Id"
	userEmailHeader = "X-User-Email"

	noTokenMessage      = "Unauthorized: No access token found."
	invalidTokenMessage = "Unauthorized: Invalid access token or user not found."
)

// isProtected reports whether path needs an authenticated user.
func (a *App) isProtected(path string) bool {
	for _, p := range a.cfg.ProtectedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}

// authGuard rejects unauthenticated requests to protected prefixes and puts
// the verified user in the request context for the rest.
func (a *App) authGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Never trust identity headers sent by the client.
		r.Header.Del(userIDHeader)
		r.Header.Del(userEmailHeader)

		if !a.isProtected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.authenticate(r)
		if err != nil {
			msg := invalidTokenMessage
			switch {
			case errors.Is(err, auth.ErrNoToken):
				msg = noTokenMessage
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, gorm.ErrRecordNotFound):
				log.Debugw("rejected token", "path", r.URL.Path, zap.Error(err))
			default:
				log.Errorw("could not authenticate request", "path", r.URL.Path, zap.Error(err))
			}
			renderError(w, http.StatusUnauthorized, msg)
			return
		}

		r.Header.Set(userIDHeader, strconv.FormatInt(user.ID, 10))
		r.Header.Set(userEmailHeader, user.Email)

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify resolves the request's token to a provider identity.
func (a *App) identify(r *http.Request) (*auth.Identity, error) {
	token, err := auth.TokenFromRequest(r, a.cfg.AuthCookie)
	if err != nil {
		return nil, err
	}

	id, err := a.gateway.Lookup(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if id.Email == "" {
		return nil, auth.ErrInvalidToken
	}

	return id, nil
}

// authenticate resolves the request's token to a registered user.
func (a *App) authenticate(r *http.Request) (*User, error) {
	id, err := a.identify(r)
	if err != nil {
		return nil, err
	}

	return getUserByEmail(r.Context(), a.db, id.Email)
}

// getUserFromContext retrieves the authenticated user from the request context
func getUserFromContext(r *http.Request) (*User, bool) {
	user, ok := r.Context().Value(userContextKey).(*User)
	return user, ok && user != nil
}

// requireUser returns the user set by authGuard. Routes left out of the
// protected prefixes get a 401 instead.
func requireUser(w http.ResponseWriter, r *http.Request) (*User, bool) {
	user, ok := getUserFromContext(r)
	if !ok {
		renderError(w, http.StatusUnauthorized, noTokenMessage)
	}

	return user, ok
}

// RegisterResponse is returned after an OAuth sign in.
type RegisterResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
	UserID  int64  `json:"userId,omitempty"`
}

// @Summary Register an OAuth user
// @Description Creates the user row for the signed in account if it does not exist yet
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RegisterResponse "User already exists"
// @Success 201 {object} RegisterResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/oauth/register [post]
func (a *App) registerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := a.identify(r)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			renderError(w, http.StatusUnauthorized, noTokenMessage)
			return
		}
		if !errors.Is(err, auth.ErrInvalidToken) {
			log.Errorw("could not look up identity", zap.Error(err))
		}
		renderError(w, http.StatusUnauthorized, invalidTokenMessage)
		return
	}

	ctx := r.Context()
	existing, err := getUserByEmail(ctx, a.db, id.Email)
	switch {
	case err == nil:
		renderJSON(w, http.StatusOK, RegisterResponse{Message: "User already exists", Email: existing.Email, UserID: existing.ID})
		return
	case !errors.Is(err, gorm.ErrRecordNotFound):
		log.Errorw("could not check user", "email", id.Email, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not check user")
		return
	}

	user := &User{
		Email: id.Email,
		Type:  strings.ToUpper(id.Provider),
		Role:  "USER",
	}
	if err := createUser(ctx, a.db, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			renderError(w, http.StatusConflict, "User already exists (Duplicate entry detected)")
			return
		}
		log.Errorw("could not register user", "email", id.Email, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "User registration failed")
		return
	}

	log.Infow("user registered", "user_id", user.ID, "provider", user.Type)
	renderJSON(w, http.StatusCreated, RegisterResponse{Message: "User registered successfully", Email: user.Email, UserID: user.ID})
}
