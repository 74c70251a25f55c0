package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yeomin4242/guesswhat"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProfileGame is a game card on a profile.
type ProfileGame struct {
	GameID       int64     `json:"gameId"`
	Title        string    `json:"title"`
	Tags         []string  `json:"tags"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	IsVisible    bool      `json:"isVisible"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProfileResponse is a user with their most recent games.
type ProfileResponse struct {
	Email string        `json:"email"`
	Games []ProfileGame `json:"games"`
}

// UpdateProfileRequest changes the email of a user.
type UpdateProfileRequest struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

// UpdateProfileResponse echoes the stored email.
type UpdateProfileResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// @Summary Get a profile
// @Description Returns a user's email and their five most recent games
// @Tags profile
// @Produce json
// @Param userId query int true "User ID"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/profile/me [get]
func (a *App) profileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(ugcPolicy.Sanitize(r.URL.Query().Get("userId")), 10, 64)
	if err != nil || id <= 0 {
		renderError(w, http.StatusBadRequest, "userId is required")
		return
	}

	user, err := getUser(ctx, a.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Errorw("could not get user", "user_id", id, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not get profile")
		return
	}

	games, err := recentGames(ctx, a.db, user.ID, profileGameLimit)
	if err != nil {
		log.Errorw("could not get games", "user_id", id, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not get profile")
		return
	}

	out := ProfileResponse{Email: user.Email, Games: make([]ProfileGame, 0, len(games))}
	for _, g := range games {
		out.Games = append(out.Games, ProfileGame{
			GameID:       g.ID,
			Title:        g.Title,
			Tags:         guesswhat.DecodeTags(g.Tags),
			ThumbnailURL: g.ThumbnailURL,
			IsVisible:    g.IsVisible,
			CreatedAt:    g.CreatedAt,
			UpdatedAt:    g.UpdatedAt,
		})
	}

	renderJSON(w, http.StatusOK, out)
}

// @Summary Update a profile
// @Description Changes the caller's email
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Profile"
// @Success 200 {object} UpdateProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/profile/update [post]
func (a *App) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.UserID <= 0 || req.Email == "" {
		renderError(w, http.StatusBadRequest, "userId and email are required")
		return
	}
	if req.UserID != user.ID {
		renderError(w, http.StatusForbidden, "cannot update another user's profile")
		return
	}

	if err := updateUserEmail(r.Context(), a.db, req.UserID, req.Email); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			renderError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, gorm.ErrDuplicatedKey):
			renderError(w, http.StatusConflict, "email is already in use")
		default:
			log.Errorw("could not update profile", "user_id", user.ID, zap.Error(err))
			renderError(w, http.StatusInternalServerError, "could not update profile")
		}
		return
	}

	renderJSON(w, http.StatusOK, UpdateProfileResponse{Message: "Profile updated successfully", Email: req.Email})
}
