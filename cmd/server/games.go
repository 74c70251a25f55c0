package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/yeomin4242/guesswhat"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GameDetail is a game as served to a player.
type GameDetail struct {
	ThumbnailURL string               `json:"thumbnailUrl"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Questions    []guesswhat.Question `json:"questions"`
	Modes        []string             `json:"modes"`
}

// EditableGame is a game as served to its owner for editing.
type EditableGame struct {
	GameID       int64                `json:"gameId"`
	ThumbnailURL string               `json:"thumbnailUrl"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Tags         []string             `json:"tags"`
	IsVisible    bool                 `json:"isVisible"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
	Questions    []guesswhat.Question `json:"questions"`
}

// CreateGameResponse is returned after a game is created.
type CreateGameResponse struct {
	Message  string              `json:"message"`
	GameID   int64               `json:"gameId"`
	Warnings []guesswhat.Warning `json:"warnings"`
}

// UpdateGameResponse is returned after a game is updated.
type UpdateGameResponse struct {
	Data     EditableGame        `json:"data"`
	Warnings []guesswhat.Warning `json:"warnings"`
}

func editableGame(g *Game) EditableGame {
	return EditableGame{
		GameID:       g.ID,
		ThumbnailURL: g.ThumbnailURL,
		Title:        g.Title,
		Description:  g.Description,
		Tags:         guesswhat.DecodeTags(g.Tags),
		IsVisible:    g.IsVisible,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
		Questions:    questionsFromProps(g.Questions),
	}
}

func warningsOrEmpty(ws []guesswhat.Warning) []guesswhat.Warning {
	if ws == nil {
		return []guesswhat.Warning{}
	}

	return ws
}

// parseGameID reads the gameId query parameter.
func parseGameID(r *http.Request) (int64, bool) {
	raw := ugcPolicy.Sanitize(r.URL.Query().Get("gameId"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// @Summary List games
// @Description Returns one page of visible games
// @Tags games
// @Produce json
// @Param size query int false "Page size"
// @Param page query int false "Page number, starting at 1"
// @Param filter query string false "recommended, latest or popularity"
// @Param keyword query string false "Title substring"
// @Success 200 {object} guesswhat.ListPage
// @Failure 500 {object} ErrorResponse
// @Router /api/game [get]
func (a *App) listGamesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	q := listQuery{
		Filter:  guesswhat.ParseSortFilter(ugcPolicy.Sanitize(query.Get("filter"))),
		Keyword: query.Get("keyword"),
		Page:    guesswhat.ParsePage(query.Get("page"), query.Get("size"), a.cfg.MaxPageSize),
	}

	games, total, err := listGames(ctx, a.db, q)
	if err != nil {
		log.Errorw("could not list games", "filter", q.Filter, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not list games")
		return
	}

	items := make([]guesswhat.ListItem, 0, len(games))
	ids := make([]int64, 0, len(games))
	for i := range games {
		items = append(items, games[i].listItem())
		ids = append(ids, games[i].ID)
	}

	counts, err := countVotes(ctx, a.db, ids)
	if err != nil {
		log.Errorw("could not count votes", zap.Error(err))
		counts = nil
	}
	guesswhat.ApplyVotes(items, counts)

	if q.Filter == guesswhat.FilterRecommended {
		guesswhat.RankByVotes(items)
	}

	renderJSON(w, http.StatusOK, guesswhat.ListPage{
		Size:        q.Page.Size,
		Page:        q.Page.Number,
		TotalPage:   guesswhat.TotalPages(total, q.Page.Size),
		TotalNumber: total,
		Games:       items,
	})
}

// @Summary Get a game to play
// @Description Returns a game with up to 50 of its newest questions in random order
// @Tags games
// @Produce json
// @Param gameId query int true "Game ID"
// @Success 200 {object} GameDetail
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/game/detail [get]
func (a *App) gameDetailHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		renderError(w, http.StatusBadRequest, "gameId is required")
		return
	}

	game, err := getGameForPlay(r.Context(), a.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderError(w, http.StatusNotFound, "game not found")
			return
		}
		log.Errorw("could not get game", "game_id", id, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not get game")
		return
	}

	questions := questionsFromProps(game.Questions)
	guesswhat.Shuffle(a.rand, questions)

	renderJSON(w, http.StatusOK, GameDetail{
		ThumbnailURL: game.ThumbnailURL,
		Title:        game.Title,
		Description:  game.Description,
		Questions:    questions,
		Modes:        guesswhat.CalculateGameModes(len(questions)),
	})
}

// @Summary Get a game to edit
// @Description Returns a game owned by the caller with all its questions
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param gameId query int true "Game ID"
// @Success 200 {object} EditableGame
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/game/edit [get]
func (a *App) editGameHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, ok := parseGameID(r)
	if !ok {
		renderError(w, http.StatusBadRequest, "gameId is required")
		return
	}

	game, err := getOwnedGame(r.Context(), a.db, id, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderError(w, http.StatusNotFound, "game not found")
			return
		}
		log.Errorw("could not get game", "game_id", id, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not get game")
		return
	}

	renderJSON(w, http.StatusOK, editableGame(game))
}

// decodeGame reads and validates a create or update body. It writes the
// error response itself and reports whether the caller should continue.
func (a *App) decodeGame(w http.ResponseWriter, r *http.Request) (*guesswhat.GamePayload, bool) {
	var p guesswhat.GamePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		renderError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if err := guesswhat.Validate(&p, a.cfg.MinQuestions); err != nil {
		var verr *guesswhat.ValidationError
		if errors.As(err, &verr) {
			renderError(w, http.StatusBadRequest, verr.Message)
			return nil, false
		}
		log.Errorw("could not validate game", zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not validate game")
		return nil, false
	}

	return &p, true
}

// revert undoes the media moves of a submission whose write failed.
func (a *App) revert(ctx context.Context, moves []guesswhat.Move) {
	if len(moves) == 0 {
		return
	}

	if err := a.promoter.Revert(context.WithoutCancel(ctx), moves); err != nil {
		log.Errorw("could not revert media moves", "moves", len(moves), zap.Error(err))
	}
}

// @Summary Create a game
// @Description Creates a game for the caller and moves its uploaded media out of the temp folder
// @Tags games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param game body guesswhat.GamePayload true "Game"
// @Success 201 {object} CreateGameResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/game/create [post]
func (a *App) createGameHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, ok := a.decodeGame(w, r)
	if !ok {
		return
	}

	promo, err := a.promoter.PromoteGameImages(ctx, p.ThumbnailURL, p.Questions)
	if err != nil {
		promotionsTotal.WithLabelValues("failed").Inc()
		log.Errorw("could not promote media", "user_id", user.ID, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not store game media")
		return
	}
	observePromotion(promo)

	game := &Game{
		CreatorID:    user.ID,
		Title:        p.Title,
		Description:  p.Description,
		ThumbnailURL: promo.ThumbnailURL,
		Tags:         encodeTags(p.Tags),
		IsVisible:    true,
		Type:         "PHOTO",
	}
	if err := insertGame(ctx, a.db, game, promo.Questions); err != nil {
		gameWritesTotal.WithLabelValues("create", "failed").Inc()
		a.revert(ctx, promo.Moves)
		log.Errorw("could not create game", "user_id", user.ID, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not create game")
		return
	}
	gameWritesTotal.WithLabelValues("create", "ok").Inc()

	log.Infow("game created", "game_id", game.ID, "user_id", user.ID, "questions", len(promo.Questions), "warnings", len(promo.Warnings))
	renderJSON(w, http.StatusCreated, CreateGameResponse{
		Message:  "Game created successfully",
		GameID:   game.ID,
		Warnings: warningsOrEmpty(promo.Warnings),
	})
}

// @Summary Update a game
// @Description Replaces a game owned by the caller, including its full question set
// @Tags games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param game body guesswhat.GamePayload true "Game with gameId"
// @Success 200 {object} UpdateGameResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/game/update [post]
func (a *App) updateGameHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, ok := a.decodeGame(w, r)
	if !ok {
		return
	}
	if p.GameID <= 0 {
		renderError(w, http.StatusBadRequest, "gameId is required")
		return
	}

	promo, err := a.promoter.PromoteGameImages(ctx, p.ThumbnailURL, p.Questions)
	if err != nil {
		promotionsTotal.WithLabelValues("failed").Inc()
		log.Errorw("could not promote media", "game_id", p.GameID, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not store game media")
		return
	}
	observePromotion(promo)

	p.ThumbnailURL = promo.ThumbnailURL
	p.Questions = promo.Questions

	game, err := replaceGame(ctx, a.db, p.GameID, user.ID, p)
	if err != nil {
		a.revert(ctx, promo.Moves)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			gameWritesTotal.WithLabelValues("update", "not_found").Inc()
			renderError(w, http.StatusNotFound, "game not found")
			return
		}
		gameWritesTotal.WithLabelValues("update", "failed").Inc()
		log.Errorw("could not update game", "game_id", p.GameID, "user_id", user.ID, zap.Error(err))
		renderError(w, http.StatusInternalServerError, "could not update game")
		return
	}
	gameWritesTotal.WithLabelValues("update", "ok").Inc()

	log.Infow("game updated", "game_id", game.ID, "user_id", user.ID, "questions", len(game.Questions))
	renderJSON(w, http.StatusOK, UpdateGameResponse{
		Data:     editableGame(game),
		Warnings: warningsOrEmpty(promo.Warnings),
	})
}
