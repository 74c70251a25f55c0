package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yeomin4242/guesswhat"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

const (
	// detailQuestionLimit caps the questions served to a player.
	detailQuestionLimit = 50

	// profileGameLimit is the number of recent games on a profile.
	profileGameLimit = 5
)

// openDB connects to Postgres and, when asked, migrates the schema.
func openDB(cfg *Config, zl *zap.Logger) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	gl := zapgorm2.New(zl)
	gl.SlowThreshold = 200 * time.Millisecond
	gl.IgnoreRecordNotFoundError = true
	gl.SetAsDefault()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         gl.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if cfg.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return db, nil
}

// encodeTags stores tags trimmed, always as a JSON array.
func encodeTags(tags []string) datatypes.JSON {
	tags = guesswhat.NormalizeTags(tags)
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		// []string always marshals
		panic(err)
	}

	return datatypes.JSON(raw)
}

// insertGame stores a new game and its questions in one transaction.
func insertGame(ctx context.Context, db *gorm.DB, game *Game, questions []guesswhat.Question) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Creator", "Questions").Create(game).Error; err != nil {
			return fmt.Errorf("insert game: %w", err)
		}

		if len(questions) == 0 {
			return nil
		}

		props := propsFromQuestions(game.ID, questions)
		if err := tx.Create(&props).Error; err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		game.Questions = props

		return nil
	})
}

// replaceGame updates a game owned by creatorID and swaps its questions for
// the given set, all in one transaction. A game that does not exist or
// belongs to someone else yields gorm.ErrRecordNotFound.
func replaceGame(ctx context.Context, db *gorm.DB, gameID, creatorID int64, p *guesswhat.GamePayload) (*Game, error) {
	var game Game
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"title":         p.Title,
			"description":   p.Description,
			"thumbnail_url": p.ThumbnailURL,
			"tags":          encodeTags(p.Tags),
			"updated_at":    time.Now().UTC(),
		}
		if p.IsVisible != nil {
			updates["is_visible"] = *p.IsVisible
		}

		res := tx.Model(&Game{}).Where("id = ? AND creator_id = ?", gameID, creatorID).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update game: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("game_id = ?", gameID).Delete(&GameProp{}).Error; err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}

		if len(p.Questions) > 0 {
			props := propsFromQuestions(gameID, p.Questions)
			if err := tx.Create(&props).Error; err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}

		return tx.Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).First(&game, gameID).Error
	})
	if err != nil {
		return nil, err
	}

	return &game, nil
}

// listQuery selects one page of the public game list.
type listQuery struct {
	Filter  guesswhat.SortFilter
	Keyword string
	Page    guesswhat.Page
}

// listGames returns one page of visible games and the number of matches.
func listGames(ctx context.Context, db *gorm.DB, q listQuery) ([]Game, int64, error) {
	base := db.WithContext(ctx).Model(&Game{}).Where("is_visible = ?", true)
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		base = base.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(kw)+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count games: %w", err)
	}

	find := base.Session(&gorm.Session{}).Preload("Creator")
	switch q.Filter {
	case guesswhat.FilterLatest:
		find = find.Order("created_at DESC").Order("id DESC")
	case guesswhat.FilterPopularity:
		find = find.Order("title ASC").Order("id ASC")
	}

	var games []Game
	if err := find.Limit(q.Page.Size).Offset(q.Page.Offset()).Find(&games).Error; err != nil {
		return nil, 0, fmt.Errorf("list games: %w", err)
	}

	return games, total, nil
}

type voteCount struct {
	GameID int64
	Count  int64
}

// countVotes aggregates votes for exactly the given games.
func countVotes(ctx context.Context, db *gorm.DB, ids []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []voteCount
	err := db.WithContext(ctx).Model(&Vote{}).
		Select("game_id, COUNT(*) AS count").
		Where("game_id IN ?", ids).
		Group("game_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	for _, r := range rows {
		counts[r.GameID] = r.Count
	}

	return counts, nil
}

// getGameForPlay loads a game with its newest questions.
func getGameForPlay(ctx context.Context, db *gorm.DB, id int64) (*Game, error) {
	var game Game
	err := db.WithContext(ctx).Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("id DESC").Limit(detailQuestionLimit)
	}).First(&game, id).Error
	if err != nil {
		return nil, err
	}

	return &game, nil
}

// getOwnedGame loads a game with all its questions if creatorID owns it.
func getOwnedGame(ctx context.Context, db *gorm.DB, id, creatorID int64) (*Game, error) {
	var game Game
	err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND creator_id = ?", id, creatorID).
		First(&game).Error
	if err != nil {
		return nil, err
	}

	return &game, nil
}

func getUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func getUser(ctx context.Context, db *gorm.DB, id int64) (*User, error) {
	var user User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func createUser(ctx context.Context, db *gorm.DB, user *User) error {
	return db.WithContext(ctx).Create(user).Error
}

// recentGames returns the newest games of a creator, hidden ones included.
func recentGames(ctx context.Context, db *gorm.DB, creatorID int64, limit int) ([]Game, error) {
	var games []Game
	err := db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&games).Error

	return games, err
}

func updateUserEmail(ctx context.Context, db *gorm.DB, id int64, email string) error {
	res := db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("email", email)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
