package main

import (
	"time"

	"github.com/yeomin4242/guesswhat"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Game represents a quiz in the database
type Game struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatorID    int64          `gorm:"index;not null" json:"creator_id"`
	Title        string         `gorm:"type:text;not null" json:"title"`
	Description  string         `gorm:"type:text;not null" json:"description"`
	ThumbnailURL string         `gorm:"type:text" json:"thumbnail_url"`
	Tags         datatypes.JSON `json:"tags"`
	IsVisible    bool           `gorm:"index;not null" json:"is_visible"`
	Type         string         `gorm:"type:varchar(16);not null" json:"type"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Associations
	Creator   *User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Questions []GameProp `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// GameProp is one question of a game
type GameProp struct {
	ID          int64                       `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID      int64                       `gorm:"index;not null" json:"game_id"`
	Question    string                      `gorm:"type:text;not null" json:"question"`
	QuestionURL string                      `gorm:"type:text" json:"question_url"`
	Answer      datatypes.JSONSlice[string] `json:"answer"`
	AnswerURL   string                      `gorm:"type:text" json:"answer_url"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// TableName keeps the historical table name.
func (GameProp) TableName() string {
	return "game_props"
}

// User is a registered player
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Type      string    `gorm:"type:varchar(32)" json:"type"`
	Role      string    `gorm:"type:varchar(16);not null;default:'USER'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vote is one recommendation of a game by a user
type Vote struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID    int64     `gorm:"index;not null" json:"game_id"`
	UserID    int64     `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AutoMigrate runs the database migrations
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Game{}, &GameProp{}, &Vote{})
}

// propsFromQuestions converts submitted questions to rows of gameID.
func propsFromQuestions(gameID int64, qs []guesswhat.Question) []GameProp {
	props := make([]GameProp, 0, len(qs))
	for _, q := range qs {
		props = append(props, GameProp{
			GameID:      gameID,
			Question:    q.Question,
			QuestionURL: q.QuestionURL,
			Answer:      datatypes.NewJSONSlice(q.Answer),
			AnswerURL:   q.AnswerURL,
		})
	}

	return props
}

func (p GameProp) toQuestion() guesswhat.Question {
	return guesswhat.Question{
		QuestionID:  p.ID,
		Question:    p.Question,
		QuestionURL: p.QuestionURL,
		Answer:      []string(p.Answer),
		AnswerURL:   p.AnswerURL,
	}
}

func questionsFromProps(props []GameProp) []guesswhat.Question {
	qs := make([]guesswhat.Question, 0, len(props))
	for _, p := range props {
		qs = append(qs, p.toQuestion())
	}

	return qs
}

// creatorName is the creator email, or Anonymous when unknown.
func (g *Game) creatorName() string {
	if g.Creator == nil || g.Creator.Email == "" {
		return guesswhat.AnonymousCreator
	}

	return g.Creator.Email
}

func (g *Game) listItem() guesswhat.ListItem {
	return guesswhat.ListItem{
		GameID:       g.ID,
		ThumbnailURL: g.ThumbnailURL,
		Title:        g.Title,
		Tags:         guesswhat.DecodeTags(g.Tags),
		Creator:      g.creatorName(),
	}
}
