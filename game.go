package guesswhat

import (
	"strconv"
)

// Question is one question/answer image pair of a game as submitted by the
// editor or returned to a player.
type Question struct {
	QuestionID  int64    `json:"questionId,omitempty"`
	Question    string   `json:"question" validate:"notblank"`
	QuestionURL string   `json:"questionUrl"`
	Answer      []string `json:"answer" validate:"required,min=1,dive,notblank"`
	AnswerURL   string   `json:"answerUrl"`
}

// GamePayload is the body of a create or update request.
type GamePayload struct {
	GameID       int64      `json:"gameId,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description" validate:"required"`
	Tags         []string   `json:"tags" validate:"required"`
	IsVisible    *bool      `json:"isVisible,omitempty"`
	CreatorID    int64      `json:"creatorId,omitempty"`
	Questions    []Question `json:"questions" validate:"required,min=1,dive"`
}

// CalculateGameModes lists the selectable round lengths for a game with total
// questions: every multiple of ten up to total.
func CalculateGameModes(total int) []string {
	modes := []string{}
	for i := 10; i <= total; i += 10 {
		modes = append(modes, strconv.Itoa(i))
	}

	return modes
}
