package models

import "time"

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

// MatchStage — этап, к которому относится матч.
type MatchStage string

const (
	StageGroup   MatchStage = "group"
	StagePlayoff MatchStage = "playoff"
)

// Match — строка таблицы matches. Для матчей плей-офф id совпадает с id
// матча в JSONB-снапшоте сетки; status и result здесь всегда актуальны.
// Player1/Player2 собираются репозиторием из player1_id/player2_id + JOIN
// с players.
type Match struct {
	ID           string      `json:"id" db:"id"`
	TournamentID string      `json:"tournament_id" db:"tournament_id"`
	GroupID      *string     `json:"group_id,omitempty" db:"group_id"`
	Stage        MatchStage  `json:"stage" db:"stage"`
	Player1      *PlayerRef  `json:"player1,omitempty" db:"-"`
	Player2      *PlayerRef  `json:"player2,omitempty" db:"-"`
	Status       MatchStatus `json:"status" db:"status"`

	Result *MatchResult `json:"result,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MatchResult — итог матча. Winner — id победителя. В таблице matches
// хранится колонками winner_id/player1_legs/player2_legs, в JSONB-снапшоте
// сетки — вложенным объектом.
type MatchResult struct {
	Winner      string `json:"winner"`
	Player1Legs int    `json:"player1Legs,omitempty"`
	Player2Legs int    `json:"player2Legs,omitempty"`
}

// MatchPlayerStats — статистика игрока в матче (средний набор, чекауты, 180).
// Используется для наград в сводке турнира; в расчёте очков лиги не участвует.
type MatchPlayerStats struct {
	ID              string  `json:"id" db:"id"`
	MatchID         string  `json:"match_id" db:"match_id"`
	PlayerID        string  `json:"player_id" db:"player_id"`
	Average         float64 `json:"average" db:"average"`
	OneEighties     int     `json:"one_eighties" db:"one_eighties"`
	HighestCheckout *int    `json:"highest_checkout,omitempty" db:"highest_checkout"`
	DartsThrown     int     `json:"darts_thrown" db:"darts_thrown"`
}
