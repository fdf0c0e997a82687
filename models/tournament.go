package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	TournamentStatusSetup     TournamentStatus = "setup"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
)

// TournamentFormat — формат проведения: только группы, группы с плей-офф
// или чистый плей-офф.
type TournamentFormat string

const (
	FormatGroupsOnly     TournamentFormat = "groups"
	FormatGroupsPlayoffs TournamentFormat = "groups_playoffs"
	FormatPlayoffsOnly   TournamentFormat = "playoffs"
)

// Tournament представляет турнир. Сетка плей-офф хранится двумя способами:
// структурный снапшот в JSONB-колонке playoffs (может отставать по
// status/result) и актуальные матчи в таблице matches. Снапшот — единственный
// источник топологии: какой матч в каком раунде и где матч за 3-е место.
type Tournament struct {
	ID       string           `json:"id" db:"id"`
	Name     string           `json:"name" db:"name"`
	LeagueID *string          `json:"league_id,omitempty" db:"league_id"`
	Status   TournamentStatus `json:"status" db:"status"`
	Format   TournamentFormat `json:"format" db:"format"`

	PlayoffSnapshot *PlayoffBracket `json:"playoffs,omitempty" db:"playoffs"`

	// Флаг "очки лиги посчитаны". Сбрасывается при (пере)привязке к лиге.
	LeaguePointsCalculated bool `json:"league_points_calculated" db:"league_points_calculated"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Связанные данные, собираются TournamentService.
	Groups         []Group  `json:"groups,omitempty" db:"-"`
	PlayoffMatches []Match  `json:"playoff_matches,omitempty" db:"-"`
	Players        []Player `json:"players,omitempty" db:"-"`
}

// HasPlayoffs сообщает, есть ли в снапшоте хотя бы один раунд сетки.
func (t *Tournament) HasPlayoffs() bool {
	return t.PlayoffSnapshot != nil && len(t.PlayoffSnapshot.Rounds) > 0
}

// Group — группа турнира с таблицей.
type Group struct {
	ID           string          `json:"id" db:"id"`
	TournamentID string          `json:"tournament_id" db:"tournament_id"`
	Name         string          `json:"name" db:"name"`
	Standings    []GroupStanding `json:"standings,omitempty" db:"-"`
}

// GroupStanding — строка таблицы группы.
type GroupStanding struct {
	ID       string  `json:"id" db:"id"`
	GroupID  string  `json:"group_id" db:"group_id"`
	PlayerID string  `json:"player_id" db:"player_id"`
	Points   int     `json:"points" db:"points"`
	LegsWon  int     `json:"legs_won" db:"legs_won"`
	LegsLost int     `json:"legs_lost" db:"legs_lost"`
	Average  float64 `json:"average" db:"average"`
	Position int     `json:"position" db:"position"`

	Player *Player `json:"player,omitempty" db:"-"`
}

// LegDifference — разница выигранных и проигранных легов, ключ сортировки
// после очков.
func (s GroupStanding) LegDifference() int {
	return s.LegsWon - s.LegsLost
}

// PlayoffBracket — структурный снапшот сетки плей-офф (JSONB). Раунды идут
// от самого раннего к финальному.
type PlayoffBracket struct {
	Rounds []PlayoffRound `json:"rounds"`
}

// PlayoffRound — один раунд сетки.
type PlayoffRound struct {
	Name    string         `json:"name,omitempty"`
	Matches []BracketMatch `json:"matches"`
}

// BracketMatch — матч из снапшота сетки. Поля status/result/player1/player2
// могут быть устаревшими; актуальные значения накладываются из таблицы
// matches по id (см. пакет placements).
type BracketMatch struct {
	ID                string       `json:"id"`
	Player1           *PlayerRef   `json:"player1,omitempty"`
	Player2           *PlayerRef   `json:"player2,omitempty"`
	Status            MatchStatus  `json:"status"`
	Result            *MatchResult `json:"result,omitempty"`
	IsThirdPlaceMatch bool         `json:"isThirdPlaceMatch,omitempty"`
}

// Value реализует driver.Valuer для записи снапшота в JSONB.
func (b PlayoffBracket) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan реализует sql.Scanner для чтения снапшота из JSONB.
func (b *PlayoffBracket) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported type %T for PlayoffBracket", src)
	}
}
