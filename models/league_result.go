package models

import "time"

// LeagueTournamentResult — одна строка результата: место и очки игрока в
// турнире лиги. Уникальна по (league_id, tournament_id, player_id);
// перерасчёт делает upsert, а не вставку.
type LeagueTournamentResult struct {
	ID            string `json:"id" db:"id"`
	LeagueID      string `json:"league_id" db:"league_id"`
	TournamentID  string `json:"tournament_id" db:"tournament_id"`
	PlayerID      string `json:"player_id" db:"player_id"`
	Placement     int    `json:"placement" db:"placement"`
	PointsAwarded int    `json:"points_awarded" db:"points_awarded"`

	// Дата турнира, подтягивается JOIN-ом при чтении для агрегации.
	TournamentCreatedAt time.Time `json:"tournament_created_at,omitempty" db:"-"`
}

// LeaderboardEntry — кэшированная строка таблицы лиги, полностью выводимая
// из результатов турниров. Исключение — total_points, который админ может
// перезаписать вручную до следующего полного пересчёта.
type LeaderboardEntry struct {
	ID                string     `json:"id" db:"id"`
	LeagueID          string     `json:"league_id" db:"league_id"`
	PlayerID          string     `json:"player_id" db:"player_id"`
	TotalPoints       int        `json:"total_points" db:"total_points"`
	TournamentsPlayed int        `json:"tournaments_played" db:"tournaments_played"`
	BestPlacement     *int       `json:"best_placement,omitempty" db:"best_placement"`
	WorstPlacement    *int       `json:"worst_placement,omitempty" db:"worst_placement"`
	AvgPlacement      *float64   `json:"avg_placement,omitempty" db:"avg_placement"`
	LastTournamentAt  *time.Time `json:"last_tournament_at,omitempty" db:"last_tournament_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`

	Player *Player `json:"player,omitempty" db:"-"`
}
