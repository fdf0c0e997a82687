package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/darts-league/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	// ListPlayoffByTournament возвращает актуальное состояние матчей
	// плей-офф из таблицы matches. Это авторитетный источник для
	// status/result/игроков; снапшот в tournaments.playoffs может отставать.
	ListPlayoffByTournament(ctx context.Context, tournamentID string) ([]models.Match, error)
	ListStatsByTournament(ctx context.Context, tournamentID string) ([]models.MatchPlayerStats, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) ListPlayoffByTournament(ctx context.Context, tournamentID string) ([]models.Match, error) {
	query := `
		SELECT m.id, m.tournament_id, m.group_id, m.stage, m.status,
		       m.player1_id, p1.name, m.player2_id, p2.name,
		       m.winner_id, m.player1_legs, m.player2_legs,
		       m.created_at, m.updated_at
		FROM matches m
		LEFT JOIN players p1 ON p1.id = m.player1_id
		LEFT JOIN players p2 ON p2.id = m.player2_id
		WHERE m.tournament_id = $1 AND m.stage = 'playoff'
		ORDER BY m.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		var p1ID, p1Name, p2ID, p2Name, winnerID sql.NullString
		var p1Legs, p2Legs sql.NullInt64
		err = rows.Scan(
			&m.ID, &m.TournamentID, &m.GroupID, &m.Stage, &m.Status,
			&p1ID, &p1Name, &p2ID, &p2Name,
			&winnerID, &p1Legs, &p2Legs,
			&m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if p1ID.Valid {
			m.Player1 = &models.PlayerRef{ID: p1ID.String, Name: p1Name.String}
		}
		if p2ID.Valid {
			m.Player2 = &models.PlayerRef{ID: p2ID.String, Name: p2Name.String}
		}
		if winnerID.Valid {
			m.Result = &models.MatchResult{
				Winner:      winnerID.String,
				Player1Legs: int(p1Legs.Int64),
				Player2Legs: int(p2Legs.Int64),
			}
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListStatsByTournament(ctx context.Context, tournamentID string) ([]models.MatchPlayerStats, error) {
	query := `
		SELECT mps.id, mps.match_id, mps.player_id, mps.average, mps.one_eighties, mps.highest_checkout, mps.darts_thrown
		FROM match_player_stats mps
		JOIN matches m ON m.id = mps.match_id
		WHERE m.tournament_id = $1`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]models.MatchPlayerStats, 0)
	for rows.Next() {
		var s models.MatchPlayerStats
		err = rows.Scan(&s.ID, &s.MatchID, &s.PlayerID, &s.Average, &s.OneEighties, &s.HighestCheckout, &s.DartsThrown)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
