package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/darts-league/models"
	"github.com/google/uuid"
)

type ResultRepository interface {
	// UpsertBatch записывает результаты турнира. Ключ конфликта —
	// (league_id, tournament_id, player_id): повторный пересчёт обновляет
	// существующие строки, а не плодит дубликаты.
	UpsertBatch(ctx context.Context, exec SQLExecutor, results []models.LeagueTournamentResult) error
	DeleteByLeagueAndTournament(ctx context.Context, leagueID, tournamentID string) error
	// ListByLeague возвращает все результаты лиги вместе с датой турнира
	// (JOIN с tournaments) для агрегации таблицы.
	ListByLeague(ctx context.Context, leagueID string) ([]models.LeagueTournamentResult, error)
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresResultRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, results []models.LeagueTournamentResult) error {
	if len(results) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO league_tournament_results (id, league_id, tournament_id, player_id, placement, points_awarded)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (league_id, tournament_id, player_id) DO UPDATE SET
			placement = EXCLUDED.placement,
			points_awarded = EXCLUDED.points_awarded`
	for i := range results {
		res := &results[i]
		if res.ID == "" {
			res.ID = uuid.NewString()
		}
		_, err := executor.ExecContext(ctx, query,
			res.ID, res.LeagueID, res.TournamentID, res.PlayerID, res.Placement, res.PointsAwarded,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert result (tournament %s, player %s): %w", res.TournamentID, res.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresResultRepository) DeleteByLeagueAndTournament(ctx context.Context, leagueID, tournamentID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM league_tournament_results WHERE league_id = $1 AND tournament_id = $2`,
		leagueID, tournamentID,
	)
	return err
}

func (r *postgresResultRepository) ListByLeague(ctx context.Context, leagueID string) ([]models.LeagueTournamentResult, error) {
	query := `
		SELECT ltr.id, ltr.league_id, ltr.tournament_id, ltr.player_id, ltr.placement, ltr.points_awarded,
		       t.created_at
		FROM league_tournament_results ltr
		JOIN tournaments t ON t.id = ltr.tournament_id
		WHERE ltr.league_id = $1
		ORDER BY t.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.LeagueTournamentResult, 0)
	for rows.Next() {
		var res models.LeagueTournamentResult
		err = rows.Scan(
			&res.ID, &res.LeagueID, &res.TournamentID, &res.PlayerID,
			&res.Placement, &res.PointsAwarded, &res.TournamentCreatedAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
