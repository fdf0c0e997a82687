package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/darts-league/models"
	"github.com/google/uuid"
)

var ErrLeaderboardEntryNotFound = errors.New("leaderboard entry not found")

type LeaderboardRepository interface {
	// UpsertBatch полностью перезаписывает кэшированные строки по ключу
	// (league_id, player_id). Полная перезапись, не инкремент: повторный
	// вызов безопасен и выправляет любой дрейф.
	UpsertBatch(ctx context.Context, exec SQLExecutor, entries []models.LeaderboardEntry) error
	ListByLeague(ctx context.Context, leagueID string) ([]*models.LeaderboardEntry, error)
	// UpdateTotalPoints — ручная правка только total_points, остальные
	// колонки не трогаются. Следующий полный пересчёт её перетирает.
	UpdateTotalPoints(ctx context.Context, leagueID, playerID string, totalPoints int) error
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLeaderboardRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, entries []models.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO league_leaderboard
		    (id, league_id, player_id, total_points, tournaments_played, best_placement, worst_placement, avg_placement, last_tournament_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (league_id, player_id) DO UPDATE SET
			total_points = EXCLUDED.total_points,
			tournaments_played = EXCLUDED.tournaments_played,
			best_placement = EXCLUDED.best_placement,
			worst_placement = EXCLUDED.worst_placement,
			avg_placement = EXCLUDED.avg_placement,
			last_tournament_at = EXCLUDED.last_tournament_at,
			updated_at = NOW()`
	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		_, err := executor.ExecContext(ctx, query,
			e.ID, e.LeagueID, e.PlayerID, e.TotalPoints, e.TournamentsPlayed,
			e.BestPlacement, e.WorstPlacement, e.AvgPlacement, e.LastTournamentAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert leaderboard entry (league %s, player %s): %w", e.LeagueID, e.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresLeaderboardRepository) ListByLeague(ctx context.Context, leagueID string) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT ll.id, ll.league_id, ll.player_id, ll.total_points, ll.tournaments_played,
		       ll.best_placement, ll.worst_placement, ll.avg_placement, ll.last_tournament_at, ll.updated_at,
		       p.id, p.name, p.photo_key, p.created_at
		FROM league_leaderboard ll
		JOIN players p ON p.id = ll.player_id
		WHERE ll.league_id = $1
		ORDER BY ll.total_points DESC, ll.avg_placement ASC NULLS LAST`
	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		var p models.Player
		err = rows.Scan(
			&e.ID, &e.LeagueID, &e.PlayerID, &e.TotalPoints, &e.TournamentsPlayed,
			&e.BestPlacement, &e.WorstPlacement, &e.AvgPlacement, &e.LastTournamentAt, &e.UpdatedAt,
			&p.ID, &p.Name, &p.PhotoKey, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		e.Player = &p
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresLeaderboardRepository) UpdateTotalPoints(ctx context.Context, leagueID, playerID string, totalPoints int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE league_leaderboard SET total_points = $1, updated_at = NOW() WHERE league_id = $2 AND player_id = $3`,
		totalPoints, leagueID, playerID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeaderboardEntryNotFound)
}
