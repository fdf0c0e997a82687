package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/darts-league/models"
)

var ErrLeagueMemberNotFound = errors.New("league member not found")

type LeagueMemberRepository interface {
	Upsert(ctx context.Context, exec SQLExecutor, member *models.LeagueMember) error
	ListActiveByLeague(ctx context.Context, leagueID string) ([]*models.LeagueMember, error)
	UpdateStatus(ctx context.Context, leagueID, playerID string, isActive *bool, role *string, leftAt *bool) (*models.LeagueMember, error)
	MarkLeft(ctx context.Context, leagueID, playerID string) error
	CountActiveByLeague(ctx context.Context, leagueID string) (int, error)
}

type postgresLeagueMemberRepository struct {
	db *sql.DB
}

func NewPostgresLeagueMemberRepository(db *sql.DB) LeagueMemberRepository {
	return &postgresLeagueMemberRepository{db: db}
}

func (r *postgresLeagueMemberRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert добавляет игрока в лигу либо обновляет роль/активность при
// повторном добавлении (ON CONFLICT по league_id + player_id).
func (r *postgresLeagueMemberRepository) Upsert(ctx context.Context, exec SQLExecutor, member *models.LeagueMember) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO league_members (id, league_id, player_id, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (league_id, player_id) DO UPDATE SET
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			left_at = NULL
		RETURNING id, joined_at`
	err := executor.QueryRowContext(ctx, query,
		member.ID, member.LeagueID, member.PlayerID, member.Role, member.IsActive,
	).Scan(&member.ID, &member.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert league member (league %s, player %s): %w", member.LeagueID, member.PlayerID, err)
	}
	return nil
}

func (r *postgresLeagueMemberRepository) ListActiveByLeague(ctx context.Context, leagueID string) ([]*models.LeagueMember, error) {
	query := `
		SELECT lm.id, lm.league_id, lm.player_id, lm.role, lm.is_active, lm.joined_at, lm.left_at,
		       p.id, p.name, p.photo_key, p.created_at
		FROM league_members lm
		JOIN players p ON p.id = lm.player_id
		WHERE lm.league_id = $1 AND lm.left_at IS NULL
		ORDER BY lm.joined_at ASC`
	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.LeagueMember, 0)
	for rows.Next() {
		var m models.LeagueMember
		var p models.Player
		err = rows.Scan(
			&m.ID, &m.LeagueID, &m.PlayerID, &m.Role, &m.IsActive, &m.JoinedAt, &m.LeftAt,
			&p.ID, &p.Name, &p.PhotoKey, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		m.Player = &p
		members = append(members, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *postgresLeagueMemberRepository) UpdateStatus(ctx context.Context, leagueID, playerID string, isActive *bool, role *string, leftAt *bool) (*models.LeagueMember, error) {
	// Динамический UPDATE: трогаем только переданные поля.
	query := `UPDATE league_members SET id = id`
	args := []interface{}{}
	arg := 1
	if isActive != nil {
		query += fmt.Sprintf(", is_active = $%d", arg)
		args = append(args, *isActive)
		arg++
	}
	if role != nil {
		query += fmt.Sprintf(", role = $%d", arg)
		args = append(args, *role)
		arg++
	}
	if leftAt != nil {
		if *leftAt {
			query += ", left_at = NOW()"
		} else {
			query += ", left_at = NULL"
		}
	}
	query += fmt.Sprintf(" WHERE league_id = $%d AND player_id = $%d", arg, arg+1)
	args = append(args, leagueID, playerID)
	query += " RETURNING id, league_id, player_id, role, is_active, joined_at, left_at"

	var m models.LeagueMember
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&m.ID, &m.LeagueID, &m.PlayerID, &m.Role, &m.IsActive, &m.JoinedAt, &m.LeftAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresLeagueMemberRepository) MarkLeft(ctx context.Context, leagueID, playerID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE league_members SET left_at = NOW(), is_active = FALSE WHERE league_id = $1 AND player_id = $2`,
		leagueID, playerID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueMemberNotFound)
}

func (r *postgresLeagueMemberRepository) CountActiveByLeague(ctx context.Context, leagueID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM league_members WHERE league_id = $1 AND left_at IS NULL`, leagueID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
