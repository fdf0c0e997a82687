package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/darts-league/models"
	"github.com/lib/pq"
)

var (
	ErrLeagueNotFound     = errors.New("league not found")
	ErrLeagueNameConflict = errors.New("league name already exists")
)

type LeagueRepository interface {
	Create(ctx context.Context, league *models.League) error
	GetByID(ctx context.Context, id string) (*models.League, error)
	List(ctx context.Context) ([]*models.League, error)
	Update(ctx context.Context, league *models.League) error
	UpdateLogoKey(ctx context.Context, id string, logoKey *string) error
	SoftDelete(ctx context.Context, id string) error
	GetScoringRules(ctx context.Context, id string) (*models.ScoringRules, error)
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) Create(ctx context.Context, league *models.League) error {
	query := `
		INSERT INTO leagues (id, name, description, status, scoring_rules)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		league.ID, league.Name, league.Description, league.Status, league.ScoringRules,
	).Scan(&league.CreatedAt, &league.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrLeagueNameConflict
		}
		return fmt.Errorf("failed to create league: %w", err)
	}
	return nil
}

func (r *postgresLeagueRepository) scanLeague(row rowScanner) (*models.League, error) {
	var l models.League
	err := row.Scan(
		&l.ID, &l.Name, &l.Description, &l.Status, &l.ScoringRules,
		&l.LogoKey, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id string) (*models.League, error) {
	query := `
		SELECT id, name, description, status, scoring_rules, logo_key, created_at, updated_at
		FROM leagues
		WHERE id = $1 AND deleted = FALSE`
	return r.scanLeague(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresLeagueRepository) List(ctx context.Context) ([]*models.League, error) {
	query := `
		SELECT id, name, description, status, scoring_rules, logo_key, created_at, updated_at
		FROM leagues
		WHERE deleted = FALSE
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := make([]*models.League, 0)
	for rows.Next() {
		l, errScan := r.scanLeague(rows)
		if errScan != nil {
			return nil, errScan
		}
		leagues = append(leagues, l)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return leagues, nil
}

func (r *postgresLeagueRepository) Update(ctx context.Context, league *models.League) error {
	query := `
		UPDATE leagues SET
			name = $1, description = $2, status = $3, scoring_rules = $4, updated_at = NOW()
		WHERE id = $5 AND deleted = FALSE`
	result, err := r.db.ExecContext(ctx, query,
		league.Name, league.Description, league.Status, league.ScoringRules, league.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrLeagueNameConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) UpdateLogoKey(ctx context.Context, id string, logoKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE leagues SET logo_key = $1, updated_at = NOW() WHERE id = $2 AND deleted = FALSE`,
		logoKey, id,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) SoftDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE leagues SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND deleted = FALSE`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) GetScoringRules(ctx context.Context, id string) (*models.ScoringRules, error) {
	var rules models.ScoringRules
	err := r.db.QueryRowContext(ctx,
		`SELECT scoring_rules FROM leagues WHERE id = $1 AND deleted = FALSE`, id,
	).Scan(&rules)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	return &rules, nil
}
