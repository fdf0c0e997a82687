package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/darts-league/models"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentAlreadyLinked = errors.New("tournament is already linked to a league")
	ErrTournamentNotInLeague   = errors.New("tournament does not belong to this league")
)

type TournamentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	ListByLeague(ctx context.Context, leagueID string, status *models.TournamentStatus) ([]*models.Tournament, error)
	ListUnlinked(ctx context.Context) ([]*models.Tournament, error)
	CountByLeague(ctx context.Context, leagueID string) (int, error)
	// SetLeague привязывает турнир к лиге. Срабатывает только если турнир
	// ещё не привязан (WHERE league_id IS NULL) — эксклюзивность
	// гарантируется на уровне SQL, без гонки чтение-запись.
	SetLeague(ctx context.Context, tournamentID, leagueID string) error
	ClearLeague(ctx context.Context, tournamentID, leagueID string) error
	SetPointsCalculated(ctx context.Context, exec SQLExecutor, tournamentID string, calculated bool) error
	ListGroups(ctx context.Context, tournamentID string) ([]models.Group, error)
	ListPlayers(ctx context.Context, tournamentID string) ([]models.Player, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) scanTournament(row rowScanner) (*models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(
		&t.ID, &t.Name, &t.LeagueID, &t.Status, &t.Format,
		&t.PlayoffSnapshot, &t.LeaguePointsCalculated, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &t, nil
}

const tournamentColumns = `id, name, league_id, status, format, playoffs, league_points_calculated, created_at, updated_at`

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 AND deleted = FALSE`
	return r.scanTournament(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) ListByLeague(ctx context.Context, leagueID string, status *models.TournamentStatus) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE league_id = $1 AND deleted = FALSE`
	args := []interface{}{leagueID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at ASC`
	return r.queryTournaments(ctx, query, args...)
}

func (r *postgresTournamentRepository) ListUnlinked(ctx context.Context) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE league_id IS NULL AND deleted = FALSE ORDER BY created_at DESC`
	return r.queryTournaments(ctx, query)
}

func (r *postgresTournamentRepository) queryTournaments(ctx context.Context, query string, args ...interface{}) ([]*models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, errScan := r.scanTournament(rows)
		if errScan != nil {
			return nil, errScan
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) CountByLeague(ctx context.Context, leagueID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournaments WHERE league_id = $1 AND deleted = FALSE`, leagueID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresTournamentRepository) SetLeague(ctx context.Context, tournamentID, leagueID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tournaments
		SET league_id = $1, league_points_calculated = FALSE, updated_at = NOW()
		WHERE id = $2 AND league_id IS NULL AND deleted = FALSE`,
		leagueID, tournamentID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Различаем "нет турнира" и "уже привязан".
		var existing sql.NullString
		err = r.db.QueryRowContext(ctx,
			`SELECT league_id FROM tournaments WHERE id = $1 AND deleted = FALSE`, tournamentID,
		).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		if err != nil {
			return err
		}
		if existing.Valid {
			return ErrTournamentAlreadyLinked
		}
		return ErrTournamentNotFound
	}
	return nil
}

func (r *postgresTournamentRepository) ClearLeague(ctx context.Context, tournamentID, leagueID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tournaments
		SET league_id = NULL, league_points_calculated = FALSE, updated_at = NOW()
		WHERE id = $1 AND league_id = $2`,
		tournamentID, leagueID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotInLeague)
}

func (r *postgresTournamentRepository) SetPointsCalculated(ctx context.Context, exec SQLExecutor, tournamentID string, calculated bool) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET league_points_calculated = $1, updated_at = NOW() WHERE id = $2`,
		calculated, tournamentID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListGroups(ctx context.Context, tournamentID string) ([]models.Group, error) {
	query := `
		SELECT g.id, g.tournament_id, g.name,
		       gs.id, gs.group_id, gs.player_id, gs.points, gs.legs_won, gs.legs_lost, gs.average, gs.position
		FROM groups g
		LEFT JOIN group_standings gs ON gs.group_id = g.id
		WHERE g.tournament_id = $1
		ORDER BY g.name, gs.position`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]models.Group, 0)
	index := make(map[string]int)
	for rows.Next() {
		var g models.Group
		var sID, sGroupID, sPlayerID sql.NullString
		var points, legsWon, legsLost, position sql.NullInt64
		var average sql.NullFloat64
		err = rows.Scan(
			&g.ID, &g.TournamentID, &g.Name,
			&sID, &sGroupID, &sPlayerID, &points, &legsWon, &legsLost, &average, &position,
		)
		if err != nil {
			return nil, err
		}
		i, ok := index[g.ID]
		if !ok {
			groups = append(groups, g)
			i = len(groups) - 1
			index[g.ID] = i
		}
		if sID.Valid {
			groups[i].Standings = append(groups[i].Standings, models.GroupStanding{
				ID:       sID.String,
				GroupID:  sGroupID.String,
				PlayerID: sPlayerID.String,
				Points:   int(points.Int64),
				LegsWon:  int(legsWon.Int64),
				LegsLost: int(legsLost.Int64),
				Average:  average.Float64,
				Position: int(position.Int64),
			})
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *postgresTournamentRepository) ListPlayers(ctx context.Context, tournamentID string) ([]models.Player, error) {
	query := `
		SELECT p.id, p.name, p.photo_key, p.created_at
		FROM tournament_players tp
		JOIN players p ON p.id = tp.player_id
		WHERE tp.tournament_id = $1
		ORDER BY p.name`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var p models.Player
		if err = rows.Scan(&p.ID, &p.Name, &p.PhotoKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}
