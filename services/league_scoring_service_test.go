package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Dosada05/darts-league/models"
	"github.com/Dosada05/darts-league/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Фейки репозиториев для тестов расчёта; держат всё в памяти, семантика
// upsert/привязки повторяет SQL-реализации.

type fakeLeagueRepo struct {
	leagues map[string]*models.League
}

func newFakeLeagueRepo(leagues ...*models.League) *fakeLeagueRepo {
	repo := &fakeLeagueRepo{leagues: make(map[string]*models.League)}
	for _, l := range leagues {
		repo.leagues[l.ID] = l
	}
	return repo
}

func (r *fakeLeagueRepo) Create(ctx context.Context, league *models.League) error {
	r.leagues[league.ID] = league
	return nil
}

func (r *fakeLeagueRepo) GetByID(ctx context.Context, id string) (*models.League, error) {
	league, ok := r.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	return league, nil
}

func (r *fakeLeagueRepo) List(ctx context.Context) ([]*models.League, error) {
	out := make([]*models.League, 0, len(r.leagues))
	for _, l := range r.leagues {
		out = append(out, l)
	}
	return out, nil
}

func (r *fakeLeagueRepo) Update(ctx context.Context, league *models.League) error {
	r.leagues[league.ID] = league
	return nil
}

func (r *fakeLeagueRepo) UpdateLogoKey(ctx context.Context, id string, logoKey *string) error {
	return nil
}

func (r *fakeLeagueRepo) SoftDelete(ctx context.Context, id string) error {
	delete(r.leagues, id)
	return nil
}

func (r *fakeLeagueRepo) GetScoringRules(ctx context.Context, id string) (*models.ScoringRules, error) {
	league, ok := r.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	rules := league.ScoringRules
	return &rules, nil
}

type fakeTournamentRepo struct {
	tournaments map[string]*models.Tournament
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	repo := &fakeTournamentRepo{tournaments: make(map[string]*models.Tournament)}
	for _, t := range tournaments {
		repo.tournaments[t.ID] = t
	}
	return repo
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (r *fakeTournamentRepo) ListByLeague(ctx context.Context, leagueID string, status *models.TournamentStatus) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range r.tournaments {
		if t.LeagueID == nil || *t.LeagueID != leagueID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListUnlinked(ctx context.Context) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range r.tournaments {
		if t.LeagueID == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) CountByLeague(ctx context.Context, leagueID string) (int, error) {
	count := 0
	for _, t := range r.tournaments {
		if t.LeagueID != nil && *t.LeagueID == leagueID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTournamentRepo) SetLeague(ctx context.Context, tournamentID, leagueID string) error {
	t, ok := r.tournaments[tournamentID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.LeagueID != nil {
		return repositories.ErrTournamentAlreadyLinked
	}
	id := leagueID
	t.LeagueID = &id
	t.LeaguePointsCalculated = false
	return nil
}

func (r *fakeTournamentRepo) ClearLeague(ctx context.Context, tournamentID, leagueID string) error {
	t, ok := r.tournaments[tournamentID]
	if !ok || t.LeagueID == nil || *t.LeagueID != leagueID {
		return repositories.ErrTournamentNotInLeague
	}
	t.LeagueID = nil
	t.LeaguePointsCalculated = false
	return nil
}

func (r *fakeTournamentRepo) SetPointsCalculated(ctx context.Context, exec repositories.SQLExecutor, tournamentID string, calculated bool) error {
	t, ok := r.tournaments[tournamentID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LeaguePointsCalculated = calculated
	return nil
}

func (r *fakeTournamentRepo) ListGroups(ctx context.Context, tournamentID string) ([]models.Group, error) {
	return nil, nil
}

func (r *fakeTournamentRepo) ListPlayers(ctx context.Context, tournamentID string) ([]models.Player, error) {
	return nil, nil
}

type fakeResultRepo struct {
	rows      map[string]models.LeagueTournamentResult
	dates     map[string]time.Time
	upsertErr error
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{
		rows:  make(map[string]models.LeagueTournamentResult),
		dates: make(map[string]time.Time),
	}
}

func resultKey(leagueID, tournamentID, playerID string) string {
	return leagueID + "|" + tournamentID + "|" + playerID
}

func (r *fakeResultRepo) UpsertBatch(ctx context.Context, exec repositories.SQLExecutor, results []models.LeagueTournamentResult) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	for _, res := range results {
		r.rows[resultKey(res.LeagueID, res.TournamentID, res.PlayerID)] = res
	}
	return nil
}

func (r *fakeResultRepo) DeleteByLeagueAndTournament(ctx context.Context, leagueID, tournamentID string) error {
	for key, res := range r.rows {
		if res.LeagueID == leagueID && res.TournamentID == tournamentID {
			delete(r.rows, key)
		}
	}
	return nil
}

func (r *fakeResultRepo) ListByLeague(ctx context.Context, leagueID string) ([]models.LeagueTournamentResult, error) {
	var out []models.LeagueTournamentResult
	for _, res := range r.rows {
		if res.LeagueID != leagueID {
			continue
		}
		res.TournamentCreatedAt = r.dates[res.TournamentID]
		out = append(out, res)
	}
	return out, nil
}

func (r *fakeResultRepo) byTournament(leagueID, tournamentID string) []models.LeagueTournamentResult {
	var out []models.LeagueTournamentResult
	for _, res := range r.rows {
		if res.LeagueID == leagueID && res.TournamentID == tournamentID {
			out = append(out, res)
		}
	}
	return out
}

type fakeLeaderboardRepo struct {
	entries map[string]models.LeaderboardEntry
}

func newFakeLeaderboardRepo() *fakeLeaderboardRepo {
	return &fakeLeaderboardRepo{entries: make(map[string]models.LeaderboardEntry)}
}

func (r *fakeLeaderboardRepo) UpsertBatch(ctx context.Context, exec repositories.SQLExecutor, entries []models.LeaderboardEntry) error {
	for _, e := range entries {
		r.entries[e.LeagueID+"|"+e.PlayerID] = e
	}
	return nil
}

func (r *fakeLeaderboardRepo) ListByLeague(ctx context.Context, leagueID string) ([]*models.LeaderboardEntry, error) {
	var out []*models.LeaderboardEntry
	for key := range r.entries {
		e := r.entries[key]
		if e.LeagueID == leagueID {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *fakeLeaderboardRepo) UpdateTotalPoints(ctx context.Context, leagueID, playerID string, totalPoints int) error {
	key := leagueID + "|" + playerID
	e, ok := r.entries[key]
	if !ok {
		return repositories.ErrLeaderboardEntryNotFound
	}
	e.TotalPoints = totalPoints
	r.entries[key] = e
	return nil
}

type fakeTournamentSvc struct {
	tournaments map[string]*models.Tournament
	errs        map[string]error
}

func (s *fakeTournamentSvc) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	if err, ok := s.errs[id]; ok {
		return nil, err
	}
	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return t, nil
}

func (s *fakeTournamentSvc) ListUnlinked(ctx context.Context) ([]*models.Tournament, error) {
	return nil, nil
}

func (s *fakeTournamentSvc) GetSummary(ctx context.Context, id string) (*TournamentSummary, error) {
	return nil, nil
}

// twoPlayerFinal собирает минимальный завершённый турнир: финал, победитель
// winner, проигравший loser.
func twoPlayerFinal(id, leagueID, winner, loser string) *models.Tournament {
	lid := leagueID
	return &models.Tournament{
		ID:       id,
		Name:     "tournament " + id,
		LeagueID: &lid,
		Status:   models.TournamentStatusCompleted,
		PlayoffSnapshot: &models.PlayoffBracket{
			Rounds: []models.PlayoffRound{
				{Matches: []models.BracketMatch{
					{
						ID:      id + "-final",
						Player1: &models.PlayerRef{ID: winner},
						Player2: &models.PlayerRef{ID: loser},
						Status:  models.MatchStatusCompleted,
						Result:  &models.MatchResult{Winner: winner},
					},
				}},
			},
		},
	}
}

type scoringFixture struct {
	svc             ScoringService
	leagueRepo      *fakeLeagueRepo
	tournamentRepo  *fakeTournamentRepo
	resultRepo      *fakeResultRepo
	leaderboardRepo *fakeLeaderboardRepo
	tournamentSvc   *fakeTournamentSvc
}

func newScoringFixture(leagues []*models.League, tournaments []*models.Tournament) *scoringFixture {
	f := &scoringFixture{
		leagueRepo:      newFakeLeagueRepo(leagues...),
		tournamentRepo:  newFakeTournamentRepo(tournaments...),
		resultRepo:      newFakeResultRepo(),
		leaderboardRepo: newFakeLeaderboardRepo(),
		tournamentSvc:   &fakeTournamentSvc{tournaments: make(map[string]*models.Tournament), errs: make(map[string]error)},
	}
	for _, t := range tournaments {
		f.tournamentSvc.tournaments[t.ID] = t
	}
	f.svc = NewScoringService(
		f.leagueRepo,
		f.tournamentRepo,
		f.resultRepo,
		f.leaderboardRepo,
		f.tournamentSvc,
		nil,
		nil,
	)
	return f
}

func testLeague(id string) *models.League {
	return &models.League{
		ID:           id,
		Name:         "league " + id,
		Status:       models.LeagueStatusActive,
		ScoringRules: models.DefaultScoringRules(),
	}
}

func TestCalculateTournamentPlacements(t *testing.T) {
	ctx := context.Background()
	league := testLeague("l1")
	tournament := twoPlayerFinal("t1", "l1", "A", "B")
	f := newScoringFixture([]*models.League{league}, []*models.Tournament{tournament})

	results, err := f.svc.CalculateTournamentPlacements(ctx, "l1", "t1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	byPlayer := make(map[string]models.LeagueTournamentResult)
	for _, r := range results {
		byPlayer[r.PlayerID] = r
	}
	assert.Equal(t, 1, byPlayer["A"].Placement)
	assert.Equal(t, 5, byPlayer["A"].PointsAwarded)
	assert.Equal(t, 2, byPlayer["B"].Placement)
	assert.Equal(t, 4, byPlayer["B"].PointsAwarded)

	assert.True(t, tournament.LeaguePointsCalculated)

	// Повторный запуск по неизменённому турниру не плодит строк.
	_, err = f.svc.CalculateTournamentPlacements(ctx, "l1", "t1")
	require.NoError(t, err)
	assert.Len(t, f.resultRepo.byTournament("l1", "t1"), 2)
}

func TestCalculateTournamentPlacementsErrors(t *testing.T) {
	ctx := context.Background()
	league := testLeague("l1")
	linked := twoPlayerFinal("t1", "other-league", "A", "B")
	unlinked := twoPlayerFinal("t2", "l1", "A", "B")
	unlinked.LeagueID = nil
	f := newScoringFixture([]*models.League{league}, []*models.Tournament{linked, unlinked})

	_, err := f.svc.CalculateTournamentPlacements(ctx, "missing", "t1")
	assert.ErrorIs(t, err, ErrLeagueNotFound)

	_, err = f.svc.CalculateTournamentPlacements(ctx, "l1", "t1")
	assert.ErrorIs(t, err, ErrTournamentNotInLeague)

	_, err = f.svc.CalculateTournamentPlacements(ctx, "l1", "t2")
	assert.ErrorIs(t, err, ErrTournamentNotInLeague)
}

func TestUpdateLeaderboardCacheAggregates(t *testing.T) {
	ctx := context.Background()
	f := newScoringFixture([]*models.League{testLeague("l1")}, nil)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.resultRepo.dates["t1"] = base
	f.resultRepo.dates["t2"] = base.AddDate(0, 0, 7)
	f.resultRepo.dates["t3"] = base.AddDate(0, 0, 14)

	seed := []models.LeagueTournamentResult{
		{LeagueID: "l1", TournamentID: "t1", PlayerID: "X", Placement: 1, PointsAwarded: 5},
		{LeagueID: "l1", TournamentID: "t2", PlayerID: "X", Placement: 2, PointsAwarded: 3},
		{LeagueID: "l1", TournamentID: "t3", PlayerID: "X", Placement: 4, PointsAwarded: 1},
		{LeagueID: "l1", TournamentID: "t3", PlayerID: "Y", Placement: 1, PointsAwarded: 5},
	}
	require.NoError(t, f.resultRepo.UpsertBatch(ctx, nil, seed))

	entries, err := f.svc.UpdateLeaderboardCache(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byPlayer := make(map[string]models.LeaderboardEntry)
	for _, e := range entries {
		byPlayer[e.PlayerID] = e
	}

	x := byPlayer["X"]
	assert.Equal(t, 9, x.TotalPoints)
	assert.Equal(t, 3, x.TournamentsPlayed)
	require.NotNil(t, x.BestPlacement)
	assert.Equal(t, 1, *x.BestPlacement)
	require.NotNil(t, x.WorstPlacement)
	assert.Equal(t, 4, *x.WorstPlacement)
	require.NotNil(t, x.AvgPlacement)
	assert.InDelta(t, 7.0/3.0, *x.AvgPlacement, 0.0001)
	require.NotNil(t, x.LastTournamentAt)
	assert.True(t, x.LastTournamentAt.Equal(base.AddDate(0, 0, 14)))

	y := byPlayer["Y"]
	assert.Equal(t, 5, y.TotalPoints)
	assert.Equal(t, 1, y.TournamentsPlayed)

	// Строки попали в кэш.
	cached, err := f.leaderboardRepo.ListByLeague(ctx, "l1")
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestRecalculateAllResults(t *testing.T) {
	ctx := context.Background()
	league := testLeague("l1")

	already := twoPlayerFinal("t1", "l1", "A", "B")
	already.LeaguePointsCalculated = true
	fresh := twoPlayerFinal("t2", "l1", "B", "C")
	broken := twoPlayerFinal("t3", "l1", "C", "D")

	f := newScoringFixture([]*models.League{league}, []*models.Tournament{already, fresh, broken})
	f.tournamentSvc.errs["t3"] = fmt.Errorf("boom")

	report, err := f.svc.RecalculateAllResults(ctx, "l1", false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, report.Calculated)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "t3", report.Failures[0].TournamentID)
	assert.Contains(t, report.Failures[0].Reason, "boom")

	// Посчитан только t2.
	assert.Empty(t, f.resultRepo.byTournament("l1", "t1"))
	assert.Len(t, f.resultRepo.byTournament("l1", "t2"), 2)

	// force пересчитывает и уже посчитанные.
	report, err = f.svc.RecalculateAllResults(ctx, "l1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Calculated)
	assert.Equal(t, 0, report.Skipped)
	assert.Len(t, f.resultRepo.byTournament("l1", "t1"), 2)
}

func TestLinkTournament(t *testing.T) {
	ctx := context.Background()
	league := testLeague("l1")
	tournament := twoPlayerFinal("t1", "", "A", "B")
	tournament.LeagueID = nil

	f := newScoringFixture([]*models.League{league}, []*models.Tournament{tournament})

	linked, err := f.svc.LinkTournament(ctx, "l1", "t1")
	require.NoError(t, err)
	require.NotNil(t, linked.LeagueID)
	assert.Equal(t, "l1", *linked.LeagueID)

	// Завершённый турнир сразу посчитан и попал в таблицу.
	assert.Len(t, f.resultRepo.byTournament("l1", "t1"), 2)
	cached, err := f.leaderboardRepo.ListByLeague(ctx, "l1")
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	// Повторная привязка к другой лиге отклоняется.
	other := testLeague("l2")
	f.leagueRepo.leagues["l2"] = other
	_, err = f.svc.LinkTournament(ctx, "l2", "t1")
	assert.ErrorIs(t, err, ErrTournamentAlreadyLinked)

	_, err = f.svc.LinkTournament(ctx, "l1", "missing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestUnlinkThenRelinkRestoresResults(t *testing.T) {
	ctx := context.Background()
	league := testLeague("l1")
	tournament := twoPlayerFinal("t1", "", "A", "B")
	tournament.LeagueID = nil

	f := newScoringFixture([]*models.League{league}, []*models.Tournament{tournament})

	_, err := f.svc.LinkTournament(ctx, "l1", "t1")
	require.NoError(t, err)
	before := f.resultRepo.byTournament("l1", "t1")
	require.Len(t, before, 2)

	require.NoError(t, f.svc.UnlinkTournament(ctx, "l1", "t1"))
	assert.Empty(t, f.resultRepo.byTournament("l1", "t1"))
	assert.Nil(t, tournament.LeagueID)

	_, err = f.svc.LinkTournament(ctx, "l1", "t1")
	require.NoError(t, err)

	after := f.resultRepo.byTournament("l1", "t1")
	require.Len(t, after, 2)
	byPlayer := make(map[string]models.LeagueTournamentResult)
	for _, r := range after {
		byPlayer[r.PlayerID] = r
	}
	for _, r := range before {
		assert.Equal(t, r.Placement, byPlayer[r.PlayerID].Placement)
		assert.Equal(t, r.PointsAwarded, byPlayer[r.PlayerID].PointsAwarded)
	}
}

func TestUnlinkTournamentNotInLeague(t *testing.T) {
	ctx := context.Background()
	f := newScoringFixture([]*models.League{testLeague("l1")}, []*models.Tournament{twoPlayerFinal("t1", "l2", "A", "B")})

	err := f.svc.UnlinkTournament(ctx, "l1", "t1")
	assert.ErrorIs(t, err, ErrTournamentNotInLeague)
}

func TestSetPlayerPoints(t *testing.T) {
	ctx := context.Background()
	league := testLeague("l1")
	f := newScoringFixture([]*models.League{league}, nil)

	require.NoError(t, f.leaderboardRepo.UpsertBatch(ctx, nil, []models.LeaderboardEntry{
		{LeagueID: "l1", PlayerID: "X", TotalPoints: 9, TournamentsPlayed: 3},
	}))

	require.NoError(t, f.svc.SetPlayerPoints(ctx, "l1", "X", 42))

	entry := f.leaderboardRepo.entries["l1|X"]
	assert.Equal(t, 42, entry.TotalPoints)
	assert.Equal(t, 3, entry.TournamentsPlayed, "override must not touch other columns")

	err := f.svc.SetPlayerPoints(ctx, "l1", "missing", 10)
	assert.ErrorIs(t, err, ErrLeaderboardNotFound)

	league.ScoringRules.AllowManualOverride = false
	err = f.svc.SetPlayerPoints(ctx, "l1", "X", 50)
	assert.ErrorIs(t, err, ErrManualOverrideDisabled)
}

func TestRecalculateAllResultsUpsertFailureReported(t *testing.T) {
	ctx := context.Background()
	f := newScoringFixture([]*models.League{testLeague("l1")}, []*models.Tournament{twoPlayerFinal("t1", "l1", "A", "B")})
	f.resultRepo.upsertErr = errors.New("db down")

	report, err := f.svc.RecalculateAllResults(ctx, "l1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Calculated)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Reason, "db down")
}
