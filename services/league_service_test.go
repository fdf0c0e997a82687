package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/darts-league/models"
	"github.com/Dosada05/darts-league/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemberRepo struct {
	members map[string]*models.LeagueMember
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[string]*models.LeagueMember)}
}

func memberKey(leagueID, playerID string) string {
	return leagueID + "|" + playerID
}

func (r *fakeMemberRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, member *models.LeagueMember) error {
	key := memberKey(member.LeagueID, member.PlayerID)
	if existing, ok := r.members[key]; ok {
		existing.Role = member.Role
		existing.IsActive = member.IsActive
		existing.LeftAt = nil
		*member = *existing
		return nil
	}
	member.JoinedAt = time.Now()
	stored := *member
	r.members[key] = &stored
	return nil
}

func (r *fakeMemberRepo) ListActiveByLeague(ctx context.Context, leagueID string) ([]*models.LeagueMember, error) {
	var out []*models.LeagueMember
	for _, m := range r.members {
		if m.LeagueID == leagueID && m.IsActive && m.LeftAt == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) UpdateStatus(ctx context.Context, leagueID, playerID string, isActive *bool, role *string, leftAt *bool) (*models.LeagueMember, error) {
	m, ok := r.members[memberKey(leagueID, playerID)]
	if !ok {
		return nil, repositories.ErrLeagueMemberNotFound
	}
	if isActive != nil {
		m.IsActive = *isActive
	}
	if role != nil {
		m.Role = *role
	}
	return m, nil
}

func (r *fakeMemberRepo) MarkLeft(ctx context.Context, leagueID, playerID string) error {
	m, ok := r.members[memberKey(leagueID, playerID)]
	if !ok {
		return repositories.ErrLeagueMemberNotFound
	}
	now := time.Now()
	m.LeftAt = &now
	m.IsActive = false
	return nil
}

func (r *fakeMemberRepo) CountActiveByLeague(ctx context.Context, leagueID string) (int, error) {
	count := 0
	for _, m := range r.members {
		if m.LeagueID == leagueID && m.IsActive && m.LeftAt == nil {
			count++
		}
	}
	return count, nil
}

type leagueFixture struct {
	svc        LeagueService
	leagueRepo *fakeLeagueRepo
	memberRepo *fakeMemberRepo
	playerRepo *fakePlayerRepo
}

func newLeagueFixture(leagues ...*models.League) *leagueFixture {
	f := &leagueFixture{
		leagueRepo: newFakeLeagueRepo(leagues...),
		memberRepo: newFakeMemberRepo(),
		playerRepo: newFakePlayerRepo(),
	}
	playerSvc := NewPlayerService(f.playerRepo, newFakeMergeRepo(), nil, nil)
	f.svc = NewLeagueService(
		f.leagueRepo,
		f.memberRepo,
		newFakeTournamentRepo(),
		newFakeLeaderboardRepo(),
		playerSvc,
		nil,
		nil,
	)
	return f
}

func TestCreateLeague(t *testing.T) {
	ctx := context.Background()
	f := newLeagueFixture()

	_, err := f.svc.CreateLeague(ctx, CreateLeagueInput{})
	assert.ErrorIs(t, err, ErrLeagueNameRequired)

	league, err := f.svc.CreateLeague(ctx, CreateLeagueInput{Name: "Tuesday League"})
	require.NoError(t, err)
	assert.NotEmpty(t, league.ID)
	assert.Equal(t, models.LeagueStatusActive, league.Status)

	// Без явных правил лига получает правила по умолчанию.
	assert.Equal(t, models.DefaultScoringRules(), league.ScoringRules)

	custom := models.ScoringRules{
		PlacementPoints:     models.PlacementPoints{Literal: map[int]int{1: 10}},
		AllowManualOverride: false,
	}
	league, err = f.svc.CreateLeague(ctx, CreateLeagueInput{Name: "Custom", ScoringRules: &custom})
	require.NoError(t, err)
	assert.Equal(t, custom, league.ScoringRules)
}

func TestUpdateLeagueValidation(t *testing.T) {
	ctx := context.Background()
	league := testLeague("l1")
	f := newLeagueFixture(league)

	badStatus := models.LeagueStatus("frozen")
	_, err := f.svc.UpdateLeague(ctx, "l1", UpdateLeagueInput{Status: &badStatus})
	assert.ErrorIs(t, err, ErrInvalidLeagueStatus)

	empty := ""
	_, err = f.svc.UpdateLeague(ctx, "l1", UpdateLeagueInput{Name: &empty})
	assert.ErrorIs(t, err, ErrLeagueNameRequired)

	archived := models.LeagueStatusArchived
	updated, err := f.svc.UpdateLeague(ctx, "l1", UpdateLeagueInput{Status: &archived})
	require.NoError(t, err)
	assert.Equal(t, models.LeagueStatusArchived, updated.Status)

	_, err = f.svc.UpdateLeague(ctx, "missing", UpdateLeagueInput{})
	assert.ErrorIs(t, err, ErrLeagueNotFound)
}

func TestAddMembersCreatesPlayersByName(t *testing.T) {
	ctx := context.Background()
	f := newLeagueFixture(testLeague("l1"))

	name1, name2 := "Anna", "Boris"
	members, err := f.svc.AddMembers(ctx, "l1", []MemberInput{
		{Name: &name1},
		{Name: &name2, Role: "captain"},
	})
	require.NoError(t, err)
	require.Len(t, members, 2)

	assert.Equal(t, "player", members[0].Role, "role defaults to player")
	assert.Equal(t, "captain", members[1].Role)
	require.NotNil(t, members[0].Player)
	assert.Equal(t, "Anna", members[0].Player.Name)

	// Игроки созданы по именам.
	anna, err := f.playerRepo.GetByName(ctx, "Anna")
	require.NoError(t, err)

	// Повторное добавление того же имени не создаёт дубликата игрока.
	again, err := f.svc.AddMembers(ctx, "l1", []MemberInput{{Name: &name1}})
	require.NoError(t, err)
	assert.Equal(t, anna.ID, again[0].PlayerID)

	count, err := f.memberRepo.CountActiveByLeague(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddMembersValidation(t *testing.T) {
	ctx := context.Background()
	f := newLeagueFixture(testLeague("l1"))

	_, err := f.svc.AddMembers(ctx, "missing", []MemberInput{})
	assert.ErrorIs(t, err, ErrLeagueNotFound)

	_, err = f.svc.AddMembers(ctx, "l1", []MemberInput{{}})
	assert.ErrorIs(t, err, ErrPlayerNameRequired)

	unknown := "nope"
	_, err = f.svc.AddMembers(ctx, "l1", []MemberInput{{PlayerID: &unknown}})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()
	f := newLeagueFixture(testLeague("l1"))

	name := "Anna"
	_, err := f.svc.AddMembers(ctx, "l1", []MemberInput{{Name: &name}})
	require.NoError(t, err)

	members, err := f.svc.ListMembers(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	playerID := members[0].PlayerID

	require.NoError(t, f.svc.RemoveMember(ctx, "l1", playerID))

	// Выход фиксируется left_at, активных участников не остаётся.
	members, err = f.svc.ListMembers(ctx, "l1")
	require.NoError(t, err)
	assert.Empty(t, members)

	err = f.svc.RemoveMember(ctx, "l1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
