package placements

import (
	"testing"

	"github.com/Dosada05/darts-league/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id string) *models.PlayerRef {
	return &models.PlayerRef{ID: id, Name: "player " + id}
}

func completedBracketMatch(id, p1, p2, winner string) models.BracketMatch {
	return models.BracketMatch{
		ID:      id,
		Player1: ref(p1),
		Player2: ref(p2),
		Status:  models.MatchStatusCompleted,
		Result:  &models.MatchResult{Winner: winner},
	}
}

func pendingBracketMatch(id, p1, p2 string) models.BracketMatch {
	return models.BracketMatch{
		ID:      id,
		Player1: ref(p1),
		Player2: ref(p2),
		Status:  models.MatchStatusPending,
	}
}

func placementByPlayer(placements []Placement) map[string]Placement {
	out := make(map[string]Placement, len(placements))
	for _, p := range placements {
		out[p.PlayerID] = p
	}
	return out
}

func TestExtractPlayoffWithThirdPlaceMatch(t *testing.T) {
	// Восемь участников: четвертьфиналы, полуфиналы, финал и матч за 3-е.
	third := completedBracketMatch("m-3rd", "C", "D", "C")
	third.IsThirdPlaceMatch = true

	tournament := &models.Tournament{
		ID: "t1",
		PlayoffSnapshot: &models.PlayoffBracket{
			Rounds: []models.PlayoffRound{
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-qf1", "A", "E", "A"),
					completedBracketMatch("m-qf2", "C", "F", "C"),
					completedBracketMatch("m-qf3", "B", "G", "B"),
					completedBracketMatch("m-qf4", "D", "H", "D"),
				}},
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-sf1", "A", "C", "A"),
					completedBracketMatch("m-sf2", "B", "D", "B"),
				}},
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-final", "A", "B", "A"),
					third,
				}},
			},
		},
	}

	placements := Extract(tournament)
	require.Len(t, placements, 8)

	byPlayer := placementByPlayer(placements)
	assert.Equal(t, 1, byPlayer["A"].Placement)
	assert.Equal(t, 2, byPlayer["B"].Placement)
	assert.Equal(t, 3, byPlayer["C"].Placement)
	assert.Equal(t, 4, byPlayer["D"].Placement)

	// Проигравшие четвертьфиналов идут следом, в порядке матчей.
	assert.Equal(t, 5, byPlayer["E"].Placement)
	assert.Equal(t, 6, byPlayer["F"].Placement)
	assert.Equal(t, 7, byPlayer["G"].Placement)
	assert.Equal(t, 8, byPlayer["H"].Placement)

	for _, p := range placements {
		assert.True(t, p.InPlayoff, "player %s played the bracket", p.PlayerID)
	}
}

func TestExtractSharedThirdWithoutThirdPlaceMatch(t *testing.T) {
	tournament := &models.Tournament{
		ID: "t1",
		PlayoffSnapshot: &models.PlayoffBracket{
			Rounds: []models.PlayoffRound{
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-sf1", "A", "C", "A"),
					completedBracketMatch("m-sf2", "B", "D", "B"),
				}},
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-final", "A", "B", "A"),
				}},
			},
		},
	}

	placements := Extract(tournament)
	require.Len(t, placements, 4)

	byPlayer := placementByPlayer(placements)
	assert.Equal(t, 1, byPlayer["A"].Placement)
	assert.Equal(t, 2, byPlayer["B"].Placement)
	assert.Equal(t, 3, byPlayer["C"].Placement, "both semifinal losers share third")
	assert.Equal(t, 3, byPlayer["D"].Placement, "both semifinal losers share third")

	// Четвёртого места при разделённом третьем нет.
	for _, p := range placements {
		assert.NotEqual(t, 4, p.Placement)
	}
}

func TestExtractIncompleteFinalLeavesTopUnassigned(t *testing.T) {
	third := completedBracketMatch("m-3rd", "C", "D", "C")
	third.IsThirdPlaceMatch = true

	tournament := &models.Tournament{
		ID: "t1",
		PlayoffSnapshot: &models.PlayoffBracket{
			Rounds: []models.PlayoffRound{
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-sf1", "A", "C", "A"),
					completedBracketMatch("m-sf2", "B", "D", "B"),
				}},
				{Matches: []models.BracketMatch{
					pendingBracketMatch("m-final", "A", "B"),
					third,
				}},
			},
		},
	}

	placements := Extract(tournament)
	byPlayer := placementByPlayer(placements)

	// Финал не сыгран: мест 1 и 2 нет, финалисты не размещены.
	assert.NotContains(t, byPlayer, "A")
	assert.NotContains(t, byPlayer, "B")
	assert.Equal(t, 3, byPlayer["C"].Placement)
	assert.Equal(t, 4, byPlayer["D"].Placement)
}

func TestExtractLiveOverlayCompletesSnapshotMatch(t *testing.T) {
	// Снапшот отстал: финал в нём pending, но таблица matches уже знает итог.
	tournament := &models.Tournament{
		ID: "t1",
		PlayoffSnapshot: &models.PlayoffBracket{
			Rounds: []models.PlayoffRound{
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-sf1", "A", "C", "A"),
					completedBracketMatch("m-sf2", "B", "D", "B"),
				}},
				{Matches: []models.BracketMatch{
					pendingBracketMatch("m-final", "A", "B"),
				}},
			},
		},
		PlayoffMatches: []models.Match{
			{
				ID:      "m-final",
				Stage:   models.StagePlayoff,
				Player1: ref("A"),
				Player2: ref("B"),
				Status:  models.MatchStatusCompleted,
				Result:  &models.MatchResult{Winner: "B"},
			},
		},
	}

	placements := Extract(tournament)
	byPlayer := placementByPlayer(placements)

	assert.Equal(t, 1, byPlayer["B"].Placement)
	assert.Equal(t, 2, byPlayer["A"].Placement)
	assert.Equal(t, 3, byPlayer["C"].Placement)
	assert.Equal(t, 3, byPlayer["D"].Placement)
}

func TestExtractGroupsAndPlayoffs(t *testing.T) {
	tournament := &models.Tournament{
		ID: "t1",
		PlayoffSnapshot: &models.PlayoffBracket{
			Rounds: []models.PlayoffRound{
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-sf1", "P1", "P4", "P1"),
					completedBracketMatch("m-sf2", "P2", "P3", "P2"),
				}},
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-final", "P1", "P2", "P1"),
				}},
			},
		},
		Groups: []models.Group{
			{
				ID: "g1",
				Standings: []models.GroupStanding{
					{PlayerID: "P1", Points: 9, LegsWon: 9, LegsLost: 1, Average: 61.2},
					{PlayerID: "P3", Points: 6, LegsWon: 7, LegsLost: 4, Average: 55.0},
					{PlayerID: "P5", Points: 6, LegsWon: 7, LegsLost: 5, Average: 52.1},
					{PlayerID: "P7", Points: 1, LegsWon: 2, LegsLost: 8, Average: 40.3},
				},
			},
			{
				ID: "g2",
				Standings: []models.GroupStanding{
					{PlayerID: "P2", Points: 9, LegsWon: 9, LegsLost: 2, Average: 58.9},
					{PlayerID: "P4", Points: 6, LegsWon: 7, LegsLost: 5, Average: 54.2},
					{PlayerID: "P6", Points: 6, LegsWon: 6, LegsLost: 5, Average: 53.7},
				},
			},
		},
	}

	placements := Extract(tournament)
	require.Len(t, placements, 7)

	byPlayer := placementByPlayer(placements)
	assert.Equal(t, 1, byPlayer["P1"].Placement)
	assert.Equal(t, 2, byPlayer["P2"].Placement)
	assert.Equal(t, 3, byPlayer["P3"].Placement)
	assert.Equal(t, 3, byPlayer["P4"].Placement)

	// Не прошедшие в плей-офф ранжируются по очкам, разнице легов, среднему.
	assert.Equal(t, 4, byPlayer["P5"].Placement, "P5 and P6 tie on points, P5 wins on leg difference")
	assert.Equal(t, 5, byPlayer["P6"].Placement)
	assert.Equal(t, 6, byPlayer["P7"].Placement)

	assert.True(t, byPlayer["P4"].InPlayoff)
	assert.False(t, byPlayer["P5"].InPlayoff)
	assert.False(t, byPlayer["P7"].InPlayoff)

	// Контроль начисления очков по правилам по умолчанию.
	points := models.DefaultScoringRules().PlacementPoints
	assert.Equal(t, 5, points.Resolve(byPlayer["P1"].Placement, byPlayer["P1"].InPlayoff))
	assert.Equal(t, 4, points.Resolve(byPlayer["P2"].Placement, byPlayer["P2"].InPlayoff))
	assert.Equal(t, 3, points.Resolve(byPlayer["P3"].Placement, byPlayer["P3"].InPlayoff))
	assert.Equal(t, 3, points.Resolve(byPlayer["P4"].Placement, byPlayer["P4"].InPlayoff))
	assert.Equal(t, 2, points.Resolve(byPlayer["P5"].Placement, byPlayer["P5"].InPlayoff))
	assert.Equal(t, 0, points.Resolve(byPlayer["P6"].Placement, byPlayer["P6"].InPlayoff))
	assert.Equal(t, 0, points.Resolve(byPlayer["P7"].Placement, byPlayer["P7"].InPlayoff))
}

func TestExtractGroupsOnly(t *testing.T) {
	tournament := &models.Tournament{
		ID:     "t1",
		Format: models.FormatGroupsOnly,
		Groups: []models.Group{
			{
				ID: "g1",
				Standings: []models.GroupStanding{
					{PlayerID: "A", Points: 4, LegsWon: 5, LegsLost: 3, Average: 50},
					{PlayerID: "B", Points: 6, LegsWon: 6, LegsLost: 2, Average: 55},
					{PlayerID: "C", Points: 4, LegsWon: 5, LegsLost: 3, Average: 58},
				},
			},
		},
	}

	placements := Extract(tournament)
	require.Len(t, placements, 3)

	byPlayer := placementByPlayer(placements)
	assert.Equal(t, 1, byPlayer["B"].Placement)
	assert.Equal(t, 2, byPlayer["C"].Placement, "equal points and leg difference, higher average wins")
	assert.Equal(t, 3, byPlayer["A"].Placement)

	for _, p := range placements {
		assert.False(t, p.InPlayoff)
	}
}

func TestExtractFallsBackToPlayerList(t *testing.T) {
	tournament := &models.Tournament{
		ID: "t1",
		PlayoffSnapshot: &models.PlayoffBracket{
			Rounds: []models.PlayoffRound{
				{Matches: []models.BracketMatch{
					completedBracketMatch("m-final", "A", "B", "A"),
				}},
			},
		},
		Players: []models.Player{
			{ID: "A"}, {ID: "B"}, {ID: "X"}, {ID: "Y"},
		},
	}

	placements := Extract(tournament)
	require.Len(t, placements, 4)

	byPlayer := placementByPlayer(placements)
	assert.Equal(t, 1, byPlayer["A"].Placement)
	assert.Equal(t, 2, byPlayer["B"].Placement)
	assert.Equal(t, 3, byPlayer["X"].Placement)
	assert.Equal(t, 4, byPlayer["Y"].Placement)
	assert.False(t, byPlayer["X"].InPlayoff)
}

func TestExtractEmptyTournament(t *testing.T) {
	assert.Nil(t, Extract(&models.Tournament{ID: "t1"}))
}

func TestFreshenMatch(t *testing.T) {
	snapshot := pendingBracketMatch("m1", "A", "B")

	t.Run("no live record returns snapshot unchanged", func(t *testing.T) {
		out := FreshenMatch(snapshot, map[string]models.Match{})
		assert.Equal(t, snapshot, out)
	})

	t.Run("status and result come from live", func(t *testing.T) {
		live := map[string]models.Match{
			"m1": {
				ID:     "m1",
				Status: models.MatchStatusCompleted,
				Result: &models.MatchResult{Winner: "B", Player1Legs: 1, Player2Legs: 3},
			},
		}
		out := FreshenMatch(snapshot, live)
		assert.Equal(t, models.MatchStatusCompleted, out.Status)
		require.NotNil(t, out.Result)
		assert.Equal(t, "B", out.Result.Winner)
		// Игроки без live-данных остаются из снапшота.
		assert.Equal(t, "A", out.Player1.ID)
		assert.Equal(t, "B", out.Player2.ID)
	})

	t.Run("nil live result keeps snapshot result", func(t *testing.T) {
		withResult := completedBracketMatch("m1", "A", "B", "A")
		live := map[string]models.Match{
			"m1": {ID: "m1", Status: models.MatchStatusInProgress},
		}
		out := FreshenMatch(withResult, live)
		assert.Equal(t, models.MatchStatusInProgress, out.Status, "status is taken from live unconditionally")
		require.NotNil(t, out.Result)
		assert.Equal(t, "A", out.Result.Winner)
	})

	t.Run("third place flag always from snapshot", func(t *testing.T) {
		third := pendingBracketMatch("m1", "A", "B")
		third.IsThirdPlaceMatch = true
		live := map[string]models.Match{
			"m1": {ID: "m1", Status: models.MatchStatusCompleted, Result: &models.MatchResult{Winner: "A"}},
		}
		out := FreshenMatch(third, live)
		assert.True(t, out.IsThirdPlaceMatch)
	})
}
