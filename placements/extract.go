// darts-league/placements/extract.go
package placements

import (
	"sort"

	"github.com/Dosada05/darts-league/models"
)

// Extract восстанавливает полный список мест участников турнира из сетки
// плей-офф и групповых таблиц. Каждый участник получает ровно одно место.
// Турнир без сыгранного финала даёт список без мест 1/2 — экстрактор не
// требует завершённости, это забота вызывающего.
func Extract(t *models.Tournament) []Placement {
	if t.HasPlayoffs() {
		return extractWithPlayoffs(t)
	}
	if len(t.Groups) > 0 {
		return extractGroupsOnly(t)
	}
	return nil
}

func extractWithPlayoffs(t *models.Tournament) []Placement {
	live := LiveMatchIndex(t.PlayoffMatches)
	rounds := t.PlayoffSnapshot.Rounds

	// Участник плей-офф — любой игрок, встречающийся хотя бы в одном матче
	// сетки: в снапшоте или в live-данных (снапшот может не знать игроков,
	// продвинувшихся после его записи).
	inPlayoff := make(map[string]bool)
	for _, round := range rounds {
		for _, m := range round.Matches {
			if id := refID(m.Player1); id != "" {
				inPlayoff[id] = true
			}
			if id := refID(m.Player2); id != "" {
				inPlayoff[id] = true
			}
		}
	}
	for _, m := range t.PlayoffMatches {
		if id := refID(m.Player1); id != "" {
			inPlayoff[id] = true
		}
		if id := refID(m.Player2); id != "" {
			inPlayoff[id] = true
		}
	}

	var placements []Placement
	placed := make(map[string]bool)
	push := func(playerID string, placement int, playoff bool) {
		if playerID == "" || placed[playerID] {
			return
		}
		placements = append(placements, Placement{PlayerID: playerID, Placement: placement, InPlayoff: playoff})
		placed[playerID] = true
	}

	finalRound := rounds[len(rounds)-1]
	var rawFinal, rawThird *models.BracketMatch
	for i := range finalRound.Matches {
		m := &finalRound.Matches[i]
		if m.IsThirdPlaceMatch {
			if rawThird == nil {
				rawThird = m
			}
		} else if rawFinal == nil {
			rawFinal = m
		}
	}

	// Места 1 и 2 — по финалу.
	if rawFinal != nil {
		final := FreshenMatch(*rawFinal, live)
		if isCompleted(final) {
			push(final.Result.Winner, 1, true)
			push(loserID(final), 2, true)
		}
	}

	// Место 3 (и 4): приоритетно матч за 3-е место; если его нет вовсе —
	// оба проигравших полуфиналов делят третье место.
	thirdResolved := false
	if rawThird != nil {
		third := FreshenMatch(*rawThird, live)
		if isCompleted(third) {
			push(third.Result.Winner, 3, true)
			push(loserID(third), 4, true)
			thirdResolved = true
		}
	}
	if !thirdResolved && rawThird == nil && len(rounds) >= 2 {
		for _, m := range rounds[len(rounds)-2].Matches {
			sf := FreshenMatch(m, live)
			if isCompleted(sf) && !sf.IsThirdPlaceMatch {
				push(loserID(sf), 3, true)
			}
		}
	}

	next := 0
	for _, p := range placements {
		if p.Placement > next {
			next = p.Placement
		}
	}
	next++

	// Остальные участники плей-офф — проигравшие ранних раундов, от первого
	// раунда к позднему, внутри раунда в порядке матчей. Полуфинал
	// пропускается, когда есть матч за 3-е место: его проигравшие и есть
	// участники этого матча.
	for i := 0; i < len(rounds)-1; i++ {
		if rawThird != nil && i == len(rounds)-2 {
			continue
		}
		for _, m := range rounds[i].Matches {
			match := FreshenMatch(m, live)
			if !isCompleted(match) || match.IsThirdPlaceMatch {
				continue
			}
			if loser := loserID(match); loser != "" && !placed[loser] {
				push(loser, next, true)
				next++
			}
		}
	}

	// Не попавшие в плей-офф ранжируются по групповым показателям.
	type groupEntry struct {
		playerID  string
		points    int
		legDiff   int
		average   float64
		inPlayoff bool
	}
	var rest []groupEntry
	for _, group := range t.Groups {
		for _, s := range group.Standings {
			if s.PlayerID == "" || placed[s.PlayerID] {
				continue
			}
			rest = append(rest, groupEntry{
				playerID:  s.PlayerID,
				points:    s.Points,
				legDiff:   s.LegDifference(),
				average:   s.Average,
				inPlayoff: inPlayoff[s.PlayerID],
			})
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if a.inPlayoff != b.inPlayoff {
			return a.inPlayoff
		}
		if a.points != b.points {
			return a.points > b.points
		}
		if a.legDiff != b.legDiff {
			return a.legDiff > b.legDiff
		}
		return a.average > b.average
	})
	for _, e := range rest {
		push(e.playerID, next, e.inPlayoff)
		next++
	}

	// Подстраховка: участники турнира, которых нет ни в сетке, ни в группах.
	for _, p := range t.Players {
		if p.ID != "" && !placed[p.ID] {
			push(p.ID, next, inPlayoff[p.ID])
			next++
		}
	}

	return placements
}

func extractGroupsOnly(t *models.Tournament) []Placement {
	type standingEntry struct {
		playerID string
		points   int
		legDiff  int
		average  float64
	}
	var all []standingEntry
	for _, group := range t.Groups {
		for _, s := range group.Standings {
			if s.PlayerID == "" {
				continue
			}
			all = append(all, standingEntry{
				playerID: s.PlayerID,
				points:   s.Points,
				legDiff:  s.LegDifference(),
				average:  s.Average,
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.points != b.points {
			return a.points > b.points
		}
		if a.legDiff != b.legDiff {
			return a.legDiff > b.legDiff
		}
		return a.average > b.average
	})

	placements := make([]Placement, 0, len(all))
	for i, e := range all {
		placements = append(placements, Placement{PlayerID: e.playerID, Placement: i + 1, InPlayoff: false})
	}
	return placements
}
