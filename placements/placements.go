// darts-league/placements/placements.go
package placements

import (
	"github.com/Dosada05/darts-league/models"
)

// Placement — итоговое место участника в турнире. 1 — чемпион.
// InPlayoff — игрок сыграл хотя бы один матч плей-офф.
type Placement struct {
	PlayerID  string `json:"player_id"`
	Placement int    `json:"placement"`
	InPlayoff bool   `json:"in_playoff"`
}

// LiveMatchIndex строит индекс актуальных матчей по id для наложения на
// снапшот сетки.
func LiveMatchIndex(matches []models.Match) map[string]models.Match {
	idx := make(map[string]models.Match, len(matches))
	for _, m := range matches {
		idx[m.ID] = m
	}
	return idx
}

// FreshenMatch накладывает актуальные данные матча из таблицы matches на
// матч из JSONB-снапшота. status берётся из live безусловно, result и
// игроки — из live с откатом на снапшот, топология (флаг третьего места) —
// всегда из снапшота. Нет live-записи — снапшот возвращается как есть:
// отсутствие актуальных данных не ошибка, а откат.
func FreshenMatch(m models.BracketMatch, live map[string]models.Match) models.BracketMatch {
	lm, ok := live[m.ID]
	if !ok {
		return m
	}
	out := m
	out.Status = lm.Status
	if lm.Result != nil {
		out.Result = lm.Result
	}
	if lm.Player1 != nil {
		out.Player1 = lm.Player1
	}
	if lm.Player2 != nil {
		out.Player2 = lm.Player2
	}
	return out
}

func refID(ref *models.PlayerRef) string {
	if ref == nil {
		return ""
	}
	return ref.ID
}

// loserID возвращает id проигравшего завершённого матча.
func loserID(m models.BracketMatch) string {
	if m.Result == nil {
		return ""
	}
	if m.Result.Winner == refID(m.Player1) {
		return refID(m.Player2)
	}
	return refID(m.Player1)
}

func isCompleted(m models.BracketMatch) bool {
	return m.Status == models.MatchStatusCompleted && m.Result != nil
}
