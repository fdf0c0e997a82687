package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/darts-league/live"
	"github.com/Dosada05/darts-league/models"
	"github.com/Dosada05/darts-league/placements"
	"github.com/Dosada05/darts-league/repositories"
)

// RecalculationReport — итог пакетного пересчёта результатов лиги. Ошибка
// одного турнира не прерывает обработку остальных; вызывающий показывает
// отчёт целиком, а не бинарный успех/провал.
type RecalculationReport struct {
	LeagueID   string              `json:"league_id"`
	Processed  int                 `json:"processed"`
	Calculated int                 `json:"calculated"`
	Skipped    int                 `json:"skipped"`
	Failures   []TournamentFailure `json:"failures,omitempty"`
}

type TournamentFailure struct {
	TournamentID   string `json:"tournament_id"`
	TournamentName string `json:"tournament_name,omitempty"`
	Reason         string `json:"reason"`
}

// ScoringService — расчёт мест и очков лиги: запись результатов турниров,
// агрегация таблицы, привязка/отвязка турниров и ручная правка очков.
type ScoringService interface {
	// CalculateTournamentPlacements восстанавливает места участников
	// турнира, начисляет очки по правилам лиги и записывает результаты.
	// Идемпотентна: повторный вызов по неизменённому турниру даёт те же
	// строки (upsert по league+tournament+player), без дубликатов.
	CalculateTournamentPlacements(ctx context.Context, leagueID, tournamentID string) ([]models.LeagueTournamentResult, error)
	// RecalculateAllResults пересчитывает все завершённые турниры лиги.
	// Турниры с выставленным флагом league_points_calculated пропускаются,
	// если не указан force.
	RecalculateAllResults(ctx context.Context, leagueID string, force bool) (*RecalculationReport, error)
	// UpdateLeaderboardCache перестраивает кэш таблицы лиги из строк
	// результатов. Полная перезапись существующих строк; строки игроков,
	// у которых результатов больше нет, остаются с прежними значениями.
	UpdateLeaderboardCache(ctx context.Context, leagueID string) ([]models.LeaderboardEntry, error)
	// UpdateLeaderboard — полный цикл: пересчёт всех результатов + кэш.
	UpdateLeaderboard(ctx context.Context, leagueID string, force bool) (*RecalculationReport, error)
	LinkTournament(ctx context.Context, leagueID, tournamentID string) (*models.Tournament, error)
	UnlinkTournament(ctx context.Context, leagueID, tournamentID string) error
	// SetPlayerPoints — ручная правка total_points в кэше, минуя пересчёт.
	// Это сознательная заплатка (например, импорт старых сезонов): любой
	// последующий полный пересчёт её перетирает.
	SetPlayerPoints(ctx context.Context, leagueID, playerID string, totalPoints int) error
}

type scoringService struct {
	leagueRepo      repositories.LeagueRepository
	tournamentRepo  repositories.TournamentRepository
	resultRepo      repositories.ResultRepository
	leaderboardRepo repositories.LeaderboardRepository
	tournamentSvc   TournamentService
	hub             *live.Hub
	logger          *slog.Logger
}

func NewScoringService(
	leagueRepo repositories.LeagueRepository,
	tournamentRepo repositories.TournamentRepository,
	resultRepo repositories.ResultRepository,
	leaderboardRepo repositories.LeaderboardRepository,
	tournamentSvc TournamentService,
	hub *live.Hub,
	logger *slog.Logger,
) ScoringService {
	if logger == nil {
		logger = slog.Default()
	}
	return &scoringService{
		leagueRepo:      leagueRepo,
		tournamentRepo:  tournamentRepo,
		resultRepo:      resultRepo,
		leaderboardRepo: leaderboardRepo,
		tournamentSvc:   tournamentSvc,
		hub:             hub,
		logger:          logger,
	}
}

func (s *scoringService) CalculateTournamentPlacements(ctx context.Context, leagueID, tournamentID string) ([]models.LeagueTournamentResult, error) {
	rules, err := s.leagueRepo.GetScoringRules(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to load scoring rules for league %s: %w", leagueID, err)
	}

	tournament, err := s.tournamentSvc.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.LeagueID == nil || *tournament.LeagueID != leagueID {
		return nil, ErrTournamentNotInLeague
	}

	results := s.buildResults(leagueID, tournament, rules.PlacementPoints)
	if err := s.resultRepo.UpsertBatch(ctx, nil, results); err != nil {
		return nil, fmt.Errorf("failed to upsert results for tournament %s: %w", tournamentID, err)
	}
	if err := s.tournamentRepo.SetPointsCalculated(ctx, nil, tournamentID, true); err != nil {
		return nil, fmt.Errorf("failed to mark tournament %s as calculated: %w", tournamentID, err)
	}

	s.logger.Info("tournament placements recorded",
		slog.String("league_id", leagueID),
		slog.String("tournament_id", tournamentID),
		slog.Int("results", len(results)),
	)
	return results, nil
}

// buildResults превращает данные турнира в строки результатов: место →
// очки по таблице правил лиги.
func (s *scoringService) buildResults(leagueID string, tournament *models.Tournament, points models.PlacementPoints) []models.LeagueTournamentResult {
	placed := placements.Extract(tournament)
	results := make([]models.LeagueTournamentResult, 0, len(placed))
	for _, p := range placed {
		results = append(results, models.LeagueTournamentResult{
			LeagueID:      leagueID,
			TournamentID:  tournament.ID,
			PlayerID:      p.PlayerID,
			Placement:     p.Placement,
			PointsAwarded: points.Resolve(p.Placement, p.InPlayoff),
		})
	}
	return results
}

func (s *scoringService) RecalculateAllResults(ctx context.Context, leagueID string, force bool) (*RecalculationReport, error) {
	rules, err := s.leagueRepo.GetScoringRules(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to load scoring rules for league %s: %w", leagueID, err)
	}

	completed := models.TournamentStatusCompleted
	tournaments, err := s.tournamentRepo.ListByLeague(ctx, leagueID, &completed)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tournaments for league %s: %w", leagueID, err)
	}

	report := &RecalculationReport{LeagueID: leagueID, Processed: len(tournaments)}
	for _, t := range tournaments {
		if t.LeaguePointsCalculated && !force {
			report.Skipped++
			continue
		}
		if err := s.recalculateOne(ctx, leagueID, t.ID, rules.PlacementPoints); err != nil {
			// Ошибка одного турнира не должна останавливать остальные.
			s.logger.Error("failed to recalculate tournament results",
				slog.String("league_id", leagueID),
				slog.String("tournament_id", t.ID),
				slog.Any("error", err),
			)
			report.Failures = append(report.Failures, TournamentFailure{
				TournamentID:   t.ID,
				TournamentName: t.Name,
				Reason:         err.Error(),
			})
			continue
		}
		report.Calculated++
	}

	s.logger.Info("league results recalculated",
		slog.String("league_id", leagueID),
		slog.Int("processed", report.Processed),
		slog.Int("calculated", report.Calculated),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failures)),
	)
	return report, nil
}

func (s *scoringService) recalculateOne(ctx context.Context, leagueID, tournamentID string, points models.PlacementPoints) error {
	tournament, err := s.tournamentSvc.GetTournament(ctx, tournamentID)
	if err != nil {
		return err
	}

	results := s.buildResults(leagueID, tournament, points)
	if len(results) == 0 {
		s.logger.Warn("no placements extracted for tournament",
			slog.String("tournament_id", tournamentID))
		return nil
	}
	if err := s.resultRepo.UpsertBatch(ctx, nil, results); err != nil {
		return fmt.Errorf("failed to upsert results: %w", err)
	}
	if err := s.tournamentRepo.SetPointsCalculated(ctx, nil, tournamentID, true); err != nil {
		return fmt.Errorf("failed to mark tournament as calculated: %w", err)
	}
	return nil
}

func (s *scoringService) UpdateLeaderboardCache(ctx context.Context, leagueID string) ([]models.LeaderboardEntry, error) {
	results, err := s.resultRepo.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for league %s: %w", leagueID, err)
	}

	type playerTotals struct {
		totalPoints int
		placements  []int
		lastAt      time.Time
	}
	totals := make(map[string]*playerTotals)
	order := make([]string, 0)
	for _, res := range results {
		t, ok := totals[res.PlayerID]
		if !ok {
			t = &playerTotals{}
			totals[res.PlayerID] = t
			order = append(order, res.PlayerID)
		}
		t.totalPoints += res.PointsAwarded
		t.placements = append(t.placements, res.Placement)
		if res.TournamentCreatedAt.After(t.lastAt) {
			t.lastAt = res.TournamentCreatedAt
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for _, playerID := range order {
		t := totals[playerID]
		best, worst, sum := t.placements[0], t.placements[0], 0
		for _, p := range t.placements {
			if p < best {
				best = p
			}
			if p > worst {
				worst = p
			}
			sum += p
		}
		avg := float64(sum) / float64(len(t.placements))
		bestCopy, worstCopy := best, worst
		entry := models.LeaderboardEntry{
			LeagueID:          leagueID,
			PlayerID:          playerID,
			TotalPoints:       t.totalPoints,
			TournamentsPlayed: len(t.placements),
			BestPlacement:     &bestCopy,
			WorstPlacement:    &worstCopy,
			AvgPlacement:      &avg,
		}
		if !t.lastAt.IsZero() {
			lastAt := t.lastAt
			entry.LastTournamentAt = &lastAt
		}
		entries = append(entries, entry)
	}

	if err := s.leaderboardRepo.UpsertBatch(ctx, nil, entries); err != nil {
		return nil, fmt.Errorf("failed to upsert leaderboard for league %s: %w", leagueID, err)
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(leagueID, live.Message{
			Type:    live.EventLeaderboardUpdated,
			Payload: map[string]interface{}{"league_id": leagueID, "entries": len(entries)},
		})
	}
	return entries, nil
}

func (s *scoringService) UpdateLeaderboard(ctx context.Context, leagueID string, force bool) (*RecalculationReport, error) {
	report, err := s.RecalculateAllResults(ctx, leagueID, force)
	if err != nil {
		return nil, err
	}
	if _, err := s.UpdateLeaderboardCache(ctx, leagueID); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *scoringService) LinkTournament(ctx context.Context, leagueID, tournamentID string) (*models.Tournament, error) {
	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to load league %s: %w", leagueID, err)
	}

	err := s.tournamentRepo.SetLeague(ctx, tournamentID, leagueID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrTournamentAlreadyLinked):
			return nil, ErrTournamentAlreadyLinked
		default:
			return nil, fmt.Errorf("failed to link tournament %s to league %s: %w", tournamentID, leagueID, err)
		}
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload tournament %s after link: %w", tournamentID, err)
	}

	// Завершённый турнир сразу участвует в таблице, без отдельного запуска
	// пересчёта.
	if tournament.Status == models.TournamentStatusCompleted {
		if _, err := s.CalculateTournamentPlacements(ctx, leagueID, tournamentID); err != nil {
			return nil, err
		}
		if _, err := s.UpdateLeaderboardCache(ctx, leagueID); err != nil {
			return nil, err
		}
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(leagueID, live.Message{
			Type:    live.EventTournamentLinked,
			Payload: map[string]interface{}{"tournament_id": tournamentID},
		})
	}
	return tournament, nil
}

func (s *scoringService) UnlinkTournament(ctx context.Context, leagueID, tournamentID string) error {
	err := s.tournamentRepo.ClearLeague(ctx, tournamentID, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotInLeague) {
			return ErrTournamentNotInLeague
		}
		return fmt.Errorf("failed to unlink tournament %s from league %s: %w", tournamentID, leagueID, err)
	}

	if err := s.resultRepo.DeleteByLeagueAndTournament(ctx, leagueID, tournamentID); err != nil {
		return fmt.Errorf("failed to delete results of tournament %s: %w", tournamentID, err)
	}

	if _, err := s.UpdateLeaderboardCache(ctx, leagueID); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(leagueID, live.Message{
			Type:    live.EventTournamentUnlinked,
			Payload: map[string]interface{}{"tournament_id": tournamentID},
		})
	}
	return nil
}

func (s *scoringService) SetPlayerPoints(ctx context.Context, leagueID, playerID string, totalPoints int) error {
	rules, err := s.leagueRepo.GetScoringRules(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return ErrLeagueNotFound
		}
		return fmt.Errorf("failed to load scoring rules for league %s: %w", leagueID, err)
	}
	if !rules.AllowManualOverride {
		return ErrManualOverrideDisabled
	}

	err = s.leaderboardRepo.UpdateTotalPoints(ctx, leagueID, playerID, totalPoints)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderboardEntryNotFound) {
			return ErrLeaderboardNotFound
		}
		return fmt.Errorf("failed to override points for player %s in league %s: %w", playerID, leagueID, err)
	}

	s.logger.Info("leaderboard points manually overridden",
		slog.String("league_id", leagueID),
		slog.String("player_id", playerID),
		slog.Int("total_points", totalPoints),
	)
	if s.hub != nil {
		s.hub.BroadcastToRoom(leagueID, live.Message{
			Type:    live.EventLeaderboardUpdated,
			Payload: map[string]interface{}{"league_id": leagueID, "player_id": playerID},
		})
	}
	return nil
}
