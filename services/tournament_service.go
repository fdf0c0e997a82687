package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/darts-league/models"
	"github.com/Dosada05/darts-league/repositories"
	"golang.org/x/sync/errgroup"
)

type TournamentService interface {
	// GetTournament собирает полные данные турнира: строку из tournaments
	// (включая JSONB-снапшот сетки), группы с таблицами, актуальные матчи
	// плей-офф и список участников. Снапшот и live-матчи читаются без общей
	// транзакции: наложение актуальных данных (пакет placements) рассчитано
	// на то, что два чтения могут видеть разные моменты времени.
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	ListUnlinked(ctx context.Context) ([]*models.Tournament, error)
	GetSummary(ctx context.Context, id string) (*TournamentSummary, error)
}

// TournamentSummary — награды по итогам турнира: лучший средний набор,
// самый высокий чекаут, больше всего 180. При равенстве показателей награду
// делят несколько игроков.
type TournamentSummary struct {
	TournamentID    string         `json:"tournament_id"`
	BestAverage     []SummaryAward `json:"best_average,omitempty"`
	BestCheckout    []SummaryAward `json:"best_checkout,omitempty"`
	MostOneEighties []SummaryAward `json:"most_180s,omitempty"`
}

type SummaryAward struct {
	PlayerID string  `json:"player_id"`
	Value    float64 `json:"value"`
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
	}
}

func (s *tournamentService) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		groups, err := s.tournamentRepo.ListGroups(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load groups for tournament %s: %w", id, err)
		}
		tournament.Groups = groups
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListPlayoffByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load playoff matches for tournament %s: %w", id, err)
		}
		tournament.PlayoffMatches = matches
		return nil
	})

	g.Go(func() error {
		players, err := s.tournamentRepo.ListPlayers(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load players for tournament %s: %w", id, err)
		}
		tournament.Players = players
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListUnlinked(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.ListUnlinked(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) GetSummary(ctx context.Context, id string) (*TournamentSummary, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}

	stats, err := s.matchRepo.ListStatsByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load match stats for tournament %s: %w", id, err)
	}

	byPlayer := make(map[string]*playerAgg)
	for _, st := range stats {
		agg, ok := byPlayer[st.PlayerID]
		if !ok {
			agg = &playerAgg{}
			byPlayer[st.PlayerID] = agg
		}
		if st.Average > 0 {
			agg.averageSum += st.Average
			agg.matches++
		}
		agg.oneEighties += st.OneEighties
		if st.HighestCheckout != nil && *st.HighestCheckout > agg.bestCheckout {
			agg.bestCheckout = *st.HighestCheckout
		}
	}

	summary := &TournamentSummary{TournamentID: id}
	summary.BestAverage = topAwards(byPlayer, func(a *playerAgg) float64 {
		if a.matches == 0 {
			return 0
		}
		return a.averageSum / float64(a.matches)
	})
	summary.BestCheckout = topAwards(byPlayer, func(a *playerAgg) float64 {
		return float64(a.bestCheckout)
	})
	summary.MostOneEighties = topAwards(byPlayer, func(a *playerAgg) float64 {
		return float64(a.oneEighties)
	})
	return summary, nil
}

type playerAgg struct {
	averageSum   float64
	matches      int
	oneEighties  int
	bestCheckout int
}

// topAwards возвращает игроков с максимальным значением метрики (с учётом
// дележа при равенстве). Нулевые значения наград не дают.
func topAwards(byPlayer map[string]*playerAgg, metric func(*playerAgg) float64) []SummaryAward {
	var best float64
	for _, agg := range byPlayer {
		if v := metric(agg); v > best {
			best = v
		}
	}
	if best <= 0 {
		return nil
	}
	var winners []SummaryAward
	for playerID, agg := range byPlayer {
		if metric(agg) == best {
			winners = append(winners, SummaryAward{PlayerID: playerID, Value: best})
		}
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i].PlayerID < winners[j].PlayerID })
	return winners
}
