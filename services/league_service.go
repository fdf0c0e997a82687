package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Dosada05/darts-league/models"
	"github.com/Dosada05/darts-league/repositories"
	"github.com/Dosada05/darts-league/storage"
	"github.com/google/uuid"
)

type CreateLeagueInput struct {
	Name         string               `json:"name"`
	Description  *string              `json:"description,omitempty"`
	ScoringRules *models.ScoringRules `json:"scoring_rules,omitempty"`
}

type UpdateLeagueInput struct {
	Name         *string              `json:"name,omitempty"`
	Description  *string              `json:"description,omitempty"`
	Status       *models.LeagueStatus `json:"status,omitempty"`
	ScoringRules *models.ScoringRules `json:"scoring_rules,omitempty"`
}

// MemberInput — один участник в запросе на добавление. Либо ссылка на
// существующего игрока, либо имя: по имени игрок ищется, а при отсутствии
// создаётся. Так состав лиги набивается одним списком имён.
type MemberInput struct {
	PlayerID *string `json:"player_id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Role     string  `json:"role,omitempty"`
}

type UpdateMemberInput struct {
	IsActive *bool   `json:"is_active,omitempty"`
	Role     *string `json:"role,omitempty"`
}

type LeagueService interface {
	CreateLeague(ctx context.Context, input CreateLeagueInput) (*models.League, error)
	GetLeague(ctx context.Context, id string) (*models.League, error)
	ListLeagues(ctx context.Context) ([]*models.League, error)
	UpdateLeague(ctx context.Context, id string, input UpdateLeagueInput) (*models.League, error)
	DeleteLeague(ctx context.Context, id string) error

	AddMembers(ctx context.Context, leagueID string, inputs []MemberInput) ([]*models.LeagueMember, error)
	ListMembers(ctx context.Context, leagueID string) ([]*models.LeagueMember, error)
	UpdateMember(ctx context.Context, leagueID, playerID string, input UpdateMemberInput) (*models.LeagueMember, error)
	RemoveMember(ctx context.Context, leagueID, playerID string) error

	GetLeaderboard(ctx context.Context, leagueID string) ([]*models.LeaderboardEntry, error)
	UploadLogo(ctx context.Context, leagueID string, contentType string, file io.Reader) (*models.League, error)
}

type leagueService struct {
	leagueRepo      repositories.LeagueRepository
	memberRepo      repositories.LeagueMemberRepository
	tournamentRepo  repositories.TournamentRepository
	leaderboardRepo repositories.LeaderboardRepository
	playerSvc       PlayerService
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewLeagueService(
	leagueRepo repositories.LeagueRepository,
	memberRepo repositories.LeagueMemberRepository,
	tournamentRepo repositories.TournamentRepository,
	leaderboardRepo repositories.LeaderboardRepository,
	playerSvc PlayerService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) LeagueService {
	if logger == nil {
		logger = slog.Default()
	}
	return &leagueService{
		leagueRepo:      leagueRepo,
		memberRepo:      memberRepo,
		tournamentRepo:  tournamentRepo,
		leaderboardRepo: leaderboardRepo,
		playerSvc:       playerSvc,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *leagueService) CreateLeague(ctx context.Context, input CreateLeagueInput) (*models.League, error) {
	if input.Name == "" {
		return nil, ErrLeagueNameRequired
	}

	rules := models.DefaultScoringRules()
	if input.ScoringRules != nil {
		rules = *input.ScoringRules
	}

	league := &models.League{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Description:  input.Description,
		Status:       models.LeagueStatusActive,
		ScoringRules: rules,
	}
	if err := s.leagueRepo.Create(ctx, league); err != nil {
		if errors.Is(err, repositories.ErrLeagueNameConflict) {
			return nil, ErrLeagueNameConflict
		}
		return nil, fmt.Errorf("failed to create league: %w", err)
	}

	s.logger.Info("league created", slog.String("league_id", league.ID), slog.String("name", league.Name))
	return league, nil
}

func (s *leagueService) GetLeague(ctx context.Context, id string) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %s: %w", id, err)
	}

	if memberCount, err := s.memberRepo.CountActiveByLeague(ctx, id); err == nil {
		league.MemberCount = memberCount
	}
	if tournamentCount, err := s.tournamentRepo.CountByLeague(ctx, id); err == nil {
		league.TournamentCount = tournamentCount
	}
	s.populateLogoURL(league)
	return league, nil
}

func (s *leagueService) ListLeagues(ctx context.Context) ([]*models.League, error) {
	leagues, err := s.leagueRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	for _, league := range leagues {
		s.populateLogoURL(league)
	}
	return leagues, nil
}

func (s *leagueService) UpdateLeague(ctx context.Context, id string, input UpdateLeagueInput) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %s: %w", id, err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrLeagueNameRequired
		}
		league.Name = *input.Name
	}
	if input.Description != nil {
		league.Description = input.Description
	}
	if input.Status != nil {
		switch *input.Status {
		case models.LeagueStatusActive, models.LeagueStatusArchived:
			league.Status = *input.Status
		default:
			return nil, ErrInvalidLeagueStatus
		}
	}
	if input.ScoringRules != nil {
		league.ScoringRules = *input.ScoringRules
	}

	if err := s.leagueRepo.Update(ctx, league); err != nil {
		switch {
		case errors.Is(err, repositories.ErrLeagueNotFound):
			return nil, ErrLeagueNotFound
		case errors.Is(err, repositories.ErrLeagueNameConflict):
			return nil, ErrLeagueNameConflict
		default:
			return nil, fmt.Errorf("failed to update league %s: %w", id, err)
		}
	}
	s.populateLogoURL(league)
	return league, nil
}

func (s *leagueService) DeleteLeague(ctx context.Context, id string) error {
	if err := s.leagueRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return ErrLeagueNotFound
		}
		return fmt.Errorf("failed to delete league %s: %w", id, err)
	}
	s.logger.Info("league deleted", slog.String("league_id", id))
	return nil
}

func (s *leagueService) AddMembers(ctx context.Context, leagueID string, inputs []MemberInput) ([]*models.LeagueMember, error) {
	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %s: %w", leagueID, err)
	}

	members := make([]*models.LeagueMember, 0, len(inputs))
	for _, input := range inputs {
		player, err := s.resolvePlayer(ctx, input)
		if err != nil {
			return nil, err
		}

		role := input.Role
		if role == "" {
			role = "player"
		}
		member := &models.LeagueMember{
			ID:       uuid.NewString(),
			LeagueID: leagueID,
			PlayerID: player.ID,
			Role:     role,
			IsActive: true,
		}
		if err := s.memberRepo.Upsert(ctx, nil, member); err != nil {
			return nil, err
		}
		member.Player = player
		members = append(members, member)
	}
	return members, nil
}

func (s *leagueService) resolvePlayer(ctx context.Context, input MemberInput) (*models.Player, error) {
	if input.PlayerID != nil && *input.PlayerID != "" {
		player, err := s.playerSvc.GetPlayer(ctx, *input.PlayerID)
		if err != nil {
			return nil, err
		}
		return player, nil
	}
	if input.Name == nil || *input.Name == "" {
		return nil, ErrPlayerNameRequired
	}
	return s.playerSvc.GetOrCreateByName(ctx, *input.Name)
}

func (s *leagueService) ListMembers(ctx context.Context, leagueID string) ([]*models.LeagueMember, error) {
	members, err := s.memberRepo.ListActiveByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of league %s: %w", leagueID, err)
	}
	return members, nil
}

func (s *leagueService) UpdateMember(ctx context.Context, leagueID, playerID string, input UpdateMemberInput) (*models.LeagueMember, error) {
	member, err := s.memberRepo.UpdateStatus(ctx, leagueID, playerID, input.IsActive, input.Role, nil)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueMemberNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update member %s of league %s: %w", playerID, leagueID, err)
	}
	return member, nil
}

// RemoveMember помечает выход игрока из лиги (left_at), строка членства и
// накопленные результаты сохраняются.
func (s *leagueService) RemoveMember(ctx context.Context, leagueID, playerID string) error {
	if err := s.memberRepo.MarkLeft(ctx, leagueID, playerID); err != nil {
		if errors.Is(err, repositories.ErrLeagueMemberNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove member %s from league %s: %w", playerID, leagueID, err)
	}
	return nil
}

func (s *leagueService) GetLeaderboard(ctx context.Context, leagueID string) ([]*models.LeaderboardEntry, error) {
	if _, err := s.leagueRepo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %s: %w", leagueID, err)
	}
	entries, err := s.leaderboardRepo.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard of league %s: %w", leagueID, err)
	}
	return entries, nil
}

var logoExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

func (s *leagueService) UploadLogo(ctx context.Context, leagueID string, contentType string, file io.Reader) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league %s: %w", leagueID, err)
	}

	ext, ok := logoExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported logo content type %q", contentType)
	}

	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}

	// Новый ключ на каждую загрузку, чтобы CDN не отдавал старый логотип.
	key := fmt.Sprintf("leagues/%s/logo_%s.%s", leagueID, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload league logo: %w", err)
	}

	oldKey := league.LogoKey
	if err := s.leagueRepo.UpdateLogoKey(ctx, leagueID, &key); err != nil {
		return nil, fmt.Errorf("failed to save league logo key: %w", err)
	}
	if oldKey != nil && *oldKey != "" {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous league logo",
				slog.String("league_id", leagueID), slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	league.LogoKey = &key
	s.populateLogoURL(league)
	return league, nil
}

func (s *leagueService) populateLogoURL(league *models.League) {
	if s.uploader == nil || league.LogoKey == nil || *league.LogoKey == "" {
		return
	}
	if url := s.uploader.GetPublicURL(*league.LogoKey); url != "" {
		league.LogoURL = &url
	}
}
