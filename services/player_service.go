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

// MergeStepResult — итог одного шага слияния: таблица, колонка и число
// обработанных строк либо текст ошибки.
type MergeStepResult struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Rows   int64  `json:"rows"`
	Error  string `json:"error,omitempty"`
}

// MergeReport — полный отчёт о слиянии двух записей игрока. Шаги идут в
// фиксированном порядке; ошибка шага не останавливает последующие, но
// запрещает удаление источника.
type MergeReport struct {
	SourceID      string            `json:"source_id"`
	TargetID      string            `json:"target_id"`
	Steps         []MergeStepResult `json:"steps"`
	SourceDeleted bool              `json:"source_deleted"`
}

type PlayerService interface {
	CreatePlayer(ctx context.Context, name string) (*models.Player, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	ListPlayers(ctx context.Context) ([]*models.Player, error)
	SearchPlayers(ctx context.Context, term string, limit int) ([]*models.Player, error)
	// GetOrCreateByName ищет игрока по точному имени и создаёт его, если
	// не нашёл. Так лига пополняется списком имён без предварительной
	// регистрации игроков.
	GetOrCreateByName(ctx context.Context, name string) (*models.Player, error)
	RenamePlayer(ctx context.Context, id, name string) (*models.Player, error)
	UploadPhoto(ctx context.Context, id string, contentType string, file io.Reader) (*models.Player, error)
	// MergePlayers переносит все данные источника на цель и удаляет запись
	// источника. История (матчи, результаты, таблицы лиг) сохраняется под
	// целевой записью; при конфликте уникальности выживает строка цели.
	// Частично выполненное слияние безопасно перезапускать.
	MergePlayers(ctx context.Context, sourceID, targetID string) (*MergeReport, error)
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	mergeRepo  repositories.MergeRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewPlayerService(
	playerRepo repositories.PlayerRepository,
	mergeRepo repositories.MergeRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) PlayerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &playerService{
		playerRepo: playerRepo,
		mergeRepo:  mergeRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *playerService) CreatePlayer(ctx context.Context, name string) (*models.Player, error) {
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	player := &models.Player{ID: uuid.NewString(), Name: name}
	if err := s.playerRepo.Create(ctx, nil, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return nil, ErrPlayerNameConflict
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (s *playerService) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}
	s.populatePhotoURL(player)
	return player, nil
}

func (s *playerService) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	for _, p := range players {
		s.populatePhotoURL(p)
	}
	return players, nil
}

func (s *playerService) SearchPlayers(ctx context.Context, term string, limit int) ([]*models.Player, error) {
	players, err := s.playerRepo.Search(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search players: %w", err)
	}
	for _, p := range players {
		s.populatePhotoURL(p)
	}
	return players, nil
}

func (s *playerService) GetOrCreateByName(ctx context.Context, name string) (*models.Player, error) {
	if name == "" {
		return nil, ErrPlayerNameRequired
	}

	player, err := s.playerRepo.GetByName(ctx, name)
	if err == nil {
		s.populatePhotoURL(player)
		return player, nil
	}
	if !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, fmt.Errorf("failed to look up player %q: %w", name, err)
	}

	player = &models.Player{ID: uuid.NewString(), Name: name}
	if err := s.playerRepo.Create(ctx, nil, player); err != nil {
		// Гонка с параллельным созданием того же имени.
		if errors.Is(err, repositories.ErrPlayerNameConflict) {
			return s.playerRepo.GetByName(ctx, name)
		}
		return nil, fmt.Errorf("failed to create player %q: %w", name, err)
	}
	return player, nil
}

func (s *playerService) RenamePlayer(ctx context.Context, id, name string) (*models.Player, error) {
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	err := s.playerRepo.UpdateName(ctx, id, name)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrPlayerNotFound):
			return nil, ErrPlayerNotFound
		case errors.Is(err, repositories.ErrPlayerNameConflict):
			return nil, ErrPlayerNameConflict
		default:
			return nil, fmt.Errorf("failed to rename player %s: %w", id, err)
		}
	}
	return s.GetPlayer(ctx, id)
}

func (s *playerService) UploadPhoto(ctx context.Context, id string, contentType string, file io.Reader) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}

	ext, ok := logoExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported photo content type %q", contentType)
	}
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}

	key := fmt.Sprintf("players/%s/photo_%s.%s", id, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload player photo: %w", err)
	}

	oldKey := player.PhotoKey
	if err := s.playerRepo.UpdatePhotoKey(ctx, id, &key); err != nil {
		return nil, fmt.Errorf("failed to save player photo key: %w", err)
	}
	if oldKey != nil && *oldKey != "" {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous player photo",
				slog.String("player_id", id), slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	player.PhotoKey = &key
	s.populatePhotoURL(player)
	return player, nil
}

func (s *playerService) populatePhotoURL(player *models.Player) {
	if s.uploader == nil || player.PhotoKey == nil || *player.PhotoKey == "" {
		return
	}
	if url := s.uploader.GetPublicURL(*player.PhotoKey); url != "" {
		player.PhotoURL = &url
	}
}

// mergeStep описывает одну таблицу, ссылающуюся на players. Выбор способа
// переноса: keyColumns — составной первичный ключ без суррогатного id,
// uniqueWith — уникальный ключ поверх суррогатного id, иначе простая
// FK-колонка.
type mergeStep struct {
	table      string
	column     string
	keyColumns []string
	uniqueWith []string
}

// Порядок важен: сначала составы турниров и групп, затем игровые данные,
// последними таблицы лиг. Так частично выполненное слияние оставляет
// ссылочно-целостное состояние на каждом шаге.
var playerMergeSteps = []mergeStep{
	{table: "tournament_players", column: "player_id", keyColumns: []string{"tournament_id", "player_id"}},
	{table: "group_players", column: "player_id", keyColumns: []string{"group_id", "player_id"}},
	{table: "matches", column: "player1_id"},
	{table: "matches", column: "player2_id"},
	{table: "matches", column: "winner_id"},
	{table: "legs", column: "player1_id"},
	{table: "legs", column: "player2_id"},
	{table: "legs", column: "winner_id"},
	{table: "dart_throws", column: "player_id"},
	{table: "match_player_stats", column: "player_id", uniqueWith: []string{"match_id"}},
	{table: "group_standings", column: "player_id", uniqueWith: []string{"group_id"}},
	{table: "tournament_stats", column: "player_id", uniqueWith: []string{"tournament_id"}},
	{table: "league_members", column: "player_id", uniqueWith: []string{"league_id"}},
	{table: "league_tournament_results", column: "player_id", uniqueWith: []string{"league_id", "tournament_id"}},
	{table: "league_leaderboard", column: "player_id", uniqueWith: []string{"league_id"}},
}

func (s *playerService) MergePlayers(ctx context.Context, sourceID, targetID string) (*MergeReport, error) {
	if sourceID == targetID {
		return nil, ErrMergeSamePlayer
	}

	// Источник мог быть уже слит предыдущим запуском.
	if _, err := s.playerRepo.GetByID(ctx, sourceID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: source player %s", ErrPlayerNotFound, sourceID)
		}
		return nil, fmt.Errorf("failed to get source player %s: %w", sourceID, err)
	}
	if _, err := s.playerRepo.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: target player %s", ErrPlayerNotFound, targetID)
		}
		return nil, fmt.Errorf("failed to get target player %s: %w", targetID, err)
	}

	report := &MergeReport{SourceID: sourceID, TargetID: targetID}
	failed := false
	for _, step := range playerMergeSteps {
		var (
			rows int64
			err  error
		)
		switch {
		case len(step.keyColumns) > 0:
			rows, err = s.mergeRepo.MigrateCompositePKRows(ctx, step.table, step.column, step.keyColumns, sourceID, targetID)
		case len(step.uniqueWith) > 0:
			rows, err = s.mergeRepo.MigrateUniqueRows(ctx, step.table, step.column, step.uniqueWith, sourceID, targetID)
		default:
			rows, err = s.mergeRepo.RepointColumn(ctx, step.table, step.column, sourceID, targetID)
		}

		result := MergeStepResult{Table: step.table, Column: step.column, Rows: rows}
		if err != nil {
			failed = true
			result.Error = err.Error()
			s.logger.Error("player merge step failed",
				slog.String("source_id", sourceID),
				slog.String("target_id", targetID),
				slog.String("table", step.table),
				slog.String("column", step.column),
				slog.Any("error", err),
			)
		}
		report.Steps = append(report.Steps, result)
	}

	if failed {
		// Источник остаётся, повторный запуск доделает оставшиеся шаги.
		return report, ErrMergeIncomplete
	}

	if err := s.playerRepo.Delete(ctx, nil, sourceID); err != nil {
		return report, fmt.Errorf("merge succeeded but failed to delete source player %s: %w", sourceID, err)
	}
	report.SourceDeleted = true

	s.logger.Info("players merged",
		slog.String("source_id", sourceID),
		slog.String("target_id", targetID),
		slog.Int("steps", len(report.Steps)),
	)
	return report, nil
}
