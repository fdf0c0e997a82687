package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrLeagueNameRequired  = errors.New("league name is required")
	ErrPlayerNameRequired  = errors.New("player name is required")
	ErrInvalidLeagueStatus = errors.New("invalid league status provided")

	// Ошибки конфликтов
	ErrLeagueNameConflict      = errors.New("league name is already in use")
	ErrPlayerNameConflict      = errors.New("player name is already in use")
	ErrTournamentAlreadyLinked = errors.New("tournament is already linked to a league")

	// Ошибки привязки и пересчёта
	ErrTournamentNotInLeague  = errors.New("tournament does not belong to this league")
	ErrManualOverrideDisabled = errors.New("manual points override is disabled for this league")

	// Слияние игроков
	ErrMergeSamePlayer = errors.New("cannot merge a player into themselves")
	ErrMergeIncomplete = errors.New("player merge completed partially: source player kept")

	// Ошибки, специфичные для сущностей
	ErrLeagueNotFound      = errors.New("league not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrLeaderboardNotFound = errors.New("leaderboard entry not found")

	// Аутентификация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
)
