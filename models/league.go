package models

import "time"

// LeagueStatus представляет статусы лиги, соответствующие ENUM в БД.
type LeagueStatus string

const (
	LeagueStatusActive   LeagueStatus = "active"
	LeagueStatusArchived LeagueStatus = "archived"
)

// League представляет лигу — контейнер для турниров, участников и таблицы очков.
type League struct {
	ID          string       `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Description *string      `json:"description,omitempty" db:"description"`
	Status      LeagueStatus `json:"status" db:"status"`
	// ScoringRules хранится как JSONB и задаёт начисление очков за места.
	ScoringRules ScoringRules `json:"scoring_rules" db:"scoring_rules"`
	LogoKey      *string      `json:"-" db:"logo_key"`
	LogoURL      *string      `json:"logo_url,omitempty" db:"-"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`

	// Счётчики для списков, заполняются сервисом отдельными запросами.
	MemberCount     int `json:"member_count,omitempty" db:"-"`
	TournamentCount int `json:"tournament_count,omitempty" db:"-"`
}

// LeagueMember — членство игрока в лиге. Уникально по (league_id, player_id).
// Выход из лиги фиксируется через left_at, строка не удаляется.
type LeagueMember struct {
	ID       string `json:"id" db:"id"`
	LeagueID string `json:"league_id" db:"league_id"`
	PlayerID string `json:"player_id" db:"player_id"`
	Role     string `json:"role" db:"role"`
	IsActive bool   `json:"is_active" db:"is_active"`

	JoinedAt time.Time  `json:"joined_at" db:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty" db:"left_at"`

	Player *Player `json:"player,omitempty" db:"-"`
}
