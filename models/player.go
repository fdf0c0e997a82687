package models

import "time"

// Player представляет игрока лиги. Создаётся при первом упоминании
// (добавление в лигу по имени) либо явно через админку.
type Player struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PhotoKey  *string   `json:"-" db:"photo_key"`
	PhotoURL  *string   `json:"photo_url,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PlayerRef — краткая ссылка на игрока внутри JSONB-структур (сетка плей-офф,
// результаты матчей). Хранит только id и имя на момент записи.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
