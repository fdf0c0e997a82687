package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// ScoringRules — правила начисления очков лиги, хранятся в JSONB-колонке
// leagues.scoring_rules.
type ScoringRules struct {
	PlacementPoints     PlacementPoints `json:"placementPoints"`
	AllowManualOverride bool            `json:"allowManualOverride"`
}

// DefaultScoringRules возвращает правила, назначаемые новой лиге.
func DefaultScoringRules() ScoringRules {
	one := 1
	zero := 0
	return ScoringRules{
		PlacementPoints: PlacementPoints{
			Literal:        map[int]int{1: 5, 2: 4, 3: 3, 4: 2},
			PlayoffDefault: &one,
			Default:        &zero,
		},
		AllowManualOverride: true,
	}
}

// Value реализует driver.Valuer для записи в JSONB.
func (r ScoringRules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan реализует sql.Scanner для чтения из JSONB.
func (r *ScoringRules) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = DefaultScoringRules()
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported type %T for ScoringRules", src)
	}
}

// PlacementPoints — таблица "место → очки". В JSON ключи смешанные: числовые
// строки ("1", "2", ...) и две особые: "playoffDefault" (участник плей-офф без
// явного правила) и "default" (все остальные). В памяти держим их раздельно,
// чтобы порядок разрешения был задан в одном месте (Resolve), а не размазан
// по вызывающему коду.
type PlacementPoints struct {
	Literal        map[int]int
	PlayoffDefault *int
	Default        *int
}

const (
	placementKeyPlayoffDefault = "playoffDefault"
	placementKeyDefault        = "default"
)

// Resolve возвращает очки за место. Порядок: точное правило для места →
// playoffDefault (только для участников плей-офф) → default → 0.
func (p PlacementPoints) Resolve(placement int, inPlayoff bool) int {
	if pts, ok := p.Literal[placement]; ok {
		return pts
	}
	if inPlayoff && p.PlayoffDefault != nil {
		return *p.PlayoffDefault
	}
	if p.Default != nil {
		return *p.Default
	}
	return 0
}

func (p PlacementPoints) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, len(p.Literal)+2)
	for placement, pts := range p.Literal {
		out[strconv.Itoa(placement)] = pts
	}
	if p.PlayoffDefault != nil {
		out[placementKeyPlayoffDefault] = *p.PlayoffDefault
	}
	if p.Default != nil {
		out[placementKeyDefault] = *p.Default
	}
	return json.Marshal(out)
}

func (p *PlacementPoints) UnmarshalJSON(data []byte) error {
	raw := make(map[string]int)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed := PlacementPoints{Literal: make(map[int]int)}
	for key, pts := range raw {
		switch key {
		case placementKeyPlayoffDefault:
			v := pts
			parsed.PlayoffDefault = &v
		case placementKeyDefault:
			v := pts
			parsed.Default = &v
		default:
			placement, err := strconv.Atoi(key)
			if err != nil || placement < 1 {
				return fmt.Errorf("invalid placement key %q in scoring rules", key)
			}
			parsed.Literal[placement] = pts
		}
	}

	*p = parsed
	return nil
}
