package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// MergeRepository — обобщённые операции над таблицами, ссылающимися на
// players. Используется только слиянием дубликатов игроков: имена таблиц и
// колонок приходят из фиксированного списка шагов в PlayerService, не от
// пользователя; тем не менее все идентификаторы квотируются.
type MergeRepository interface {
	// RepointColumn — простая FK-колонка без ограничений уникальности:
	// безусловный UPDATE source → target. Возвращает число строк.
	RepointColumn(ctx context.Context, table, column, sourceID, targetID string) (int64, error)
	// MigrateUniqueRows — таблица с уникальным ключом (column + uniqueWith)
	// и суррогатным id. Для каждой строки источника: если у цели уже есть
	// строка с теми же значениями uniqueWith — строка источника удаляется,
	// иначе переключается на цель. Проверка существования выполняется ДО
	// любой мутации строки.
	MigrateUniqueRows(ctx context.Context, table, column string, uniqueWith []string, sourceID, targetID string) (int64, error)
	// MigrateCompositePKRows — таблица с составным первичным ключом без
	// суррогатного id (например tournament_players): строка источника
	// удаляется и, если у цели её ещё нет, вставляется заново с target.
	MigrateCompositePKRows(ctx context.Context, table, column string, keyColumns []string, sourceID, targetID string) (int64, error)
}

type postgresMergeRepository struct {
	db *sql.DB
}

func NewPostgresMergeRepository(db *sql.DB) MergeRepository {
	return &postgresMergeRepository{db: db}
}

func (r *postgresMergeRepository) RepointColumn(ctx context.Context, table, column, sourceID, targetID string) (int64, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = $1 WHERE %s = $2`,
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(column), pq.QuoteIdentifier(column),
	)
	result, err := r.db.ExecContext(ctx, query, targetID, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to repoint %s.%s: %w", table, column, err)
	}
	return result.RowsAffected()
}

func (r *postgresMergeRepository) MigrateUniqueRows(ctx context.Context, table, column string, uniqueWith []string, sourceID, targetID string) (int64, error) {
	quotedTable := pq.QuoteIdentifier(table)
	quotedColumn := pq.QuoteIdentifier(column)

	selectCols := make([]string, 0, len(uniqueWith)+1)
	selectCols = append(selectCols, "id")
	for _, c := range uniqueWith {
		selectCols = append(selectCols, pq.QuoteIdentifier(c))
	}
	selectQuery := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(selectCols, ", "), quotedTable, quotedColumn,
	)
	rows, err := r.db.QueryContext(ctx, selectQuery, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s rows for merge: %w", table, err)
	}
	type sourceRow struct {
		id     string
		values []interface{}
	}
	var sourceRows []sourceRow
	for rows.Next() {
		row := sourceRow{values: make([]interface{}, len(uniqueWith))}
		dest := make([]interface{}, 0, len(uniqueWith)+1)
		dest = append(dest, &row.id)
		for i := range row.values {
			dest = append(dest, &row.values[i])
		}
		if err = rows.Scan(dest...); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan %s row for merge: %w", table, err)
		}
		sourceRows = append(sourceRows, row)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	existsConds := make([]string, 0, len(uniqueWith)+1)
	existsConds = append(existsConds, fmt.Sprintf("%s = $1", quotedColumn))
	for i, c := range uniqueWith {
		existsConds = append(existsConds, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+2))
	}
	existsQuery := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE %s)`,
		quotedTable, strings.Join(existsConds, " AND "),
	)
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, quotedTable)
	updateQuery := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, quotedTable, quotedColumn)

	var migrated int64
	for _, row := range sourceRows {
		args := make([]interface{}, 0, len(row.values)+1)
		args = append(args, targetID)
		args = append(args, row.values...)

		var exists bool
		if err = r.db.QueryRowContext(ctx, existsQuery, args...).Scan(&exists); err != nil {
			return migrated, fmt.Errorf("failed existence check on %s: %w", table, err)
		}
		if exists {
			// У цели уже есть строка с этим ключом — строка источника лишняя.
			if _, err = r.db.ExecContext(ctx, deleteQuery, row.id); err != nil {
				return migrated, fmt.Errorf("failed to drop duplicate %s row: %w", table, err)
			}
		} else {
			if _, err = r.db.ExecContext(ctx, updateQuery, targetID, row.id); err != nil {
				return migrated, fmt.Errorf("failed to repoint %s row: %w", table, err)
			}
		}
		migrated++
	}
	return migrated, nil
}

func (r *postgresMergeRepository) MigrateCompositePKRows(ctx context.Context, table, column string, keyColumns []string, sourceID, targetID string) (int64, error) {
	quotedTable := pq.QuoteIdentifier(table)
	quotedColumn := pq.QuoteIdentifier(column)

	selectCols := make([]string, 0, len(keyColumns))
	for _, c := range keyColumns {
		selectCols = append(selectCols, pq.QuoteIdentifier(c))
	}
	selectQuery := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(selectCols, ", "), quotedTable, quotedColumn,
	)
	rows, err := r.db.QueryContext(ctx, selectQuery, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s rows for merge: %w", table, err)
	}
	var sourceKeys [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(keyColumns))
		dest := make([]interface{}, len(keyColumns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err = rows.Scan(dest...); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan %s row for merge: %w", table, err)
		}
		sourceKeys = append(sourceKeys, values)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	conds := make([]string, len(keyColumns))
	placeholders := make([]string, len(keyColumns))
	for i, c := range keyColumns {
		conds[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	existsQuery := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE %s)`,
		quotedTable, strings.Join(conds, " AND "),
	)
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s`, quotedTable, strings.Join(conds, " AND "))
	insertQuery := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		quotedTable, strings.Join(selectCols, ", "), strings.Join(placeholders, ", "),
	)

	var migrated int64
	for _, key := range sourceKeys {
		targetKey := replaceKeyValue(keyColumns, key, column, targetID)

		var exists bool
		if err = r.db.QueryRowContext(ctx, existsQuery, targetKey...).Scan(&exists); err != nil {
			return migrated, fmt.Errorf("failed existence check on %s: %w", table, err)
		}
		sourceKey := replaceKeyValue(keyColumns, key, column, sourceID)
		if _, err = r.db.ExecContext(ctx, deleteQuery, sourceKey...); err != nil {
			return migrated, fmt.Errorf("failed to delete %s row: %w", table, err)
		}
		if !exists {
			if _, err = r.db.ExecContext(ctx, insertQuery, targetKey...); err != nil {
				return migrated, fmt.Errorf("failed to re-insert %s row: %w", table, err)
			}
		}
		migrated++
	}
	return migrated, nil
}

func replaceKeyValue(columns []string, values []interface{}, column string, replacement string) []interface{} {
	out := make([]interface{}, len(values))
	copy(out, values)
	for i, c := range columns {
		if c == column {
			out[i] = replacement
		}
	}
	return out
}
