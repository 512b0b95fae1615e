package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Upsert inserts row into table, or on a pk conflict overwrites every
// other column present in row. Matching is on pk only, per spec: "all
// other columns in the payload are overwritten."
func (s *Store) Upsert(ctx context.Context, table, pk string, row map[string]any) error {
	cols := sortedKeys(row)

	colList := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	updateClauses := make([]string, 0, len(cols))

	for i, c := range cols {
		colList[i] = quoteIdent(c)
		placeholders[i] = "?"
		args[i] = row[c]
		if c != pk {
			updateClauses = append(updateClauses, fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c)))
		}
	}

	var stmt string
	if len(updateClauses) == 0 {
		stmt = fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO NOTHING`,
			quoteIdent(table), join(colList), join(placeholders), quoteIdent(pk),
		)
	} else {
		stmt = fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s`,
			quoteIdent(table), join(colList), join(placeholders), quoteIdent(pk), join(updateClauses),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.ExecContext(ctx, stmt, args...)
	return err
}

// Insert appends row to table unconditionally, with no conflict
// handling. Used by package route when no primary key has been selected
// yet; duplicates are an accepted bootstrap-phase cost per spec section
// 4.5.
func (s *Store) Insert(ctx context.Context, table string, row map[string]any) error {
	cols := sortedKeys(row)
	colList := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		colList[i] = quoteIdent(c)
		placeholders[i] = "?"
		args[i] = row[c]
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, quoteIdent(table), join(colList), join(placeholders))

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.ExecContext(ctx, stmt, args...)
	return err
}

// Select returns every row of table matching an equality filter. A nil
// or empty filter returns every row.
func (s *Store) Select(ctx context.Context, table string, where map[string]any) ([]map[string]any, error) {
	whereClause, args := buildWhere(where)
	stmt := fmt.Sprintf(`SELECT * FROM %s%s`, quoteIdent(table), whereClause)

	s.mu.RLock()
	rows, err := s.conn.QueryContext(ctx, stmt, args...)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// Update sets columns in set for every row of table matching where,
// returning the number of affected rows.
func (s *Store) Update(ctx context.Context, table string, set, where map[string]any) (int, error) {
	setCols := sortedKeys(set)
	if len(setCols) == 0 {
		return 0, nil
	}
	setClauses := make([]string, len(setCols))
	args := make([]any, 0, len(setCols)+len(where))
	for i, c := range setCols {
		setClauses[i] = fmt.Sprintf("%s = ?", quoteIdent(c))
		args = append(args, set[c])
	}

	whereClause, whereArgs := buildWhere(where)
	args = append(args, whereArgs...)

	stmt := fmt.Sprintf(`UPDATE %s SET %s%s`, quoteIdent(table), join(setClauses), whereClause)

	s.mu.Lock()
	res, err := s.conn.ExecContext(ctx, stmt, args...)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func buildWhere(where map[string]any) (string, []any) {
	if len(where) == 0 {
		return "", nil
	}
	keys := sortedKeys(where)
	clauses := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		clauses[i] = fmt.Sprintf("%s = ?", quoteIdent(k))
		args[i] = where[k]
	}
	return " WHERE " + join(clauses), args
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
