package docstore

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// CreateIndex registers field as an index on collection. A non-unique
// index is bookkeeping only (Find already scans by collection); a
// unique index is enforced in Go on every InsertOne/UpdateOne by
// scanning existing documents for a colliding value, since the JSON
// body carries no native SQL index of its own.
func (s *Store) CreateIndex(ctx context.Context, collection, field string, unique bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO doc_indexes (collection, field, is_unique) VALUES (?, ?, ?)
		 ON CONFLICT(collection, field) DO UPDATE SET is_unique = excluded.is_unique`,
		collection, field, boolToInt(unique),
	)
	return err
}

// DropIndexes removes every index registered on collection except one on
// keepField (pass "" to drop all). ensureIndexes calls this before
// installing the current flush's primary-key index so a revised or
// retired primary key does not leave a stale unique constraint behind.
func (s *Store) DropIndexes(ctx context.Context, collection, keepField string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM doc_indexes WHERE collection = ? AND field != ?`,
		collection, keepField,
	)
	return err
}

// SetValidator requires every document written to collection to contain
// each field in required, string-typed. There is no native JSON-schema
// validator to delegate to in this storage engine, so the check runs in
// Go before every insert/update.
func (s *Store) SetValidator(ctx context.Context, collection string, required []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.ExecContext(ctx, `DELETE FROM doc_validators WHERE collection = ?`, collection); err != nil {
		return err
	}
	for _, field := range required {
		if _, err := s.conn.ExecContext(ctx,
			`INSERT INTO doc_validators (collection, field) VALUES (?, ?)`, collection, field,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) requiredFields(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT field FROM doc_validators WHERE collection = ?`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (s *Store) uniqueFields(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT field FROM doc_indexes WHERE collection = ? AND is_unique = 1`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// validateDocument checks body against collection's required-field
// validator: every required field must be present and string-typed.
func validateDocument(required []string, body string) error {
	for _, field := range required {
		res := gjson.Get(body, field)
		if !res.Exists() {
			return fmt.Errorf("docstore: validation failed: field %q missing", field)
		}
		if res.Type != gjson.String {
			return fmt.Errorf("docstore: validation failed: field %q must be string-typed", field)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
