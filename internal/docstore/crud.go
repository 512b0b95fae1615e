package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// noExclusion marks "no document excluded" in uniqueness checks; row ids
// are autoincrement starting at 1, so 0 can never collide with a real id.
const noExclusion int64 = 0

// InsertOne appends doc to collection without deduplication. This is the
// path used when no primary key has been selected yet: the spec
// preserves the source's at-least-once, no-dedup behavior for that
// bootstrap window rather than inventing a synthetic key.
func (s *Store) InsertOne(ctx context.Context, collection string, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: marshaling document: %w", err)
	}

	if err := s.checkConstraints(ctx, collection, string(body), noExclusion); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO documents (collection, pk_value, body) VALUES (?, NULL, ?)`,
		collection, string(body),
	)
	return err
}

// UpdateOne finds the first document in collection matching filter and
// applies set via $set semantics (dotted-path aware, through sjson). If
// no document matches and upsert is true, a new document is built from
// filter merged with set and inserted through InsertOne, so its
// pk_value column is NULL like any other inserted document.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter map[string]any, set map[string]any, upsert bool) error {
	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx, `SELECT id, body FROM documents WHERE collection = ?`, collection)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var matchedID int64
	var matchedBody string
	found := false
	for rows.Next() {
		var id int64
		var body string
		if err := rows.Scan(&id, &body); err != nil {
			rows.Close()
			s.mu.Unlock()
			return err
		}
		if matchesFilter(body, filter) {
			matchedID, matchedBody, found = id, body, true
			break
		}
	}
	rows.Close()
	s.mu.Unlock()

	if !found {
		if !upsert {
			return nil
		}
		doc := map[string]any{}
		for k, v := range filter {
			doc[k] = v
		}
		for k, v := range set {
			doc[k] = v
		}
		return s.InsertOne(ctx, collection, doc)
	}

	newBody, err := applySet(matchedBody, set)
	if err != nil {
		return err
	}
	if err := s.checkConstraints(ctx, collection, newBody, matchedID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.conn.ExecContext(ctx, `UPDATE documents SET body = ? WHERE id = ?`, newBody, matchedID)
	return err
}

// UpdateMany applies set and unset to every document in collection
// matching filter, used by the migrator for backend-change and
// type-widening scans. Returns the number of documents touched.
func (s *Store) UpdateMany(ctx context.Context, collection string, filter map[string]any, set map[string]any, unset []string) (int, error) {
	s.mu.Lock()
	rows, err := s.conn.QueryContext(ctx, `SELECT id, body FROM documents WHERE collection = ?`, collection)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	type match struct {
		id   int64
		body string
	}
	var matches []match
	for rows.Next() {
		var id int64
		var body string
		if err := rows.Scan(&id, &body); err != nil {
			rows.Close()
			s.mu.Unlock()
			return 0, err
		}
		if matchesFilter(body, filter) {
			matches = append(matches, match{id, body})
		}
	}
	rows.Close()
	s.mu.Unlock()

	touched := 0
	for _, m := range matches {
		body := m.body
		var err error
		if len(set) > 0 {
			body, err = applySet(body, set)
			if err != nil {
				return touched, err
			}
		}
		for _, path := range unset {
			body, err = sjson.Delete(body, path)
			if err != nil {
				return touched, err
			}
		}

		s.mu.Lock()
		_, err = s.conn.ExecContext(ctx, `UPDATE documents SET body = ? WHERE id = ?`, body, m.id)
		s.mu.Unlock()
		if err != nil {
			return touched, err
		}
		touched++
	}
	return touched, nil
}

// Find returns every document in collection matching filter.
func (s *Store) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	s.mu.RLock()
	rows, err := s.conn.QueryContext(ctx, `SELECT body FROM documents WHERE collection = ?`, collection)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		if !matchesFilter(body, filter) {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func applySet(body string, set map[string]any) (string, error) {
	for path, value := range set {
		var err error
		body, err = sjson.Set(body, path, value)
		if err != nil {
			return "", fmt.Errorf("docstore: $set %q: %w", path, err)
		}
	}
	return body, nil
}

func matchesFilter(body string, filter map[string]any) bool {
	for key, want := range filter {
		got := gjson.Get(body, key)
		if !got.Exists() {
			return false
		}
		if !equalJSONValue(got.Value(), want) {
			return false
		}
	}
	return true
}

// equalJSONValue compares a gjson-decoded value (string/float64/bool/nil)
// against a filter value that may carry a narrower Go numeric type
// (int64 from the relational side of the pipeline, for instance).
func equalJSONValue(got, want any) bool {
	switch w := want.(type) {
	case int64:
		f, ok := got.(float64)
		return ok && f == float64(w)
	case int:
		f, ok := got.(float64)
		return ok && f == float64(w)
	default:
		return got == want
	}
}

func (s *Store) checkConstraints(ctx context.Context, collection, body string, excludeID int64) error {
	required, err := s.requiredFields(ctx, collection)
	if err != nil {
		return err
	}
	if err := validateDocument(required, body); err != nil {
		return err
	}

	uniques, err := s.uniqueFields(ctx, collection)
	if err != nil {
		return err
	}
	for _, field := range uniques {
		val := gjson.Get(body, field)
		if !val.Exists() {
			continue
		}
		conflict, err := s.hasConflictingValue(ctx, collection, field, val, excludeID)
		if err != nil {
			return err
		}
		if conflict {
			return fmt.Errorf("docstore: unique constraint violated on %s.%s", collection, field)
		}
	}
	return nil
}

func (s *Store) hasConflictingValue(ctx context.Context, collection, field string, val gjson.Result, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, `SELECT id, body FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var body string
		if err := rows.Scan(&id, &body); err != nil {
			return false, err
		}
		if id == excludeID {
			continue
		}
		existing := gjson.Get(body, field)
		if existing.Exists() && existing.Raw == val.Raw {
			return true, nil
		}
	}
	return false, rows.Err()
}
