package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PostgresStore implements Store over a single JSONB documents table.
// Ordering relies on JSONB comparison semantics, which are type-aware
// within a type; datetime values are stored as fixed-precision UTC
// RFC3339 strings so their lexical order is chronological.
type PostgresStore struct {
	db *sql.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	PRIMARY KEY (collection, id)
)`

// NewPostgresStore wraps an open database handle. The handle is owned
// by the caller; Close only releases this store's use of it.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the documents table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Collection returns a handle to the named collection.
func (s *PostgresStore) Collection(name string) Collection {
	return &pgCollection{store: s, name: name}
}

// Set upserts a document.
func (s *PostgresStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	payload, err := marshalDocument(data)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, id, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`,
		collection, id, payload,
	)
	return err
}

// Close closes the underlying handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type pgCollection struct {
	store *PostgresStore
	name  string
}

func (c *pgCollection) Name() string { return c.name }

func (c *pgCollection) Get(ctx context.Context, id string) (*Document, error) {
	var raw []byte
	err := c.store.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		c.name, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data, err := unmarshalDocument(raw)
	if err != nil {
		return nil, err
	}
	return &Document{ID: id, Path: c.name + "/" + id, Data: data}, nil
}

func (c *pgCollection) Query() Query {
	return pgQuery{col: c, limit: -1}
}

type pgQuery struct {
	col        *pgCollection
	filters    []memoryFilter
	orders     []Order
	startAfter []interface{}
	limit      int
}

func (q pgQuery) Where(field, op string, value interface{}) Query {
	q.filters = append(append([]memoryFilter(nil), q.filters...), memoryFilter{field, op, value})
	return q
}

func (q pgQuery) OrderBy(field string, dir Direction) Query {
	q.orders = append(append([]Order(nil), q.orders...), Order{Field: field, Direction: dir})
	return q
}

func (q pgQuery) StartAfter(values ...interface{}) Query {
	q.startAfter = values
	return q
}

func (q pgQuery) Limit(n int) Query {
	q.limit = n
	return q
}

func (q pgQuery) Documents(ctx context.Context) ([]*Document, error) {
	query, args, err := q.build()
	if err != nil {
		return nil, err
	}

	rows, err := q.col.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data, err := unmarshalDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, &Document{ID: id, Path: q.col.name + "/" + id, Data: data})
	}
	return docs, rows.Err()
}

var pgFilterOps = map[string]string{
	"==": "=", "!=": "<>", "<": "<", "<=": "<=", ">": ">", ">=": ">=",
}

// build assembles the SQL statement and its arguments.
func (q pgQuery) build() (string, []interface{}, error) {
	if len(q.startAfter) > 0 && len(q.startAfter) != len(q.orders) {
		return "", nil, fmt.Errorf("start-after values (%d) do not match order-by fields (%d)", len(q.startAfter), len(q.orders))
	}

	var sb strings.Builder
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	sb.WriteString(`SELECT id, data FROM documents WHERE collection = `)
	sb.WriteString(arg(q.col.name))

	for _, f := range q.filters {
		op, ok := pgFilterOps[f.op]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter op %q", f.op)
		}
		encoded, err := marshalValue(f.value)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filter value for %q: %w", f.field, err)
		}
		if f.field == FieldDocumentID {
			fmt.Fprintf(&sb, " AND id %s %s", op, arg(fmt.Sprint(f.value)))
			continue
		}
		fmt.Fprintf(&sb, " AND data -> %s %s %s::jsonb", arg(f.field), op, arg(encoded))
	}

	if len(q.startAfter) > 0 {
		predicate, err := q.keysetPredicate(arg)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND (")
		sb.WriteString(predicate)
		sb.WriteString(")")
	}

	if len(q.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, order := range q.orders {
			if i > 0 {
				sb.WriteString(", ")
			}
			dir := "ASC"
			if order.Direction == Descending {
				dir = "DESC"
			}
			if order.Field == FieldDocumentID {
				fmt.Fprintf(&sb, "id %s", dir)
			} else {
				fmt.Fprintf(&sb, "data -> %s %s", arg(order.Field), dir)
			}
		}
	}

	if q.limit >= 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.limit)
	}

	return sb.String(), args, nil
}

// keysetPredicate expands "strictly after the cursor row" into the
// standard row-comparison form that works with mixed sort directions:
//
//	(f1 > v1) OR (f1 = v1 AND f2 > v2) OR ...
func (q pgQuery) keysetPredicate(arg func(interface{}) string) (string, error) {
	var clauses []string
	for i := range q.orders {
		var parts []string
		for j := 0; j <= i; j++ {
			order := q.orders[j]
			expr, param, err := q.keysetOperand(order, q.startAfter[j], arg)
			if err != nil {
				return "", err
			}
			if j < i {
				parts = append(parts, fmt.Sprintf("%s = %s", expr, param))
				continue
			}
			op := ">"
			if order.Direction == Descending {
				op = "<"
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", expr, op, param))
		}
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}
	return strings.Join(clauses, " OR "), nil
}

func (q pgQuery) keysetOperand(order Order, value interface{}, arg func(interface{}) string) (expr, param string, err error) {
	if order.Field == FieldDocumentID {
		ref, ok := value.(DocRef)
		if !ok {
			return "", "", fmt.Errorf("start-after value for %s must be a DocRef", FieldDocumentID)
		}
		return "id", arg(ref.ID), nil
	}
	encoded, err := marshalValue(value)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode start-after value for %q: %w", order.Field, err)
	}
	return fmt.Sprintf("data -> %s", arg(order.Field)), arg(encoded) + "::jsonb", nil
}

// pgTimeLayout pads fractional seconds to a fixed width. RFC3339Nano
// trims trailing zeros, and "Z" sorts after "." in a string compare,
// so mixed-precision timestamps would otherwise order wrong.
const pgTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// marshalValue encodes a single value the way document fields are
// stored: timestamps as fixed-precision UTC RFC3339 strings.
func marshalValue(v interface{}) (string, error) {
	if t, ok := v.(time.Time); ok {
		v = t.UTC().Format(pgTimeLayout)
	}
	raw, err := json.Marshal(v)
	return string(raw), err
}

func marshalDocument(data map[string]interface{}) ([]byte, error) {
	normalized := make(map[string]interface{}, len(data))
	for k, v := range data {
		if t, ok := v.(time.Time); ok {
			normalized[k] = t.UTC().Format(pgTimeLayout)
			continue
		}
		normalized[k] = v
	}
	return json.Marshal(normalized)
}

// unmarshalDocument decodes with UseNumber so integer fields survive
// a store round-trip without becoming floats.
func unmarshalDocument(raw []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode stored document: %w", err)
	}
	return data, nil
}
