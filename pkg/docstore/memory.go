package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local
// development. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
	}
}

// Collection returns a handle to the named collection, creating it lazily.
func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

// Set upserts a document.
func (s *MemoryStore) Set(_ context.Context, collection, id string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]map[string]interface{})
		s.collections[collection] = col
	}
	clone := make(map[string]interface{}, len(data))
	for k, v := range data {
		clone[k] = v
	}
	col[id] = clone
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) Get(_ context.Context, id string) (*Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	data, ok := c.store.collections[c.name][id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.document(id, data), nil
}

func (c *memoryCollection) document(id string, data map[string]interface{}) *Document {
	clone := make(map[string]interface{}, len(data))
	for k, v := range data {
		clone[k] = v
	}
	return &Document{ID: id, Path: c.name + "/" + id, Data: clone}
}

func (c *memoryCollection) Query() Query {
	return memoryQuery{col: c, limit: -1}
}

type memoryFilter struct {
	field string
	op    string
	value interface{}
}

// memoryQuery is an immutable builder; each method derives a copy.
type memoryQuery struct {
	col        *memoryCollection
	filters    []memoryFilter
	orders     []Order
	startAfter []interface{}
	limit      int
}

func (q memoryQuery) Where(field, op string, value interface{}) Query {
	q.filters = append(append([]memoryFilter(nil), q.filters...), memoryFilter{field, op, value})
	return q
}

func (q memoryQuery) OrderBy(field string, dir Direction) Query {
	q.orders = append(append([]Order(nil), q.orders...), Order{Field: field, Direction: dir})
	return q
}

func (q memoryQuery) StartAfter(values ...interface{}) Query {
	q.startAfter = values
	return q
}

func (q memoryQuery) Limit(n int) Query {
	q.limit = n
	return q
}

func (q memoryQuery) Documents(_ context.Context) ([]*Document, error) {
	if len(q.startAfter) > 0 && len(q.startAfter) != len(q.orders) {
		return nil, fmt.Errorf("start-after values (%d) do not match order-by fields (%d)", len(q.startAfter), len(q.orders))
	}

	q.col.store.mu.RLock()
	var docs []*Document
	for id, data := range q.col.store.collections[q.col.name] {
		docs = append(docs, q.col.document(id, data))
	}
	q.col.store.mu.RUnlock()

	filtered := docs[:0]
	for _, doc := range docs {
		ok, err := q.matches(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, doc)
		}
	}
	docs = filtered

	sort.SliceStable(docs, func(i, j int) bool {
		return q.less(docs[i], docs[j])
	})

	if len(q.startAfter) > 0 {
		remaining := docs[:0]
		for _, doc := range docs {
			after, err := q.isAfterCursor(doc)
			if err != nil {
				return nil, err
			}
			if after {
				remaining = append(remaining, doc)
			}
		}
		docs = remaining
	}

	if q.limit >= 0 && len(docs) > q.limit {
		docs = docs[:q.limit]
	}
	return docs, nil
}

func (q memoryQuery) matches(doc *Document) (bool, error) {
	for _, f := range q.filters {
		value, _ := doc.Field(f.field)
		cmp, comparable := compareValues(value, f.value)
		switch f.op {
		case "==":
			if !comparable || cmp != 0 {
				return false, nil
			}
		case "!=":
			if !comparable || cmp == 0 {
				return false, nil
			}
		case "<":
			if !comparable || cmp >= 0 {
				return false, nil
			}
		case "<=":
			if !comparable || cmp > 0 {
				return false, nil
			}
		case ">":
			if !comparable || cmp <= 0 {
				return false, nil
			}
		case ">=":
			if !comparable || cmp < 0 {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported filter op %q", f.op)
		}
	}
	return true, nil
}

func (q memoryQuery) less(a, b *Document) bool {
	for _, order := range q.orders {
		av, _ := a.Field(order.Field)
		bv, _ := b.Field(order.Field)
		cmp, _ := compareValues(av, bv)
		if cmp == 0 {
			continue
		}
		if order.Direction == Descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

// isAfterCursor reports whether doc sorts strictly after the cursor
// position under the query's order keys.
func (q memoryQuery) isAfterCursor(doc *Document) (bool, error) {
	for i, order := range q.orders {
		cursorVal := q.startAfter[i]
		if order.Field == FieldDocumentID {
			ref, ok := cursorVal.(DocRef)
			if !ok {
				return false, fmt.Errorf("start-after value for %s must be a DocRef", FieldDocumentID)
			}
			cursorVal = ref.ID
		}

		docVal, _ := doc.Field(order.Field)
		cmp, comparable := compareValues(docVal, cursorVal)
		if !comparable {
			return false, fmt.Errorf("start-after value for field %q is not comparable to stored data", order.Field)
		}
		if cmp == 0 {
			continue
		}
		if order.Direction == Descending {
			return cmp < 0, nil
		}
		return cmp > 0, nil
	}
	return false, nil
}

// compareValues orders two stored values. Returns comparable=false for
// type mismatches that have no defined order. Numeric types compare
// across int/float/json.Number; nil sorts before everything.
func compareValues(a, b interface{}) (cmp int, comparable bool) {
	if a == nil && b == nil {
		return 0, true
	}
	if a == nil {
		return -1, true
	}
	if b == nil {
		return 1, true
	}

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
