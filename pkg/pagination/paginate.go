package pagination

import (
	"context"
	"fmt"

	"github.com/sjlangley/social-golf-spa/pkg/apierrors"
	"github.com/sjlangley/social-golf-spa/pkg/docstore"
)

const (
	// DefaultPageSize applies when the caller does not specify a limit.
	DefaultPageSize = 50
	// MaxPageSize bounds a single page.
	MaxPageSize = 100
)

// Page is one page of documents plus the continuation token for the
// next page. NextCursor is empty when no further page exists.
type Page struct {
	Items      []*docstore.Document
	NextCursor string
}

// ListPage runs a forward-only paginated query over a collection.
//
// orderBy is applied in order as sort keys and its final field must be
// docstore.FieldDocumentID: the permanent identifier is the tie-break
// that keeps pagination stable when order-key values collide, and an
// order-by missing it is rejected rather than silently unstable.
//
// base carries the caller's filters; pass nil for an unfiltered scan
// of the collection. The filter composes with pagination untouched: a
// page contains only matching records, in the declared order.
//
// One extra record beyond pageSize is fetched to detect whether a
// further page exists without a count query. The next cursor is built
// from the last returned record's order-key values, with the document
// identifier encoded as its path string.
//
// Consistency: if concurrent writers reorder a record relative to the
// cursor's recorded values between two calls, that record may be
// skipped or repeated. That is accepted, not corrected.
func ListPage(ctx context.Context, col docstore.Collection, base docstore.Query, orderBy []docstore.Order, pageSize int, cursor string) (*Page, error) {
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, apierrors.InvalidArgumentf("page_size must be between 1 and %d", MaxPageSize)
	}
	if len(orderBy) == 0 {
		return nil, apierrors.InvalidArgument("order_by must have at least one field")
	}
	if orderBy[len(orderBy)-1].Field != docstore.FieldDocumentID {
		return nil, apierrors.InvalidArgumentf("order_by must end with the %s tie-break field", docstore.FieldDocumentID)
	}

	q := base
	if q == nil {
		q = col.Query()
	}
	for _, order := range orderBy {
		q = q.OrderBy(order.Field, order.Direction)
	}

	if cursor != "" {
		startAfter, err := resolveCursor(col, orderBy, cursor)
		if err != nil {
			return nil, err
		}
		q = q.StartAfter(startAfter...)
	}

	docs, err := q.Limit(pageSize + 1).Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute paginated query: %w", err)
	}

	page := &Page{Items: docs}
	if len(docs) <= pageSize {
		return page, nil
	}

	page.Items = docs[:pageSize]
	last := page.Items[len(page.Items)-1]

	payload := make(map[string]interface{}, len(orderBy))
	for _, order := range orderBy {
		if order.Field == docstore.FieldDocumentID {
			payload[order.Field] = last.Path
			continue
		}
		value, ok := last.Field(order.Field)
		if !ok {
			// A declared order-by field absent from stored data is a
			// schema/ordering mismatch, not a caller mistake.
			return nil, apierrors.Internal(
				fmt.Sprintf("record %s is missing order field %q", last.Path, order.Field), nil)
		}
		payload[order.Field] = value
	}

	next, err := EncodeCursor(payload)
	if err != nil {
		return nil, apierrors.Internal("failed to encode continuation cursor", err)
	}
	page.NextCursor = next
	return page, nil
}

// resolveCursor decodes a continuation token and resolves it into
// store-level start-after values. Decoding is store-aware: the
// document-ID entry is a stored path string that must resolve back to
// a reference in this collection.
func resolveCursor(col docstore.Collection, orderBy []docstore.Order, cursor string) ([]interface{}, error) {
	values, err := DecodeCursor(cursor)
	if err != nil {
		return nil, apierrors.InvalidArgument("invalid cursor")
	}

	startAfter := make([]interface{}, 0, len(orderBy))
	for _, order := range orderBy {
		value, ok := values[order.Field]
		if !ok {
			return nil, apierrors.InvalidArgumentf("cursor missing field %q", order.Field)
		}
		if order.Field == docstore.FieldDocumentID {
			path, ok := value.(string)
			if !ok {
				return nil, apierrors.InvalidArgument("invalid cursor")
			}
			ref, err := docstore.ParseRef(path)
			if err != nil {
				return nil, apierrors.InvalidArgument("invalid cursor")
			}
			if ref.Collection != col.Name() {
				return nil, apierrors.InvalidArgument("cursor does not belong to this collection")
			}
			startAfter = append(startAfter, ref)
			continue
		}
		startAfter = append(startAfter, value)
	}
	return startAfter, nil
}
