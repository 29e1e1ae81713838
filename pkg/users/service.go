package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sjlangley/social-golf-spa/pkg/apierrors"
	"github.com/sjlangley/social-golf-spa/pkg/auth"
	"github.com/sjlangley/social-golf-spa/pkg/docstore"
	"github.com/sjlangley/social-golf-spa/pkg/observability"
	"github.com/sjlangley/social-golf-spa/pkg/pagination"
)

const (
	// DefaultCacheSize bounds the stored-user cache.
	DefaultCacheSize = 1024
	// DefaultCacheTTL keeps role and override changes from lagging the
	// store for too long.
	DefaultCacheTTL = 30 * time.Second
)

// sortFields are the user fields the listing endpoint may sort by.
var sortFields = map[string]struct{}{
	"userid": {},
	"email":  {},
	"name":   {},
}

// Service reads user records through a TTL-bounded LRU cache.
type Service struct {
	store   docstore.Store
	cache   *lru.LRU[string, *User]
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a user service. metrics may be nil.
func NewService(store docstore.Store, logger *observability.Logger, metrics *observability.Metrics, cacheSize int, ttl time.Duration) *Service {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		store:   store,
		cache:   lru.NewLRU[string, *User](cacheSize, nil, ttl),
		logger:  logger,
		metrics: metrics,
	}
}

// observeQuery records one store round-trip against the query metrics.
func (s *Service) observeQuery(start time.Time, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.StoreQueriesTotal.WithLabelValues(Collection, result).Inc()
	s.metrics.StoreQueryDuration.WithLabelValues(Collection).Observe(time.Since(start).Seconds())
}

// Get returns the stored user record, from cache when fresh.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if user, ok := s.cache.Get(id); ok {
		if s.metrics != nil {
			s.metrics.UserCacheHitsTotal.Inc()
		}
		return user, nil
	}
	if s.metrics != nil {
		s.metrics.UserCacheMissesTotal.Inc()
	}

	start := time.Now()
	doc, err := s.store.Collection(Collection).Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		s.observeQuery(start, "not_found")
		return nil, apierrors.NotFound(fmt.Sprintf("user %s not found", id))
	}
	if err != nil {
		s.observeQuery(start, "error")
		return nil, apierrors.Internal("failed to read user record", err)
	}
	s.observeQuery(start, "success")

	user, err := FromDocument(doc)
	if err != nil {
		return nil, apierrors.Internal("malformed user record", err)
	}
	s.cache.Add(id, user)
	return user, nil
}

// Enrich overlays the stored user record onto a verified identity:
// stored roles and permission overrides replace whatever the token
// carried, and profile fields fill in when the token left them empty.
// An identity without a stored record passes through untouched.
func (s *Service) Enrich(ctx context.Context, identity *auth.Identity) error {
	user, err := s.Get(ctx, identity.UserID)
	if errors.Is(err, apierrors.ErrNotFound) {
		s.logger.WithField("userid", identity.UserID).Debug("no stored record for user, using token identity only")
		return nil
	}
	if err != nil {
		return err
	}

	identity.Roles = user.Roles
	identity.Overrides = user.Overrides
	if identity.Email == "" {
		identity.Email = user.Email
	}
	if identity.Name == "" {
		identity.Name = user.Name
	}
	return nil
}

// ListOptions control the user listing.
type ListOptions struct {
	// PageSize is clamped by the pagination layer; zero means the
	// default page size.
	PageSize int
	// SortBy is one of userid, email, name. Empty means userid.
	SortBy string
	// SortDirection defaults to ascending.
	SortDirection docstore.Direction
	// Cursor resumes a previous listing.
	Cursor string
}

// Page is one page of users plus the continuation cursor, empty on the
// final page.
type Page struct {
	Users      []*User `json:"users"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// List returns users ordered by the requested field, paginated by
// cursor.
func (s *Service) List(ctx context.Context, opts ListOptions) (*Page, error) {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "userid"
	}
	if _, ok := sortFields[sortBy]; !ok {
		return nil, apierrors.InvalidArgumentf("unsupported sort field %q", sortBy)
	}
	direction := opts.SortDirection
	if direction == "" {
		direction = docstore.Ascending
	}
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = pagination.DefaultPageSize
	}

	orderBy := []docstore.Order{
		{Field: sortBy, Direction: direction},
		{Field: docstore.FieldDocumentID, Direction: docstore.Ascending},
	}

	start := time.Now()
	page, err := pagination.ListPage(ctx, s.store.Collection(Collection), nil, orderBy, pageSize, opts.Cursor)
	if err != nil {
		s.observeQuery(start, "error")
		return nil, err
	}
	s.observeQuery(start, "success")

	result := &Page{
		Users:      make([]*User, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, doc := range page.Items {
		user, err := FromDocument(doc)
		if err != nil {
			return nil, apierrors.Internal("malformed user record", err)
		}
		result.Users = append(result.Users, user)
	}
	return result, nil
}
